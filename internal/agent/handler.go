// Package agent implements the stamp agent: a local sidecar that signs vendor requests
// with the configured API key or a session key and forwards them to the vendor.
package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/custody-labs/custody-crypto/internal/config"
	"github.com/custody-labs/custody-crypto/internal/session"
	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
	"github.com/custody-labs/custody-crypto/pkg/enclave"
	"github.com/custody-labs/custody-crypto/pkg/signer"
	"github.com/custody-labs/custody-crypto/pkg/types"
	"github.com/custody-labs/custody-crypto/pkg/vendorclient"
)

const (
	SessionHeader = "X-Session-Id"

	maxBodyBytes = 8 << 20 // 8 MiB
)

type Handler struct {
	logger   *zap.Logger
	cfg      *config.Config
	sessions *session.Cache
	apiKey   signer.Stamper
	client   *http.Client
	vendor   *vendorclient.Client
	now      func() time.Time
}

func New(logger *zap.Logger, cfg *config.Config, sessions *session.Cache, client *http.Client) *Handler {
	apiKey := &signer.APIKeyStamper{
		PublicKeyHex:  cfg.APIPublicKey,
		PrivateKeyHex: cfg.APIPrivateKey,
		Engine:        cfg.Engine(),
	}
	return &Handler{
		logger:   logger,
		cfg:      cfg,
		sessions: sessions,
		apiKey:   apiKey,
		client:   client,
		vendor:   vendorclient.NewClient(logger, apiKey, cfg.VendorAPI.String()).WithHTTPClient(client),
		now:      time.Now,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("POST /v1/stamp", h.handleStamp)
	mux.HandleFunc("POST /v1/sessions", h.handleSessionStart)
	mux.HandleFunc("POST /v1/sessions/{id}/bundle", h.handleSessionBundle)
	mux.HandleFunc("GET /v1/whoami", h.handleWhoami)
	mux.HandleFunc("POST /v1/envelopes/verify", h.handleVerifyEnvelope)
	mux.HandleFunc("/", h.handleProxy)
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleStamp(w http.ResponseWriter, r *http.Request) {
	body, err := readBodyLimited(r.Body, maxBodyBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	stamper, err := h.stamperFor(r)
	if err != nil {
		h.writeKindError(w, err)
		return
	}
	header, stamp, err := stamper.Stamp(body)
	if err != nil {
		h.writeKindError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.StampResponse{Header: header, Stamp: stamp})
}

func (h *Handler) handleSessionStart(w http.ResponseWriter, _ *http.Request) {
	started, err := h.sessions.Begin(h.now())
	if err != nil {
		h.writeKindError(w, err)
		return
	}
	h.logger.Sugar().Infow("Session started", "session_id", started.ID, "expires_at", started.ExpiresAt)
	writeJSON(w, http.StatusOK, types.SessionStartResponse{
		SessionID:       started.ID,
		TargetPublicKey: started.TargetPublicKey,
	})
}

func (h *Handler) handleSessionBundle(w http.ResponseWriter, r *http.Request) {
	body, err := readBodyLimited(r.Body, maxBodyBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	var req types.SessionBundleRequest
	if err := json.Unmarshal(body, &req); err != nil || req.CredentialBundle == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "expected {\"credential_bundle\": \"...\"}")
		return
	}

	id := r.PathValue("id")
	sess, err := h.sessions.Complete(id, req.CredentialBundle, h.now())
	if err != nil {
		h.logger.Sugar().Warnw("Session bundle rejected", "session_id", id, "kind", cryptoerr.KindOf(err).String())
		h.writeKindError(w, err)
		return
	}
	h.logger.Sugar().Infow("Session established", "session_id", id, "session_public_key", sess.PublicKey)
	writeJSON(w, http.StatusOK, types.SessionResponse{
		SessionID:        sess.ID,
		SessionPublicKey: sess.PublicKey,
		ExpiresAt:        sess.ExpiresAt.Unix(),
	})
}

// handleWhoami asks the vendor which organization and user own the configured API key.
func (h *Handler) handleWhoami(w http.ResponseWriter, r *http.Request) {
	if h.cfg.OrganizationID == "" {
		h.writeKindError(w, cryptoerr.Configuration("whoami", fmt.Errorf("%w: ORGANIZATION_ID is not set", cryptoerr.ErrMissingKeyMaterial)))
		return
	}
	out, err := h.vendor.Whoami(r.Context(), h.cfg.OrganizationID)
	if err != nil {
		var apiErr *vendorclient.APIError
		if errors.As(err, &apiErr) {
			writeError(w, apiErr.StatusCode, "vendor_error", apiErr.Body)
			return
		}
		h.logger.Sugar().Errorw("Whoami failed", "error", err)
		writeError(w, http.StatusBadGateway, "upstream_unreachable", "failed to reach vendor")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleVerifyEnvelope checks an enclave-signed bundle against ENCLAVE_SIGNER_PUBLIC_KEY and
// returns the signed data.
func (h *Handler) handleVerifyEnvelope(w http.ResponseWriter, r *http.Request) {
	body, err := readBodyLimited(r.Body, maxBodyBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	env, err := enclave.ParseEnvelope(string(body))
	if err != nil {
		h.writeKindError(w, err)
		return
	}
	data, err := enclave.VerifySignedEnvelope(env, h.cfg.TrustedSignerKey)
	if err != nil {
		h.writeKindError(w, err)
		return
	}
	if !json.Valid(data) {
		h.writeKindError(w, cryptoerr.BundleFormatf("verify envelope", "signed data is not JSON"))
		return
	}
	writeJSON(w, http.StatusOK, types.VerifiedEnvelopeResponse{Verified: true, Data: json.RawMessage(data)})
}

// handleProxy stamps the exact inbound body and forwards the request to the vendor.
func (h *Handler) handleProxy(w http.ResponseWriter, r *http.Request) {
	body, err := readBodyLimited(r.Body, maxBodyBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	stamper, err := h.stamperFor(r)
	if err != nil {
		h.writeKindError(w, err)
		return
	}
	header, stamp, err := stamper.Stamp(body)
	if err != nil {
		h.writeKindError(w, err)
		return
	}

	upURL := vendorURL(h.cfg.VendorAPI, r.URL)
	upReq, err := http.NewRequestWithContext(r.Context(), r.Method, upURL.String(), bytes.NewReader(body))
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream_request_error", "failed to create upstream request")
		return
	}
	copyHeaders(upReq.Header, r.Header)
	upReq.Header.Del(SessionHeader)
	upReq.Header.Set(header, stamp)
	upReq.Host = h.cfg.VendorAPI.Host

	resp, err := h.client.Do(upReq)
	if err != nil {
		h.logger.Sugar().Errorw("Vendor unreachable", "url", upURL.String(), "error", err)
		writeError(w, http.StatusBadGateway, "upstream_unreachable", "failed to reach vendor")
		return
	}
	defer resp.Body.Close()

	h.logger.Sugar().Debugw("Forwarded vendor request", "method", r.Method, "path", r.URL.Path, "status", resp.StatusCode)
	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// vendorURL appends the inbound path to the vendor base URL, keeping any base path.
func vendorURL(base, in *url.URL) *url.URL {
	u := *base
	u.Path = strings.TrimSuffix(base.Path, "/") + "/" + strings.TrimPrefix(in.Path, "/")
	u.RawPath = ""
	u.RawQuery = in.RawQuery
	u.Fragment = ""
	return &u
}

func (h *Handler) stamperFor(r *http.Request) (signer.Stamper, error) {
	id := strings.TrimSpace(r.Header.Get(SessionHeader))
	if id == "" {
		return h.apiKey, nil
	}
	return h.sessions.Stamper(id, h.now())
}

// StatusForKind maps an error kind to the HTTP status the agent answers with.
func StatusForKind(k cryptoerr.Kind) int {
	switch k {
	case cryptoerr.KindValidation, cryptoerr.KindBundleFormat:
		return http.StatusBadRequest
	case cryptoerr.KindCryptographic:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeKindError(w http.ResponseWriter, err error) {
	kind := cryptoerr.KindOf(err)
	status := StatusForKind(kind)
	if status == http.StatusInternalServerError {
		h.logger.Sugar().Errorw("Request failed", "kind", kind.String(), "error", err)
	}
	if errors.Is(err, session.ErrUnknownSession) {
		status = http.StatusNotFound
	}
	writeError(w, status, kind.String(), err.Error())
}

func copyHeaders(dst, src http.Header) {
	for k, vv := range src {
		if isHopByHopHeader(k) {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

func isHopByHopHeader(k string) bool {
	switch strings.ToLower(k) {
	case "connection",
		"proxy-connection",
		"keep-alive",
		"proxy-authenticate",
		"proxy-authorization",
		"te",
		"trailer",
		"transfer-encoding",
		"upgrade",
		"content-length":
		return true
	default:
		return false
	}
}

func readBodyLimited(r io.Reader, max int64) ([]byte, error) {
	lr := io.LimitReader(r, max+1)
	b, err := io.ReadAll(lr)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(b)) > max {
		return nil, fmt.Errorf("body too large (max %d bytes)", max)
	}
	return b, nil
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	var e apiError
	e.Error.Code = code
	e.Error.Message = msg
	writeJSON(w, status, e)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
