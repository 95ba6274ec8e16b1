package agent

import (
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/custody-labs/custody-crypto/internal/config"
	"github.com/custody-labs/custody-crypto/internal/session"
	"github.com/custody-labs/custody-crypto/pkg/cryptoerr"
	"github.com/custody-labs/custody-crypto/pkg/curve"
	"github.com/custody-labs/custody-crypto/pkg/enclave"
	"github.com/custody-labs/custody-crypto/pkg/hpke"
	"github.com/custody-labs/custody-crypto/pkg/signer"
	"github.com/custody-labs/custody-crypto/pkg/types"
)

type testAgent struct {
	handler *Handler
	server  *httptest.Server
	vendor  *httptest.Server
	apiPub  string
}

func newTestAgent(t *testing.T, vendor http.HandlerFunc, opts ...func(*config.Config)) *testAgent {
	t.Helper()
	kp, err := curve.GenerateKeypair(true)
	require.NoError(t, err)

	vsrv := httptest.NewServer(vendor)
	t.Cleanup(vsrv.Close)
	u, err := url.Parse(vsrv.URL)
	require.NoError(t, err)

	cfg := &config.Config{
		VendorAPI:     u,
		APIPublicKey:  hex.EncodeToString(kp.PublicKey),
		APIPrivateKey: hex.EncodeToString(kp.PrivateKey),
		SessionTTL:    time.Minute,
		NonceMode:     config.NonceDeterministic,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	h := New(zap.NewNop(), cfg, session.NewCache(cfg.SessionTTL, cfg.Engine()), vsrv.Client())
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	return &testAgent{handler: h, server: srv, vendor: vsrv, apiPub: cfg.APIPublicKey}
}

func (a *testAgent) post(t *testing.T, path, body string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	for k, vv := range header {
		req.Header[k] = vv
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthz(t *testing.T) {
	a := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {})
	resp, err := http.Get(a.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStampWithAPIKey(t *testing.T) {
	a := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {})
	resp := a.post(t, "/v1/stamp", `{"type":"ACTIVITY_TYPE_CREATE_WALLET"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := decode[types.StampResponse](t, resp)
	assert.Equal(t, signer.StampHeader, out.Header)
	pub, err := signer.VerifyStamp(out.Stamp, `{"type":"ACTIVITY_TYPE_CREATE_WALLET"}`)
	require.NoError(t, err)
	assert.Equal(t, a.apiPub, pub)
}

func TestProxyForwardsStampedBody(t *testing.T) {
	var gotPath, gotQuery string
	a := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		if _, err := signer.VerifyStamp(r.Header.Get(signer.StampHeader), string(body)); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get(SessionHeader) != "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("X-Vendor", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"activity":{"id":"a-1"}}`))
	})

	resp := a.post(t, "/public/v1/submit/create_wallet?dry=1", `{"organizationId":"org"}`, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "yes", resp.Header.Get("X-Vendor"))
	assert.Equal(t, "/public/v1/submit/create_wallet", gotPath)
	assert.Equal(t, "dry=1", gotQuery)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"activity":{"id":"a-1"}}`, string(body))
}

func TestProxyKeepsVendorBasePath(t *testing.T) {
	var gotPath string
	a := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}, func(cfg *config.Config) { cfg.VendorAPI.Path = "/api/" })

	resp := a.post(t, "/public/v1/query/whoami", `{}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/api/public/v1/query/whoami", gotPath)
}

func TestVendorURL(t *testing.T) {
	cases := []struct {
		base, in, want string
	}{
		{"https://v.example", "/public/v1/x", "https://v.example/public/v1/x"},
		{"https://v.example/", "/public/v1/x", "https://v.example/public/v1/x"},
		{"https://v.example/api", "/public/v1/x?a=1", "https://v.example/api/public/v1/x?a=1"},
		{"https://v.example/api/?old=1", "/x", "https://v.example/api/x"},
	}
	for _, tc := range cases {
		base, err := url.Parse(tc.base)
		require.NoError(t, err)
		in, err := url.Parse(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, vendorURL(base, in).String(), "base %s", tc.base)
	}
}

func TestWhoami(t *testing.T) {
	vendor := func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.URL.Path != "/public/v1/query/whoami" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if _, err := signer.VerifyStamp(r.Header.Get(signer.StampHeader), string(body)); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req map[string]string
		_ = json.Unmarshal(body, &req)
		if req["organizationId"] != "org-1" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"wrong organization"}`))
			return
		}
		_, _ = w.Write([]byte(`{"organizationId":"org-1","organizationName":"Acme","userId":"u-1","username":"ops"}`))
	}
	withOrg := func(id string) func(*config.Config) {
		return func(cfg *config.Config) { cfg.OrganizationID = id }
	}
	get := func(t *testing.T, a *testAgent) *http.Response {
		t.Helper()
		resp, err := http.Get(a.server.URL + "/v1/whoami")
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	t.Run("organization not configured", func(t *testing.T) {
		resp := get(t, newTestAgent(t, vendor))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	t.Run("resolves the api key owner", func(t *testing.T) {
		resp := get(t, newTestAgent(t, vendor, withOrg("org-1")))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		out := decode[map[string]string](t, resp)
		assert.Equal(t, "u-1", out["userId"])
		assert.Equal(t, "Acme", out["organizationName"])
	})

	t.Run("vendor status is passed through", func(t *testing.T) {
		resp := get(t, newTestAgent(t, vendor, withOrg("org-2")))
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		e := decode[apiError](t, resp)
		assert.Equal(t, "vendor_error", e.Error.Code)
	})
}

func TestVerifyEnvelope(t *testing.T) {
	enclaveKey, err := curve.GenerateKeypair(false)
	require.NoError(t, err)
	enclaveSK := hex.EncodeToString(enclaveKey.PrivateKey)
	noVendor := func(w http.ResponseWriter, r *http.Request) {}

	envelopeJSON := func(t *testing.T, data, signerSK string) string {
		t.Helper()
		env, err := enclave.SignEnvelope([]byte(data), signerSK)
		require.NoError(t, err)
		b, err := json.Marshal(env)
		require.NoError(t, err)
		return string(b)
	}
	signed := envelopeJSON(t, `{"organizationId":"org-1"}`, enclaveSK)

	t.Run("no trusted signer configured", func(t *testing.T) {
		resp := newTestAgent(t, noVendor).post(t, "/v1/envelopes/verify", signed, nil)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})

	a := newTestAgent(t, noVendor, func(cfg *config.Config) {
		cfg.TrustedSignerKey = hex.EncodeToString(enclaveKey.PublicKey)
	})

	t.Run("trusted envelope", func(t *testing.T) {
		resp := a.post(t, "/v1/envelopes/verify", signed, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		out := decode[types.VerifiedEnvelopeResponse](t, resp)
		assert.True(t, out.Verified)
		assert.JSONEq(t, `{"organizationId":"org-1"}`, string(out.Data))
	})

	t.Run("other signer", func(t *testing.T) {
		other, err := curve.GenerateKeypair(false)
		require.NoError(t, err)
		resp := a.post(t, "/v1/envelopes/verify", envelopeJSON(t, `{}`, hex.EncodeToString(other.PrivateKey)), nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("signed data is not json", func(t *testing.T) {
		resp := a.post(t, "/v1/envelopes/verify", envelopeJSON(t, "plain", enclaveSK), nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed envelope", func(t *testing.T) {
		resp := a.post(t, "/v1/envelopes/verify", "{", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestSessionFlow(t *testing.T) {
	var vendorSaw string
	a := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		pub, err := signer.VerifyStamp(r.Header.Get(signer.StampHeader), string(body))
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		vendorSaw = pub
		w.WriteHeader(http.StatusOK)
	})

	resp := a.post(t, "/v1/sessions", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	started := decode[types.SessionStartResponse](t, resp)
	require.NotEmpty(t, started.SessionID)

	sessionKey, err := curve.GenerateKeypair(true)
	require.NoError(t, err)
	target, err := hex.DecodeString(started.TargetPublicKey)
	require.NoError(t, err)
	enc, ct, err := hpke.Seal(sessionKey.PrivateKey, target)
	require.NoError(t, err)
	bundle, err := hpke.EncodeCredentialBundle(enc, ct, hpke.EncodingHex)
	require.NoError(t, err)

	reqBody, err := json.Marshal(types.SessionBundleRequest{CredentialBundle: bundle})
	require.NoError(t, err)
	resp = a.post(t, "/v1/sessions/"+started.SessionID+"/bundle", string(reqBody), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sess := decode[types.SessionResponse](t, resp)
	assert.Equal(t, hex.EncodeToString(sessionKey.PublicKey), sess.SessionPublicKey)

	header := http.Header{SessionHeader: []string{started.SessionID}}
	resp = a.post(t, "/public/v1/submit/sign_transaction", `{"x":1}`, header)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, sess.SessionPublicKey, vendorSaw)

	t.Run("bundle cannot be replayed", func(t *testing.T) {
		resp := a.post(t, "/v1/sessions/"+started.SessionID+"/bundle", string(reqBody), nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("unknown session", func(t *testing.T) {
		resp := a.post(t, "/v1/stamp", "x", http.Header{SessionHeader: []string{"nope"}})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestSessionBundleErrors(t *testing.T) {
	a := newTestAgent(t, func(w http.ResponseWriter, r *http.Request) {})

	t.Run("malformed body", func(t *testing.T) {
		resp := a.post(t, "/v1/sessions/abc/bundle", "{", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed bundle", func(t *testing.T) {
		started := decode[types.SessionStartResponse](t, a.post(t, "/v1/sessions", "", nil))
		resp := a.post(t, "/v1/sessions/"+started.SessionID+"/bundle", `{"credential_bundle":"0OIl"}`, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		e := decode[apiError](t, resp)
		assert.Equal(t, "bundle_format", e.Error.Code)
	})

	t.Run("bundle sealed to another key", func(t *testing.T) {
		started := decode[types.SessionStartResponse](t, a.post(t, "/v1/sessions", "", nil))
		other, err := curve.GenerateKeypair(false)
		require.NoError(t, err)
		enc, ct, err := hpke.Seal(make([]byte, 32), other.PublicKey)
		require.NoError(t, err)
		bundle, err := hpke.EncodeCredentialBundle(enc, ct, hpke.EncodingHex)
		require.NoError(t, err)

		resp := a.post(t, "/v1/sessions/"+started.SessionID+"/bundle", `{"credential_bundle":"`+bundle+`"}`, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestStatusForKind(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusForKind(cryptoerr.KindValidation))
	assert.Equal(t, http.StatusBadRequest, StatusForKind(cryptoerr.KindBundleFormat))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusForKind(cryptoerr.KindCryptographic))
	assert.Equal(t, http.StatusInternalServerError, StatusForKind(cryptoerr.KindConfiguration))
	assert.Equal(t, http.StatusInternalServerError, StatusForKind(cryptoerr.KindUnknown))
}
