// Package vendorclient sends stamped requests to the custody vendor API.
//
// Each call is a single attempt. Retrying with fresh inputs is the caller's decision.
package vendorclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/custody-labs/custody-crypto/pkg/signer"
)

const (
	defaultTimeout = 30 * time.Second
	whoamiPath     = "/public/v1/query/whoami"
)

// APIError is a non-2xx vendor response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vendor returned status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	Logger     *zap.Logger
	stamper    signer.Stamper
	baseURL    string
	httpClient *http.Client
}

func NewClient(logger *zap.Logger, stamper signer.Stamper, baseURL string) *Client {
	return &Client{
		Logger:     logger,
		stamper:    stamper,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Post JSON-encodes body, stamps the exact encoded bytes and returns the response body.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.PostRaw(ctx, path, payload)
}

// PostRaw stamps and sends payload as is.
func (c *Client) PostRaw(ctx context.Context, path string, payload []byte) ([]byte, error) {
	header, stamp, err := c.stamper.Stamp(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to stamp request: %w", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(header, stamp)

	c.Logger.Sugar().Debugw("Sending vendor request", "url", url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// WhoamiResponse identifies the caller's API key.
type WhoamiResponse struct {
	OrganizationID   string `json:"organizationId"`
	OrganizationName string `json:"organizationName"`
	UserID           string `json:"userId"`
	Username         string `json:"username"`
}

// Whoami resolves the organization and user that own the stamping key.
func (c *Client) Whoami(ctx context.Context, organizationID string) (*WhoamiResponse, error) {
	body, err := c.Post(ctx, whoamiPath, map[string]string{"organizationId": organizationID})
	if err != nil {
		return nil, err
	}
	var out WhoamiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal whoami response: %w", err)
	}
	return &out, nil
}
