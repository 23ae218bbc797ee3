// Package upstream is the HTTP client for the third-party education API:
// OTP login, token refresh and the read-only batch resources.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/classgate/internal/common"
	"github.com/dmitrijs2005/classgate/internal/logging"
)

const maxResponseBytes = 4 << 20

// TokenPair is the upstream access/refresh pair. Both rotate together.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// StatusError is a non-2xx upstream answer.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s: status %d", e.Op, e.StatusCode)
}

// RefreshFailedError is returned by Refresh when upstream rejected the
// refresh token or could not be reached. StatusCode is 0 for transport
// failures. It matches common.ErrRefreshFailed.
type RefreshFailedError struct {
	StatusCode int
	Err        error
}

func (e *RefreshFailedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d", common.ErrRefreshFailed, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", common.ErrRefreshFailed, e.Err)
}

func (e *RefreshFailedError) Is(target error) bool { return target == common.ErrRefreshFailed }

func (e *RefreshFailedError) Unwrap() error { return e.Err }

type Client struct {
	baseURL    string
	orgCode    string
	httpClient *http.Client
	logger     logging.Logger
}

func NewClient(baseURL, orgCode string, timeout time.Duration, logger logging.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		orgCode:    orgCode,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("module", "upstream"),
	}
}

// RequestOTP asks upstream to text an OTP to phone and returns the
// verification session id.
func (c *Client) RequestOTP(ctx context.Context, phone string) (string, error) {
	in := map[string]string{"phoneNumber": phone, "orgCode": c.orgCode}
	var out struct {
		SessionID string `json:"sessionId"`
	}

	status, err := c.postJSON(ctx, "/v2/otp/generate", in, &out)
	if err != nil {
		return "", err
	}
	if status != 0 {
		if status == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %w", common.ErrOTPRateLimited, &StatusError{Op: "otp generate", StatusCode: status})
		}
		return "", &StatusError{Op: "otp generate", StatusCode: status}
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("upstream otp generate: empty session id")
	}

	return out.SessionID, nil
}

// VerifyOTP exchanges a correct OTP for a fresh token pair. A rejected code
// matches common.ErrInvalidCredentials.
func (c *Client) VerifyOTP(ctx context.Context, phone, otp, sessionID string) (*TokenPair, error) {
	in := map[string]string{"phoneNumber": phone, "otp": otp, "sessionId": sessionID}
	var out TokenPair

	status, err := c.postJSON(ctx, "/v2/otp/verify", in, &out)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidCredentials, &StatusError{Op: "otp verify", StatusCode: status})
	case status != 0:
		return nil, &StatusError{Op: "otp verify", StatusCode: status}
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		return nil, fmt.Errorf("upstream otp verify: incomplete token pair")
	}

	return &out, nil
}

// Refresh exchanges refreshToken for a new pair. It performs exactly one
// request and never touches storage.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	in := map[string]string{"refreshToken": refreshToken}
	var out TokenPair

	status, err := c.postJSON(ctx, "/v2/oauth/refresh", in, &out)
	if err != nil {
		var transport *transportError
		if errors.As(err, &transport) {
			return nil, &RefreshFailedError{Err: transport.err}
		}
		return nil, err
	}
	if status != 0 {
		return nil, &RefreshFailedError{StatusCode: status, Err: &StatusError{Op: "refresh", StatusCode: status}}
	}
	if out.AccessToken == "" || out.RefreshToken == "" {
		return nil, fmt.Errorf("upstream refresh: incomplete token pair")
	}

	return &out, nil
}

// Get fetches a read-only resource with accessToken as bearer and returns
// the raw JSON body. A 401 matches common.ErrUpstreamUnauthorized.
func (c *Client) Get(ctx context.Context, accessToken, path string, query url.Values) (json.RawMessage, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "upstream request failed", "path", path, "error", err)
		return nil, fmt.Errorf("upstream get %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("upstream get %s: read body: %w", path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: %w", common.ErrUpstreamUnauthorized, &StatusError{Op: "get " + path, StatusCode: resp.StatusCode})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug(ctx, "upstream returned non-2xx", "path", path, "status_code", resp.StatusCode)
		return nil, &StatusError{Op: "get " + path, StatusCode: resp.StatusCode}
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("upstream get %s: malformed json", path)
	}

	return json.RawMessage(body), nil
}

type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// postJSON sends in as JSON. It returns the status code when it is not 2xx
// (and 0 otherwise, after decoding the body into out). Transport failures
// come back as *transportError.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) (int, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn(ctx, "upstream request failed", "path", path, "error", err)
		return 0, &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		c.logger.Debug(ctx, "upstream returned non-2xx", "path", path, "status_code", resp.StatusCode)
		return resp.StatusCode, nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return 0, fmt.Errorf("upstream %s: malformed response: %w", path, err)
	}

	return 0, nil
}
