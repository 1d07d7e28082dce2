package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"sync"

	"github.com/drivelink/drivelink/internal/config"
	httpx "github.com/drivelink/drivelink/internal/http"
	"github.com/drivelink/drivelink/internal/logging"
	"github.com/drivelink/drivelink/internal/models"
)

const (
	loginPath   = "/auth/login"
	signupPath  = "/auth/signup"
	refreshPath = "/auth/refresh"
)

// Client is the authenticated HTTP client for the storage service.
//
// Token selection: requests to the refresh endpoint carry the refresh
// token; everything else carries the access token when one is stored.
// A 401 on an access-token request triggers the single-flight refresh
// protocol: one refresh call per expiry, concurrent 401s park on it, and
// every parked request is replayed exactly once with the new token.
type Client struct {
	httpClient *nethttp.Client
	baseURL    string
	store      *config.CredentialStore
	logger     *logging.Logger

	// Refresh state machine: refreshWait is non-nil while a refresh is in
	// flight; parked requests wait on it and read refreshErr afterwards.
	refreshMu   sync.Mutex
	refreshWait chan struct{}
	refreshErr  error

	// expiredHandler runs after a failed refresh clears credentials.
	// The session manager uses it to force the session to Anonymous.
	expiredHandler func()
}

// NewClient creates an API client from configuration and a credential store.
func NewClient(cfg *config.Config, store *config.CredentialStore, logger *logging.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	httpClient, err := httpx.NewRetryClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.APIBaseURL(),
		store:      store,
		logger:     logger,
	}, nil
}

// SetSessionExpiredHandler registers the callback invoked when a token
// refresh fails terminally and credentials have been cleared.
func (c *Client) SetSessionExpiredHandler(fn func()) {
	c.expiredHandler = fn
}

// BaseURL returns the API root this client dials.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doJSON performs a JSON request and returns the raw response.
// The caller owns resp.Body.
func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}) (*nethttp.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}
	return c.doRaw(ctx, method, path, "application/json", payload, nil)
}

// doRaw performs a request with a replayable byte payload. A nil payload
// sends no body. progress, when set, observes payload bytes as the
// transport consumes them.
func (c *Client) doRaw(ctx context.Context, method, path, contentType string, payload []byte, progress func(float64)) (*nethttp.Response, error) {
	resp, usedAccess, err := c.send(ctx, method, path, contentType, payload, progress)
	if err != nil {
		return nil, err
	}

	// 401 on an access-token request enters the refresh protocol. The
	// refresh endpoint itself and unauthenticated calls (login, signup)
	// surface their 401s directly.
	if resp.StatusCode != nethttp.StatusUnauthorized || !usedAccess || path == refreshPath {
		return resp, nil
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if err := c.refreshAccessToken(ctx); err != nil {
		return nil, err
	}

	// Replay once with the new access token; a second 401 is final.
	resp, _, err = c.send(ctx, method, path, contentType, payload, progress)
	return resp, err
}

// send dispatches a single attempt. It reports whether the access token
// was attached, which decides refresh eligibility on 401.
func (c *Client) send(ctx context.Context, method, path, contentType string, payload []byte, progress func(float64)) (*nethttp.Response, bool, error) {
	var body io.Reader
	if payload != nil {
		if progress != nil {
			// A seekable body passes through the retrying transport
			// unbuffered and is rewound between attempts, so progress
			// reflects bytes actually handed to the wire.
			body = &progressReader{r: bytes.NewReader(payload), total: int64(len(payload)), report: progress}
		} else {
			body = bytes.NewReader(payload)
		}
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.ContentLength = int64(len(payload))
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	usedAccess := c.attachAuth(req, path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return nil, usedAccess, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return resp, usedAccess, nil
}

// attachAuth sets the Authorization header per endpoint and reports
// whether the access token was used. Login and signup are anonymous: a
// stale stored token must not ride along and drag their 401s into the
// refresh protocol.
func (c *Client) attachAuth(req *nethttp.Request, path string) bool {
	pair := c.store.Get()
	switch path {
	case refreshPath:
		if pair.HasRefresh() {
			req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
		}
		return false
	case loginPath, signupPath:
		return false
	}
	if pair.HasAccess() {
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		return true
	}
	return false
}

// refreshAccessToken runs the single-flight refresh protocol. Exactly one
// caller performs the remote refresh; concurrent callers park until it
// settles and share its outcome.
func (c *Client) refreshAccessToken(ctx context.Context) error {
	c.refreshMu.Lock()
	if c.refreshWait != nil {
		ch := c.refreshWait
		c.refreshMu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		c.refreshMu.Lock()
		err := c.refreshErr
		c.refreshMu.Unlock()
		return err
	}

	ch := make(chan struct{})
	c.refreshWait = ch
	c.refreshMu.Unlock()

	err := c.performRefresh(ctx)

	c.refreshMu.Lock()
	c.refreshErr = err
	c.refreshWait = nil
	close(ch)
	c.refreshMu.Unlock()
	return err
}

// performRefresh exchanges the refresh token for a new pair. Any failure
// clears stored credentials and notifies the session layer: a client that
// cannot refresh holds a dead session.
func (c *Client) performRefresh(ctx context.Context) error {
	pair := c.store.Get()
	if !pair.HasRefresh() {
		c.expireSession()
		return fmt.Errorf("%w: no refresh token available", ErrUnauthorized)
	}

	resp, err := c.doJSON(ctx, nethttp.MethodPost, refreshPath, nil)
	if err != nil {
		c.expireSession()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != nethttp.StatusOK && resp.StatusCode != nethttp.StatusCreated {
		apiErr := errorFromResponse(resp)
		c.logger.Debug().Int("status", apiErr.Status).Msg("token refresh rejected")
		c.expireSession()
		return apiErr
	}

	var refreshed models.TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&refreshed); err != nil {
		c.expireSession()
		return fmt.Errorf("failed to decode refresh response: %w", err)
	}
	if !refreshed.HasAccess() {
		c.expireSession()
		return fmt.Errorf("%w: refresh response carried no access token", ErrServer)
	}

	// Partial set: a response without a rotated refresh token keeps the
	// stored one.
	if err := c.store.Set(refreshed); err != nil {
		return fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}
	return nil
}

func (c *Client) expireSession() {
	if err := c.store.Clear(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to clear credentials after refresh failure")
	}
	if c.expiredHandler != nil {
		c.expiredHandler()
	}
}

// decodeInto checks the response status against ok and decodes the JSON
// body into out (which may be nil).
func decodeInto(resp *nethttp.Response, out interface{}, ok ...int) error {
	defer resp.Body.Close()

	accepted := false
	for _, status := range ok {
		if resp.StatusCode == status {
			accepted = true
			break
		}
	}
	if !accepted {
		return errorFromResponse(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// progressReader reports the fraction of total consumed through report.
// It implements io.ReadSeekCloser so the retrying transport streams it
// instead of buffering; seeking back to the start resets the fraction for
// the retry attempt.
type progressReader struct {
	r      *bytes.Reader
	total  int64
	read   int64
	report func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		p.report(float64(p.read) / float64(p.total))
	}
	return n, err
}

func (p *progressReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := p.r.Seek(offset, whence)
	if err == nil {
		p.read = pos
	}
	return pos, err
}

func (p *progressReader) Close() error { return nil }
