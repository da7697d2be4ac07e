// Package authclient is the central HTTP boundary of an EVEP client
// process: it attaches bearer credentials, refreshes expired sessions and
// replays rejected requests, single-flighted so concurrent failures share
// one refresh.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/singleflight"

	"github.com/evep-health/evep/internal/entity"
	"github.com/evep-health/evep/internal/session"
)

// DefaultBaseURL is the build-time fallback when EVEP_API_URL is not set.
const DefaultBaseURL = "https://api.evep.local"

const (
	loginPath   = "/api/v1/auth/login"
	refreshPath = "/api/v1/auth/refresh"
	logoutPath  = "/api/v1/auth/logout"
)

type Client struct {
	baseURL string
	http    *retryablehttp.Client
	store   session.Store
	refresh singleflight.Group

	// onSessionExpired is the explicit navigation hook: the HTTP layer
	// reports an unrecoverable session, the framework binding redirects.
	onSessionExpired func()
}

type Option func(*Client)

func WithSessionExpiredHook(fn func()) Option {
	return func(c *Client) {
		c.onSessionExpired = fn
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http.HTTPClient = h
	}
}

func New(baseURL string, store session.Store, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = 10 * time.Second
	// 401 is handled by the refresh flow and 429 must reach the error
	// mapping, not the transport retry loop.
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusTooManyRequests) {
			return false, nil
		}

		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	c := &Client{
		baseURL: baseURL,
		http:    rc,
		store:   store,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	SessionHash  string      `json:"session_hash,omitempty"`
	User         entity.User `json:"user"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	User         entity.User `json:"user"`
}

// Login authenticates against the backend and persists the resulting
// session. Bad credentials surface as ErrInvalidCredential; no session is
// created in that case.
func (c *Client) Login(ctx context.Context, email, password string) (entity.User, error) {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return entity.User{}, fmt.Errorf("marshal login request: %w", err)
	}

	resp, err := c.send(ctx, http.MethodPost, loginPath, body, "")
	if err != nil {
		return entity.User{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)

		if resp.StatusCode == http.StatusUnauthorized {
			return entity.User{}, fmt.Errorf("%w: %s", entity.ErrInvalidCredential, raw)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			return entity.User{}, fmt.Errorf("%w: %s", entity.ErrTooManyRequests, raw)
		}

		return entity.User{}, fmt.Errorf("unexpected status from auth service: %d, body: %s", resp.StatusCode, raw)
	}

	var data loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return entity.User{}, fmt.Errorf("decode login response: %w", err)
	}

	tokens := entity.UserTokens{
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
		SessionHash:  data.SessionHash,
	}

	if err := c.store.SetSession(tokens, data.User); err != nil {
		return entity.User{}, fmt.Errorf("persist session: %w", err)
	}

	slog.InfoContext(ctx, "logged in", "email", data.User.Email, "role", data.User.Role)

	return data.User, nil
}

// Logout revokes the session server-side on a best-effort basis and always
// clears local state.
func (c *Client) Logout(ctx context.Context) error {
	token := c.store.Token()

	if token != "" {
		resp, err := c.send(ctx, http.MethodPost, logoutPath, nil, token)
		if err != nil {
			slog.WarnContext(ctx, "logout request failed, clearing local session anyway", "error", err)
		} else {
			resp.Body.Close()
		}
	}

	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	return nil
}

// Do performs an authenticated request against the backend and decodes a
// 2xx JSON body into out (out may be nil). On 401 it refreshes the session
// and replays the request exactly once; a second 401 is surfaced to the
// caller.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var body []byte

	if in != nil {
		var err error

		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	token := c.store.Token()

	// Refresh proactively when the token is inside the expiry margin, so it
	// cannot lapse between here and the backend.
	if token != "" && c.store.IsTokenExpired() && c.store.RefreshToken() != "" {
		refreshed, err := c.refreshSession(ctx, token)
		if err == nil {
			token = refreshed
		}
	}

	resp, err := c.send(ctx, method, path, body, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		resp.Body.Close()

		newToken, err := c.refreshSession(ctx, token)
		if err != nil {
			return c.expireSession(ctx, err)
		}

		// A logout may have raced the refresh; its result is discarded and
		// the caller observes a logged-out session.
		if c.store.Token() == "" {
			return entity.ErrSessionExpired
		}

		resp, err = c.send(ctx, method, path, body, newToken)
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s", entity.ErrUnauthorized, raw)
	case resp.StatusCode == http.StatusForbidden:
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s", entity.ErrForbidden, raw)
	case resp.StatusCode >= http.StatusBadRequest:
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status from backend: %d, body: %s", resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// refreshSession exchanges the stored refresh token for a new pair. The
// staleToken double check plus the singleflight group guarantee that
// concurrent 401s produce exactly one backend refresh call.
func (c *Client) refreshSession(ctx context.Context, staleToken string) (string, error) {
	v, err, _ := c.refresh.Do("refresh", func() (any, error) {
		if current := c.store.Token(); current != "" && current != staleToken {
			// Another caller already refreshed; share its token.
			return current, nil
		}

		refreshToken := c.store.RefreshToken()
		if refreshToken == "" {
			return "", entity.ErrSessionExpired
		}

		body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
		if err != nil {
			return "", fmt.Errorf("marshal refresh request: %w", err)
		}

		resp, err := c.send(ctx, http.MethodPost, refreshPath, body, "")
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(resp.Body)
			return "", fmt.Errorf("%w: refresh rejected: %d, body: %s", entity.ErrSessionExpired, resp.StatusCode, raw)
		}

		var data refreshResponse
		if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
			return "", fmt.Errorf("decode refresh response: %w", err)
		}

		tokens := entity.UserTokens{
			AccessToken:  data.AccessToken,
			RefreshToken: data.RefreshToken,
			SessionHash:  c.store.SessionHash(),
		}

		// A session cleared mid-refresh stays cleared; the refresh result
		// still resolves for waiting callers, who re-check store state.
		if c.store.RefreshToken() != "" {
			if err := c.store.SetSession(tokens, data.User); err != nil {
				return "", fmt.Errorf("persist refreshed session: %w", err)
			}
		}

		slog.InfoContext(ctx, "session refreshed", "user_id", data.User.ID)

		return data.AccessToken, nil
	})
	if err != nil {
		return "", err
	}

	token, ok := v.(string)
	if !ok || token == "" {
		return "", entity.ErrSessionExpired
	}

	return token, nil
}

// expireSession clears local state and reports the expiry through the
// explicit hook; the caller's framework binding performs any navigation.
func (c *Client) expireSession(ctx context.Context, cause error) error {
	if err := c.store.Clear(); err != nil {
		slog.ErrorContext(ctx, "failed to clear expired session", "error", err)
	}

	if c.onSessionExpired != nil {
		c.onSessionExpired()
	}

	if errors.Is(cause, entity.ErrSessionExpired) {
		return cause
	}

	return fmt.Errorf("%w: %s", entity.ErrSessionExpired, cause)
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, token string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if hash := c.store.SessionHash(); hash != "" {
		req.Header.Set("X-Session-Hash", hash)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		slog.ErrorContext(ctx, "request to backend failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("do request: %w", err)
	}

	return resp, nil
}
