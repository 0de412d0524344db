// Package provider is the HTTP client for the hosted identity
// provider. It mirrors the remote session locally, emits session-change
// events to subscribers, and keeps the access token fresh.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "mindspend/pkg/domain-errors"
)

const authPath = "/auth/v1"

// refreshLead is how long before access-token expiry a refresh is
// scheduled.
const refreshLead = 30 * time.Second

// Client talks to the identity provider. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger

	mu          sync.Mutex
	session     *Session
	subscribers map[int]Handler
	nextSubID   int
	refreshTick *time.Timer
	closed      bool
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for provider calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New constructs a provider client for the backend at baseURL.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		subscribers: make(map[int]Handler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Subscribe registers a handler invoked on every session-change event.
// The returned func removes the subscription.
func (c *Client) Subscribe(handler Handler) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = handler
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// CurrentSession returns the locally mirrored session, which may be
// nil before the first sign-in or restore.
func (c *Client) CurrentSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SignIn exchanges credentials for a session and emits EventSignedIn.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	session, err := c.tokenRequest(ctx, "password", body)
	if err != nil {
		return nil, err
	}
	c.adopt(session, EventSignedIn)
	return session, nil
}

// SignUp registers a new account. The provider signs the account in
// immediately; its dependent profile row is provisioned asynchronously
// by the backend and may lag behind the EventSignedIn this emits.
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*Session, error) {
	payload := map[string]any{
		"email":    email,
		"password": password,
		"data":     metadata,
	}
	var sr sessionResponse
	if err := c.do(ctx, http.MethodPost, authPath+"/signup", payload, &sr, ""); err != nil {
		return nil, err
	}
	session, err := sr.toSession()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "malformed signup response")
	}
	c.adopt(session, EventSignedIn)
	return session, nil
}

// Restore resumes a previous session from its refresh token and emits
// EventInitialSession. Used at startup when a token survived a restart.
func (c *Client) Restore(ctx context.Context, refreshToken string) (*Session, error) {
	session, err := c.tokenRequest(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, err
	}
	c.adopt(session, EventInitialSession)
	return session, nil
}

// SignOut invalidates the remote session and emits EventSignedOut.
// The local mirror is cleared even when the remote call fails; a stale
// server-side session must not keep the client signed in.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token := ""
	if c.session != nil {
		token = c.session.AccessToken
	}
	c.session = nil
	c.stopRefreshLocked()
	c.mu.Unlock()

	c.emit(EventSignedOut, nil)

	if token == "" {
		return nil
	}
	if err := c.do(ctx, http.MethodPost, authPath+"/logout", nil, nil, token); err != nil {
		c.logger.WarnContext(ctx, "remote logout failed, local session cleared anyway", "error", err)
		return err
	}
	return nil
}

// RequestPasswordReset asks the provider to send a recovery email.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, authPath+"/recover", map[string]string{"email": email}, nil, "")
}

// UpdatePassword sets a new password for the signed-in user.
func (c *Client) UpdatePassword(ctx context.Context, newPassword string) error {
	c.mu.Lock()
	token := ""
	if c.session != nil {
		token = c.session.AccessToken
	}
	c.mu.Unlock()
	if token == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "no active session")
	}
	return c.do(ctx, http.MethodPut, authPath+"/user", map[string]string{"password": newPassword}, nil, token)
}

// ConsumeRecoveryToken exchanges a recovery-link token for a session
// and emits EventPasswordRecovery so the app can route into the
// password-reset flow.
func (c *Client) ConsumeRecoveryToken(ctx context.Context, token string) (*Session, error) {
	session, err := c.tokenRequest(ctx, "recovery", map[string]string{"token": token})
	if err != nil {
		return nil, err
	}
	c.adopt(session, EventPasswordRecovery)
	return session, nil
}

// AccessToken returns the current access token, or "" when signed out.
// The store client uses this as its token source.
func (c *Client) AccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.AccessToken
}

// Close stops the refresh timer and drops all subscribers.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopRefreshLocked()
	c.subscribers = make(map[int]Handler)
}

// adopt installs a session as the local mirror, schedules its refresh,
// and notifies subscribers.
func (c *Client) adopt(session *Session, kind EventKind) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.session = session
	c.scheduleRefreshLocked(session)
	c.mu.Unlock()

	c.emit(kind, session)
}

func (c *Client) emit(kind EventKind, session *Session) {
	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.subscribers))
	for _, h := range c.subscribers {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(kind, session)
	}
}

func (c *Client) scheduleRefreshLocked(session *Session) {
	c.stopRefreshLocked()
	if session == nil || session.RefreshToken == "" || session.ExpiresAt.IsZero() {
		return
	}
	wait := time.Until(session.ExpiresAt) - refreshLead
	if wait < time.Second {
		wait = time.Second
	}
	refreshToken := session.RefreshToken
	c.refreshTick = time.AfterFunc(wait, func() {
		c.refresh(refreshToken)
	})
}

func (c *Client) stopRefreshLocked() {
	if c.refreshTick != nil {
		c.refreshTick.Stop()
		c.refreshTick = nil
	}
}

func (c *Client) refresh(refreshToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	session, err := c.tokenRequest(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		c.logger.WarnContext(ctx, "token refresh failed", "error", err)
		return
	}
	c.adopt(session, EventTokenRefreshed)
}

// sessionResponse is the provider's token/signup payload.
type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID           string            `json:"id"`
		Email        string            `json:"email"`
		UserMetadata map[string]string `json:"user_metadata"`
	} `json:"user"`
}

func (sr sessionResponse) toSession() (*Session, error) {
	userID, err := uuid.Parse(sr.User.ID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	session := &Session{
		AccessToken:  sr.AccessToken,
		RefreshToken: sr.RefreshToken,
		User: User{
			ID:       userID,
			Email:    sr.User.Email,
			Metadata: sr.User.UserMetadata,
		},
	}
	if sr.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Add(time.Duration(sr.ExpiresIn) * time.Second)
	} else if exp, ok := tokenExpiry(sr.AccessToken); ok {
		session.ExpiresAt = exp
	}
	return session, nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// client holds no signing key and only needs the timestamp to schedule
// refreshes.
func tokenExpiry(accessToken string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (c *Client) tokenRequest(ctx context.Context, grantType string, body map[string]string) (*Session, error) {
	var sr sessionResponse
	path := authPath + "/token?grant_type=" + grantType
	if err := c.do(ctx, http.MethodPost, path, body, &sr, ""); err != nil {
		return nil, err
	}
	session, err := sr.toSession()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "malformed token response")
	}
	return session, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any, bearer string) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "encode request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "build request")
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "identity provider unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return providerError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "decode response")
	}
	return nil
}

func providerError(resp *http.Response) error {
	var payload struct {
		Message string `json:"msg"`
		Error   string `json:"error_description"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	msg := payload.Message
	if msg == "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = resp.Status
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return dErrors.New(dErrors.CodeUnauthorized, msg)
	case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusConflict:
		return dErrors.New(dErrors.CodeConflict, msg)
	case resp.StatusCode >= 500:
		return dErrors.New(dErrors.CodeStoreUnavailable, msg)
	default:
		return dErrors.New(dErrors.CodeValidation, msg)
	}
}
