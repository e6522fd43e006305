// Package apiclient talks to the marketplace HTTP API from the client side.
// Client is the auth provider, profile reader and profile creator consumed
// by the session manager.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/propspace/marketplace/internal/core/domain"
	"github.com/propspace/marketplace/internal/core/ports"
)

const maxErrorBody = 4096

// Options configures a Client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Store persists the session; defaults to an in-memory store.
	Store TokenStore
	// RefreshMargin is how long before expiry the access token is renewed.
	RefreshMargin time.Duration
	Log           zerolog.Logger
}

// Client implements ports.AuthProvider, ports.ProfileReader and
// ports.ProfileCreator over the HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	store   TokenStore
	margin  time.Duration
	log     zerolog.Logger
	now     func() time.Time

	mu        sync.Mutex
	session   *domain.AuthSession
	loaded    bool
	listeners map[uint64]ports.AuthStateListener
	nextID    uint64

	// refreshMu serialises token rotation; refresh tokens are single use.
	refreshMu sync.Mutex
	// wake nudges the auto-refresh loop after the session changed.
	wake chan struct{}
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	store := opts.Store
	if store == nil {
		store = &MemoryTokenStore{}
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		http:      httpClient,
		store:     store,
		margin:    opts.RefreshMargin,
		log:       opts.Log,
		now:       time.Now,
		listeners: make(map[uint64]ports.AuthStateListener),
		wake:      make(chan struct{}, 1),
	}
}

// --- AuthProvider ---

// CurrentSession returns the persisted session, renewing it first when the
// access token is about to expire. A session the server no longer accepts
// is dropped and reported as signed out.
func (c *Client) CurrentSession(ctx context.Context) (*domain.AuthSession, error) {
	session, err := c.loadSession()
	if err != nil || session == nil {
		return nil, err
	}
	if !session.Expired(c.now(), c.margin) {
		return session, nil
	}

	refreshed, err := c.Refresh(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrAuth) {
			return nil, nil
		}
		return nil, err
	}
	return refreshed, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string, attrs domain.SignupAttributes) (*domain.AuthSession, error) {
	body := map[string]string{
		"email":        email,
		"password":     password,
		"role":         attrs.Role,
		"display_name": attrs.DisplayName,
	}

	var session domain.AuthSession
	if err := c.do(ctx, http.MethodPost, "/auth/signup", "", body, &session); err != nil {
		return nil, classifyAuth(err)
	}

	c.setSession(&session)
	c.emit(domain.AuthEvent{Type: domain.AuthEventSignedIn, Principal: principalOf(&session)})
	return copySession(&session), nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	body := map[string]string{"email": email, "password": password}

	var session domain.AuthSession
	if err := c.do(ctx, http.MethodPost, "/auth/signin", "", body, &session); err != nil {
		return nil, classifyAuth(err)
	}

	c.setSession(&session)
	c.emit(domain.AuthEvent{Type: domain.AuthEventSignedIn, Principal: principalOf(&session)})
	return copySession(&session), nil
}

// SignOut revokes the session on the server and always clears it locally.
// The server error, if any, is returned after the local sign-out.
func (c *Client) SignOut(ctx context.Context) error {
	session, err := c.loadSession()
	if err != nil {
		c.log.Warn().Err(err).Msg("could not read stored session before sign-out")
	}

	var remoteErr error
	if session != nil {
		remoteErr = c.do(ctx, http.MethodPost, "/auth/signout", session.AccessToken, nil, nil)
		if remoteErr != nil {
			remoteErr = classifyStatus(remoteErr, domain.ErrUserNotFound)
			c.log.Warn().Err(remoteErr).Msg("server sign-out failed; clearing local session anyway")
		}
	}

	c.setSession(nil)
	c.emit(domain.AuthEvent{Type: domain.AuthEventSignedOut})
	return remoteErr
}

// OnAuthStateChange registers l. Listeners run synchronously, in
// registration order, on the goroutine that caused the transition.
func (c *Client) OnAuthStateChange(l ports.AuthStateListener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Refresh rotates the refresh token and emits TOKEN_REFRESHED. When the
// server rejects the refresh token the local session is cleared and
// SIGNED_OUT is emitted.
func (c *Client) Refresh(ctx context.Context) (*domain.AuthSession, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	current, err := c.loadSession()
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrNoPrincipal
	}
	// Another caller may have rotated while we waited.
	if !current.Expired(c.now(), c.margin) {
		return current, nil
	}

	var session domain.AuthSession
	body := map[string]string{"refresh_token": current.RefreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", "", body, &session); err != nil {
		err = classifyStatus(err, domain.ErrInvalidToken)
		if errors.Is(err, domain.ErrAuth) {
			c.setSession(nil)
			c.emit(domain.AuthEvent{Type: domain.AuthEventSignedOut})
		}
		return nil, err
	}

	c.setSession(&session)
	c.emit(domain.AuthEvent{Type: domain.AuthEventTokenRefreshed, Principal: principalOf(&session)})
	return copySession(&session), nil
}

// User reads the principal fresh from the server and emits USER_UPDATED
// when its signup attributes or email differ from the local copy.
func (c *Client) User(ctx context.Context) (*domain.Principal, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var principal domain.Principal
	if err := c.do(ctx, http.MethodGet, "/auth/user", token, nil, &principal); err != nil {
		return nil, classifyStatus(err, domain.ErrUserNotFound)
	}

	c.mu.Lock()
	changed := c.session != nil && c.session.Principal.ID == principal.ID && c.session.Principal != principal
	if changed {
		c.session.Principal = principal
	}
	var snapshot *domain.AuthSession
	if changed {
		snapshot = copySession(c.session)
	}
	c.mu.Unlock()

	if changed {
		if err := c.store.Save(snapshot); err != nil {
			c.log.Warn().Err(err).Msg("failed to persist session")
		}
		c.emit(domain.AuthEvent{Type: domain.AuthEventUserUpdated, Principal: &principal})
	}
	return &principal, nil
}

// Run keeps the access token fresh until ctx is cancelled, renewing it
// RefreshMargin before expiry. Transient failures are retried.
func (c *Client) Run(ctx context.Context) {
	const retryDelay = 10 * time.Second

	for {
		wait := time.Duration(-1)
		if session, err := c.loadSession(); err == nil && session != nil {
			wait = max(session.ExpiresAt.Sub(c.now())-c.margin, 0)
		}

		var (
			timer *time.Timer
			fire  <-chan time.Time
		)
		if wait >= 0 {
			timer = time.NewTimer(wait)
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return
		case <-c.wake:
			stopTimer(timer)
			continue
		case <-fire:
		}

		if _, err := c.Refresh(ctx); err != nil && !errors.Is(err, domain.ErrAuth) && !errors.Is(err, domain.ErrNoPrincipal) {
			c.log.Warn().Err(err).Dur("retry_in", retryDelay).Msg("token refresh failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
		}
	}
}

// --- ProfileReader / ProfileCreator ---

// FindByID returns the signed-in user's profile. The API only serves the
// caller's own profile, so any other id is rejected.
func (c *Client) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	token, principalID, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}
	if id != principalID {
		return nil, fmt.Errorf("%w: profile %s is not the signed-in user's", domain.ErrForbidden, id)
	}

	var profile domain.Profile
	if err := c.do(ctx, http.MethodGet, "/profiles/me", token, nil, &profile); err != nil {
		return nil, classifyStatus(err, domain.ErrProfileNotFound)
	}
	return &profile, nil
}

func (c *Client) CreateProfile(ctx context.Context, in ports.CreateProfileInput) (*domain.Profile, error) {
	token, principalID, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}
	if in.ID != principalID {
		return nil, fmt.Errorf("%w: profile %s is not the signed-in user's", domain.ErrForbidden, in.ID)
	}

	body := map[string]string{"role": string(in.Role), "display_name": in.DisplayName}
	var profile domain.Profile
	if err := c.do(ctx, http.MethodPost, "/profiles", token, body, &profile); err != nil {
		return nil, classifyStatus(err, domain.ErrProfileNotFound)
	}
	return &profile, nil
}

// UpdateProfile replaces the signed-in user's editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, details domain.ProfileDetails) (*domain.Profile, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]string{
		"display_name": details.DisplayName,
		"phone":        details.Phone,
		"bio":          details.Bio,
	}
	var profile domain.Profile
	if err := c.do(ctx, http.MethodPut, "/profiles/me", token, body, &profile); err != nil {
		return nil, classifyStatus(err, domain.ErrProfileNotFound)
	}
	return &profile, nil
}

// --- internals ---

func (c *Client) accessToken(ctx context.Context) (string, error) {
	token, _, err := c.bearer(ctx)
	return token, err
}

func (c *Client) bearer(ctx context.Context) (token, principalID string, err error) {
	session, err := c.CurrentSession(ctx)
	if err != nil {
		return "", "", err
	}
	if session == nil {
		return "", "", domain.ErrNoPrincipal
	}
	return session.AccessToken, session.Principal.ID, nil
}

func (c *Client) loadSession() (*domain.AuthSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		s, err := c.store.Load()
		if err != nil {
			return nil, err
		}
		c.session = s
		c.loaded = true
	}
	return copySession(c.session), nil
}

func (c *Client) setSession(s *domain.AuthSession) {
	c.mu.Lock()
	c.session = copySession(s)
	c.loaded = true
	c.mu.Unlock()

	var err error
	if s == nil {
		err = c.store.Clear()
	} else {
		err = c.store.Save(s)
	}
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to persist session")
	}

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Client) emit(event domain.AuthEvent) {
	c.mu.Lock()
	ids := make([]uint64, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	listeners := make([]ports.AuthStateListener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, c.listeners[id])
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(event)
	}
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s %s: %w: %w", method, path, domain.ErrTimeout, err)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var envelope struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
			msg = envelope.Error
		}
		return &StatusError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func copySession(s *domain.AuthSession) *domain.AuthSession {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

func principalOf(s *domain.AuthSession) *domain.Principal {
	p := s.Principal
	return &p
}
