package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/propspace/marketplace/internal/core/domain"
	"github.com/propspace/marketplace/internal/core/ports"
)

const (
	defaultResolveTimeout = 10 * time.Second
	transitionBuffer      = 256
)

// ErrManagerStopped is returned by operations submitted after Close.
var ErrManagerStopped = errors.New("session manager stopped")

type transitionKind int

const (
	transitionMount transitionKind = iota
	transitionResolve
	transitionSignOut
	transitionRefresh
)

func (k transitionKind) String() string {
	switch k {
	case transitionMount:
		return "mount"
	case transitionResolve:
		return "resolve"
	case transitionSignOut:
		return "sign_out"
	case transitionRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

type transition struct {
	kind      transitionKind
	principal *domain.Principal
	source    string
	reply     chan transitionResult
}

type transitionResult struct {
	session domain.EffectiveSession
	err     error
}

// SessionManager owns the client's current EffectiveSession. Provider events
// and explicit operations are turned into transitions that a single worker
// applies one at a time in arrival order, so transition N+1 never starts
// before N's resolution, including any profile write, has finished.
//
// Readers get copies through Session and Subscribe and never share state
// with the worker.
type SessionManager struct {
	provider ports.AuthProvider
	resolver ports.IdentityResolver
	timeout  time.Duration
	log      zerolog.Logger

	transitions chan transition
	stopped     chan struct{}
	startOnce   sync.Once
	closeOnce   sync.Once
	cancel      context.CancelFunc
	unsubscribe func()

	mu      sync.RWMutex
	state   domain.SessionState
	current domain.EffectiveSession
	subs    map[int]chan domain.EffectiveSession
	nextSub int
}

// NewSessionManager returns a manager in the uninitialized state. Call Start
// before using it.
func NewSessionManager(provider ports.AuthProvider, resolver ports.IdentityResolver, timeout time.Duration, log zerolog.Logger) *SessionManager {
	if timeout <= 0 {
		timeout = defaultResolveTimeout
	}
	return &SessionManager{
		provider:    provider,
		resolver:    resolver,
		timeout:     timeout,
		log:         log,
		transitions: make(chan transition, transitionBuffer),
		stopped:     make(chan struct{}),
		state:       domain.SessionUninitialized,
		subs:        make(map[int]chan domain.EffectiveSession),
	}
}

// Start subscribes to the provider, launches the worker and blocks until the
// initial session has been resolved. Resolution failures are reflected in
// Session().Err; only cancellation of ctx is returned.
func (m *SessionManager) Start(ctx context.Context) error {
	select {
	case <-m.stopped:
		return ErrManagerStopped
	default:
	}
	m.startOnce.Do(func() {
		wctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		m.unsubscribe = m.provider.OnAuthStateChange(m.onAuthEvent)
		go m.run(wctx)
	})
	_, err := m.submit(ctx, transition{kind: transitionMount, source: "mount"})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrManagerStopped) {
		return err
	}
	return nil
}

// Close detaches from the provider and stops the worker. Subscriber channels
// are closed.
func (m *SessionManager) Close() {
	m.closeOnce.Do(func() {
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		if m.cancel == nil {
			close(m.stopped)
		} else {
			m.cancel()
			<-m.stopped
		}
		m.mu.Lock()
		for id, ch := range m.subs {
			close(ch)
			delete(m.subs, id)
		}
		m.mu.Unlock()
	})
}

// Session returns a copy of the current EffectiveSession.
func (m *SessionManager) Session() domain.EffectiveSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Clone()
}

// State returns the lifecycle state.
func (m *SessionManager) State() domain.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe returns a channel receiving every published session and a
// function that cancels the subscription. A slow reader only ever misses
// intermediate values; the latest one is always delivered.
func (m *SessionManager) Subscribe() (<-chan domain.EffectiveSession, func()) {
	ch := make(chan domain.EffectiveSession, 1)
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.subs[id]; ok {
			close(sub)
			delete(m.subs, id)
		}
	}
}

// SignUp registers a new account with role and displayName as signup
// attributes and resolves the new principal. Provider rejections match
// domain.ErrAuth and are returned as-is; resolution failures are returned
// together with the degraded session.
func (m *SessionManager) SignUp(ctx context.Context, email, password string, role domain.Role, displayName string) (domain.EffectiveSession, error) {
	if !role.Valid() {
		return m.Session(), fmt.Errorf("sign up: %w: %q", domain.ErrInvalidRole, string(role))
	}
	as, err := m.provider.SignUp(ctx, email, password, domain.SignupAttributes{
		Role:        string(role),
		DisplayName: displayName,
	})
	if err != nil {
		return m.Session(), fmt.Errorf("sign up: %w", err)
	}
	p := as.Principal
	return m.submit(ctx, transition{kind: transitionResolve, principal: &p, source: "sign_up"})
}

// SignIn authenticates with the provider and resolves the principal.
func (m *SessionManager) SignIn(ctx context.Context, email, password string) (domain.EffectiveSession, error) {
	as, err := m.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return m.Session(), fmt.Errorf("sign in: %w", err)
	}
	p := as.Principal
	return m.submit(ctx, transition{kind: transitionResolve, principal: &p, source: "sign_in"})
}

// SignOut asks the provider to end the session and clears local state even
// when the provider call fails. The provider error, if any, is returned.
func (m *SessionManager) SignOut(ctx context.Context) error {
	provErr := m.provider.SignOut(ctx)
	if _, err := m.submit(ctx, transition{kind: transitionSignOut, source: "sign_out"}); err != nil && provErr == nil {
		return err
	}
	if provErr != nil {
		return fmt.Errorf("sign out: %w", provErr)
	}
	return nil
}

// RefreshProfile re-reads the current principal's profile. It is a no-op
// when nobody is signed in.
func (m *SessionManager) RefreshProfile(ctx context.Context) (domain.EffectiveSession, error) {
	return m.submit(ctx, transition{kind: transitionRefresh, source: "refresh"})
}

func (m *SessionManager) onAuthEvent(event domain.AuthEvent) {
	t := transition{kind: transitionResolve, principal: event.Principal, source: string(event.Type)}
	if event.Type == domain.AuthEventSignedOut || event.Principal == nil {
		t = transition{kind: transitionSignOut, source: string(event.Type)}
	}
	if !m.enqueue(t) {
		m.log.Debug().Str("transition", t.source).Msg("auth event dropped after close")
	}
}

func (m *SessionManager) enqueue(t transition) bool {
	select {
	case <-m.stopped:
		return false
	default:
	}
	select {
	case m.transitions <- t:
		return true
	case <-m.stopped:
		return false
	}
}

// submit enqueues t and waits for its result. The transition is applied even
// if ctx ends while waiting.
func (m *SessionManager) submit(ctx context.Context, t transition) (domain.EffectiveSession, error) {
	t.reply = make(chan transitionResult, 1)
	if !m.enqueue(t) {
		return m.Session(), ErrManagerStopped
	}
	select {
	case r := <-t.reply:
		return r.session, r.err
	case <-ctx.Done():
		return m.Session(), ctx.Err()
	case <-m.stopped:
		return m.Session(), ErrManagerStopped
	}
}

func (m *SessionManager) run(ctx context.Context) {
	defer close(m.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-m.transitions:
			res := m.apply(ctx, t)
			if t.reply != nil {
				t.reply <- res
			}
		}
	}
}

func (m *SessionManager) apply(ctx context.Context, t transition) transitionResult {
	switch t.kind {
	case transitionMount:
		return m.mount(ctx)
	case transitionResolve:
		return m.resolve(ctx, t.principal, t.source)
	case transitionSignOut:
		m.publish(domain.SessionSignedOut, domain.EffectiveSession{})
		m.log.Info().Str("transition", t.source).Msg("session cleared")
		return transitionResult{}
	case transitionRefresh:
		return m.refresh(ctx)
	default:
		return transitionResult{session: m.Session()}
	}
}

func (m *SessionManager) mount(ctx context.Context) transitionResult {
	as, err := callWithTimeout(ctx, m.timeout, m.provider.CurrentSession)
	if err != nil {
		m.log.Warn().Err(err).Str("transition", transitionMount.String()).Msg("could not read current session")
		s := domain.EffectiveSession{Err: err}
		m.publish(domain.SessionSignedOut, s)
		return transitionResult{session: s, err: err}
	}
	if as == nil {
		m.publish(domain.SessionSignedOut, domain.EffectiveSession{})
		return transitionResult{}
	}
	p := as.Principal
	return m.resolve(ctx, &p, transitionMount.String())
}

func (m *SessionManager) resolve(ctx context.Context, principal *domain.Principal, source string) transitionResult {
	if principal == nil {
		return transitionResult{session: m.Session(), err: domain.ErrNoPrincipal}
	}
	m.beginLoading(principal)

	session, err := callWithTimeout(ctx, m.timeout, func(rctx context.Context) (domain.EffectiveSession, error) {
		return m.resolver.Resolve(rctx, principal)
	})
	if err != nil {
		if session.Principal == nil {
			p := *principal
			session = domain.EffectiveSession{Principal: &p, EffectiveRole: domain.RoleUnresolved}
		}
		session.Err = err
	}
	session.IsLoading = false

	if err != nil {
		m.log.Warn().Err(err).
			Str("principal_id", principal.ID).
			Str("transition", source).
			Msg("session resolved without profile")
	} else {
		m.log.Info().
			Str("principal_id", principal.ID).
			Str("role", session.EffectiveRole.String()).
			Str("transition", source).
			Msg("session resolved")
	}
	m.publish(domain.SessionReady, session)
	return transitionResult{session: session.Clone(), err: err}
}

func (m *SessionManager) refresh(ctx context.Context) transitionResult {
	current := m.Session()
	if current.Principal == nil {
		return transitionResult{session: current}
	}
	m.beginLoading(current.Principal)

	session, err := callWithTimeout(ctx, m.timeout, func(rctx context.Context) (domain.EffectiveSession, error) {
		return m.resolver.Refresh(rctx, current)
	})
	if err != nil {
		if session.Principal == nil {
			session = domain.EffectiveSession{Principal: current.Principal, EffectiveRole: domain.RoleUnresolved}
		}
		session.Err = err
	}
	session.IsLoading = false
	if err != nil {
		m.log.Warn().Err(err).Str("principal_id", current.Principal.ID).Msg("profile refresh failed")
	}
	m.publish(domain.SessionReady, session)
	return transitionResult{session: session.Clone(), err: err}
}

// beginLoading publishes the loading view for principal. The previous
// profile is kept only while the principal stays the same.
func (m *SessionManager) beginLoading(principal *domain.Principal) {
	m.mu.RLock()
	prev := m.current
	m.mu.RUnlock()

	p := *principal
	loading := domain.EffectiveSession{Principal: &p, IsLoading: true}
	if prev.Principal != nil && prev.Principal.ID == p.ID {
		loading.Profile = prev.Profile
		loading.EffectiveRole = prev.EffectiveRole
	}
	m.publish(domain.SessionLoading, loading)
}

func (m *SessionManager) publish(state domain.SessionState, session domain.EffectiveSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.current = session.Clone()
	for _, ch := range m.subs {
		snapshot := session.Clone()
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

// callWithTimeout runs fn under a deadline and gives up waiting once it
// passes, so a call that ignores its context cannot stall the worker.
func callWithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(cctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && !errors.Is(r.err, domain.ErrTimeout) && errors.Is(cctx.Err(), context.DeadlineExceeded) {
			r.err = fmt.Errorf("%w: %w", domain.ErrTimeout, r.err)
		}
		return r.v, r.err
	case <-cctx.Done():
		var zero T
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w after %s", domain.ErrTimeout, d)
		}
		return zero, cctx.Err()
	}
}
