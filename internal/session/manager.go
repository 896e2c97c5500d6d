// Package session owns the client's login state: the persisted token pair, the
// identity decoded from the access token, and the transitions between them.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"btw-buddy/internal/auth"
	"btw-buddy/internal/metrics"
	"btw-buddy/internal/models"
	"btw-buddy/internal/storage"

	"github.com/qmuntal/stateless"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNoRefreshToken = errors.New("no refresh token stored")
	ErrRefreshFailed  = errors.New("token refresh failed")
	ErrSessionReset   = errors.New("session was reset while the request was in flight")
	ErrNoTokens       = errors.New("server returned no access token")
)

// AuthAPI is the set of token-issuing endpoints. Implementations must not run
// the refresh interceptor themselves.
type AuthAPI interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	VerifyOTP(ctx context.Context, req models.VerifyOTPRequest) (*models.TokenPair, error)
	RefreshToken(ctx context.Context, refresh string) (*models.TokenPair, error)
}

type Option func(*Manager)

// WithClock sets the time source used to judge token expiry
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogoutHook registers fn to run after a forced logout
func WithLogoutHook(fn func(reason error)) Option {
	return func(m *Manager) { m.onLogout = append(m.onLogout, fn) }
}

// Manager is the explicit session context. One Manager is created per process
// (or per connection in a server) and injected into whatever needs identity.
type Manager struct {
	api   AuthAPI
	store storage.TokenStore
	now   func() time.Time

	mu       sync.RWMutex
	sm       *stateless.StateMachine
	user     *models.SessionUser
	access   string
	gen      uint64
	onLogout []func(reason error)

	refreshGroup singleflight.Group
}

func New(api AuthAPI, store storage.TokenStore, opts ...Option) *Manager {
	m := &Manager{
		api:   api,
		store: store,
		now:   time.Now,
		sm:    newMachine(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnLogout registers fn to run after a forced logout
func (m *Manager) OnLogout(fn func(reason error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLogout = append(m.onLogout, fn)
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	return m.sm.MustState().(State)
}

// User returns the identity decoded from the current access token, or nil
func (m *Manager) User() *models.SessionUser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.access
}

func (m *Manager) Authenticated() bool {
	return m.State() == Authenticated
}

// ExpiresWithin reports whether the access token expires in less than d
func (m *Manager) ExpiresWithin(d time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return false
	}
	return !m.now().Add(d).Before(m.user.ExpiresAt)
}

func (m *Manager) fire(t trigger) error {
	from := m.stateLocked()
	if err := m.sm.Fire(t); err != nil {
		return &TransitionError{From: from, Trigger: string(t)}
	}
	return nil
}

// Init restores the session persisted by a previous process. A usable access
// token is trusted without a network call; an expired or unreadable one is
// exchanged through the refresh token. Refresh failures are not returned:
// they end in Unauthenticated and the logout hooks run. An interrupted
// exchange leaves the session Expired with its tokens still stored.
func (m *Manager) Init(ctx context.Context) (State, error) {
	m.mu.Lock()
	if s := m.stateLocked(); s != Unauthenticated {
		m.mu.Unlock()
		return s, nil
	}

	token, ok, err := m.store.Get(ctx, storage.AccessTokenKey)
	if err != nil {
		m.mu.Unlock()
		return Unauthenticated, fmt.Errorf("read access token: %w", err)
	}
	if !ok || token == "" {
		m.mu.Unlock()
		return Unauthenticated, nil
	}

	user, decodeErr := auth.DecodeAccessToken(token)
	if decodeErr == nil && auth.Usable(user, m.now()) {
		m.user = user
		m.access = token
		if err := m.fire(triggerRestore); err != nil {
			m.mu.Unlock()
			return Unauthenticated, err
		}
		m.mu.Unlock()
		log.Printf("[Session] Restored session for %s", user.Email)
		return Authenticated, nil
	}

	if err := m.fire(triggerExpire); err != nil {
		m.mu.Unlock()
		return Unauthenticated, err
	}
	m.mu.Unlock()

	if _, err := m.RefreshAccessToken(ctx); err != nil {
		log.Printf("[Session] Stored session could not be renewed: %v", err)
	}
	return m.State(), nil
}

// Login exchanges credentials for a token pair. The raw response is returned so
// the caller can see whether a one-time code is still required; in that case
// nothing is persisted and the session stays Unauthenticated until VerifyOTP.
func (m *Manager) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	m.mu.Lock()
	if s := m.stateLocked(); s == Authenticated || s == Expired {
		m.clearLocked()
	}
	if err := m.fire(triggerLogin); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	resp, err := m.api.Login(ctx, models.LoginRequest{Email: email, Password: password})

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen {
		return nil, ErrSessionReset
	}
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		m.fire(triggerLoginFailed)
		return nil, err
	}
	if resp.Requires2FA || resp.Tokens == nil || resp.Tokens.Access == "" {
		m.fire(triggerLoginFailed)
		if resp.Requires2FA {
			metrics.LoginsTotal.WithLabelValues(metrics.ResultRequires).Inc()
			return resp, nil
		}
		metrics.LoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return resp, ErrNoTokens
	}

	if err := m.establishLocked(ctx, resp.Tokens); err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		m.fire(triggerLoginFailed)
		return resp, err
	}
	metrics.LoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	m.fire(triggerLoginSucceeded)
	log.Printf("[Session] Logged in as %s", m.user.Email)
	return resp, nil
}

// VerifyOTP completes a two-factor login started by Login
func (m *Manager) VerifyOTP(ctx context.Context, userID int, code string) (*models.TokenPair, error) {
	m.mu.Lock()
	if err := m.fire(triggerVerifyOTP); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	pair, err := m.api.VerifyOTP(ctx, models.VerifyOTPRequest{UserID: userID, OTPCode: auth.NormalizeOTP(code)})

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen {
		return nil, ErrSessionReset
	}
	if err == nil && (pair == nil || pair.Access == "") {
		err = ErrNoTokens
	}
	if err == nil {
		err = m.establishLocked(ctx, pair)
	}
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		m.fire(triggerLoginFailed)
		return nil, err
	}
	metrics.LoginsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	m.fire(triggerLoginSucceeded)
	log.Printf("[Session] Two-factor login completed for %s", m.user.Email)
	return pair, nil
}

// establishLocked persists a freshly issued pair and adopts its identity.
// On error nothing is left behind.
func (m *Manager) establishLocked(ctx context.Context, pair *models.TokenPair) error {
	user, err := auth.DecodeAccessToken(pair.Access)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, storage.AccessTokenKey, pair.Access); err != nil {
		m.clearLocked()
		return fmt.Errorf("persist access token: %w", err)
	}
	if err := m.store.Set(ctx, storage.RefreshTokenKey, pair.Refresh); err != nil {
		m.clearLocked()
		return fmt.Errorf("persist refresh token: %w", err)
	}
	m.user = user
	m.access = pair.Access
	return nil
}

// Logout drops the session locally. It never talks to the server and never fails;
// storage errors are logged.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logoutLocked()
}

// ForceLogout ends the session because the server no longer accepts it and
// runs the logout hooks.
func (m *Manager) ForceLogout(reason error) {
	m.mu.Lock()
	m.logoutLocked()
	hooks := append([]func(error){}, m.onLogout...)
	m.mu.Unlock()

	log.Printf("[Session] Session ended: %v", reason)
	for _, fn := range hooks {
		fn(reason)
	}
}

func (m *Manager) logoutLocked() {
	m.clearLocked()
	m.gen++
	m.fire(triggerLogout)
}

func (m *Manager) clearLocked() {
	if err := m.store.Delete(context.Background(), storage.AccessTokenKey, storage.RefreshTokenKey); err != nil {
		log.Printf("[Session] Failed to clear stored tokens: %v", err)
	}
	m.user = nil
	m.access = ""
}

// RefreshAccessToken exchanges the stored refresh token for a new access token
// and returns it. Concurrent callers share one exchange, which runs detached
// from any single caller: a caller whose ctx ends gets ctx.Err() while the
// others keep waiting. When there is no refresh token or the server rejects
// the exchange, the session is logged out. An exchange that is interrupted
// leaves the stored tokens alone.
func (m *Manager) RefreshAccessToken(ctx context.Context) (string, error) {
	ch := m.refreshGroup.DoChan("refresh", func() (any, error) {
		exchangeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return m.refresh(exchangeCtx)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// refreshTimeout bounds a shared exchange nobody can cancel
const refreshTimeout = 30 * time.Second

func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (m *Manager) refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	refresh, ok, err := m.store.Get(ctx, storage.RefreshTokenKey)
	if err != nil || !ok || refresh == "" {
		m.mu.Unlock()
		metrics.TokenRefreshTotal.WithLabelValues(metrics.ResultSkipped).Inc()
		if err == nil {
			err = ErrNoRefreshToken
		}
		m.ForceLogout(err)
		return "", err
	}
	from := m.stateLocked()
	if err := m.fire(triggerRefresh); err != nil {
		m.mu.Unlock()
		return "", err
	}
	gen := m.gen
	m.mu.Unlock()

	pair, callErr := m.api.RefreshToken(ctx, refresh)

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return "", ErrSessionReset
	}
	if interrupted(callErr) {
		m.sm.Fire(triggerRefreshAborted, from)
		m.mu.Unlock()
		metrics.TokenRefreshTotal.WithLabelValues(metrics.ResultAborted).Inc()
		log.Printf("[Session] Token refresh interrupted: %v", callErr)
		return "", fmt.Errorf("token refresh interrupted: %w", callErr)
	}
	if callErr == nil && (pair == nil || pair.Access == "") {
		callErr = ErrNoTokens
	}

	var user *models.SessionUser
	if callErr == nil {
		user, callErr = auth.DecodeAccessToken(pair.Access)
	}
	if callErr == nil {
		callErr = m.store.Set(ctx, storage.AccessTokenKey, pair.Access)
	}
	if callErr == nil && pair.Refresh != "" {
		callErr = m.store.Set(ctx, storage.RefreshTokenKey, pair.Refresh)
	}
	if callErr != nil {
		m.fire(triggerRefreshFailed)
		m.mu.Unlock()
		metrics.TokenRefreshTotal.WithLabelValues(metrics.ResultFailure).Inc()
		err := fmt.Errorf("%w: %v", ErrRefreshFailed, callErr)
		m.ForceLogout(err)
		return "", err
	}

	m.user = user
	m.access = pair.Access
	m.fire(triggerRefreshSucceeded)
	m.mu.Unlock()

	metrics.TokenRefreshTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	log.Printf("[Session] Access token refreshed, valid until %s", user.ExpiresAt.Format(time.RFC3339))
	return pair.Access, nil
}
