package auth

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/beetrack-client/internal/errors"
	"github.com/jrsteele09/beetrack-client/sessions"
	"github.com/jrsteele09/beetrack-client/token"
	"github.com/jrsteele09/beetrack-client/token/store"
	"github.com/jrsteele09/beetrack-client/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrCurrentSession is returned when revoking the session the client is
// signed in with through the single-session path
var ErrCurrentSession = errors.New("cannot revoke the current session; log out or revoke all sessions instead")

// State is where the manager is in the authentication lifecycle
type State string

const (
	StateBootstrapping   State = "bootstrapping"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
	StateLoggingIn       State = "logging_in"
	StateLoggingOut      State = "logging_out"
)

// Credential is a login submission
type Credential struct {
	Username   string
	Password   string
	RememberMe bool
}

// Navigator moves the user to another screen
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) {
	f(route)
}

type Option func(*Manager)

func WithNavigator(n Navigator) Option {
	return func(m *Manager) {
		m.navigator = n
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// Manager owns the signed-in identity. It keeps the token store, the
// transport bearer and the local session list consistent across login,
// logout, refresh failures and restarts.
type Manager struct {
	api       *API
	usersAPI  *users.API
	store     *store.Store
	registry  *sessions.Registry
	navigator Navigator
	nowFunc   func() time.Time
	logger    zerolog.Logger

	mu              sync.RWMutex
	state           State
	loading         bool
	user            *users.User
	sessionID       *int64
	sessions        []sessions.Session
	loadingSessions bool
	expired         bool
}

func NewManager(api *API, st *store.Store, registry *sessions.Registry, options ...Option) *Manager {
	m := &Manager{
		api:       api,
		usersAPI:  users.NewAPI(api.client),
		store:     st,
		registry:  registry,
		navigator: NavigatorFunc(func(string) {}),
		nowFunc:   time.Now,
		logger:    log.Logger.With().Str("component", "auth").Logger(),
		state:     StateBootstrapping,
		loading:   true,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Bootstrap restores a stored login. It never fails: anything that goes wrong
// leaves the manager unauthenticated with empty storage. Loading is cleared
// on every path.
func (m *Manager) Bootstrap(ctx context.Context) {
	m.mu.Lock()
	m.state = StateBootstrapping
	m.loading = true
	m.mu.Unlock()

	rec, kind, err := m.store.Load(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("could not read stored token")
		_ = m.reset(ctx)
		return
	}
	if rec == nil {
		m.settle(nil)
		return
	}
	if rec.RefreshToken != "" {
		m.api.setRefreshCredential(rec.RefreshToken)
	}
	m.noteAccessToken(rec.AccessToken)

	// a token past its exp claim goes straight to the refresh
	if exp := token.Expiry(rec.AccessToken); exp.IsZero() || exp.After(m.nowFunc()) {
		user, err := m.api.probeMe(ctx)
		if err == nil && user != nil {
			m.logger.Info().Str("tier", string(kind)).Str("username", user.Username).Msg("restored login")
			m.settle(user)
			return
		}
		if err == nil {
			_ = m.reset(ctx)
			return
		}
		m.logger.Debug().Err(err).Msg("stored token rejected, refreshing")
	}

	gen := m.store.Generation()
	pair, err := m.api.Refresh(ctx)
	if err != nil {
		m.logger.Info().Err(err).Msg("stored login could not be refreshed")
		_ = m.reset(ctx)
		return
	}
	if ok, err := m.store.Replace(ctx, gen, pair.AccessToken); err != nil || !ok {
		m.logger.Warn().Err(err).Bool("applied", ok).Msg("could not store refreshed token")
		_ = m.reset(ctx)
		return
	}
	m.noteAccessToken(pair.AccessToken)

	user, err := m.api.probeMe(ctx)
	if err != nil || user == nil {
		m.logger.Info().Err(err).Msg("profile unavailable after refresh")
		_ = m.reset(ctx)
		return
	}
	m.settle(user)
}

// Login signs in and fetches the profile. The token goes to the persistent
// tier only when RememberMe is set. Backend errors are returned as received.
func (m *Manager) Login(ctx context.Context, cred Credential) (*users.User, error) {
	m.setState(StateLoggingIn)

	var (
		pair token.Pair
		err  error
	)
	if cred.RememberMe {
		pair, err = m.api.LoginWithRemember(ctx, cred.Username, cred.Password, true)
	} else {
		pair, err = m.api.Login(ctx, cred.Username, cred.Password)
	}
	if err != nil {
		m.settleAfterFailedLogin()
		return nil, err
	}

	if !cred.RememberMe {
		// a refresh cookie left by an earlier remembered login belongs to
		// that session, not this one
		m.api.setRefreshCredential("")
	}

	rec := store.Record{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}
	if _, err := m.store.Save(ctx, rec, cred.RememberMe); err != nil {
		m.settleAfterFailedLogin()
		return nil, errors.Wrapf(err, "[Manager.Login]")
	}
	m.noteAccessToken(pair.AccessToken)

	user, err := m.api.Me(ctx)
	if err == nil && user == nil {
		err = ErrNotAuthenticated
	}
	if err != nil {
		_ = m.reset(context.WithoutCancel(ctx))
		return nil, errors.Wrapf(err, "[Manager.Login] profile")
	}

	m.logger.Info().Str("username", user.Username).Bool("remember_me", cred.RememberMe).Msg("logged in")
	m.settle(user)
	return user, nil
}

// Register creates an account without signing in
func (m *Manager) Register(ctx context.Context, reg Registration) error {
	return m.api.Register(ctx, reg)
}

// Logout tells the backend on a best-effort basis, then clears everything
// local and navigates to the login screen. Only local cleanup errors are
// returned.
func (m *Manager) Logout(ctx context.Context) error {
	m.setState(StateLoggingOut)

	if _, err := m.api.Logout(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("backend logout failed, clearing local state anyway")
	}

	// local cleanup must finish even when the caller has given up
	err := m.reset(context.WithoutCancel(ctx))
	m.navigator.Navigate(users.RouteLogin)
	return err
}

// HandleSessionExpired is the refresh failure hook. It clears local state
// and navigates to the login screen once per expiry.
func (m *Manager) HandleSessionExpired(cause error) {
	m.mu.Lock()
	already := m.expired
	m.expired = true
	m.mu.Unlock()

	m.logger.Info().Err(cause).Msg("session expired")
	_ = m.reset(context.Background())
	if !already {
		m.navigator.Navigate(users.RouteLogin)
	}
}

// FetchSessions reloads the session list. On error the previous list is kept.
func (m *Manager) FetchSessions(ctx context.Context) ([]sessions.Session, error) {
	m.mu.Lock()
	m.loadingSessions = true
	m.mu.Unlock()

	list, err := m.registry.List(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadingSessions = false
	if err != nil {
		m.logger.Warn().Err(err).Msg("could not load sessions")
		return nil, err
	}
	m.sessions = list
	return append([]sessions.Session(nil), list...), nil
}

// RevokeSession revokes another device's session and reloads the list
func (m *Manager) RevokeSession(ctx context.Context, id int64) (string, error) {
	if current := m.CurrentSessionID(); current != nil && *current == id {
		return "", ErrCurrentSession
	}

	msg, err := m.registry.Revoke(ctx, id)
	if err != nil {
		return "", err
	}
	if _, err := m.FetchSessions(ctx); err != nil {
		m.logger.Debug().Err(err).Msg("session list not reloaded after revoke")
	}
	return msg, nil
}

// RevokeAllSessions revokes every session, sparing the current one when
// keepCurrent is set. Without keepCurrent the local login is always ended,
// whatever the backend answered.
func (m *Manager) RevokeAllSessions(ctx context.Context, keepCurrent bool) (string, error) {
	msg, err := m.registry.RevokeAll(ctx, keepCurrent, m.CurrentSessionID())
	if !keepCurrent {
		if logoutErr := m.Logout(ctx); logoutErr != nil {
			m.logger.Warn().Err(logoutErr).Msg("local cleanup after revoke-all failed")
		}
		return msg, err
	}
	if err != nil {
		return "", err
	}
	if _, err := m.FetchSessions(ctx); err != nil {
		m.logger.Debug().Err(err).Msg("session list not reloaded after revoke-all")
	}
	return msg, nil
}

// UpdateProfile saves profile changes. The backend answers with a new access
// token, which replaces the stored one before the profile is fetched again.
func (m *Manager) UpdateProfile(ctx context.Context, update users.Update) (*users.User, error) {
	if m.User() == nil {
		return nil, ErrNotAuthenticated
	}
	if update.IsEmpty() {
		return m.User(), nil
	}

	pair, err := m.usersAPI.UpdateMe(ctx, update)
	if err != nil {
		return nil, err
	}
	if pair.AccessToken != "" {
		ok, err := m.store.Replace(ctx, m.store.Generation(), pair.AccessToken)
		if err != nil {
			return nil, errors.Wrapf(err, "[Manager.UpdateProfile]")
		}
		if !ok {
			return nil, errors.Wrapf(errors.ErrStaleRefresh, "[Manager.UpdateProfile]")
		}
		m.noteAccessToken(pair.AccessToken)
	}

	user, err := m.api.Me(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "[Manager.UpdateProfile] profile")
	}
	if user == nil {
		return nil, ErrNotAuthenticated
	}

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	return cloneUser(user), nil
}

// ApplyRefreshed is the refresh coordinator's apply step: the token is
// stored unless gen is stale, and its session id noted
func (m *Manager) ApplyRefreshed(ctx context.Context, gen uint64, accessToken string) (bool, error) {
	ok, err := m.store.Replace(ctx, gen, accessToken)
	if ok {
		m.noteAccessToken(accessToken)
	}
	return ok, err
}

func (m *Manager) User() *users.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneUser(m.user)
}

func (m *Manager) IsLoading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// CurrentSessionID is the session id claimed by the held access token. It is
// display information only.
func (m *Manager) CurrentSessionID() *int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sessionID == nil {
		return nil
	}
	id := *m.sessionID
	return &id
}

// Sessions is the last fetched session list
func (m *Manager) Sessions() []sessions.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]sessions.Session(nil), m.sessions...)
}

func (m *Manager) LoadingSessions() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadingSessions
}

func (m *Manager) noteAccessToken(accessToken string) {
	var sessionID *int64
	if id, ok := token.SessionID(accessToken); ok {
		sessionID = &id
	}
	m.mu.Lock()
	m.sessionID = sessionID
	m.mu.Unlock()
}

func (m *Manager) setState(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

// settle ends a transition: authenticated when user is set, otherwise not
func (m *Manager) settle(user *users.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
	m.user = user
	if user != nil {
		m.state = StateAuthenticated
		m.expired = false
		return
	}
	m.state = StateUnauthenticated
	m.sessionID = nil
}

// settleAfterFailedLogin keeps an existing login intact when a new attempt fails
func (m *Manager) settleAfterFailedLogin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
	if m.user != nil {
		m.state = StateAuthenticated
		return
	}
	m.state = StateUnauthenticated
}

// reset clears identity, both storage tiers, the bearer and the refresh
// cookie. It is safe to call repeatedly.
func (m *Manager) reset(ctx context.Context) error {
	m.mu.Lock()
	m.user = nil
	m.sessionID = nil
	m.sessions = nil
	m.loading = false
	m.state = StateUnauthenticated
	m.mu.Unlock()

	m.api.setRefreshCredential("")
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("could not clear token store")
		return errors.Wrapf(err, "[Manager.reset]")
	}
	return nil
}

func cloneUser(u *users.User) *users.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}
