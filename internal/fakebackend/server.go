// Package fakebackend is an in-process stand-in for the BeeTrack API. It
// implements the user, session and export endpoints the client consumes,
// with controls for the failure modes the client must survive.
package fakebackend

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/beetrack-client/sessions"
	fakesessionrepo "github.com/jrsteele09/beetrack-client/sessions/repofake"
	"github.com/jrsteele09/beetrack-client/users"
	fakeuserrepo "github.com/jrsteele09/beetrack-client/users/repofake"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

type Server struct {
	router     chi.Router
	users      users.UserRepo
	sessions   sessions.Repo
	signingKey []byte
	nowFunc    func() time.Time
	accessTTL  time.Duration
	refreshTTL time.Duration
	secure     bool
	logRoutes  bool
	logger     zerolog.Logger

	loginLimiter    Limiter
	registerLimiter Limiter

	ordersCSV      []byte
	inspectionsPDF []byte

	lock         sync.Mutex
	tokenSeq     int64
	revokedSeq   int64
	failRefresh  bool
	failLogout   bool
	refreshDelay time.Duration
	refreshes    int
	calls        map[string]int
}

type Option func(*Server)

func WithSigningKey(key []byte) Option {
	return func(s *Server) {
		s.signingKey = key
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = now
	}
}

func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = d
	}
}

func WithRefreshTTL(d time.Duration) Option {
	return func(s *Server) {
		s.refreshTTL = d
	}
}

// WithSecureCookies marks the refresh cookie Secure, which keeps it off
// plain http connections
func WithSecureCookies(secure bool) Option {
	return func(s *Server) {
		s.secure = secure
	}
}

func WithLoginLimiter(l Limiter) Option {
	return func(s *Server) {
		s.loginLimiter = l
	}
}

func WithRegisterLimiter(l Limiter) Option {
	return func(s *Server) {
		s.registerLimiter = l
	}
}

func WithExports(ordersCSV, inspectionsPDF []byte) Option {
	return func(s *Server) {
		s.ordersCSV = ordersCSV
		s.inspectionsPDF = inspectionsPDF
	}
}

// WithRouteLogging prints every request in colour, as in development
func WithRouteLogging(enabled bool) Option {
	return func(s *Server) {
		s.logRoutes = enabled
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithUserRepo(repo users.UserRepo) Option {
	return func(s *Server) {
		s.users = repo
	}
}

func WithSessionRepo(repo sessions.Repo) Option {
	return func(s *Server) {
		s.sessions = repo
	}
}

func New(options ...Option) *Server {
	s := &Server{
		users:           fakeuserrepo.NewFakeUserRepo(),
		sessions:        fakesessionrepo.NewFakeSessionRepo(),
		signingKey:      []byte("beetrack-fake-secret"),
		nowFunc:         time.Now,
		accessTTL:       DefaultAccessTTL,
		refreshTTL:      DefaultRefreshTTL,
		logger:          log.Logger.With().Str("component", "fakebackend").Logger(),
		loginLimiter:    Unlimited(),
		registerLimiter: Unlimited(),
		ordersCSV:       []byte("id,customer,total,status\n1,alice,12.50,paid\n"),
		inspectionsPDF:  minimalPDF,
		calls:           make(map[string]int),
	}
	for _, opt := range options {
		opt(s)
	}
	s.initRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddUser creates an account with a bcrypt-hashed password
func (s *Server) AddUser(username, email, password string, role users.Role, active bool) (*users.User, error) {
	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := s.nowFunc().UTC()
	user := &users.User{
		Username:     username,
		Email:        email,
		Role:         role,
		IsActive:     active,
		CreatedAt:    &now,
		PasswordHash: hash,
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// ExpireAccessTokens invalidates every access token issued so far, as if
// they had all reached their expiry
func (s *Server) ExpireAccessTokens() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.revokedSeq = s.tokenSeq
}

// FailRefresh makes the refresh endpoint answer 401 regardless of the cookie
func (s *Server) FailRefresh(fail bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failRefresh = fail
}

// FailLogout makes the logout endpoint answer 500
func (s *Server) FailLogout(fail bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.failLogout = fail
}

// SlowRefresh delays every refresh response by d
func (s *Server) SlowRefresh(d time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.refreshDelay = d
}

// RefreshesStarted counts refresh requests that reached the handler,
// including ones still waiting out SlowRefresh
func (s *Server) RefreshesStarted() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.refreshes
}

// Calls returns how often the route pattern was hit, e.g. Calls("GET", "/users/me")
func (s *Server) Calls(method, pattern string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.calls[method+" "+pattern]
}

// TotalCalls returns the number of requests served
func (s *Server) TotalCalls() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// Sessions exposes the session store for assertions
func (s *Server) Sessions() sessions.Repo {
	return s.sessions
}

func (s *Server) Users() users.UserRepo {
	return s.users
}

func (s *Server) record(method, pattern string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls[method+" "+pattern]++
}
