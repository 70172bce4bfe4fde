package fakebackend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/beetrack-client/internal/routes"
	"github.com/jrsteele09/beetrack-client/sessions"
	"github.com/jrsteele09/beetrack-client/token"
	"github.com/jrsteele09/beetrack-client/users"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

const minPasswordLength = 6

// handleRegister creates a customer account. The requested role is ignored:
// self-registration always yields RoleUser.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !s.registerLimiter.Allow(clientKey(r)) {
		writeDetail(w, http.StatusTooManyRequests, "Rate limit exceeded: 3 per 1 minute")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || !strings.Contains(req.Email, "@") || len(req.Password) < minPasswordLength {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body"}, "msg": "invalid registration payload"}},
		})
		return
	}

	user, err := s.AddUser(req.Username, req.Email, req.Password, users.RoleUser, true)
	if errors.Is(err, users.ErrUserExists) {
		writeDetail(w, http.StatusBadRequest, "User already exists")
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info().Str("username", user.Username).Msg("user registered")
	writeJSON(w, http.StatusOK, user)
}

// handleLogin is the form-encoded login: no session, no refresh cookie
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.loginLimiter.Allow(clientKey(r)) {
		writeDetail(w, http.StatusTooManyRequests, "Rate limit exceeded: 5 per 1 minute")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid form body")
		return
	}

	user, ok := s.authenticate(w, r.PostForm.Get("username"), r.PostForm.Get("password"))
	if !ok {
		return
	}

	accessToken, err := s.issueAccessToken(user.Username, nil)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, token.Pair{AccessToken: accessToken, TokenType: "bearer"})
}

// handleLoginWithRemember opens a server-side session when remember_me is
// set and hands its refresh credential back both in the body and as an
// http-only cookie
func (s *Server) handleLoginWithRemember(w http.ResponseWriter, r *http.Request) {
	if !s.loginLimiter.Allow(clientKey(r)) {
		writeDetail(w, http.StatusTooManyRequests, "Rate limit exceeded: 5 per 1 minute")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	user, ok := s.authenticate(w, req.Username, req.Password)
	if !ok {
		return
	}

	if !req.RememberMe {
		accessToken, err := s.issueAccessToken(user.Username, nil)
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, token.Pair{AccessToken: accessToken, TokenType: "bearer"})
		return
	}

	now := s.nowFunc().UTC()
	userAgent := r.UserAgent()
	ip := clientKey(r)
	device := userAgent
	if len(device) > 100 {
		device = device[:100]
	}
	session := &sessions.Stored{
		Session: sessions.Session{
			UserAgent:    &userAgent,
			IPAddress:    &ip,
			DeviceInfo:   &device,
			CreatedAt:    now,
			LastActivity: now,
			ExpiresAt:    now.Add(s.refreshTTL),
		},
		UserID:       user.ID,
		RefreshToken: newRefreshToken(),
	}
	if err := s.sessions.Create(session); err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	accessToken, err := s.issueAccessToken(user.Username, &session.ID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.setRefreshCookie(w, session.RefreshToken)
	s.logger.Info().Str("username", user.Username).Int64("session_id", session.ID).Msg("remembered login")
	writeJSON(w, http.StatusOK, token.Pair{
		AccessToken:  accessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    "bearer",
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	s.refreshes++
	fail, delay := s.failRefresh, s.refreshDelay
	s.lock.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if fail {
		s.clearRefreshCookie(w)
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	cookie, err := r.Cookie(routes.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		writeDetail(w, http.StatusUnauthorized, "No refresh token provided")
		return
	}

	session, err := s.sessions.GetByRefreshToken(cookie.Value)
	if err != nil || !session.ExpiresAt.After(s.nowFunc()) {
		s.clearRefreshCookie(w)
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	user, err := s.users.GetByID(session.UserID)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	_ = s.sessions.Touch(session.ID, s.nowFunc().UTC())

	accessToken, err := s.issueAccessToken(user.Username, &session.ID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, token.Pair{AccessToken: accessToken, TokenType: "bearer"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	fail := s.failLogout
	s.lock.Unlock()
	if fail {
		writeDetail(w, http.StatusInternalServerError, "Logout failed")
		return
	}

	s.clearRefreshCookie(w)

	if cookie, err := r.Cookie(routes.RefreshCookieName); err == nil && cookie.Value != "" {
		if session, err := s.sessions.GetByRefreshToken(cookie.Value); err == nil {
			_ = s.sessions.Invalidate(session.UserID, session.ID)
			writeMessage(w, "Logged out successfully, session invalidated")
			return
		}
	}
	writeMessage(w, "Logged out successfully")
}

// authenticate writes the 401/403 response itself and reports false on failure
func (s *Server) authenticate(w http.ResponseWriter, username, password string) (*users.User, bool) {
	user, err := s.users.GetByUsername(username)
	if err != nil || !user.CheckPassword(password) {
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return nil, false
	}
	if !user.IsActive {
		writeDetail(w, http.StatusForbidden, "User account is not active")
		return nil, false
	}
	return user, true
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     routes.RefreshCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     routes.RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
}
