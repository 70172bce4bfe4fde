package fakebackend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/beetrack-client/token"
	"github.com/jrsteele09/beetrack-client/users"
)

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

// handleUpdateMe applies a partial update and reissues the access token,
// since a new username changes the token subject
func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	var update users.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	if update.Username != nil && strings.TrimSpace(*update.Username) != "" {
		user.Username = *update.Username
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.Password != nil {
		if len(*update.Password) < minPasswordLength {
			writeDetail(w, http.StatusUnprocessableEntity, "password: ensure this value has at least 6 characters")
			return
		}
		hash, err := users.HashPassword(*update.Password)
		if err != nil {
			writeDetail(w, http.StatusInternalServerError, err.Error())
			return
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(user); err != nil {
		if errors.Is(err, users.ErrUserExists) {
			writeDetail(w, http.StatusBadRequest, "User already exists")
			return
		}
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}

	var sessionID *int64
	if claims := currentClaims(r); claims != nil {
		sessionID = claims.SessionID
	}
	accessToken, err := s.issueAccessToken(user.Username, sessionID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, token.Pair{AccessToken: accessToken, TokenType: "bearer"})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := s.users.List()
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid user id")
		return
	}
	user, err := s.users.GetByID(id)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
