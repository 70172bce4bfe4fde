package fakebackend

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/beetrack-client/internal/routes"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.sessions.ListValid(currentUser(r).ID)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid session ID format")
		return
	}
	if err := s.sessions.Invalidate(currentUser(r).ID, id); err != nil {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	writeMessage(w, "Session revoked successfully")
}

// handleRevokeAllSessions spares the current session when keep_current is
// true (the default). The current session comes from the query, falling back
// to the caller's token.
func (s *Server) handleRevokeAllSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	keepCurrent := true
	if raw := query.Get(routes.QueryKeepCurrent); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "Invalid keep_current value")
			return
		}
		keepCurrent = parsed
	}

	var currentID *int64
	if raw := query.Get(routes.QueryCurrentSessionID); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "Invalid session ID format")
			return
		}
		currentID = &parsed
	}
	if keepCurrent && currentID == nil {
		if claims := currentClaims(r); claims != nil {
			currentID = claims.SessionID
		}
	}

	userID := currentUser(r).ID
	if keepCurrent && currentID != nil {
		if _, err := s.sessions.InvalidateAll(userID, currentID); err != nil {
			writeDetail(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeMessage(w, "All other sessions revoked successfully")
		return
	}

	if _, err := s.sessions.InvalidateAll(userID, nil); err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeMessage(w, "All sessions revoked successfully")
}
