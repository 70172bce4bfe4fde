package fakebackend

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/beetrack-client/internal/routes"
)

func (s *Server) initRoutes() {
	r := chi.NewRouter()
	r.Use(s.CountingMiddleware, s.LoggingMiddleware, s.RecoverMiddleware)

	// Public
	r.Post(routes.UsersRegister, s.handleRegister)
	r.Post(routes.UsersLogin, s.handleLogin)
	r.Post(routes.UsersLoginWithRemember, s.handleLoginWithRemember)
	r.Post(routes.UsersRefreshToken, s.handleRefresh)

	// Authenticated
	r.Group(func(r chi.Router) {
		r.Use(s.RequireAuth)

		r.Get(routes.UsersMe, s.handleMe)
		r.Put(routes.UsersMe, s.handleUpdateMe)
		r.Post(routes.UsersLogout, s.handleLogout)

		r.Get(routes.UsersSessions, s.handleListSessions)
		r.Delete(routes.UsersSessions, s.handleRevokeAllSessions)
		r.Delete(routes.UsersSessions+"/{sessionID}", s.handleRevokeSession)

		r.Get("/users/{userID}", s.handleGetUser)

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(s.RequireAdmin)

			r.Get(routes.UsersList, s.handleListUsers)
			r.Get(routes.ExportOrdersCSV, s.handleExportOrders)
			r.Get(routes.ExportInspectionsPDF, s.handleExportInspections)
		})
	})

	s.router = r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail writes the {"detail": "..."} error body the real API uses
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}
