package routes

import "fmt"

// Backend endpoint path constants
// Shared by the API clients and the fake backend so the two cannot drift apart
const (
	// Auth Routes - Login & Logout
	UsersLogin             = "/users/login"
	UsersLoginWithRemember = "/users/login-with-remember"
	UsersRefreshToken      = "/users/refresh-token"
	UsersLogout            = "/users/logout"
	UsersRegister          = "/users/register"

	// Profile
	UsersMe   = "/users/me"
	UsersList = "/users/"

	// Sessions
	UsersSessions = "/users/sessions"

	// Export
	ExportOrdersCSV      = "/export/orders/csv"
	ExportInspectionsPDF = "/export/inspections/pdf"
)

// Query parameter names used by the revoke-all call
const (
	QueryKeepCurrent      = "keep_current"
	QueryCurrentSessionID = "current_session_id"
)

// RefreshCookieName is the http-only cookie carrying the refresh credential
const RefreshCookieName = "refresh_token"

func UserByID(id int64) string {
	return fmt.Sprintf("/users/%d", id)
}

func SessionByID(id int64) string {
	return fmt.Sprintf("%s/%d", UsersSessions, id)
}
