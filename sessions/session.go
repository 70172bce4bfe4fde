package sessions

import (
	"time"
)

// Session is one server-tracked login, e.g. a remembered device. Each is
// revocable on its own.
type Session struct {
	ID           int64     `json:"id"`                    // Backend session id, also the session_id token claim
	UserAgent    *string   `json:"user_agent,omitempty"`  // Browser or client that created the session
	IPAddress    *string   `json:"ip_address,omitempty"`  // Address the session was created from
	DeviceInfo   *string   `json:"device_info,omitempty"` // Truncated user agent
	CreatedAt    time.Time `json:"created_at"`            // When the session was created
	LastActivity time.Time `json:"last_activity"`         // Last refresh against this session
	ExpiresAt    time.Time `json:"expires_at"`            // When the refresh credential lapses
	IsValid      bool      `json:"is_valid"`              // False once revoked
}

// IsCurrent reports whether s is the session behind the held access token.
// currentID comes from an unverified claim and is for display only.
func (s Session) IsCurrent(currentID *int64) bool {
	return currentID != nil && *currentID == s.ID
}

// Stored is the backend's view of a session, including the owning user and
// the refresh credential that identifies it.
type Stored struct {
	Session
	UserID       int64
	RefreshToken string
}

// Message is the acknowledgement returned by revoke and logout calls
type Message struct {
	Message string `json:"message"`
}
