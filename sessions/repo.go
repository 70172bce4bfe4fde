package sessions

import (
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Repo is the session store behind the in-process test backend
type Repo interface {
	// Create stores a new valid session and assigns its id
	Create(session *Stored) error

	// GetByRefreshToken returns the valid session owning refreshToken
	GetByRefreshToken(refreshToken string) (*Stored, error)

	// ListValid returns userID's valid sessions ordered by id
	ListValid(userID int64) ([]Session, error)

	// Invalidate revokes one of userID's sessions
	Invalidate(userID, sessionID int64) error

	// InvalidateAll revokes every session of userID except keep, when set.
	// It returns the number of sessions revoked.
	InvalidateAll(userID int64, keep *int64) (int, error)

	// Touch records activity on a session
	Touch(sessionID int64, at time.Time) error

	// IsValid reports whether sessionID exists and has not been revoked
	IsValid(sessionID int64) bool
}
