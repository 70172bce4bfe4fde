package store

import (
	"context"
	"time"
)

// Kind identifies which storage tier holds the access token
type Kind string

const (
	// KindNone means neither tier holds a token
	KindNone Kind = ""
	// KindPersistent survives a process restart ("remember me")
	KindPersistent Kind = "persistent"
	// KindEphemeral lives only as long as the process
	KindEphemeral Kind = "ephemeral"
)

// Record is what a tier stores. RefreshToken is only kept by the persistent
// tier so a restarted process can seed the refresh cookie again.
type Record struct {
	AccessToken  string    `json:"access_token" yaml:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty" yaml:"refresh_token,omitempty"`
	SavedAt      time.Time `json:"saved_at" yaml:"saved_at"`
}

// Tier is one storage backend. Load returns (nil, nil) when nothing is stored.
type Tier interface {
	Name() string
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}

// HeaderSink receives the bearer token whenever the store changes.
// An empty token means "no Authorization header".
type HeaderSink interface {
	SetBearer(token string)
}
