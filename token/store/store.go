package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Store holds exactly one current access token across two tiers. Every
// mutation bumps a monotonic generation so late refresh results can be
// recognised and dropped.
type Store struct {
	persistent Tier
	ephemeral  Tier
	sink       HeaderSink
	logger     zerolog.Logger
	nowFunc    func() time.Time

	mu         sync.Mutex
	generation uint64
	kind       Kind
}

type Option func(*Store)

// WithHeaderSink sets the transport whose bearer header mirrors the store
func WithHeaderSink(sink HeaderSink) Option {
	return func(s *Store) {
		s.sink = sink
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// New creates a store. A nil ephemeral tier defaults to a MemoryTier.
func New(persistent, ephemeral Tier, options ...Option) (*Store, error) {
	if persistent == nil {
		return nil, fmt.Errorf("[store.New] persistent tier is required")
	}
	if ephemeral == nil {
		ephemeral = NewMemoryTier()
	}

	s := &Store{
		persistent: persistent,
		ephemeral:  ephemeral,
		logger:     log.Logger.With().Str("component", "tokenstore").Logger(),
		nowFunc:    time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// SetHeaderSink attaches the sink after construction
func (s *Store) SetHeaderSink(sink HeaderSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// Save writes the token to the tier selected by persistent and clears the
// other tier, so a reload never finds two candidate tokens.
func (s *Store) Save(ctx context.Context, rec Record, persistent bool) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, other, kind := s.ephemeral, s.persistent, KindEphemeral
	if persistent {
		target, other, kind = s.persistent, s.ephemeral, KindPersistent
	} else {
		rec.RefreshToken = ""
	}
	if rec.SavedAt.IsZero() {
		rec.SavedAt = s.nowFunc()
	}

	if err := target.Save(ctx, rec); err != nil {
		return s.generation, fmt.Errorf("[Store.Save] %s: %w", target.Name(), err)
	}
	if err := other.Clear(ctx); err != nil {
		s.logger.Warn().Err(err).Str("tier", other.Name()).Msg("failed to clear other tier")
	}

	s.generation++
	s.kind = kind
	s.setBearer(rec.AccessToken)
	return s.generation, nil
}

// Load returns the stored record, checking the persistent tier first. A
// found token becomes the transport's bearer.
func (s *Store) Load(ctx context.Context) (*Record, Kind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.persistent.Load(ctx)
	if err != nil {
		return nil, KindNone, fmt.Errorf("[Store.Load] %s: %w", s.persistent.Name(), err)
	}
	if rec != nil {
		s.kind = KindPersistent
		s.setBearer(rec.AccessToken)
		return rec, KindPersistent, nil
	}

	rec, err = s.ephemeral.Load(ctx)
	if err != nil {
		return nil, KindNone, fmt.Errorf("[Store.Load] %s: %w", s.ephemeral.Name(), err)
	}
	if rec != nil {
		s.kind = KindEphemeral
		s.setBearer(rec.AccessToken)
		return rec, KindEphemeral, nil
	}

	s.kind = KindNone
	return nil, KindNone, nil
}

// Clear removes the token from both tiers and unsets the bearer header.
// Both tiers are always attempted; the first error is returned.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.kind = KindNone
	s.setBearer("")

	var firstErr error
	for _, tier := range []Tier{s.persistent, s.ephemeral} {
		if err := tier.Clear(ctx); err != nil {
			s.logger.Warn().Err(err).Str("tier", tier.Name()).Msg("failed to clear tier")
			if firstErr == nil {
				firstErr = fmt.Errorf("[Store.Clear] %s: %w", tier.Name(), err)
			}
		}
	}
	return firstErr
}

// Replace stores a refreshed access token in whichever tier currently holds
// one, keeping any stored refresh credential. It is a no-op returning false
// when gen is no longer the current generation.
func (s *Store) Replace(ctx context.Context, gen uint64, accessToken string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.logger.Debug().Uint64("started", gen).Uint64("current", s.generation).Msg("discarding stale token")
		return false, nil
	}

	target := s.ephemeral
	kind := KindEphemeral
	if s.kind == KindPersistent {
		target, kind = s.persistent, KindPersistent
	}

	rec := Record{AccessToken: accessToken, SavedAt: s.nowFunc()}
	if existing, err := target.Load(ctx); err == nil && existing != nil {
		rec.RefreshToken = existing.RefreshToken
	}

	if err := target.Save(ctx, rec); err != nil {
		return false, fmt.Errorf("[Store.Replace] %s: %w", target.Name(), err)
	}

	s.generation++
	s.kind = kind
	s.setBearer(accessToken)
	return true, nil
}

// Generation is the current store generation
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Kind reports which tier was last seen holding a token
func (s *Store) Kind() Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

func (s *Store) setBearer(token string) {
	if s.sink != nil {
		s.sink.SetBearer(token)
	}
}
