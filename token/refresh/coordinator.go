package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/beetrack-client/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrRefreshFailed = errors.ErrRefreshFailed
	ErrStaleRefresh  = errors.ErrStaleRefresh
)

// Func mints a new access token using the backend's refresh credential
type Func func(ctx context.Context) (string, error)

// ApplyFunc writes a refreshed token back. It reports false when gen is no
// longer current and the token was discarded.
type ApplyFunc func(ctx context.Context, gen uint64, accessToken string) (bool, error)

// Result is what every caller of one flight receives
type Result struct {
	Token string
	Err   error
}

// Stats counts coordinator activity since construction
type Stats struct {
	Flights   int
	Failures  int
	Stale     int
	Coalesced int
}

// Coordinator guarantees at most one refresh call is in flight. Callers that
// arrive while a flight is running queue up and receive the same result, in
// the order they arrived.
type Coordinator struct {
	refreshFn  Func
	generation func() uint64
	apply      ApplyFunc
	onFailure  func(error)
	timeout    time.Duration
	logger     zerolog.Logger
	tracer     trace.Tracer

	mu       sync.Mutex
	inFlight bool
	waiters  []waiter
	stats    Stats
}

// waiter is one queued caller. done is closed once the caller has finished
// with its turn, which lets the caller queued after it go.
type waiter struct {
	result chan Result
	prev   <-chan struct{}
	done   chan struct{}
}

// Turn is a caller's place in the order a flight's callers queued. Callers
// that replay work with the refreshed token call Wait before replaying and
// Done afterwards, so replays happen in queue order.
type Turn struct {
	Token string
	prev  <-chan struct{}
	done  chan struct{}
	once  sync.Once
}

// Wait blocks until every caller queued earlier in the same flight has
// called Done
func (t *Turn) Wait(ctx context.Context) error {
	select {
	case <-t.prev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done hands the turn to the next caller. It is safe to call more than once.
func (t *Turn) Done() {
	t.once.Do(func() {
		go func() {
			// the next caller must not overtake one still waiting for its turn
			<-t.prev
			close(t.done)
		}()
	})
}

var released = func() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

type Option func(*Coordinator)

// WithGeneration supplies the store generation captured when a flight starts
func WithGeneration(fn func() uint64) Option {
	return func(c *Coordinator) {
		c.generation = fn
	}
}

func WithApply(fn ApplyFunc) Option {
	return func(c *Coordinator) {
		c.apply = fn
	}
}

// WithOnFailure is invoked once per failed flight, before waiters are rejected
func WithOnFailure(fn func(error)) Option {
	return func(c *Coordinator) {
		c.onFailure = fn
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = d
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(c *Coordinator) {
		c.tracer = tracer
	}
}

// New creates a coordinator around refreshFn
func New(refreshFn Func, options ...Option) *Coordinator {
	c := &Coordinator{
		refreshFn:  refreshFn,
		generation: func() uint64 { return 0 },
		timeout:    15 * time.Second,
		logger:     log.Logger.With().Str("component", "refresh").Logger(),
		tracer:     otel.Tracer("github.com/jrsteele09/beetrack-client/token/refresh"),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Await returns a fresh access token. The first caller starts the flight; the
// flag is set under the lock before any I/O, so concurrent callers always
// join the existing flight instead of starting another.
//
// A cancelled ctx stops this caller waiting but never aborts the flight.
func (c *Coordinator) Await(ctx context.Context) (string, error) {
	turn, err := c.Join(ctx)
	if err != nil {
		return "", err
	}
	turn.Done()
	return turn.Token, nil
}

// Join is Await for callers that replay work afterwards. On success the
// returned Turn orders those replays by queue position; the caller must
// call Done on it.
func (c *Coordinator) Join(ctx context.Context) (*Turn, error) {
	w := waiter{result: make(chan Result, 1), done: make(chan struct{})}

	c.mu.Lock()
	if c.inFlight {
		w.prev = c.waiters[len(c.waiters)-1].done
		c.waiters = append(c.waiters, w)
		c.stats.Coalesced++
		c.mu.Unlock()
	} else {
		w.prev = released
		c.waiters = append(c.waiters, w)
		c.inFlight = true
		c.stats.Flights++
		gen := c.generation()
		c.mu.Unlock()

		go c.fly(context.WithoutCancel(ctx), gen)
	}

	turn := &Turn{prev: w.prev, done: w.done}
	select {
	case res := <-w.result:
		if res.Err != nil {
			turn.Done()
			return nil, res.Err
		}
		turn.Token = res.Token
		return turn, nil
	case <-ctx.Done():
		turn.Done()
		return nil, ctx.Err()
	}
}

// InFlight reports whether a refresh is currently running
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Coordinator) fly(ctx context.Context, gen uint64) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx, span := c.tracer.Start(ctx, "refresh.flight", trace.WithAttributes(
		attribute.Int64("beetrack.store.generation", int64(gen)),
	))
	defer span.End()

	res := c.run(ctx, gen)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	c.settle(res)
}

func (c *Coordinator) run(ctx context.Context, gen uint64) Result {
	tok, err := c.refreshFn(ctx)
	if err == nil && tok == "" {
		err = errors.ErrNoToken
	}
	if err != nil {
		return c.fail(err)
	}

	if c.apply != nil {
		ok, err := c.apply(ctx, gen, tok)
		if err != nil {
			return c.fail(err)
		}
		if !ok {
			c.mu.Lock()
			c.stats.Stale++
			c.mu.Unlock()
			c.logger.Info().Uint64("generation", gen).Msg("refresh result discarded, session changed while in flight")
			return Result{Err: ErrStaleRefresh}
		}
	}

	c.logger.Debug().Msg("access token refreshed")
	return Result{Token: tok}
}

func (c *Coordinator) fail(cause error) Result {
	c.mu.Lock()
	c.stats.Failures++
	c.mu.Unlock()

	c.logger.Warn().Err(cause).Msg("token refresh failed")
	if c.onFailure != nil {
		c.onFailure(cause)
	}
	return Result{Err: fmt.Errorf("%w: %w", ErrRefreshFailed, cause)}
}

// settle hands res to every queued caller in arrival order and reopens the
// coordinator for the next flight.
func (c *Coordinator) settle(res Result) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.inFlight = false
	c.mu.Unlock()

	for _, w := range waiters {
		w.result <- res
	}
}
