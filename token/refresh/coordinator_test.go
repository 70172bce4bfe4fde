package refresh_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/beetrack-client/token/refresh"
	"github.com/stretchr/testify/require"
)

// gatedRefresher blocks every refresh call until release is closed
type gatedRefresher struct {
	calls   atomic.Int32
	release chan struct{}
	token   string
	err     error
}

func newGatedRefresher(token string, err error) *gatedRefresher {
	return &gatedRefresher{release: make(chan struct{}), token: token, err: err}
}

func (g *gatedRefresher) refresh(ctx context.Context) (string, error) {
	g.calls.Add(1)
	select {
	case <-g.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return g.token, g.err
}

// awaitAll starts n concurrent callers and returns their results once the
// coordinator has queued all of them
func awaitAll(t *testing.T, c *refresh.Coordinator, g *gatedRefresher, n int) []refresh.Result {
	t.Helper()

	results := make([]refresh.Result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := c.Await(context.Background())
			results[i] = refresh.Result{Token: tok, Err: err}
		}(i)
	}

	require.Eventually(t, func() bool {
		return c.Stats().Coalesced == n-1
	}, time.Second, 5*time.Millisecond)
	require.True(t, c.InFlight())

	close(g.release)
	wg.Wait()
	return results
}

// TestAwait_SingleFlight checks N concurrent callers share one refresh call
func TestAwait_SingleFlight(t *testing.T) {
	g := newGatedRefresher("T2", nil)
	c := refresh.New(g.refresh)

	results := awaitAll(t, c, g, 8)

	require.Equal(t, int32(1), g.calls.Load())
	for _, r := range results {
		require.NoError(t, r.Err)
		require.Equal(t, "T2", r.Token)
	}
	require.False(t, c.InFlight())
	require.Equal(t, refresh.Stats{Flights: 1, Coalesced: 7}, c.Stats())
}

// TestAwait_FailureRejectsEveryWaiter checks nobody hangs when the flight fails
func TestAwait_FailureRejectsEveryWaiter(t *testing.T) {
	cause := errors.New("refresh cookie expired")
	g := newGatedRefresher("", cause)

	var failures atomic.Int32
	var hookErr atomic.Value
	c := refresh.New(g.refresh, refresh.WithOnFailure(func(err error) {
		hookErr.Store(err)
		failures.Add(1)
	}))

	results := awaitAll(t, c, g, 5)

	require.Equal(t, int32(1), g.calls.Load())
	require.Equal(t, int32(1), failures.Load(), "failure hook runs once per flight")
	require.ErrorIs(t, hookErr.Load().(error), cause)
	for _, r := range results {
		require.ErrorIs(t, r.Err, refresh.ErrRefreshFailed)
		require.ErrorIs(t, r.Err, cause)
		require.Empty(t, r.Token)
	}
	require.Equal(t, 1, c.Stats().Failures)
}

func TestAwait_EmptyTokenIsAFailure(t *testing.T) {
	var failures atomic.Int32
	c := refresh.New(func(context.Context) (string, error) { return "", nil },
		refresh.WithOnFailure(func(error) { failures.Add(1) }))

	_, err := c.Await(context.Background())
	require.ErrorIs(t, err, refresh.ErrRefreshFailed)
	require.Equal(t, int32(1), failures.Load())
}

func TestAwait_AppliesWithStartingGeneration(t *testing.T) {
	var gen atomic.Uint64
	gen.Store(7)

	var applied []string
	var appliedGen uint64
	c := refresh.New(
		func(context.Context) (string, error) { return "T2", nil },
		refresh.WithGeneration(gen.Load),
		refresh.WithApply(func(_ context.Context, g uint64, tok string) (bool, error) {
			appliedGen = g
			applied = append(applied, tok)
			return true, nil
		}),
	)

	tok, err := c.Await(context.Background())
	require.NoError(t, err)
	require.Equal(t, "T2", tok)
	require.Equal(t, []string{"T2"}, applied)
	require.Equal(t, uint64(7), appliedGen)
}

// TestAwait_StaleResultDiscarded models a logout landing while the refresh is in flight
func TestAwait_StaleResultDiscarded(t *testing.T) {
	var gen atomic.Uint64
	g := newGatedRefresher("T2", nil)

	var failures atomic.Int32
	c := refresh.New(g.refresh,
		refresh.WithGeneration(gen.Load),
		refresh.WithApply(func(_ context.Context, started uint64, _ string) (bool, error) {
			return started == gen.Load(), nil
		}),
		refresh.WithOnFailure(func(error) { failures.Add(1) }),
	)

	done := make(chan error, 1)
	go func() {
		_, err := c.Await(context.Background())
		done <- err
	}()

	require.Eventually(t, c.InFlight, time.Second, 5*time.Millisecond)
	gen.Add(1) // logout
	close(g.release)

	err := <-done
	require.ErrorIs(t, err, refresh.ErrStaleRefresh)
	require.Zero(t, failures.Load(), "stale results do not count as session expiry")
	require.Equal(t, 1, c.Stats().Stale)
}

func TestAwait_ApplyErrorFails(t *testing.T) {
	writeErr := errors.New("read-only filesystem")
	var failures atomic.Int32
	c := refresh.New(
		func(context.Context) (string, error) { return "T2", nil },
		refresh.WithApply(func(context.Context, uint64, string) (bool, error) { return false, writeErr }),
		refresh.WithOnFailure(func(error) { failures.Add(1) }),
	)

	_, err := c.Await(context.Background())
	require.ErrorIs(t, err, refresh.ErrRefreshFailed)
	require.ErrorIs(t, err, writeErr)
	require.Equal(t, int32(1), failures.Load())
}

// TestAwait_WaiterCancellation checks a cancelled waiter stops waiting while the flight carries on
func TestAwait_WaiterCancellation(t *testing.T) {
	g := newGatedRefresher("T2", nil)
	c := refresh.New(g.refresh)

	leader := make(chan refresh.Result, 1)
	go func() {
		tok, err := c.Await(context.Background())
		leader <- refresh.Result{Token: tok, Err: err}
	}()
	require.Eventually(t, c.InFlight, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Await(ctx)
	require.ErrorIs(t, err, context.Canceled)

	close(g.release)
	res := <-leader
	require.NoError(t, res.Err)
	require.Equal(t, "T2", res.Token)
	require.Equal(t, int32(1), g.calls.Load())
}

func TestAwait_SequentialFlights(t *testing.T) {
	var calls atomic.Int32
	c := refresh.New(func(context.Context) (string, error) {
		calls.Add(1)
		return "T", nil
	})

	for i := 0; i < 3; i++ {
		_, err := c.Await(context.Background())
		require.NoError(t, err)
	}
	require.Equal(t, int32(3), calls.Load())
	require.Equal(t, 3, c.Stats().Flights)
}

func TestAwait_FlightTimeout(t *testing.T) {
	g := newGatedRefresher("T2", nil)
	c := refresh.New(g.refresh, refresh.WithTimeout(20*time.Millisecond))

	_, err := c.Await(context.Background())
	require.ErrorIs(t, err, refresh.ErrRefreshFailed)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// joinInOrder starts one Join per ctx, each only after the previous caller
// has queued, and records the order callers get through Wait
func joinInOrder(t *testing.T, c *refresh.Coordinator, ctxs []context.Context, hold func(i int) time.Duration) (*sync.WaitGroup, []error, []chan struct{}, func() []int) {
	t.Helper()

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	errs := make([]error, len(ctxs))
	finished := make([]chan struct{}, len(ctxs))
	for i := range finished {
		finished[i] = make(chan struct{})
	}
	for i, ctx := range ctxs {
		wg.Add(1)
		go func(i int, ctx context.Context) {
			defer wg.Done()
			defer close(finished[i])
			turn, err := c.Join(ctx)
			if err != nil {
				errs[i] = err
				return
			}
			defer turn.Done()
			time.Sleep(hold(i))
			if err := turn.Wait(context.Background()); err != nil {
				errs[i] = err
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}(i, ctx)

		if i == 0 {
			require.Eventually(t, c.InFlight, time.Second, 2*time.Millisecond)
			continue
		}
		want := i
		require.Eventually(t, func() bool { return c.Stats().Coalesced == want }, time.Second, 2*time.Millisecond)
	}

	return &wg, errs, finished, func() []int {
		mu.Lock()
		defer mu.Unlock()
		return append([]int(nil), order...)
	}
}

// TestJoin_TurnsFollowQueueOrder checks later callers cannot overtake earlier
// ones, even when the earlier ones are slower to ask for their turn
func TestJoin_TurnsFollowQueueOrder(t *testing.T) {
	const n = 5
	g := newGatedRefresher("T2", nil)
	c := refresh.New(g.refresh)

	ctxs := make([]context.Context, n)
	for i := range ctxs {
		ctxs[i] = context.Background()
	}
	wg, errs, _, order := joinInOrder(t, c, ctxs, func(i int) time.Duration {
		return time.Duration(n-i) * 10 * time.Millisecond
	})
	close(g.release)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, []int{0, 1, 2, 3, 4}, order())
}

// TestJoin_CancelledCallerKeepsQueueMoving checks a caller that gives up does
// not block the callers queued behind it
func TestJoin_CancelledCallerKeepsQueueMoving(t *testing.T) {
	g := newGatedRefresher("T2", nil)
	c := refresh.New(g.refresh)

	ctx, cancel := context.WithCancel(context.Background())
	wg, errs, finished, order := joinInOrder(t, c,
		[]context.Context{context.Background(), ctx, context.Background()},
		func(int) time.Duration { return 0 },
	)
	cancel()
	<-finished[1]

	close(g.release)
	wg.Wait()

	require.ErrorIs(t, errs[1], context.Canceled)
	require.NoError(t, errs[0])
	require.NoError(t, errs[2])
	require.Equal(t, []int{0, 2}, order())
}

func TestJoin_FailureReleasesTurn(t *testing.T) {
	var calls atomic.Int32
	c := refresh.New(func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("refresh cookie expired")
		}
		return "T3", nil
	})

	turn, err := c.Join(context.Background())
	require.Nil(t, turn)
	require.ErrorIs(t, err, refresh.ErrRefreshFailed)

	// the next flight starts a fresh queue, so its first caller goes at once
	turn, err = c.Join(context.Background())
	require.NoError(t, err)
	require.NoError(t, turn.Wait(context.Background()))
	turn.Done()
	turn.Done()
	require.Equal(t, "T3", turn.Token)
}
