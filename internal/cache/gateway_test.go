package cache

import (
	"context"
	"errors"
	"fmt"
	"kinship/internal/apperr"
	"kinship/internal/config"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testGateway(t *testing.T, mutate func(*config.CacheConfig, *config.AdmissionConfig), opts ...GatewayOption) *Gateway {
	t.Helper()
	d := config.Default()
	cacheCfg, admCfg := d.Cache, d.Admission
	if mutate != nil {
		mutate(&cacheCfg, &admCfg)
	}
	return NewGateway(cacheCfg, admCfg, nil, opts...)
}

func TestFetchDeduplicatesConcurrentCallers(t *testing.T) {
	g := testGateway(t, nil)
	var calls atomic.Int32
	gate := make(chan struct{})
	load := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-gate
		return "doc", nil
	}

	const n = 50
	var wg sync.WaitGroup
	results := make([]any, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = g.Fetch(context.Background(), "chat:1", load)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "doc", results[i])
	}
}

func TestAdmissionBoundsConcurrentCalls(t *testing.T) {
	const capacity = 3
	g := testGateway(t, func(_ *config.CacheConfig, a *config.AdmissionConfig) {
		a.Capacity = capacity
	})

	var current, peak, calls atomic.Int32
	load := func(ctx context.Context) (any, error) {
		calls.Add(1)
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(15 * time.Millisecond)
		current.Add(-1)
		return "ok", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := g.Fetch(context.Background(), fmt.Sprintf("key:%d", i), load)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(12), calls.Load())
	assert.LessOrEqual(t, peak.Load(), int32(capacity))
	assert.Equal(t, int64(0), g.Stats().SlotsInUse)
}

func TestFetchExpiry(t *testing.T) {
	clock := newFakeClock()
	g := testGateway(t, nil, WithClock(clock.Now))
	var calls atomic.Int32
	load := func(ctx context.Context) (any, error) {
		return int(calls.Add(1)), nil
	}
	ctx := context.Background()

	v, err := g.Fetch(ctx, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	clock.Advance(5*time.Minute - time.Nanosecond)
	v, err = g.Fetch(ctx, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(time.Nanosecond)
	v, err = g.Fetch(ctx, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, _ = g.Fetch(ctx, "k", load)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchFailureFailsAllWaitersAndReleasesSlot(t *testing.T) {
	g := testGateway(t, func(_ *config.CacheConfig, a *config.AdmissionConfig) {
		a.Capacity = 1
		a.Overflow = config.OverflowFailFast
	})
	gate := make(chan struct{})
	var calls atomic.Int32
	failing := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-gate
		return nil, apperr.Unavailable("store down")
	}

	first := make(chan error, 1)
	go func() {
		_, err := g.Fetch(context.Background(), "k", failing)
		first <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() {
		_, err := g.Fetch(context.Background(), "k", failing)
		second <- err
	}()
	time.Sleep(10 * time.Millisecond)
	close(gate)

	for _, ch := range []chan error{first, second} {
		err := <-ch
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindUnavailable))
		assert.True(t, apperr.Retryable(err))
	}
	assert.Equal(t, int32(1), calls.Load())

	// marker cleared and the single slot is free again
	v, err := g.Fetch(context.Background(), "k", func(ctx context.Context) (any, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
}

func TestInvalidateForcesFreshLoad(t *testing.T) {
	g := testGateway(t, nil)
	var calls atomic.Int32
	load := func(ctx context.Context) (any, error) {
		return int(calls.Add(1)), nil
	}
	ctx := context.Background()

	_, err := g.Fetch(ctx, "k", load)
	require.NoError(t, err)
	g.Invalidate("k")
	v, err := g.Fetch(ctx, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestInvalidateDropsInFlightResult(t *testing.T) {
	g := testGateway(t, nil)
	gate := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	load := func(ctx context.Context) (any, error) {
		n := calls.Add(1)
		if n == 1 {
			close(started)
			<-gate
			return "stale", nil
		}
		return "fresh", nil
	}

	stale := make(chan any, 1)
	go func() {
		v, _ := g.Fetch(context.Background(), "k", load)
		stale <- v
	}()
	<-started
	g.Invalidate("k")

	v, err := g.Fetch(context.Background(), "k", load)
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)

	close(gate)
	assert.Equal(t, "stale", <-stale)

	v, err = g.Fetch(context.Background(), "k", load)
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCancelDetachesOnlyCaller(t *testing.T) {
	g := testGateway(t, nil)
	gate := make(chan struct{})
	started := make(chan struct{})
	var calls atomic.Int32
	load := func(ctx context.Context) (any, error) {
		calls.Add(1)
		close(started)
		<-gate
		return "doc", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := g.Fetch(ctx, "k", load)
		cancelled <- err
	}()
	<-started

	other := make(chan any, 1)
	go func() {
		v, err := g.Fetch(context.Background(), "k", load)
		assert.NoError(t, err)
		other <- v
	}()

	cancel()
	err := <-cancelled
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindTimeout))

	close(gate)
	assert.Equal(t, "doc", <-other)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int64(1), g.Stats().Detached)
}

func TestFailFastOverflow(t *testing.T) {
	g := testGateway(t, func(_ *config.CacheConfig, a *config.AdmissionConfig) {
		a.Capacity = 1
		a.Overflow = config.OverflowFailFast
	})
	gate := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = g.Fetch(context.Background(), "busy", func(ctx context.Context) (any, error) {
			close(started)
			<-gate
			return nil, nil
		})
	}()
	<-started
	defer close(gate)

	_, err := g.Fetch(context.Background(), "other", func(ctx context.Context) (any, error) {
		t.Fatal("loader must not run without a slot")
		return nil, nil
	})
	require.Error(t, err)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.KindRateLimited, ae.Kind)
	assert.Equal(t, "other", ae.Context["key"])
	assert.Equal(t, 1, ae.Context["capacity"])
}

func TestBlockingOverflowWithMaxWait(t *testing.T) {
	g := testGateway(t, func(_ *config.CacheConfig, a *config.AdmissionConfig) {
		a.Capacity = 1
		a.MaxWait = 20 * time.Millisecond
	})
	gate := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = g.Fetch(context.Background(), "busy", func(ctx context.Context) (any, error) {
			close(started)
			<-gate
			return nil, nil
		})
	}()
	<-started
	defer close(gate)

	_, err := g.Fetch(context.Background(), "other", func(ctx context.Context) (any, error) {
		return "never", nil
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindRateLimited))
}

func TestCallTimeout(t *testing.T) {
	g := testGateway(t, func(_ *config.CacheConfig, a *config.AdmissionConfig) {
		a.CallTimeout = 20 * time.Millisecond
	})

	tests := []struct {
		name string
		load Loader
	}{
		{"loader honours context", func(ctx context.Context) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}},
		{"loader ignores context", func(ctx context.Context) (any, error) {
			time.Sleep(200 * time.Millisecond)
			return "late", nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			_, err := g.Fetch(context.Background(), tt.name, tt.load)
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindTimeout))
			assert.Less(t, time.Since(start), 150*time.Millisecond)
		})
	}
}

func TestPutServesWithoutLoad(t *testing.T) {
	g := testGateway(t, nil)
	g.Put("k", "seeded")
	v, err := g.Fetch(context.Background(), "k", func(ctx context.Context) (any, error) {
		t.Fatal("unexpected load")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "seeded", v)
	assert.Equal(t, int64(1), g.Stats().Hits)
}

func TestEvictionDropsExpiredThenOldest(t *testing.T) {
	clock := newFakeClock()
	g := testGateway(t, func(c *config.CacheConfig, _ *config.AdmissionConfig) {
		c.MaxEntries = 10
		c.SweepEvery = 10
		c.EvictFraction = 0.25
	}, WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		g.Put(fmt.Sprintf("old:%d", i), i)
	}
	clock.Advance(10 * time.Minute)
	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		g.Put(fmt.Sprintf("new:%d", i), i)
	}
	// 10th insert swept the five expired entries
	assert.Equal(t, 5, g.Stats().Entries)

	for i := 5; i < 15; i++ {
		clock.Advance(time.Second)
		g.Put(fmt.Sprintf("new:%d", i), i)
	}
	// 20th insert: 15 live entries > 10, oldest quarter (4) dropped
	assert.Equal(t, 11, g.Stats().Entries)
	g.mu.Lock()
	_, oldest := g.entries["new:0"]
	_, kept := g.entries["new:4"]
	_, newest := g.entries["new:14"]
	g.mu.Unlock()
	assert.False(t, oldest)
	assert.True(t, kept)
	assert.True(t, newest)
	assert.Equal(t, int64(9), g.Stats().Evictions)
}

func TestWriteInvalidatesKeys(t *testing.T) {
	g := testGateway(t, nil)
	g.Put("chat:1", "old")
	g.Put("chat:1:messages", "old")

	err := g.Write(context.Background(), []string{"chat:1", "chat:1:messages"}, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, g.Stats().Entries)

	g.Put("chat:1", "old")
	err = g.Write(context.Background(), []string{"chat:1"}, func(ctx context.Context) error {
		return apperr.PermissionDenied("not allowed")
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied))
	assert.Equal(t, 0, g.Stats().Entries)
}

func TestTypedFetch(t *testing.T) {
	g := testGateway(t, nil)
	n, err := Fetch(context.Background(), g, "n", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = Fetch(context.Background(), g, "n", func(ctx context.Context) (string, error) {
		return "unused", nil
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInternal))
}

func TestFastLoadsNeverReportCancellation(t *testing.T) {
	g := testGateway(t, func(c *config.CacheConfig, a *config.AdmissionConfig) {
		a.Capacity = 64
		a.MaxWait = 0
		c.MaxEntries = 100000
	})
	load := func(ctx context.Context) (any, error) { return "doc", nil }

	const workers, perWorker = 32, 500
	var failures atomic.Int64
	var once sync.Once
	var firstErr error
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				v, err := g.Fetch(context.Background(), fmt.Sprintf("doc:%d:%d", w, i), load)
				if err != nil || v != "doc" {
					failures.Add(1)
					once.Do(func() { firstErr = err })
				}
			}
		}(w)
	}
	wg.Wait()
	assert.Zero(t, failures.Load(), "first error: %v", firstErr)
}
