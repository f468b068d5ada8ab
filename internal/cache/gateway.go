package cache

import (
	"context"
	"errors"
	"fmt"
	"kinship/internal/apperr"
	"kinship/internal/config"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Loader performs one outbound call to the document store.
type Loader func(ctx context.Context) (any, error)

type entry struct {
	value     any
	fetchedAt time.Time
}

// flight identifies one in-flight load so a result that lost a race with Invalidate is dropped.
type flight struct{}

// Gateway memoizes document-store reads with a fixed TTL, deduplicates concurrent loads of
// the same key and bounds concurrent outbound calls with FIFO admission.
// Cached values are shared between callers and must be treated as read-only.
type Gateway struct {
	mu      sync.Mutex
	entries map[string]entry
	pending map[string]*flight
	inserts int

	group singleflight.Group
	slots *semaphore.Weighted

	cache  config.CacheConfig
	adm    config.AdmissionConfig
	now    func() time.Time
	logger *slog.Logger

	inUse       atomic.Int64
	hits        atomic.Int64
	misses      atomic.Int64
	loads       atomic.Int64
	shared      atomic.Int64
	evictions   atomic.Int64
	rateLimited atomic.Int64
	timeouts    atomic.Int64
	detached    atomic.Int64
}

// GatewayOption customizes a Gateway.
type GatewayOption func(*Gateway)

// WithClock replaces time.Now, used for expiry and eviction ordering.
func WithClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

// NewGateway creates a gateway from validated cache and admission settings.
func NewGateway(cacheCfg config.CacheConfig, admCfg config.AdmissionConfig, logger *slog.Logger, opts ...GatewayOption) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		entries: make(map[string]entry),
		pending: make(map[string]*flight),
		slots:   semaphore.NewWeighted(int64(admCfg.Capacity)),
		cache:   cacheCfg,
		adm:     admCfg,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Fetch returns the live cached value for key or loads it. Concurrent callers for the same
// key share one load. Cancelling ctx detaches only this caller.
func (g *Gateway) Fetch(ctx context.Context, key string, load Loader) (any, error) {
	if v, ok := g.lookup(key); ok {
		g.hits.Add(1)
		return v, nil
	}
	g.misses.Add(1)

	base := context.WithoutCancel(ctx)
	ch := g.group.DoChan(key, func() (any, error) {
		// another flight may have filled the entry between lookup and DoChan
		if v, ok := g.lookup(key); ok {
			return v, nil
		}
		f := &flight{}
		g.mu.Lock()
		g.pending[key] = f
		g.mu.Unlock()

		v, err := g.call(base, key, load)

		g.mu.Lock()
		if g.pending[key] == f {
			delete(g.pending, key)
			if err == nil {
				g.storeLocked(key, v)
			}
		}
		g.mu.Unlock()
		return v, err
	})

	select {
	case res := <-ch:
		if res.Shared {
			g.shared.Add(1)
		}
		return res.Val, res.Err
	case <-ctx.Done():
		g.detached.Add(1)
		return nil, apperr.Timeout("fetch abandoned by caller", ctx.Err()).With("key", key)
	}
}

// Fetch is the typed form of Gateway.Fetch.
func Fetch[T any](ctx context.Context, g *Gateway, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := g.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return load(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, apperr.Internal(fmt.Sprintf("cache entry %q holds %T", key, v))
	}
	return t, nil
}

// Put stores value as freshly fetched. An in-flight load for key still answers its waiters
// but its result is not stored over value.
func (g *Gateway) Put(key string, value any) {
	g.mu.Lock()
	delete(g.pending, key)
	g.storeLocked(key, value)
	g.mu.Unlock()
}

// Invalidate drops the cached value and the in-flight marker; the next Fetch loads fresh.
func (g *Gateway) Invalidate(keys ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, key := range keys {
		delete(g.entries, key)
		delete(g.pending, key)
		g.group.Forget(key)
	}
}

// Write runs a store mutation under an admission slot and the call timeout, then
// invalidates the given keys whether or not the write succeeded.
func (g *Gateway) Write(ctx context.Context, invalidate []string, fn func(ctx context.Context) error) error {
	defer g.Invalidate(invalidate...)
	key := "write"
	if len(invalidate) > 0 {
		key = invalidate[0]
	}
	_, err := g.call(ctx, key, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// call acquires a slot, runs load under the call timeout and releases the slot when load
// returns. A load that outlives its timeout keeps its slot until it actually finishes.
func (g *Gateway) call(ctx context.Context, key string, load Loader) (any, error) {
	if err := g.acquire(ctx, key); err != nil {
		return nil, err
	}
	g.inUse.Add(1)
	g.loads.Add(1)

	cctx, cancel := context.WithTimeout(ctx, g.adm.CallTimeout)
	defer cancel()
	type result struct {
		v   any
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := load(cctx)
		g.inUse.Add(-1)
		g.slots.Release(1)
		done <- result{v, err}
	}()

	var r result
	select {
	case r = <-done:
	case <-cctx.Done():
		// a load that finished as the deadline fired still wins
		select {
		case r = <-done:
		default:
			return nil, g.classify(key, cctx, cctx.Err())
		}
	}
	if r.err != nil {
		return nil, g.classify(key, cctx, r.err)
	}
	return r.v, nil
}

func (g *Gateway) acquire(ctx context.Context, key string) error {
	capacity := g.adm.Capacity
	if g.adm.Overflow == config.OverflowFailFast {
		if !g.slots.TryAcquire(1) {
			g.rateLimited.Add(1)
			return apperr.RateLimited(key, capacity)
		}
		return nil
	}
	if g.adm.MaxWait <= 0 {
		if err := g.slots.Acquire(ctx, 1); err != nil {
			return apperr.Timeout("admission wait cancelled", err).With("key", key)
		}
		return nil
	}
	wctx, cancel := context.WithTimeout(ctx, g.adm.MaxWait)
	defer cancel()
	if err := g.slots.Acquire(wctx, 1); err != nil {
		if ctx.Err() != nil {
			return apperr.Timeout("admission wait cancelled", err).With("key", key)
		}
		g.rateLimited.Add(1)
		return apperr.RateLimited(key, capacity).With("maxWait", g.adm.MaxWait.String())
	}
	return nil
}

func (g *Gateway) classify(key string, cctx context.Context, err error) error {
	var ae *apperr.Error
	switch {
	case errors.Is(cctx.Err(), context.DeadlineExceeded) && !errors.As(err, &ae):
		g.timeouts.Add(1)
		g.logger.Warn("store call timed out", "key", key, "timeout", g.adm.CallTimeout)
		return apperr.Timeout(fmt.Sprintf("store call exceeded %s", g.adm.CallTimeout), err).With("key", key)
	case errors.As(err, &ae):
		if ae.Kind == apperr.KindTimeout {
			g.timeouts.Add(1)
		}
		if ae.Context["key"] == nil {
			return ae.With("key", key)
		}
		return ae
	default:
		g.logger.Debug("store call failed", "key", key, "error", err)
		return apperr.From(err).With("key", key)
	}
}

func (g *Gateway) lookup(key string) (any, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.entries[key]
	if !ok || !g.live(e) {
		return nil, false
	}
	return e.value, true
}

func (g *Gateway) live(e entry) bool {
	return g.now().Before(e.fetchedAt.Add(g.cache.TTL))
}

func (g *Gateway) storeLocked(key string, value any) {
	g.entries[key] = entry{value: value, fetchedAt: g.now()}
	g.inserts++
	if g.inserts%g.cache.SweepEvery == 0 {
		g.evictLocked()
	}
}

// evictLocked removes expired entries, then the oldest EvictFraction by fetch time while
// the map is still above MaxEntries.
func (g *Gateway) evictLocked() {
	removed := 0
	for k, e := range g.entries {
		if !g.live(e) {
			delete(g.entries, k)
			removed++
		}
	}
	if len(g.entries) > g.cache.MaxEntries {
		keys := make([]string, 0, len(g.entries))
		for k := range g.entries {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			return g.entries[keys[i]].fetchedAt.Before(g.entries[keys[j]].fetchedAt)
		})
		n := int(float64(len(keys))*g.cache.EvictFraction + 0.5)
		if n < 1 {
			n = 1
		}
		for _, k := range keys[:n] {
			delete(g.entries, k)
		}
		removed += n
	}
	if removed > 0 {
		g.evictions.Add(int64(removed))
		g.logger.Debug("cache eviction", "removed", removed, "remaining", len(g.entries))
	}
}

// Stats is a point-in-time view of gateway counters.
type Stats struct {
	Entries     int   `json:"entries"`
	InFlight    int   `json:"inFlight"`
	SlotsInUse  int64 `json:"slotsInUse"`
	Capacity    int   `json:"capacity"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Loads       int64 `json:"loads"`
	Shared      int64 `json:"shared"`
	Evictions   int64 `json:"evictions"`
	RateLimited int64 `json:"rateLimited"`
	Timeouts    int64 `json:"timeouts"`
	Detached    int64 `json:"detached"`
}

func (g *Gateway) Stats() Stats {
	g.mu.Lock()
	entries, inFlight := len(g.entries), len(g.pending)
	g.mu.Unlock()
	return Stats{
		Entries:     entries,
		InFlight:    inFlight,
		SlotsInUse:  g.inUse.Load(),
		Capacity:    g.adm.Capacity,
		Hits:        g.hits.Load(),
		Misses:      g.misses.Load(),
		Loads:       g.loads.Load(),
		Shared:      g.shared.Load(),
		Evictions:   g.evictions.Load(),
		RateLimited: g.rateLimited.Load(),
		Timeouts:    g.timeouts.Load(),
		Detached:    g.detached.Load(),
	}
}
