// Package cache implements the response cache: an in-memory LRU store with
// per-entry TTLs and request coalescing, optionally backed by a shared Redis
// tier. Entries are immutable; refreshes replace, never edit.
package cache

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"stockmcp/internal/instrumentation"
	"stockmcp/internal/models"
)

// FetchFunc produces a fresh result on cache miss.
type FetchFunc func(ctx context.Context) (*models.ToolResult, error)

// Tier is an optional second cache level consulted on memory miss and
// written through on successful fetch. Tier failures are logged, never
// surfaced: a broken shared cache must not break the gateway.
type Tier interface {
	Get(ctx context.Context, key string) (*models.ToolResult, error)
	Set(ctx context.Context, key string, result *models.ToolResult, ttl time.Duration) error
}

type entry struct {
	key     string
	result  *models.ToolResult
	expires time.Time
}

// flight tracks one in-progress fetch shared by all callers of the same key.
type flight struct {
	done   chan struct{}
	result *models.ToolResult
	err    error
}

// Store is the response cache. One mutex guards both the LRU table and the
// in-flight registry so "check cache, register fetch" is a single atomic
// step, giving at-most-one concurrent fetch per key.
type Store struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	lru      *list.List // front = most recently used
	inflight map[string]*flight

	fetchTimeout time.Duration
	tier         Tier
	logger       *slog.Logger
	metrics      *instrumentation.Metrics
	now          func() time.Time
}

// New creates a store. capacity bounds the number of live entries;
// fetchTimeout bounds each coalesced fetch independently of its callers.
// tier may be nil.
func New(capacity int, fetchTimeout time.Duration, tier Tier, logger *slog.Logger, metrics *instrumentation.Metrics) *Store {
	return &Store{
		capacity:     capacity,
		entries:      make(map[string]*list.Element),
		lru:          list.New(),
		inflight:     make(map[string]*flight),
		fetchTimeout: fetchTimeout,
		tier:         tier,
		logger:       logger.With("component", "cache"),
		metrics:      metrics,
		now:          time.Now,
	}
}

// GetOrFetch returns the cached result for key, or runs fetch to produce
// one. Concurrent callers for the same key share a single fetch. Errors are
// returned to every waiter but never cached, so a transient failure cannot
// poison later requests.
//
// A fetch is never abandoned on caller departure, even when started for a
// single caller: it runs on a detached context bounded only by the store's
// fetch timeout, and its completed result still populates the cache for
// the next request of the same key.
func (s *Store) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch FetchFunc) (*models.ToolResult, error) {
	s.mu.Lock()

	if el, ok := s.entries[key]; ok {
		e := el.Value.(*entry)
		if s.now().Before(e.expires) {
			s.lru.MoveToFront(el)
			s.mu.Unlock()
			s.metrics.RecordCacheEvent("hit")
			return e.result, nil
		}
		s.removeLocked(el)
		s.metrics.RecordCacheEvent("expired")
	}

	if f, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		s.metrics.RecordCacheEvent("coalesced")
		return s.await(ctx, f)
	}

	f := &flight{done: make(chan struct{})}
	s.inflight[key] = f
	s.mu.Unlock()
	s.metrics.RecordCacheEvent("miss")

	go s.run(ctx, key, ttl, f, fetch)

	return s.await(ctx, f)
}

// await blocks until the shared fetch settles or the caller's own context
// is done. An abandoned waiter does not stop the fetch: other callers may
// still depend on it, and its result stays usable for the cache.
func (s *Store) await(ctx context.Context, f *flight) (*models.ToolResult, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, models.NewToolError(models.KindUpstreamUnavailable,
			"request cancelled while awaiting fetch")
	}
}

// run executes the single fetch for a key on a context detached from the
// initiating caller, bounded only by the store's fetch timeout.
func (s *Store) run(ctx context.Context, key string, ttl time.Duration, f *flight, fetch FetchFunc) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
	defer cancel()

	res, err := s.fromTier(fctx, key)
	if res == nil {
		res, err = fetch(fctx)
		if err == nil && s.tier != nil {
			if terr := s.tier.Set(fctx, key, res, ttl); terr != nil {
				s.logger.Warn("tier_write_failed", "key", key, "error", terr)
			}
		}
	}

	s.mu.Lock()
	delete(s.inflight, key)
	if err == nil {
		s.insertLocked(key, res, ttl)
	}
	s.mu.Unlock()

	f.result, f.err = res, err
	close(f.done)
}

// fromTier consults the shared tier, tolerating its failure.
func (s *Store) fromTier(ctx context.Context, key string) (*models.ToolResult, error) {
	if s.tier == nil {
		return nil, nil
	}
	res, err := s.tier.Get(ctx, key)
	if err != nil {
		s.logger.Warn("tier_read_failed", "key", key, "error", err)
		return nil, nil
	}
	if res != nil {
		s.metrics.RecordCacheEvent("tier_hit")
	}
	return res, nil
}

func (s *Store) insertLocked(key string, res *models.ToolResult, ttl time.Duration) {
	if el, ok := s.entries[key]; ok {
		s.removeLocked(el)
	}
	el := s.lru.PushFront(&entry{key: key, result: res, expires: s.now().Add(ttl)})
	s.entries[key] = el

	for s.lru.Len() > s.capacity {
		oldest := s.lru.Back()
		if oldest == nil {
			break
		}
		s.removeLocked(oldest)
		s.metrics.RecordCacheEvent("evicted")
	}
}

func (s *Store) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	delete(s.entries, e.key)
	s.lru.Remove(el)
}

// Len reports the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// StartJanitor sweeps expired entries in the background until ctx is done,
// so idle keys do not pin memory until their next lookup.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for el := s.lru.Back(); el != nil; {
		prev := el.Prev()
		if e := el.Value.(*entry); now.After(e.expires) {
			s.removeLocked(el)
			s.metrics.RecordCacheEvent("expired")
		}
		el = prev
	}
}
