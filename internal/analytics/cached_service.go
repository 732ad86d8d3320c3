package analytics

import (
	"context"
	"errors"
	"sync"
	"time"
)

type cachedEntry struct {
	dashboard Dashboard
	expiresAt time.Time
}

type inFlightCall struct {
	done   chan struct{}
	result Dashboard
	err    error
}

const maxCleanupInterval = 5 * time.Minute

// CachedService wraps a Service with a per-user in-memory TTL cache.
// Concurrent misses for the same user share one upstream request.
type CachedService struct {
	inner Service
	ttl   time.Duration

	mu          sync.Mutex
	entries     map[int64]cachedEntry
	inFlight    map[int64]*inFlightCall
	generation  map[int64]uint64
	lastCleanup time.Time
}

// NewCachedService returns a Service that caches dashboards in memory.
func NewCachedService(inner Service, ttl time.Duration) *CachedService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedService{
		inner:      inner,
		ttl:        ttl,
		entries:    make(map[int64]cachedEntry),
		inFlight:   make(map[int64]*inFlightCall),
		generation: make(map[int64]uint64),
	}
}

// Dashboard returns the cached dashboard for userID or fetches a fresh one.
func (s *CachedService) Dashboard(ctx context.Context, userID int64) (Dashboard, error) {
	if s.inner == nil {
		return Dashboard{}, errors.New("inner analytics service is required")
	}

	now := time.Now()

	s.mu.Lock()
	entry, ok := s.entries[userID]
	if ok && now.Before(entry.expiresAt) {
		s.mu.Unlock()
		return entry.dashboard, nil
	}
	if ok {
		delete(s.entries, userID)
	}

	if call, waiting := s.inFlight[userID]; waiting {
		s.mu.Unlock()
		return waitForInFlight(ctx, call)
	}

	call := &inFlightCall{done: make(chan struct{})}
	s.inFlight[userID] = call
	gen := s.generation[userID]
	s.mu.Unlock()

	// The fetch outlives a single caller so one cancelled request
	// does not fail every waiter.
	go s.fetchAndBroadcast(context.WithoutCancel(ctx), userID, gen, call)
	return waitForInFlight(ctx, call)
}

// Invalidate drops the cached dashboard for userID. A fetch already in flight
// still completes for its waiters but is not stored.
func (s *CachedService) Invalidate(userID int64) {
	s.mu.Lock()
	delete(s.entries, userID)
	s.generation[userID]++
	s.mu.Unlock()
}

func (s *CachedService) fetchAndBroadcast(ctx context.Context, userID int64, gen uint64, call *inFlightCall) {
	result, err := s.inner.Dashboard(ctx, userID)

	fetchedAt := time.Now()
	s.mu.Lock()
	if err == nil && s.generation[userID] == gen {
		s.entries[userID] = cachedEntry{dashboard: result, expiresAt: fetchedAt.Add(s.ttl)}
		s.cleanupExpiredLocked(fetchedAt)
	}
	call.result = result
	call.err = err
	delete(s.inFlight, userID)
	close(call.done)
	s.mu.Unlock()
}

func waitForInFlight(ctx context.Context, call *inFlightCall) (Dashboard, error) {
	select {
	case <-ctx.Done():
		return Dashboard{}, ctx.Err()
	case <-call.done:
		return call.result, call.err
	}
}

func (s *CachedService) cleanupExpiredLocked(now time.Time) {
	interval := min(s.ttl, maxCleanupInterval)
	if !s.lastCleanup.IsZero() && now.Sub(s.lastCleanup) < interval {
		return
	}
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
	s.lastCleanup = now
}
