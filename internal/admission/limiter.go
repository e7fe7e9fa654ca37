// Package admission throttles upload traffic per client with layered
// sliding-window limits (minute / hour / day) over one shared event stream.
package admission

import (
	"log"
	"sync"
	"time"
)

// pruneEvery controls the incremental garbage collection of old
// timestamps: every pruneEvery-th request from a client drops entries
// older than the longest window, bounding list growth without adding
// latency to every call.
const pruneEvery = 100

// Limits are the per-window request budgets.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

// Limiter keeps per-client request history for the process lifetime.
// Client entries are never evicted; an LRU would reset an active
// client's day window on eviction.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*clientState
	limits  Limits
	now     func() time.Time
}

type clientState struct {
	mu         sync.Mutex
	timestamps []time.Time
	total      int64
}

// NewLimiter creates a limiter with the given budgets.
func NewLimiter(limits Limits) *Limiter {
	return &Limiter{
		clients: make(map[string]*clientState),
		limits:  limits,
		now:     time.Now,
	}
}

// Allow records the request and decides admission in one atomic step, so
// two concurrent requests from the same client can never both slip past
// a stale count. A client over any window's budget is denied; a shorter
// window exceeded implies denial regardless of the longer counts.
func (l *Limiter) Allow(clientID string) bool {
	now := l.now()
	st := l.state(clientID)

	st.mu.Lock()
	defer st.mu.Unlock()

	st.total++
	if st.total%pruneEvery == 0 {
		st.prune(now.Add(-24 * time.Hour))
	}
	st.timestamps = append(st.timestamps, now)

	lastMinute := st.countSince(now.Add(-time.Minute))
	lastHour := st.countSince(now.Add(-time.Hour))
	lastDay := st.countSince(now.Add(-24 * time.Hour))

	allowed := lastMinute <= l.limits.PerMinute &&
		lastHour <= l.limits.PerHour &&
		lastDay <= l.limits.PerDay

	if !allowed {
		log.Printf("[admission] rate limit exceeded for %s: minute=%d hour=%d day=%d",
			clientID, lastMinute, lastHour, lastDay)
	}
	return allowed
}

func (l *Limiter) state(clientID string) *clientState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.clients[clientID]
	if !ok {
		st = &clientState{}
		l.clients[clientID] = st
	}
	return st
}

// prune drops timestamps older than cutoff. Caller holds st.mu.
func (st *clientState) prune(cutoff time.Time) {
	kept := st.timestamps[:0]
	for _, ts := range st.timestamps {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	st.timestamps = kept
}

// countSince counts timestamps at or after cutoff. Caller holds st.mu.
func (st *clientState) countSince(cutoff time.Time) int {
	n := 0
	for _, ts := range st.timestamps {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}
