// internal/ratelimit/limiter.go
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Table is a decaying per-address counter used to bound identity issuance and
// client fan-in per source IP. Every decay tick each entry loses one count;
// entries that reach zero are deleted rather than kept around. Counters are
// best-effort process state and reset on restart.
type Table struct {
	mu       sync.Mutex
	counts   map[string]int
	limit    int
	interval time.Duration
}

// NewTable builds a counter table with the given ceiling and decay interval.
func NewTable(limit int, interval time.Duration) *Table {
	return &Table{
		counts:   make(map[string]int),
		limit:    limit,
		interval: interval,
	}
}

// Allow reports whether addr is below the ceiling. Used on the issuance path,
// which rejects once the count is at or above the limit.
func (t *Table) Allow(addr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[addr] < t.limit
}

// Within reports whether addr has not exceeded the ceiling. Used on the client
// connection path, which refuses only once the count goes past the limit.
func (t *Table) Within(addr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[addr] <= t.limit
}

// Bump increments the counter for addr.
func (t *Table) Bump(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[addr]++
}

// Release immediately decrements the counter for addr, dropping the entry when
// it reaches zero. Distinct from decay: client detach must not wait for a tick.
func (t *Table) Release(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.counts[addr]
	if !ok {
		return
	}
	if n <= 1 {
		delete(t.counts, addr)
		return
	}
	t.counts[addr] = n - 1
}

// Count returns the current counter for addr (0 when absent).
func (t *Table) Count(addr string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[addr]
}

// Run decays the table on a fixed tick until ctx is cancelled. A table built
// without a decay interval only moves through Bump and Release; Run on such a
// table just waits for cancellation.
func (t *Table) Run(ctx context.Context) {
	if t.interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.decay()
		}
	}
}

// decay applies one tick: every entry loses one count, zeroed entries are
// removed entirely.
func (t *Table) decay() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for addr, n := range t.counts {
		if n <= 1 {
			delete(t.counts, addr)
			continue
		}
		t.counts[addr] = n - 1
	}
}
