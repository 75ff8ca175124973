// Package slot implements the keepalive slot table (spec.md §4.6 / C7):
// a fixed-size indexed table mapping an agent identity to at most one
// live peer, evicting a displaced predecessor on install.
package slot

import (
	"sync"

	"github.com/javsanpar/ogServer/internal/ogmetrics"
	"github.com/javsanpar/ogServer/internal/ogpeer"
)

// SlotFunc derives a keepalive slot index from an agent's remote IP.
// spec.md §9 Open Question (a): the C original hard-codes every agent
// to slot 0, serializing all agents through a single slot; this is
// exposed as a collaborator rather than assumed to be intentional.
type SlotFunc func(remoteIP string) int

// FixedSlot reproduces the C original's literal behavior: every agent
// maps to the same slot index n.
func FixedSlot(n int) SlotFunc {
	return func(string) int { return n }
}

// HashSlot distributes agents across n slots by IP, the per-agent-
// identity alternative spec.md §9 declines to assume is or isn't the
// intended design.
func HashSlot(n int) SlotFunc {
	return func(ip string) int {
		if n <= 0 {
			return 0
		}
		var h uint32
		for i := 0; i < len(ip); i++ {
			h = h*31 + uint32(ip[i])
		}
		return int(h % uint32(n))
	}
}

// Table is the single source of truth for "does agent X currently have
// a live socket". It is the one piece of shared mutable state touched
// from more than one peer's goroutine, so unlike ogpeer.Peer it is
// protected by a mutex rather than relying on single-threaded ownership
// (SPEC_FULL.md §5).
type Table struct {
	mu    sync.Mutex
	slots []*ogpeer.Peer
}

// New returns a table with n slots, all empty.
func New(n int) *Table {
	return &Table{slots: make([]*ogpeer.Peer, n)}
}

// EvictFunc closes a peer that has been displaced from its slot by a
// newer connection. It is supplied by the caller so that Table stays
// free of socket I/O concerns.
type EvictFunc func(old *ogpeer.Peer)

// Install places p in its slot (p.KeepaliveIdx), evicting whatever
// peer currently occupies that slot via evict, unless it is p itself.
// This is spec.md's og_client_keepalive: "the newest connection wins".
func (t *Table) Install(p *ogpeer.Peer, evict EvictFunc) {
	t.mu.Lock()
	idx := p.KeepaliveIdx
	var old *ogpeer.Peer
	wasEmpty := false
	if idx >= 0 && idx < len(t.slots) {
		old = t.slots[idx]
		wasEmpty = old == nil
		if old != p {
			t.slots[idx] = p
		}
	}
	t.mu.Unlock()

	if wasEmpty {
		ogmetrics.KeepaliveSlotsActive.Inc()
	}
	if old != nil && old != p && evict != nil {
		evict(old)
	}
}

// Release clears p's slot, but only if it still points at p — a peer
// that has already been evicted by a newer connection must not be able
// to clear that newer occupant out from under it (invariant/property
// P5).
func (t *Table) Release(p *ogpeer.Peer) {
	if p.KeepaliveIdx < 0 {
		return
	}
	t.mu.Lock()
	idx := p.KeepaliveIdx
	cleared := idx >= 0 && idx < len(t.slots) && t.slots[idx] == p
	if cleared {
		t.slots[idx] = nil
	}
	t.mu.Unlock()

	if cleared {
		ogmetrics.KeepaliveSlotsActive.Dec()
	}
}

// Get returns the peer currently occupying slot idx, or nil.
func (t *Table) Get(idx int) *ogpeer.Peer {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.slots) {
		return nil
	}
	return t.slots[idx]
}
