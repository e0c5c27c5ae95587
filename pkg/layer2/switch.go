package layer2

import (
	"sync"
	"time"

	"github.com/shadowmesh/shadowmesh/pkg/addr"
)

// entry pairs a learned peer identity with the time it was last refreshed,
// mirroring the lastUpdated bookkeeping of the teacher's
// pkg/discovery.KBucket.
type entry struct {
	peer     string
	learnedAt time.Time
}

// SwitchTable is a MAC-learning table: it remembers which peer last sent
// traffic from a given overlay address and expires that memory after TTL
// of inactivity, the same way a physical Ethernet switch ages out its
// forwarding table.
type SwitchTable struct {
	mu      sync.RWMutex
	entries map[addr.Address]entry
	ttl     time.Duration
}

// NewSwitchTable creates an empty table that expires entries after ttl.
func NewSwitchTable(ttl time.Duration) *SwitchTable {
	return &SwitchTable{
		entries: make(map[addr.Address]entry),
		ttl:     ttl,
	}
}

// Learn records that a is reachable via peer, refreshing its expiry.
func (s *SwitchTable) Learn(a addr.Address, peer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[a] = entry{peer: peer, learnedAt: time.Now()}
}

// Lookup returns the peer last learned for a, and whether an
// unexpired entry exists.
func (s *SwitchTable) Lookup(a addr.Address) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[a]
	if !ok {
		return "", false
	}
	if s.ttl > 0 && time.Since(e.learnedAt) > s.ttl {
		return "", false
	}
	return e.peer, true
}

// Housekeep removes every entry older than the table's TTL. Intended to
// be called periodically from a ticker loop, not on every Lookup, so a
// burst of Lookups doesn't pay for table iteration.
func (s *SwitchTable) Housekeep() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	now := time.Now()
	for a, e := range s.entries {
		if now.Sub(e.learnedAt) > s.ttl {
			delete(s.entries, a)
			removed++
		}
	}
	return removed
}

// Len reports the current number of entries, expired or not.
func (s *SwitchTable) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
