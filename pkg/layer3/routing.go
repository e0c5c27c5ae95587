package layer3

import (
	"sync"

	"github.com/shadowmesh/shadowmesh/pkg/addr"
)

// route pairs a learned range with the peer that announced it.
type route struct {
	rng  addr.Range
	peer string
}

// RoutingTable does longest-prefix-match lookup over ranges learned from
// peer Init announcements, the Layer 3 analogue of SwitchTable's
// exact-address matching. Grounded on the same mutex-protected-table
// shape as the teacher's pkg/discovery.KademliaTable, generalized from a
// bucketed key space to an explicit prefix scan since the route count
// here is expected to stay small (one table per local node, not a DHT).
type RoutingTable struct {
	mu     sync.RWMutex
	routes []route
}

// NewRoutingTable returns an empty table.
func NewRoutingTable() *RoutingTable {
	return &RoutingTable{}
}

// Learn records that rng is reachable via peer. Re-learning a range
// identical to one already present (same base and prefix length)
// replaces its peer rather than adding a duplicate entry.
func (t *RoutingTable) Learn(rng addr.Range, peer string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.routes {
		if t.routes[i].rng.Equal(rng) {
			t.routes[i].peer = peer
			return
		}
	}
	t.routes = append(t.routes, route{rng: rng, peer: peer})
}

// Lookup returns the peer for the longest matching range covering a, or
// ("", false) if no learned range contains it.
func (t *RoutingTable) Lookup(a addr.Address) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var (
		best      route
		bestFound bool
	)
	for _, r := range t.routes {
		if !r.rng.Contains(a) {
			continue
		}
		if !bestFound || r.rng.PrefixLen > best.rng.PrefixLen {
			best = r
			bestFound = true
		}
	}
	if !bestFound {
		return "", false
	}
	return best.peer, true
}

// Len reports the number of distinct learned ranges.
func (t *RoutingTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.routes)
}
