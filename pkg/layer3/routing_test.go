package layer3

import (
	"testing"

	"github.com/shadowmesh/shadowmesh/pkg/addr"
)

func mustAddr(t *testing.T, s string) addr.Address {
	t.Helper()
	a, err := addr.Parse(s)
	if err != nil {
		t.Fatalf("addr.Parse(%q): %v", s, err)
	}
	return a
}

func mustRange(t *testing.T, s string) addr.Range {
	t.Helper()
	r, err := addr.ParseRange(s)
	if err != nil {
		t.Fatalf("addr.ParseRange(%q): %v", s, err)
	}
	return r
}

// TestRoutingTableLongestPrefixMatch reproduces the original vpncloud
// routing_table test: hosts routes win over a covering /24, which wins
// over a covering /16, which wins over the default route, and a newly
// learned /27 shadows only the addresses it actually covers.
func TestRoutingTableLongestPrefixMatch(t *testing.T) {
	table := NewRoutingTable()
	const peer1, peer2, peer3 = "1.2.3.4:1", "1.2.3.4:2", "1.2.3.4:3"

	if _, ok := table.Lookup(mustAddr(t, "192.168.1.1")); ok {
		t.Fatalf("Lookup should miss before any Learn")
	}

	table.Learn(mustRange(t, "192.168.1.1/32"), peer1)
	requirePeer(t, table, "192.168.1.1", peer1)

	table.Learn(mustRange(t, "192.168.1.2/32"), peer2)
	requirePeer(t, table, "192.168.1.1", peer1)
	requirePeer(t, table, "192.168.1.2", peer2)

	table.Learn(mustRange(t, "192.168.1.0/24"), peer3)
	requirePeer(t, table, "192.168.1.1", peer1)
	requirePeer(t, table, "192.168.1.2", peer2)
	requirePeer(t, table, "192.168.1.3", peer3)

	table.Learn(mustRange(t, "192.168.0.0/16"), peer1)
	requirePeer(t, table, "192.168.2.1", peer1)
	requirePeer(t, table, "192.168.1.1", peer1)
	requirePeer(t, table, "192.168.1.2", peer2)
	requirePeer(t, table, "192.168.1.3", peer3)

	table.Learn(mustRange(t, "0.0.0.0/0"), peer2)
	requirePeer(t, table, "192.168.2.1", peer1)
	requirePeer(t, table, "192.168.1.1", peer1)
	requirePeer(t, table, "192.168.1.2", peer2)
	requirePeer(t, table, "192.168.1.3", peer3)
	requirePeer(t, table, "1.2.3.4", peer2)

	table.Learn(mustRange(t, "192.168.2.0/27"), peer3)
	requirePeer(t, table, "192.168.2.31", peer3)
	requirePeer(t, table, "192.168.2.32", peer1)
}

func requirePeer(t *testing.T, table *RoutingTable, addrStr, want string) {
	t.Helper()
	got, ok := table.Lookup(mustAddr(t, addrStr))
	if !ok || got != want {
		t.Errorf("Lookup(%s) = (%q, %v), want (%q, true)", addrStr, got, ok, want)
	}
}

func TestRoutingTableRelearnReplacesPeer(t *testing.T) {
	table := NewRoutingTable()
	rng := mustRange(t, "10.0.0.0/8")
	table.Learn(rng, "peer-a")
	table.Learn(rng, "peer-b")

	if table.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after re-learning an identical range", table.Len())
	}
	requirePeer(t, table, "10.1.2.3", "peer-b")
}

func TestRoutingTableNoMatch(t *testing.T) {
	table := NewRoutingTable()
	table.Learn(mustRange(t, "10.0.0.0/8"), "peer-a")
	if _, ok := table.Lookup(mustAddr(t, "192.168.1.1")); ok {
		t.Errorf("Lookup should miss for an address outside every learned range")
	}
}
