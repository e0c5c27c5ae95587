package wire

import (
	"errors"
	"net"
	"testing"

	"github.com/shadowmesh/shadowmesh/pkg/addr"
)

func peerStrings(peers []*net.UDPAddr) []string {
	out := make([]string, len(peers))
	for i, p := range peers {
		out[i] = p.String()
	}
	return out
}

func TestPeersRoundTripPreservesOrderWithinFamily(t *testing.T) {
	in := []*net.UDPAddr{
		{IP: net.IPv4(1, 2, 3, 4), Port: 123},
		{IP: net.IPv4(5, 6, 7, 8), Port: 12345},
		{IP: net.ParseIP("0:1:2:3:4:5:6:7"), Port: 6789},
	}
	buf := make([]byte, 64)
	n, err := encodePeers(buf, in)
	if err != nil {
		t.Fatalf("encodePeers: %v", err)
	}
	msg, err := decodePeers(buf[:n])
	if err != nil {
		t.Fatalf("decodePeers: %v", err)
	}
	out := msg.(PeersMessage).Peers
	if len(out) != len(in) {
		t.Fatalf("got %d peers, want %d", len(out), len(in))
	}
	gotStrs, wantStrs := peerStrings(out), peerStrings(in)
	for i := range wantStrs {
		if gotStrs[i] != wantStrs[i] {
			t.Errorf("peer[%d] = %s, want %s", i, gotStrs[i], wantStrs[i])
		}
	}
}

func TestDecodePeersRejectsTruncatedEntry(t *testing.T) {
	body := []byte{1, 1, 2, 3} // claims one ipv4 peer but only 3 bytes follow
	if _, err := decodePeers(body); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("err = %v, want ErrInvalidMessage", err)
	}
}

func TestDecodePeersRejectsTrailingBytes(t *testing.T) {
	body := []byte{0, 0, 0xFF}
	if _, err := decodePeers(body); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("err = %v, want ErrInvalidMessage", err)
	}
}

func TestInitRoundTrip(t *testing.T) {
	m := InitMessage{
		Stage:  0,
		NodeID: [16]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
		Ranges: []addr.Range{
			{Base: mustAddr(t, "0.1.2.3"), PrefixLen: 24},
			{Base: mustAddr(t, "00:01:02:03:04:05"), PrefixLen: 16},
		},
	}
	buf := make([]byte, 128)
	n, err := encodeInit(buf, m)
	if err != nil {
		t.Fatalf("encodeInit: %v", err)
	}

	want := append([]byte{0}, m.NodeID[:]...)
	want = append(want, 2,
		4, 0, 1, 2, 3, 24,
		6, 0, 1, 2, 3, 4, 5, 16,
	)
	if string(buf[:n]) != string(want) {
		t.Errorf("encoded init = %v, want %v", buf[:n], want)
	}

	decoded, err := decodeInit(buf[:n])
	if err != nil {
		t.Fatalf("decodeInit: %v", err)
	}
	got := decoded.(InitMessage)
	if got.Stage != m.Stage || got.NodeID != m.NodeID || len(got.Ranges) != len(m.Ranges) {
		t.Fatalf("decoded init mismatch: %+v", got)
	}
	for i := range m.Ranges {
		if !got.Ranges[i].Equal(m.Ranges[i]) {
			t.Errorf("range[%d] = %v, want %v", i, got.Ranges[i], m.Ranges[i])
		}
	}
}

func TestDecodeInitRejectsBadAddressLength(t *testing.T) {
	body := []byte{0}
	body = append(body, make([]byte, 16)...)
	body = append(body, 1, 5, 1, 2, 3, 4, 5, 8) // address length 5 is invalid
	if _, err := decodeInit(body); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("err = %v, want ErrInvalidMessage", err)
	}
}

func TestDecodeInitRejectsTooShortHeader(t *testing.T) {
	body := []byte{0, 1, 2, 3}
	if _, err := decodeInit(body); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("err = %v, want ErrInvalidMessage", err)
	}
}
