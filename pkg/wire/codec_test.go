package wire

import (
	"bytes"
	"errors"
	"net"
	"testing"

	"github.com/shadowmesh/shadowmesh/pkg/addr"
	"github.com/shadowmesh/shadowmesh/pkg/crypto/envelope"
)

func mustAddr(t *testing.T, s string) addr.Address {
	t.Helper()
	a, err := addr.Parse(s)
	if err != nil {
		t.Fatalf("addr.Parse(%q): %v", s, err)
	}
	return a
}

func TestEncodeDataPlaintext(t *testing.T) {
	buf := make([]byte, 64)
	n, err := Encode(Options{}, DataMessage{Payload: []byte{1, 2, 3, 4, 5}}, buf, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if n != 13 {
		t.Fatalf("size = %d, want 13", n)
	}
	wantHeader := []byte{0x76, 0x70, 0x6e, 1, 0, 0, 0, 0}
	if !bytes.Equal(buf[:8], wantHeader) {
		t.Errorf("header = %v, want %v", buf[:8], wantHeader)
	}
	if !bytes.Equal(buf[8:13], []byte{1, 2, 3, 4, 5}) {
		t.Errorf("body = %v, want [1 2 3 4 5]", buf[8:13])
	}
}

func TestEncodeDataEncrypted(t *testing.T) {
	crypto, err := envelope.FromSharedKey(envelope.MethodChaCha20Poly1305, "test")
	if err != nil {
		t.Fatalf("FromSharedKey: %v", err)
	}
	buf := make([]byte, 128)
	n, err := Encode(Options{}, DataMessage{Payload: []byte{1, 2, 3, 4, 5}}, buf, crypto)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if n != 41 {
		t.Fatalf("size = %d, want 41", n)
	}
	wantHeader := []byte{0x76, 0x70, 0x6e, 1, 1, 0, 0, 0}
	if !bytes.Equal(buf[:8], wantHeader) {
		t.Errorf("header = %v, want %v", buf[:8], wantHeader)
	}
}

func TestEncodeClosesWithNetworkID(t *testing.T) {
	nid := uint64(134)
	buf := make([]byte, 32)
	n, err := Encode(Options{NetworkID: &nid}, CloseMessage{}, buf, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if n != 16 {
		t.Fatalf("size = %d, want 16", n)
	}
	want := []byte{0x76, 0x70, 0x6e, 1, 0, 0, 1, 3, 0, 0, 0, 0, 0, 0, 0, 134}
	if !bytes.Equal(buf[:n], want) {
		t.Errorf("datagram = %v, want %v", buf[:n], want)
	}
}

func TestEncodePeersExactBytes(t *testing.T) {
	peers := []*net.UDPAddr{
		{IP: net.IPv4(1, 2, 3, 4), Port: 123},
		{IP: net.IPv4(5, 6, 7, 8), Port: 12345},
		{IP: net.ParseIP("0:1:2:3:4:5:6:7"), Port: 6789},
	}
	buf := make([]byte, 64)
	n, err := Encode(Options{}, PeersMessage{Peers: peers}, buf, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if n != 40 {
		t.Fatalf("size = %d, want 40", n)
	}
	want := []byte{
		0x76, 0x70, 0x6e, 1, 0, 0, 0, 1,
		2, 1, 2, 3, 4, 0, 123, 5, 6, 7, 8, 0x30, 0x39,
		1, 0, 0, 0, 1, 0, 2, 0, 3, 0, 4, 0, 5, 0, 6, 0, 7, 0x1a, 0x85,
	}
	if !bytes.Equal(buf[:n], want) {
		t.Errorf("datagram = %v, want %v", buf[:n], want)
	}
	if buf[7] != byte(TypePeers) {
		t.Errorf("message type = %d, want Peers", buf[7])
	}
}

func TestDecodeEmptyDataIsValid(t *testing.T) {
	buf := []byte{0x76, 0x70, 0x6e, 1, 0, 0, 0, 0}
	opts, msg, err := Decode(buf, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if opts.NetworkID != nil {
		t.Errorf("unexpected network_id option")
	}
	data, ok := msg.(DataMessage)
	if !ok {
		t.Fatalf("message type = %T, want DataMessage", msg)
	}
	if len(data.Payload) != 0 {
		t.Errorf("payload = %v, want empty", data.Payload)
	}
}

func roundTrip(t *testing.T, opts Options, msg Message, crypto *envelope.State) (Options, Message) {
	t.Helper()
	buf := make([]byte, 2048)
	n, err := Encode(opts, msg, buf, crypto)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	gotOpts, gotMsg, err := Decode(buf[:n], crypto)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return gotOpts, gotMsg
}

func TestRoundTripEveryMessageEveryCrypto(t *testing.T) {
	nid := uint64(42)
	messages := []Message{
		DataMessage{Payload: []byte("hello overlay")},
		DataMessage{Payload: nil},
		PeersMessage{Peers: []*net.UDPAddr{
			{IP: net.IPv4(10, 0, 0, 1), Port: 51820},
			{IP: net.ParseIP("fe80::1"), Port: 51821},
		}},
		InitMessage{
			Stage:  0,
			NodeID: [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
			Ranges: []addr.Range{
				{Base: mustAddr(t, "192.168.1.0"), PrefixLen: 24},
				{Base: mustAddr(t, "aa:bb:cc:dd:ee:ff"), PrefixLen: 48},
			},
		},
		CloseMessage{},
	}

	methods := []envelope.Method{envelope.MethodNone, envelope.MethodChaCha20Poly1305, envelope.MethodAES256GCM}

	for _, method := range methods {
		crypto, err := envelope.FromSharedKey(method, "shared-secret")
		if err != nil {
			t.Fatalf("FromSharedKey(%v): %v", method, err)
		}
		for _, msg := range messages {
			gotOpts, gotMsg := roundTrip(t, Options{NetworkID: &nid}, msg, crypto)
			if !gotOpts.Equal(Options{NetworkID: &nid}) {
				t.Errorf("method %v, msg %T: options mismatch", method, msg)
			}
			if gotMsg.Type() != msg.Type() {
				t.Errorf("method %v, msg %T: type mismatch, got %v", method, msg, gotMsg.Type())
			}
		}
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := []byte{0, 0, 0, 1, 0, 0, 0, 0}
	if _, _, err := Decode(buf, nil); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("err = %v, want ErrInvalidHeader", err)
	}
}

func TestDecodeRejectsShortHeader(t *testing.T) {
	buf := []byte{0x76, 0x70, 0x6e}
	if _, _, err := Decode(buf, nil); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("err = %v, want ErrInvalidHeader", err)
	}
}

func TestDecodeRejectsUnsupportedVersion(t *testing.T) {
	buf := []byte{0x76, 0x70, 0x6e, 9, 0, 0, 0, 0}
	if _, _, err := Decode(buf, nil); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("err = %v, want ErrInvalidHeader", err)
	}
}

func TestDecodeRejectsUnknownCryptoMethod(t *testing.T) {
	buf := []byte{0x76, 0x70, 0x6e, 1, 0xAA, 0, 0, 0}
	if _, _, err := Decode(buf, nil); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("err = %v, want ErrInvalidHeader", err)
	}
}

func TestDecodeRejectsMismatchedCrypto(t *testing.T) {
	crypto, _ := envelope.FromSharedKey(envelope.MethodChaCha20Poly1305, "test")
	buf := make([]byte, 64)
	n, _ := Encode(Options{}, DataMessage{Payload: []byte("x")}, buf, crypto)
	if _, _, err := Decode(buf[:n], nil); !errors.Is(err, ErrInvalidCrypto) {
		t.Errorf("err = %v, want ErrInvalidCrypto", err)
	}
}

func TestDecodeRejectsUnknownOptionBits(t *testing.T) {
	buf := []byte{0x76, 0x70, 0x6e, 1, 0, 0, 0x40, 0}
	if _, _, err := Decode(buf, nil); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("err = %v, want ErrInvalidOption", err)
	}
}

func TestDecodeRejectsTruncatedNetworkIDOption(t *testing.T) {
	buf := []byte{0x76, 0x70, 0x6e, 1, 0, 0, 1, 3, 1, 2, 3}
	if _, _, err := Decode(buf, nil); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("err = %v, want ErrInvalidOption", err)
	}
}

func TestDecodeRejectsTamperedCiphertext(t *testing.T) {
	crypto, _ := envelope.FromSharedKey(envelope.MethodChaCha20Poly1305, "test")
	buf := make([]byte, 64)
	n, _ := Encode(Options{}, DataMessage{Payload: []byte("hello")}, buf, crypto)
	buf[n-1] ^= 0xFF
	if _, _, err := Decode(buf[:n], crypto); !errors.Is(err, ErrCrypto) {
		t.Errorf("err = %v, want ErrCrypto", err)
	}
}

func TestDecodeRejectsUnknownMessageType(t *testing.T) {
	buf := []byte{0x76, 0x70, 0x6e, 1, 0, 0, 0, 9}
	if _, _, err := Decode(buf, nil); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("err = %v, want ErrInvalidHeader", err)
	}
}

func TestEncodeTooSmallBuffer(t *testing.T) {
	buf := make([]byte, 4)
	if _, err := Encode(Options{}, DataMessage{Payload: []byte("hello")}, buf, nil); err == nil {
		t.Errorf("Encode should fail with a buffer smaller than the header")
	}
}
