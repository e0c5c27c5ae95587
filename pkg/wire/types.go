// Package wire implements the framed UDP message codec for the overlay:
// an 8-byte header, an options bitset, and one of four typed message
// bodies (Data, Peers, Init, Close), optionally AEAD-sealed by
// pkg/crypto/envelope. Modeled on the header/message split of the
// teacher's shared/protocol package (header.go + messages.go), but the
// message set and wire layout here are the ones fixed by the wire
// specification, not the teacher's handshake protocol.
package wire

import (
	"errors"
	"net"

	"github.com/shadowmesh/shadowmesh/pkg/addr"
)

// magic is the fixed ASCII protocol tag "vpn".
var magic = [3]byte{'v', 'p', 'n'}

// Version is the only protocol version this codec understands.
const Version byte = 0x01

// HeaderSize is the fixed 8-byte header: magic(3) + version(1) +
// crypto_method(1) + reserved(1) + options_flags(1) + message_type(1).
const HeaderSize = 8

// MessageType is the wire discriminant for the four Message variants.
type MessageType byte

const (
	TypeData  MessageType = 0
	TypePeers MessageType = 1
	TypeInit  MessageType = 2
	TypeClose MessageType = 3
)

func (t MessageType) String() string {
	switch t {
	case TypeData:
		return "Data"
	case TypePeers:
		return "Peers"
	case TypeInit:
		return "Init"
	case TypeClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// Option bits within the options_flags header byte.
const (
	flagNetworkID byte = 1 << 0
	knownFlags         = flagNetworkID
)

// Options carries the small set of optional per-datagram fields. The zero
// value (all fields absent) is the default used by every message that
// does not need them.
type Options struct {
	NetworkID *uint64
}

// Equal compares field-wise, treating two nil NetworkID pointers (or two
// pointers to the same value) as equal.
func (o Options) Equal(p Options) bool {
	switch {
	case o.NetworkID == nil && p.NetworkID == nil:
		return true
	case o.NetworkID == nil || p.NetworkID == nil:
		return false
	default:
		return *o.NetworkID == *p.NetworkID
	}
}

// Message is the tagged union of the four payload kinds the codec
// understands.
type Message interface {
	Type() MessageType
}

// DataMessage carries an opaque frame or packet payload. On decode, its
// Payload slice borrows directly from the buffer handed to Decode.
type DataMessage struct {
	Payload []byte
}

func (DataMessage) Type() MessageType { return TypeData }

// PeersMessage is a gossiped list of peer socket addresses.
type PeersMessage struct {
	Peers []*net.UDPAddr
}

func (PeersMessage) Type() MessageType { return TypePeers }

// InitMessage is the handshake-adjacent announcement of a node's identity
// and the address ranges it is willing to route.
type InitMessage struct {
	Stage  byte
	NodeID [16]byte
	Ranges []addr.Range
}

func (InitMessage) Type() MessageType { return TypeInit }

// CloseMessage carries no body; its presence alone signals peer teardown.
type CloseMessage struct{}

func (CloseMessage) Type() MessageType { return TypeClose }

// Error kinds, matching §7 of the wire specification. Use errors.Is
// against these to classify a failure without string matching.
var (
	ErrInvalidHeader  = errors.New("wire: invalid header")
	ErrInvalidOption  = errors.New("wire: invalid option")
	ErrInvalidCrypto  = errors.New("wire: invalid crypto")
	ErrInvalidMessage = errors.New("wire: invalid message")
	ErrCrypto         = errors.New("wire: crypto error")
)
