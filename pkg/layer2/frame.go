// Package layer2 parses Ethernet frames into overlay addresses and
// maintains the MAC-learning table a bridge-mode node uses to decide
// which peer a frame should be forwarded to. Grounded on the teacher's
// own pkg/layer2/frame.go (field layout, size constants), generalized so
// plain-MAC and 802.1Q VLAN-tagged frames both collapse onto
// pkg/addr.Address instead of a fixed [6]byte.
package layer2

import (
	"encoding/binary"
	"fmt"

	"github.com/shadowmesh/shadowmesh/pkg/addr"
)

// tpid8021Q is the EtherType value that signals an 802.1Q VLAN tag
// occupies the four bytes that would otherwise be the frame's EtherType.
const tpid8021Q = 0x8100

// Frame size constraints.
const (
	minFrameSize = 14   // untagged header: 6 + 6 + 2
	maxFrameSize = 1518 // 1500 MTU + 14 header + 4 VLAN tag
)

// Frame is a parsed Ethernet frame. Destination and Source are 6-byte
// MAC addresses, or 8-byte tag+MAC addresses when Tagged is set.
type Frame struct {
	Destination addr.Address
	Source      addr.Address
	EtherType   uint16
	Payload     []byte
	Tagged      bool
}

// ParseFrame parses data into a Frame, detecting an 802.1Q tag by its
// fixed TPID at the position an untagged frame's EtherType would occupy.
func ParseFrame(data []byte) (Frame, error) {
	if len(data) < minFrameSize {
		return Frame{}, fmt.Errorf("layer2: frame too small: got %d bytes, minimum %d", len(data), minFrameSize)
	}
	if len(data) > maxFrameSize {
		return Frame{}, fmt.Errorf("layer2: frame too large: got %d bytes, maximum %d", len(data), maxFrameSize)
	}

	dstMAC := data[0:6]
	srcMAC := data[6:12]

	if binary.BigEndian.Uint16(data[12:14]) == tpid8021Q {
		if len(data) < 18 {
			return Frame{}, fmt.Errorf("layer2: truncated 802.1Q tag: got %d bytes, minimum 18", len(data))
		}
		tag := data[14:16]

		dst, err := vlanAddress(tag, dstMAC)
		if err != nil {
			return Frame{}, fmt.Errorf("layer2: destination address: %w", err)
		}
		src, err := vlanAddress(tag, srcMAC)
		if err != nil {
			return Frame{}, fmt.Errorf("layer2: source address: %w", err)
		}

		return Frame{
			Destination: dst,
			Source:      src,
			EtherType:   binary.BigEndian.Uint16(data[16:18]),
			Payload:     data[18:],
			Tagged:      true,
		}, nil
	}

	dst, err := addr.New(dstMAC)
	if err != nil {
		return Frame{}, fmt.Errorf("layer2: destination address: %w", err)
	}
	src, err := addr.New(srcMAC)
	if err != nil {
		return Frame{}, fmt.Errorf("layer2: source address: %w", err)
	}

	return Frame{
		Destination: dst,
		Source:      src,
		EtherType:   binary.BigEndian.Uint16(data[12:14]),
		Payload:     data[14:],
		Tagged:      false,
	}, nil
}

// vlanAddress builds the 8-byte tag+mac overlay address used to key
// switch table entries for VLAN-tagged traffic.
func vlanAddress(tag, mac []byte) (addr.Address, error) {
	buf := make([]byte, 0, 8)
	buf = append(buf, tag...)
	buf = append(buf, mac...)
	return addr.New(buf)
}

// Serialize reassembles the raw Ethernet frame bytes. For a tagged
// frame it re-emits the 802.1Q tag from the leading 2 bytes of
// Destination (and Source, which must carry the same tag).
func (f Frame) Serialize() ([]byte, error) {
	if f.Tagged {
		if f.Destination.Len != addr.LenVLANMAC || f.Source.Len != addr.LenVLANMAC {
			return nil, fmt.Errorf("layer2: tagged frame requires 8-byte addresses")
		}
		out := make([]byte, 18+len(f.Payload))
		copy(out[0:6], f.Destination.Data[2:8])
		copy(out[6:12], f.Source.Data[2:8])
		binary.BigEndian.PutUint16(out[12:14], tpid8021Q)
		copy(out[14:16], f.Destination.Data[0:2])
		binary.BigEndian.PutUint16(out[16:18], f.EtherType)
		copy(out[18:], f.Payload)
		return out, nil
	}

	if f.Destination.Len != addr.LenMAC || f.Source.Len != addr.LenMAC {
		return nil, fmt.Errorf("layer2: untagged frame requires 6-byte addresses")
	}
	out := make([]byte, 14+len(f.Payload))
	copy(out[0:6], f.Destination.Bytes())
	copy(out[6:12], f.Source.Bytes())
	binary.BigEndian.PutUint16(out[12:14], f.EtherType)
	copy(out[14:], f.Payload)
	return out, nil
}
