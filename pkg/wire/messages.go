package wire

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/shadowmesh/shadowmesh/pkg/addr"
)

// encodePeers writes the Peers body: an IPv4 group (count byte + 6-byte
// addr+port entries) followed by an IPv6 group (count byte + 18-byte
// entries), each group preserving the caller's relative ordering.
func encodePeers(buf []byte, peers []*net.UDPAddr) (int, error) {
	var v4s, v6s []*net.UDPAddr
	for _, p := range peers {
		if p.IP.To4() != nil {
			v4s = append(v4s, p)
		} else {
			v6s = append(v6s, p)
		}
	}
	if len(v4s) > 255 || len(v6s) > 255 {
		return 0, fmt.Errorf("wire: too many peers in one group to encode")
	}

	offset := 0
	if offset+1 > len(buf) {
		return 0, fmt.Errorf("wire: buffer too small for peers body")
	}
	buf[offset] = byte(len(v4s))
	offset++
	for _, p := range v4s {
		if offset+6 > len(buf) {
			return 0, fmt.Errorf("wire: buffer too small for peers body")
		}
		copy(buf[offset:offset+4], p.IP.To4())
		binary.BigEndian.PutUint16(buf[offset+4:offset+6], uint16(p.Port))
		offset += 6
	}

	if offset+1 > len(buf) {
		return 0, fmt.Errorf("wire: buffer too small for peers body")
	}
	buf[offset] = byte(len(v6s))
	offset++
	for _, p := range v6s {
		if offset+18 > len(buf) {
			return 0, fmt.Errorf("wire: buffer too small for peers body")
		}
		copy(buf[offset:offset+16], p.IP.To16())
		binary.BigEndian.PutUint16(buf[offset+16:offset+18], uint16(p.Port))
		offset += 18
	}

	return offset, nil
}

func decodePeers(body []byte) (Message, error) {
	offset := 0
	if offset+1 > len(body) {
		return nil, fmt.Errorf("%w: truncated peers v4 count", ErrInvalidMessage)
	}
	n4 := int(body[offset])
	offset++

	peers := make([]*net.UDPAddr, 0, n4)
	for i := 0; i < n4; i++ {
		if offset+6 > len(body) {
			return nil, fmt.Errorf("%w: truncated ipv4 peer entry", ErrInvalidMessage)
		}
		ip := net.IPv4(body[offset], body[offset+1], body[offset+2], body[offset+3])
		port := binary.BigEndian.Uint16(body[offset+4 : offset+6])
		peers = append(peers, &net.UDPAddr{IP: ip, Port: int(port)})
		offset += 6
	}

	if offset+1 > len(body) {
		return nil, fmt.Errorf("%w: truncated peers v6 count", ErrInvalidMessage)
	}
	n6 := int(body[offset])
	offset++
	for i := 0; i < n6; i++ {
		if offset+18 > len(body) {
			return nil, fmt.Errorf("%w: truncated ipv6 peer entry", ErrInvalidMessage)
		}
		ip := make(net.IP, 16)
		copy(ip, body[offset:offset+16])
		port := binary.BigEndian.Uint16(body[offset+16 : offset+18])
		peers = append(peers, &net.UDPAddr{IP: ip, Port: int(port)})
		offset += 18
	}

	if offset != len(body) {
		return nil, fmt.Errorf("%w: trailing bytes after peers body", ErrInvalidMessage)
	}
	return PeersMessage{Peers: peers}, nil
}

// encodeInit writes stage(1) || node_id(16) || count(1) || ranges, where
// each range is len(1) || base_bytes(len) || prefix_len(1).
func encodeInit(buf []byte, m InitMessage) (int, error) {
	if len(m.Ranges) > 255 {
		return 0, fmt.Errorf("wire: too many ranges to encode")
	}
	if len(buf) < 1+16+1 {
		return 0, fmt.Errorf("wire: buffer too small for init body")
	}

	offset := 0
	buf[offset] = m.Stage
	offset++
	copy(buf[offset:offset+16], m.NodeID[:])
	offset += 16
	buf[offset] = byte(len(m.Ranges))
	offset++

	for _, r := range m.Ranges {
		need := 1 + int(r.Base.Len) + 1
		if offset+need > len(buf) {
			return 0, fmt.Errorf("wire: buffer too small for init body")
		}
		buf[offset] = r.Base.Len
		offset++
		copy(buf[offset:offset+int(r.Base.Len)], r.Base.Data[:r.Base.Len])
		offset += int(r.Base.Len)
		buf[offset] = r.PrefixLen
		offset++
	}

	return offset, nil
}

func decodeInit(body []byte) (Message, error) {
	if len(body) < 1+16+1 {
		return nil, fmt.Errorf("%w: truncated init body", ErrInvalidMessage)
	}

	var m InitMessage
	offset := 0
	m.Stage = body[offset]
	offset++
	copy(m.NodeID[:], body[offset:offset+16])
	offset += 16
	count := int(body[offset])
	offset++

	m.Ranges = make([]addr.Range, 0, count)
	for i := 0; i < count; i++ {
		if offset+1 > len(body) {
			return nil, fmt.Errorf("%w: truncated init range", ErrInvalidMessage)
		}
		addrLen := int(body[offset])
		offset++
		switch addrLen {
		case addr.LenIPv4, addr.LenMAC, addr.LenVLANMAC, addr.LenIPv6:
		default:
			return nil, fmt.Errorf("%w: invalid address length %d in init range", ErrInvalidMessage, addrLen)
		}
		if offset+addrLen+1 > len(body) {
			return nil, fmt.Errorf("%w: truncated init range data", ErrInvalidMessage)
		}
		base, err := addr.New(body[offset : offset+addrLen])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		offset += addrLen
		prefixLen := body[offset]
		offset++
		r, err := addr.NewRange(base, prefixLen)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		m.Ranges = append(m.Ranges, r)
	}

	if offset != len(body) {
		return nil, fmt.Errorf("%w: trailing bytes after init body", ErrInvalidMessage)
	}
	return m, nil
}
