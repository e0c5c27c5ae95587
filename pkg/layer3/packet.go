package layer3

import (
	"fmt"

	"github.com/shadowmesh/shadowmesh/pkg/addr"
)

// Packet is a parsed IP packet: enough of the header to route it, plus
// the header length so callers can reach the transport payload without
// re-parsing. Grounded on the teacher's tun.go ParseIPPacket/IPPacket,
// generalized to return pkg/addr.Address endpoints instead of raw
// []byte IPs so layer3 can share RoutingTable code with layer2's
// SwitchTable.
type Packet struct {
	Version      uint8
	HeaderLength int
	Protocol     uint8
	Source       addr.Address
	Destination  addr.Address
	Payload      []byte
	Raw          []byte
}

// ParsePacket dispatches on the IP version nibble and extracts enough of
// the header to route the packet. It does not validate checksums or
// options; the overlay forwards packets, it does not originate or
// terminate IP traffic.
func ParsePacket(data []byte) (Packet, error) {
	if len(data) < 1 {
		return Packet{}, fmt.Errorf("layer3: empty packet")
	}
	version := data[0] >> 4
	switch version {
	case 4:
		return parseIPv4(data)
	case 6:
		return parseIPv6(data)
	default:
		return Packet{}, fmt.Errorf("layer3: unknown IP version %d", version)
	}
}

func parseIPv4(data []byte) (Packet, error) {
	const ipv4HeaderLen = 20
	if len(data) < ipv4HeaderLen {
		return Packet{}, fmt.Errorf("layer3: IPv4 packet too short: %d bytes", len(data))
	}

	src, err := addr.New(data[12:16])
	if err != nil {
		return Packet{}, fmt.Errorf("layer3: source address: %w", err)
	}
	dst, err := addr.New(data[16:20])
	if err != nil {
		return Packet{}, fmt.Errorf("layer3: destination address: %w", err)
	}

	return Packet{
		Version:      4,
		HeaderLength: ipv4HeaderLen,
		Protocol:     data[9],
		Source:       src,
		Destination:  dst,
		Payload:      data[ipv4HeaderLen:],
		Raw:          data,
	}, nil
}

func parseIPv6(data []byte) (Packet, error) {
	const ipv6HeaderLen = 40
	if len(data) < ipv6HeaderLen {
		return Packet{}, fmt.Errorf("layer3: IPv6 packet too short: %d bytes", len(data))
	}

	src, err := addr.New(data[8:24])
	if err != nil {
		return Packet{}, fmt.Errorf("layer3: source address: %w", err)
	}
	dst, err := addr.New(data[24:40])
	if err != nil {
		return Packet{}, fmt.Errorf("layer3: destination address: %w", err)
	}

	return Packet{
		Version:      6,
		HeaderLength: ipv6HeaderLen,
		Protocol:     data[6],
		Source:       src,
		Destination:  dst,
		Payload:      data[ipv6HeaderLen:],
		Raw:          data,
	}, nil
}

func (p Packet) IsIPv4() bool { return p.Version == 4 }
func (p Packet) IsIPv6() bool { return p.Version == 6 }

func (p Packet) String() string {
	return fmt.Sprintf("Packet[v%d, proto=%d, src=%s, dst=%s, len=%d]",
		p.Version, p.Protocol, p.Source, p.Destination, len(p.Raw))
}
