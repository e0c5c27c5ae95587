package transport

import (
	"fmt"
	"net"
)

// UDPTransport is the default PacketTransport: a bare net.UDPConn. Every
// encoded datagram (plaintext or AEAD-sealed) fits in a single UDP
// payload; the core never fragments or reassembles.
type UDPTransport struct {
	conn *net.UDPConn
}

// ListenUDP opens a UDP socket on addr (host:port, or ":port" for all
// interfaces) and returns a transport ready to read from it.
func ListenUDP(addr string) (*UDPTransport, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen on %q: %w", addr, err)
	}
	return &UDPTransport{conn: conn}, nil
}

// ReadFrom reads one datagram into buf, returning its length and sender.
func (t *UDPTransport) ReadFrom(buf []byte) (int, net.Addr, error) {
	return t.conn.ReadFromUDP(buf)
}

// WriteTo sends buf as a single datagram to peer, which must be a
// *net.UDPAddr.
func (t *UDPTransport) WriteTo(buf []byte, peer net.Addr) (int, error) {
	udpPeer, ok := peer.(*net.UDPAddr)
	if !ok {
		return 0, fmt.Errorf("transport: peer %v is not a UDP address", peer)
	}
	return t.conn.WriteToUDP(buf, udpPeer)
}

// Close releases the underlying socket.
func (t *UDPTransport) Close() error {
	return t.conn.Close()
}

// LocalAddr reports the bound local address.
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}
