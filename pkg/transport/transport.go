// Package transport provides the datagram I/O the core's encode/decode
// calls need to actually reach another peer. Neither implementation
// here is part of the core: spec.md §1 explicitly excludes the "UDP
// socket I/O loop" from the reimplementation-worthy surface. They exist
// so cmd/overlaynode has something concrete to drive pkg/wire with.
package transport

import "net"

// PacketTransport reads and writes whole datagrams, each one a single
// encoded message produced by wire.Encode / consumed by wire.Decode.
// Implementations do not interpret the datagram contents.
type PacketTransport interface {
	ReadFrom(buf []byte) (n int, peer net.Addr, err error)
	WriteTo(buf []byte, peer net.Addr) (n int, err error)
	Close() error
}
