package transport

import (
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// wsAddr identifies a WebSocket peer by its URL; it satisfies net.Addr
// so WebSocketTransport can be used anywhere a PacketTransport is
// expected alongside UDPTransport.
type wsAddr string

func (a wsAddr) Network() string { return "websocket" }
func (a wsAddr) String() string  { return string(a) }

// WebSocketTransport carries one encoded datagram per binary WebSocket
// message. Grounded on the teacher's shared/networking.Transport dial
// and handshake-timeout shape, generalized away from its own framed
// protocol.Message type: here a "message" is whatever wire.Encode
// already produced, opaque to this package.
type WebSocketTransport struct {
	conn *websocket.Conn
	peer wsAddr
}

// DialWebSocket connects to a ws:// or wss:// URL and returns a
// transport bound to that single peer.
func DialWebSocket(rawURL string) (*WebSocketTransport, error) {
	if _, err := url.Parse(rawURL); err != nil {
		return nil, fmt.Errorf("transport: invalid websocket url %q: %w", rawURL, err)
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.Dial(rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %q: %w", rawURL, err)
	}
	return &WebSocketTransport{conn: conn, peer: wsAddr(rawURL)}, nil
}

// NewWebSocketTransport wraps an already-established server-side
// connection (e.g. from an http.Handler that called Upgrader.Upgrade),
// identifying the peer by its remote address.
func NewWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	return &WebSocketTransport{conn: conn, peer: wsAddr(conn.RemoteAddr().String())}
}

// ReadFrom reads the next binary message into buf. Messages larger than
// len(buf) are truncated the same way a UDP datagram would be by a
// too-small read buffer.
func (t *WebSocketTransport) ReadFrom(buf []byte) (int, net.Addr, error) {
	msgType, data, err := t.conn.ReadMessage()
	if err != nil {
		return 0, t.peer, fmt.Errorf("transport: websocket read: %w", err)
	}
	if msgType != websocket.BinaryMessage {
		return 0, t.peer, fmt.Errorf("transport: unexpected websocket message type %d", msgType)
	}
	return copy(buf, data), t.peer, nil
}

// WriteTo sends buf as a single binary WebSocket message. peer is
// ignored: a WebSocketTransport is bound to one
// connection for its lifetime, unlike UDPTransport's single shared
// socket serving many peers.
func (t *WebSocketTransport) WriteTo(buf []byte, peer net.Addr) (int, error) {
	if err := t.conn.WriteMessage(websocket.BinaryMessage, buf); err != nil {
		return 0, fmt.Errorf("transport: websocket write: %w", err)
	}
	return len(buf), nil
}

// Close closes the underlying WebSocket connection.
func (t *WebSocketTransport) Close() error {
	return t.conn.Close()
}
