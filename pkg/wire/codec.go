package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/shadowmesh/shadowmesh/pkg/crypto/envelope"
)

// Encode writes a full datagram (header, options, body, optionally
// sealed) into buf and returns the number of bytes written. crypto may
// be nil, meaning no encryption (equivalent to envelope.NewNone()).
//
// The header is the last thing written, once the body length and the
// effective crypto method are both known, mirroring the teacher's
// header.EncodeHeader(..., bodyLen) pattern of finalizing length-derived
// fields after the body is serialized.
func Encode(opts Options, msg Message, buf []byte, crypto *envelope.State) (int, error) {
	if crypto == nil {
		crypto = envelope.NewNone()
	}
	if len(buf) < HeaderSize {
		return 0, fmt.Errorf("wire: buffer too small for header")
	}

	offset := HeaderSize
	if opts.NetworkID != nil {
		if offset+8 > len(buf) {
			return 0, fmt.Errorf("wire: buffer too small for network_id option")
		}
		binary.BigEndian.PutUint64(buf[offset:offset+8], *opts.NetworkID)
		offset += 8
	}
	headerEnd := offset

	bodyStart := offset
	bodyLen, err := encodeBody(buf[bodyStart:], msg)
	if err != nil {
		return 0, err
	}

	total := bodyStart + bodyLen
	if crypto.Method() != envelope.MethodNone {
		need := bodyStart + envelope.NonceSize + bodyLen + crypto.AdditionalBytes()
		if need > len(buf) {
			return 0, fmt.Errorf("wire: buffer too small for encrypted body")
		}
		// Shift the plaintext forward to make room for the nonce prefix,
		// then seal it in place.
		copy(buf[bodyStart+envelope.NonceSize:], buf[bodyStart:bodyStart+bodyLen])
		var nonce [envelope.NonceSize]byte
		aad := buf[:headerEnd]
		ctLen, err := crypto.Encrypt(buf[bodyStart+envelope.NonceSize:], bodyLen, &nonce, aad)
		if err != nil {
			return 0, err
		}
		copy(buf[bodyStart:bodyStart+envelope.NonceSize], nonce[:])
		total = bodyStart + envelope.NonceSize + ctLen
	}

	buf[0], buf[1], buf[2] = magic[0], magic[1], magic[2]
	buf[3] = Version
	buf[4] = byte(crypto.Method())
	buf[5] = 0
	var flags byte
	if opts.NetworkID != nil {
		flags |= flagNetworkID
	}
	buf[6] = flags
	buf[7] = byte(msg.Type())

	return total, nil
}

// Decode parses a datagram previously produced by Encode, opening its
// body with crypto (nil meaning no decryption expected). It mutates buf
// in place when decryption occurs; the returned Message's byte slices
// may borrow from buf and are only valid until buf is reused.
func Decode(buf []byte, crypto *envelope.State) (Options, Message, error) {
	if crypto == nil {
		crypto = envelope.NewNone()
	}

	if len(buf) < HeaderSize {
		return Options{}, nil, fmt.Errorf("%w: buffer shorter than header", ErrInvalidHeader)
	}
	if buf[0] != magic[0] || buf[1] != magic[1] || buf[2] != magic[2] {
		return Options{}, nil, fmt.Errorf("%w: bad magic", ErrInvalidHeader)
	}
	if buf[3] != Version {
		return Options{}, nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidHeader, buf[3])
	}
	method, err := envelope.ParseMethod(buf[4])
	if err != nil {
		return Options{}, nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	if buf[5] != 0 {
		return Options{}, nil, fmt.Errorf("%w: reserved byte must be zero", ErrInvalidHeader)
	}
	flags := buf[6]
	if flags&^byte(knownFlags) != 0 {
		return Options{}, nil, fmt.Errorf("%w: unknown option bits 0x%02x", ErrInvalidOption, flags)
	}
	switch MessageType(buf[7]) {
	case TypeData, TypePeers, TypeInit, TypeClose:
	default:
		return Options{}, nil, fmt.Errorf("%w: unknown message type %d", ErrInvalidHeader, buf[7])
	}
	msgType := MessageType(buf[7])

	if method != crypto.Method() {
		return Options{}, nil, fmt.Errorf("%w: header crypto_method %v does not match configured %v", ErrInvalidCrypto, method, crypto.Method())
	}
	if method == envelope.MethodAES256GCM && !envelope.AES256Available() {
		return Options{}, nil, fmt.Errorf("%w: AES-256 not available", ErrInvalidCrypto)
	}

	offset := HeaderSize
	var opts Options
	if flags&flagNetworkID != 0 {
		if offset+8 > len(buf) {
			return Options{}, nil, fmt.Errorf("%w: truncated network_id option", ErrInvalidOption)
		}
		v := binary.BigEndian.Uint64(buf[offset : offset+8])
		opts.NetworkID = &v
		offset += 8
	}
	headerEnd := offset

	body := buf[headerEnd:]
	if method != envelope.MethodNone {
		if len(body) < envelope.NonceSize+crypto.AdditionalBytes() {
			return Options{}, nil, fmt.Errorf("%w: encrypted body shorter than nonce and tag", ErrInvalidMessage)
		}
		var nonce [envelope.NonceSize]byte
		copy(nonce[:], body[:envelope.NonceSize])
		aad := buf[:headerEnd]
		plain, err := crypto.Decrypt(body[envelope.NonceSize:], nonce, aad)
		if err != nil {
			return Options{}, nil, fmt.Errorf("%w: %v", ErrCrypto, err)
		}
		body = plain
	}

	msg, err := decodeBody(msgType, body)
	if err != nil {
		return Options{}, nil, err
	}
	return opts, msg, nil
}

func encodeBody(buf []byte, msg Message) (int, error) {
	switch m := msg.(type) {
	case DataMessage:
		if len(m.Payload) > len(buf) {
			return 0, fmt.Errorf("wire: buffer too small for data payload")
		}
		return copy(buf, m.Payload), nil
	case PeersMessage:
		return encodePeers(buf, m.Peers)
	case InitMessage:
		return encodeInit(buf, m)
	case CloseMessage:
		return 0, nil
	default:
		return 0, fmt.Errorf("wire: unsupported message type %T", msg)
	}
}

func decodeBody(t MessageType, body []byte) (Message, error) {
	switch t {
	case TypeData:
		return DataMessage{Payload: body}, nil
	case TypePeers:
		return decodePeers(body)
	case TypeInit:
		return decodeInit(body)
	case TypeClose:
		return CloseMessage{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown message type %d", ErrInvalidMessage, t)
	}
}
