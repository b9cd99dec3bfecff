package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// HandshakeTarget is the state a client asks for in its handshake.
type HandshakeTarget int32

const (
	TargetStatus HandshakeTarget = 1
	TargetLogin  HandshakeTarget = 2
)

// String returns the lowercase name of the target.
func (t HandshakeTarget) String() string {
	switch t {
	case TargetStatus:
		return "status"
	case TargetLogin:
		return "login"
	default:
		return fmt.Sprintf("unknown(%d)", int32(t))
	}
}

// ParseHandshakeTarget maps a next-state code to a target.
func ParseHandshakeTarget(code int32) (HandshakeTarget, error) {
	switch code {
	case 1:
		return TargetStatus, nil
	case 2:
		return TargetLogin, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownHandshakeTarget, code)
	}
}

// Handshake is the decoded payload of the first packet on a connection.
// Only Target drives behaviour; the other fields are kept for logging.
type Handshake struct {
	ProtocolVersion int32
	ServerAddress   string
	ServerPort      uint16
	Target          HandshakeTarget
}

// ParseHandshake decodes a handshake payload.
// Format: [protocol:varint][address:string][port:2][next_state:varint]
// Any field failure aborts the whole parse.
func ParseHandshake(payload []byte) (*Handshake, error) {
	r := bytes.NewReader(payload)
	return ReadHandshake(r)
}

// ReadHandshake decodes a handshake from a byte source.
func ReadHandshake(r Reader) (*Handshake, error) {
	version, _, err := ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse handshake protocol version: %w", err)
	}

	address, _, err := ReadString(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse handshake server address: %w", err)
	}

	var port [2]byte
	if _, err := io.ReadFull(r, port[:]); err != nil {
		return nil, fmt.Errorf("failed to parse handshake port: %w", truncated(err, "port"))
	}

	next, _, err := ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse handshake next state: %w", err)
	}

	target, err := ParseHandshakeTarget(next)
	if err != nil {
		return nil, err
	}

	return &Handshake{
		ProtocolVersion: version,
		ServerAddress:   address,
		ServerPort:      binary.BigEndian.Uint16(port[:]),
		Target:          target,
	}, nil
}
