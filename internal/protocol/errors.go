package protocol

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrTruncated is returned when the stream ends in the middle of a field.
	ErrTruncated = errors.New("stream ended mid-field")
	// ErrConnectionClosed is returned when the peer closes the stream
	// before the first byte of a packet.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrVarIntTooBig is returned when a varint needs more than 32 bits.
	ErrVarIntTooBig = errors.New("varint too big")
	// ErrProtocol is returned on an unexpected packet id or a malformed length.
	ErrProtocol = errors.New("protocol error")
	// ErrUnknownHandshakeTarget is returned for a next-state code other than 1 or 2.
	ErrUnknownHandshakeTarget = errors.New("unknown handshake target")
	// ErrPacketTooLarge is returned when a packet exceeds the configured bound.
	ErrPacketTooLarge = errors.New("packet too large")
)

// truncated converts end-of-stream errors into ErrTruncated while keeping
// any other transport error intact.
func truncated(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: reading %s", ErrTruncated, what)
	}
	return fmt.Errorf("failed to read %s: %w", what, err)
}

// ErrorReason maps an error to a short label for logs and metrics.
func ErrorReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrConnectionClosed):
		return "closed"
	case errors.Is(err, ErrTruncated):
		return "truncated"
	case errors.Is(err, ErrVarIntTooBig):
		return "overflow"
	case errors.Is(err, ErrUnknownHandshakeTarget):
		return "unknown_target"
	case errors.Is(err, ErrPacketTooLarge):
		return "too_large"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	default:
		return "io"
	}
}
