package protocol

import (
	"errors"
	"fmt"
	"io"
)

// ReadPacket reads a single length-prefixed packet from r.
// Packet format: [varint total_length][varint packet_id][payload...]
// Blocks until the whole payload has arrived or the stream ends.
func ReadPacket(r Reader) (*Packet, error) {
	return ReadPacketLimit(r, 0)
}

// ReadPacketLimit is ReadPacket with an upper bound on total_length.
// A maxLength of 0 disables the bound.
func ReadPacketLimit(r Reader, maxLength int) (*Packet, error) {
	total, n, err := ReadVarInt(r)
	if err != nil {
		if n == 0 && errors.Is(err, ErrTruncated) {
			return nil, fmt.Errorf("%w: waiting for packet length", ErrConnectionClosed)
		}
		return nil, fmt.Errorf("failed to read packet length: %w", err)
	}

	if maxLength > 0 && int64(total) > int64(maxLength) {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPacketTooLarge, total, maxLength)
	}

	id, idLen, err := ReadVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read packet id: %w", err)
	}

	payloadLen := int64(total) - int64(idLen)
	if payloadLen < 0 {
		return nil, fmt.Errorf("%w: packet length %d shorter than id (%d bytes)", ErrProtocol, total, idLen)
	}

	payload, err := readN(r, payloadLen, "packet payload")
	if err != nil {
		return nil, fmt.Errorf("failed to read packet 0x%02X payload (%d bytes): %w", id, payloadLen, err)
	}

	return &Packet{ID: id, Payload: payload}, nil
}

// MarshalPacket returns the wire form of a packet.
func MarshalPacket(id int32, payload []byte) []byte {
	total := int32(VarIntLen(id) + len(payload))

	buf := make([]byte, 0, VarIntLen(total)+int(total))
	buf = AppendVarInt(buf, total)
	buf = AppendVarInt(buf, id)
	return append(buf, payload...)
}

// WritePacket writes a packet to w as one contiguous write.
func WritePacket(w io.Writer, id int32, payload []byte) error {
	if _, err := w.Write(MarshalPacket(id, payload)); err != nil {
		return fmt.Errorf("failed to write packet 0x%02X: %w", id, err)
	}
	return nil
}
