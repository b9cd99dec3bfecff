package protocol

import (
	"fmt"
	"io"
)

// ReadVarInt decodes a varint from r one byte at a time.
// It returns the value and the number of bytes consumed, which callers need
// for packet length accounting.
func ReadVarInt(r io.ByteReader) (int32, int, error) {
	var value uint32
	n := 0

	for {
		// A 6th group would shift past bit 31.
		if 7*n >= 32 {
			return 0, n, fmt.Errorf("%w: more than %d bytes", ErrVarIntTooBig, MaxVarIntLen)
		}

		b, err := r.ReadByte()
		if err != nil {
			return 0, n, truncated(err, "varint")
		}

		value |= uint32(b&0x7F) << (7 * n)
		n++

		if b&0x80 == 0 {
			break
		}
	}

	return int32(value), n, nil
}

// AppendVarInt appends the varint encoding of v to buf.
func AppendVarInt(buf []byte, v int32) []byte {
	u := uint32(v)
	for u&0xFFFFFF80 != 0 {
		buf = append(buf, byte(u)|0x80)
		u >>= 7
	}
	return append(buf, byte(u))
}

// EncodeVarInt returns the 1 to 5 byte varint encoding of v.
func EncodeVarInt(v int32) []byte {
	return AppendVarInt(make([]byte, 0, MaxVarIntLen), v)
}

// VarIntLen returns the encoded width of v.
func VarIntLen(v int32) int {
	u := uint32(v)
	n := 1
	for u&0xFFFFFF80 != 0 {
		u >>= 7
		n++
	}
	return n
}
