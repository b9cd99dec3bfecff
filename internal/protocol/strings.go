package protocol

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Reader is the byte source the decoders pull from. bufio.Reader and
// bytes.Reader both satisfy it.
type Reader interface {
	io.Reader
	io.ByteReader
}

// ReadString decodes a varint length-prefixed string.
//
// Each raw byte is widened to one code point; multi-byte UTF-8 sequences are
// not reassembled. It returns the text and the total bytes consumed,
// including the length prefix.
func ReadString(r Reader) (string, int, error) {
	raw, n, err := ReadStringBytes(r)
	if err != nil {
		return "", n, err
	}

	var sb strings.Builder
	sb.Grow(len(raw))
	for _, b := range raw {
		sb.WriteRune(rune(b))
	}

	return sb.String(), n, nil
}

// ReadStringBytes decodes a varint length-prefixed field and returns its
// raw bytes and the total bytes consumed.
func ReadStringBytes(r Reader) ([]byte, int, error) {
	length, n, err := ReadVarInt(r)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, fmt.Errorf("%w: negative string length %d", ErrProtocol, length)
	}

	raw, err := readN(r, int64(length), "string")
	return raw, n + len(raw), err
}

// AppendString appends the varint length prefix and raw bytes of s to buf.
func AppendString(buf []byte, s string) []byte {
	buf = AppendVarInt(buf, int32(len(s)))
	return append(buf, s...)
}

// EncodeString returns the length-prefixed encoding of s.
func EncodeString(s string) []byte {
	return AppendString(make([]byte, 0, MaxVarIntLen+len(s)), s)
}

// readN reads exactly n bytes. The buffer grows with the data actually
// received, so a forged length cannot force a large allocation up front.
func readN(r io.Reader, n int64, what string) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	if n <= 4096 {
		buf.Grow(int(n))
	}

	copied, err := io.CopyN(&buf, r, n)
	if err != nil {
		return buf.Bytes(), truncated(err, what)
	}
	if copied != n {
		return buf.Bytes(), fmt.Errorf("%w: reading %s", ErrTruncated, what)
	}

	return buf.Bytes(), nil
}
