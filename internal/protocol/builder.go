package protocol

import (
	"bytes"
	"encoding/binary"
)

// PacketBuilder constructs packet payloads field by field.
type PacketBuilder struct {
	buf bytes.Buffer
}

// NewPacketBuilder creates a new PacketBuilder.
func NewPacketBuilder() *PacketBuilder {
	return &PacketBuilder{}
}

// WriteVarInt writes a varint.
func (b *PacketBuilder) WriteVarInt(v int32) *PacketBuilder {
	var tmp [MaxVarIntLen]byte
	b.buf.Write(AppendVarInt(tmp[:0], v))
	return b
}

// WriteString writes a varint length-prefixed string.
func (b *PacketBuilder) WriteString(s string) *PacketBuilder {
	b.WriteVarInt(int32(len(s)))
	b.buf.WriteString(s)
	return b
}

// WriteUint16 writes a uint16 in big-endian order (the handshake port).
func (b *PacketBuilder) WriteUint16(v uint16) *PacketBuilder {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	b.buf.Write(tmp[:])
	return b
}

// WriteInt64 writes an int64 in big-endian order (the ping timestamp).
func (b *PacketBuilder) WriteInt64(v int64) *PacketBuilder {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	b.buf.Write(tmp[:])
	return b
}

// WriteBytes writes raw bytes.
func (b *PacketBuilder) WriteBytes(data []byte) *PacketBuilder {
	b.buf.Write(data)
	return b
}

// Build returns the constructed payload bytes.
func (b *PacketBuilder) Build() []byte {
	return b.buf.Bytes()
}

// BuildPacket returns the payload framed as a complete packet with the given id.
func (b *PacketBuilder) BuildPacket(id int32) []byte {
	return MarshalPacket(id, b.buf.Bytes())
}

// ---- Pre-built packet constructors ----

// BuildHandshake creates a handshake payload.
// Format: [protocol:varint][address:string][port:2][next_state:varint]
func BuildHandshake(protocolVersion int32, address string, port uint16, next HandshakeTarget) []byte {
	return NewPacketBuilder().
		WriteVarInt(protocolVersion).
		WriteString(address).
		WriteUint16(port).
		WriteVarInt(int32(next)).
		Build()
}

// BuildStatusResponse creates a status response payload.
// Format: [json:string]
func BuildStatusResponse(document []byte) []byte {
	return NewPacketBuilder().
		WriteString(string(document)).
		Build()
}

// BuildLoginStart creates a login start payload.
// Format: [username:string]
func BuildLoginStart(username string) []byte {
	return NewPacketBuilder().
		WriteString(username).
		Build()
}

// BuildLoginSuccess creates a login success payload.
// Format: [identity:16][username:string][properties:varint(0)]
func BuildLoginSuccess(identity OfflineIdentity, username string) []byte {
	return NewPacketBuilder().
		WriteBytes(identity[:]).
		WriteString(username).
		WriteVarInt(0).
		Build()
}
