// Package protocol implements the subset of the block game's wire protocol
// that the decoy listener needs: varints, length-prefixed strings, packet
// framing and the handshake. All framing integers are varints and all
// text fields are varint length-prefixed.
package protocol

// Serverbound packet ids.
const (
	PktHandshake     int32 = 0x00 // Handshake (state: handshaking)
	PktStatusRequest int32 = 0x00 // Status request, empty payload (state: status)
	PktPing          int32 = 0x01 // Ping with 8-byte payload (state: status)
	PktLoginStart    int32 = 0x00 // Login start with username (state: login)
)

// Clientbound packet ids.
const (
	PktStatusResponse int32 = 0x00 // Status JSON document
	PktPong           int32 = 0x01 // Echo of the ping payload
	PktLoginSuccess   int32 = 0x02 // Identity + username + empty property list
)

// PingPayloadSize is the exact size of a ping/pong payload.
const PingPayloadSize = 8

// MaxVarIntLen is the maximum number of bytes a 32-bit varint occupies.
const MaxVarIntLen = 5

// Packet represents a decoded packet with its id and raw payload.
type Packet struct {
	ID      int32
	Payload []byte
}
