package protocol

import (
	"crypto/md5"
	"encoding/hex"
)

// OfflineIdentity is the 16-byte name-based identifier a server in offline
// mode assigns to a player.
type OfflineIdentity [16]byte

// namespaceDNS is the RFC 4122 DNS namespace 6ba7b810-9dad-11d1-80b4-00c04fd430c8.
var namespaceDNS = [16]byte{
	0x6b, 0xa7, 0xb8, 0x10, 0x9d, 0xad, 0x11, 0xd1,
	0x80, 0xb4, 0x00, 0xc0, 0x4f, 0xd4, 0x30, 0xc8,
}

// OfflinePrefix is prepended to the username before hashing.
const OfflinePrefix = "OfflinePlayer:"

// NewOfflineIdentity derives the version 3 identifier for a username:
// MD5(namespace || "OfflinePlayer:" + username) with the version and
// variant bits overwritten.
func NewOfflineIdentity(username string) OfflineIdentity {
	h := md5.New()
	h.Write(namespaceDNS[:])
	h.Write([]byte(OfflinePrefix + username))

	var id OfflineIdentity
	copy(id[:], h.Sum(nil))

	id[6] = (id[6] & 0x0f) | 0x30 // version 3
	id[8] = (id[8] & 0x3f) | 0x80 // RFC 4122 variant

	return id
}

// String returns the canonical 8-4-4-4-12 hex form.
func (id OfflineIdentity) String() string {
	var buf [36]byte
	hex.Encode(buf[0:8], id[0:4])
	buf[8] = '-'
	hex.Encode(buf[9:13], id[4:6])
	buf[13] = '-'
	hex.Encode(buf[14:18], id[6:8])
	buf[18] = '-'
	hex.Encode(buf[19:23], id[8:10])
	buf[23] = '-'
	hex.Encode(buf[24:], id[10:])
	return string(buf[:])
}
