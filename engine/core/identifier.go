package core

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// InvalidID is never returned by IdentifierNew.
const InvalidID uint64 = 0

// IdentifierNew returns a fresh random 64-bit identifier. The two halves of a
// v4 UUID are folded together so every output bit is random.
func IdentifierNew() uint64 {
	for {
		id := uuid.New()
		v := binary.LittleEndian.Uint64(id[:8]) ^ binary.LittleEndian.Uint64(id[8:])
		if v != InvalidID {
			return v
		}
	}
}

// IdentifierFromString hashes s into a stable identifier. The same string
// always produces the same value, across processes and platforms.
func IdentifierFromString(s string) uint64 {
	return xxhash.Sum64String(s)
}
