package iostore

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// ChunkID is a 12-byte opaque identifier: byte 0 is the chunk type
// (interpretation differs between UE4 and UE5 lineage and is stored
// verbatim, not reinterpreted here), bytes 1..11 are a little-endian
// index. Equality is raw-byte equality.
type ChunkID [12]byte

// Type returns the chunk-type byte (byte 0), stored and returned verbatim.
func (c ChunkID) Type() byte { return c[0] }

// Index returns the low 64 bits of the little-endian index packed into
// bytes 1..11 (display/debug use only; equality and hashing always use
// the full 12 raw bytes).
func (c ChunkID) Index() uint64 {
	var buf [8]byte
	copy(buf[:], c[1:9])
	return binary.LittleEndian.Uint64(buf[:])
}

// String renders the chunk ID as lowercase hex, the display-only
// projection the spec calls for (the 12 raw bytes remain the map key).
func (c ChunkID) String() string {
	return hex.EncodeToString(c[:])
}

// ReadChunkID decodes a 12-byte buffer into a ChunkID.
func ReadChunkID(buf []byte) ChunkID {
	var c ChunkID
	copy(c[:], buf[:12])
	return c
}

// hashChunkID is a seeded xxHash64 over a little-endian seed prefix
// followed by the raw 12 bytes, following the same FKS-style
// seeded-prefix pattern as compactindexsized's EntryHash64 (prefix the
// seed, hash prefix+key). It is not a multiplicative rolling hash, so its
// values differ from those of a byte-wise multiply-and-xor hash.
func hashChunkID(id ChunkID, seed uint32) uint64 {
	var prefixed [4 + 12]byte
	binary.LittleEndian.PutUint32(prefixed[:4], seed)
	copy(prefixed[4:], id[:])
	return xxhash.Sum64(prefixed[:])
}
