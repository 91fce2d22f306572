// Package iostore decodes the IoStore two-file container pair: the
// Table-of-Contents (.utoc) binary layout, its perfect-hash and legacy
// chunk lookup tables, the compression-block table, and the optional
// directory index, on top of which the extraction pipeline reads the
// Content-Addressable-Store (.ucas) partitions.
package iostore

import (
	"github.com/tidwall/hashmap"

	"github.com/pakio/pakio/binreader"
)

// Version enumerates the recognized TOC header revisions, each adding
// fields over the previous one.
type Version int

const (
	VersionInvalid Version = iota
	VersionInitial
	VersionDirectoryIndex
	VersionPartitionSize
	VersionPerfectHash
	VersionPerfectHashWithOverflow
)

// ContainerFlag is a bit in the TOC's container-flags byte.
type ContainerFlag uint8

const (
	FlagCompressed ContainerFlag = 1 << iota
	FlagEncrypted
	FlagSigned
	FlagIndexed
)

// Has reports whether flag is set in flags.
func (flags ContainerFlag) Has(flag ContainerFlag) bool { return flags&flag != 0 }

// OffsetAndLength is the logical [offset, offset+length) byte range a
// chunk occupies in the CAS address space, packed on disk as two 40-bit
// little-endian integers.
type OffsetAndLength struct {
	Offset uint64
	Length uint64
}

// CompressionBlock is one fixed-size unit of compression/encryption
// inside the CAS address space.
type CompressionBlock struct {
	Offset           uint64 // 40-bit absolute CAS offset
	CompressedSize   uint32 // 24-bit
	UncompressedSize uint32 // 24-bit
	MethodIndex      uint8
}

// Toc is the fully decoded, read-only form of an IoStore Table of Contents.
type Toc struct {
	Version                Version
	Flags                  ContainerFlag
	PartitionCount         int
	PartitionSize          uint64
	CompressionBlockSize   uint32
	EncryptionGUID         binreader.GUID
	ContainerID            uint64
	ChunkIDs               []ChunkID
	OffsetLengths          []OffsetAndLength
	CompressionBlocks      []CompressionBlock
	CompressionMethods     []string // index 0 is always "none"
	DirectoryIndexBlob     []byte

	perfectHashSeeds  []int32
	overflowByChunkID hashmap.Map[ChunkID, int]
	legacyByChunkID   hashmap.Map[ChunkID, int]
	dirIndex          directoryIndex
}

// MethodName resolves a compression-method index to its registered name.
func (t *Toc) MethodName(methodIndex uint8) string {
	if int(methodIndex) >= len(t.CompressionMethods) {
		return ""
	}
	return t.CompressionMethods[methodIndex]
}

// EntryCount returns the number of chunks described by the TOC.
func (t *Toc) EntryCount() int { return len(t.ChunkIDs) }
