package iostore

import (
	"fmt"

	"github.com/pakio/pakio/binreader"
	"github.com/pakio/pakio/containererrs"
)

// tocMagic is the fixed 16-byte TOC magic string.
const tocMagic = "-==--==--==--==-"

// tocHeaderSize is the fixed size of the header this decoder understands;
// a TOC whose embedded toc_header_size disagrees is rejected rather than
// guessed at.
const tocHeaderSize = 144

const (
	compressedBlockEntrySize = 12
	offsetLengthEntrySize    = 10 // two packed 40-bit integers
	chunkIDEntrySize         = 12
)

// DecodeToc parses a complete .utoc buffer in a single linear pass.
func DecodeToc(raw []byte) (*Toc, error) {
	b := binreader.NewBuffer(raw)

	magic, err := b.ReadBytes(len(tocMagic))
	if err != nil {
		return nil, fmt.Errorf("iostore: reading magic: %w", err)
	}
	if string(magic) != tocMagic {
		return nil, &containererrs.FormatError{Context: "bad IoStore TOC magic"}
	}

	versionByte, err := b.ReadU8()
	if err != nil {
		return nil, err
	}
	if _, err := b.ReadBytes(3); err != nil { // reserved
		return nil, err
	}

	headerSize, err := b.ReadU32()
	if err != nil {
		return nil, err
	}
	if int(headerSize) != tocHeaderSize {
		return nil, &containererrs.FormatError{Context: fmt.Sprintf("unexpected TOC header size %d", headerSize)}
	}

	entryCount, err := b.ReadU32()
	if err != nil {
		return nil, err
	}
	blockEntryCount, err := b.ReadU32()
	if err != nil {
		return nil, err
	}
	blockEntrySize, err := b.ReadU32()
	if err != nil {
		return nil, err
	}
	if int(blockEntrySize) != compressedBlockEntrySize {
		return nil, &containererrs.FormatError{Context: fmt.Sprintf("unexpected compression block entry size %d", blockEntrySize)}
	}

	methodNameCount, err := b.ReadU32()
	if err != nil {
		return nil, err
	}
	methodNameLength, err := b.ReadU32()
	if err != nil {
		return nil, err
	}

	compressionBlockSize, err := b.ReadU32()
	if err != nil {
		return nil, err
	}
	directoryIndexSize, err := b.ReadU32()
	if err != nil {
		return nil, err
	}
	partitionCount, err := b.ReadU32()
	if err != nil {
		return nil, err
	}
	containerID, err := b.ReadU64()
	if err != nil {
		return nil, err
	}
	guid, err := b.ReadGUID()
	if err != nil {
		return nil, err
	}
	flagsByte, err := b.ReadU8()
	if err != nil {
		return nil, err
	}
	if _, err := b.ReadBytes(3); err != nil { // reserved, pads flags byte to 4-byte alignment
		return nil, err
	}
	seedCount, err := b.ReadU32()
	if err != nil {
		return nil, err
	}
	partitionSize, err := b.ReadU64()
	if err != nil {
		return nil, err
	}
	overflowCount, err := b.ReadU32()
	if err != nil {
		return nil, err
	}
	if _, err := b.ReadU32(); err != nil { // reserved
		return nil, err
	}
	for i := 0; i < 5; i++ {
		if _, err := b.ReadU64(); err != nil { // reserved
			return nil, err
		}
	}

	version := Version(versionByte)
	t := &Toc{
		Version:              version,
		Flags:                ContainerFlag(flagsByte),
		PartitionCount:       int(partitionCount),
		PartitionSize:        partitionSize,
		CompressionBlockSize: compressionBlockSize,
		EncryptionGUID:       guid,
		ContainerID:          containerID,
	}
	if version < VersionPartitionSize {
		t.PartitionCount = 1
		t.PartitionSize = ^uint64(0)
	}

	t.ChunkIDs = make([]ChunkID, entryCount)
	for i := range t.ChunkIDs {
		buf, err := b.ReadBytes(chunkIDEntrySize)
		if err != nil {
			return nil, fmt.Errorf("iostore: reading chunk id %d: %w", i, err)
		}
		t.ChunkIDs[i] = ReadChunkID(buf)
	}

	t.OffsetLengths = make([]OffsetAndLength, entryCount)
	for i := range t.OffsetLengths {
		buf, err := b.ReadBytes(offsetLengthEntrySize)
		if err != nil {
			return nil, fmt.Errorf("iostore: reading offset/length %d: %w", i, err)
		}
		t.OffsetLengths[i] = OffsetAndLength{
			Offset: binreader.Uint40(buf[0:5]),
			Length: binreader.Uint40(buf[5:10]),
		}
	}

	var seeds []int32
	if version >= VersionPerfectHash && seedCount > 0 {
		seeds = make([]int32, seedCount)
		for i := range seeds {
			v, err := b.ReadU32()
			if err != nil {
				return nil, fmt.Errorf("iostore: reading perfect hash seed %d: %w", i, err)
			}
			seeds[i] = int32(v)
		}
	}
	if version >= VersionPerfectHashWithOverflow && overflowCount > 0 {
		// Indices of chunks not covered by the perfect-hash table; the
		// overflow map built in buildLookup already covers this same set by
		// re-deriving it from a failed direct-slot check, so these values
		// only need to be consumed off the wire here.
		if _, err := b.ReadBytes(int(overflowCount) * 4); err != nil {
			return nil, fmt.Errorf("iostore: reading perfect hash overflow indices: %w", err)
		}
	}

	t.CompressionBlocks = make([]CompressionBlock, blockEntryCount)
	for i := range t.CompressionBlocks {
		buf, err := b.ReadBytes(compressedBlockEntrySize)
		if err != nil {
			return nil, fmt.Errorf("iostore: reading compression block %d: %w", i, err)
		}
		t.CompressionBlocks[i] = CompressionBlock{
			Offset:           binreader.Uint40(buf[0:5]),
			CompressedSize:   binreader.Uint24(buf[5:8]),
			UncompressedSize: binreader.Uint24(buf[8:11]),
			MethodIndex:      buf[11],
		}
	}

	methods := make([]string, 0, methodNameCount+1)
	methods = append(methods, "none")
	for i := uint32(0); i < methodNameCount; i++ {
		buf, err := b.ReadBytes(int(methodNameLength))
		if err != nil {
			return nil, fmt.Errorf("iostore: reading compression method name %d: %w", i, err)
		}
		methods = append(methods, nullTerminatedString(buf))
	}
	t.CompressionMethods = methods

	if directoryIndexSize > 0 {
		blob, err := b.ReadBytes(int(directoryIndexSize))
		if err != nil {
			return nil, fmt.Errorf("iostore: reading directory index blob: %w", err)
		}
		t.DirectoryIndexBlob = blob
	}

	t.buildLookup(seeds)
	return t, nil
}

func nullTerminatedString(buf []byte) string {
	for i, c := range buf {
		if c == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}
