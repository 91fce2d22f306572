package iostore

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pakio/pakio/binreader"
)

// tocBuilder assembles a synthetic .utoc buffer byte-for-byte as DecodeToc
// expects to read it.
type tocBuilder struct {
	version               Version
	chunkIDs              []ChunkID
	offsetLengths         []OffsetAndLength
	blocks                []CompressionBlock
	methodNames           []string
	directoryIndexBlob    []byte
	compressionBlockSize  uint32
	partitionCount        uint32
	partitionSize         uint64
	containerID           uint64
	guid                  binreader.GUID
	flags                 ContainerFlag
}

func (tb *tocBuilder) build() []byte {
	var out bytes.Buffer
	out.WriteString(tocMagic)
	out.WriteByte(byte(tb.version))
	out.Write(make([]byte, 3)) // reserved

	putU32(&out, tocHeaderSize)
	putU32(&out, uint32(len(tb.chunkIDs)))
	putU32(&out, uint32(len(tb.blocks)))
	putU32(&out, compressedBlockEntrySize)
	putU32(&out, uint32(len(tb.methodNames)))
	putU32(&out, 32)
	putU32(&out, tb.compressionBlockSize)
	putU32(&out, uint32(len(tb.directoryIndexBlob)))
	putU32(&out, tb.partitionCount)
	putU64(&out, tb.containerID)
	out.Write(tb.guid[:])
	out.WriteByte(byte(tb.flags))
	out.Write(make([]byte, 3)) // reserved
	putU32(&out, 0)            // seed count (no perfect hash in this test)
	putU64(&out, tb.partitionSize)
	putU32(&out, 0) // overflow count
	putU32(&out, 0) // reserved
	for i := 0; i < 5; i++ {
		putU64(&out, 0) // reserved
	}

	for _, id := range tb.chunkIDs {
		out.Write(id[:])
	}
	for _, ol := range tb.offsetLengths {
		var buf [10]byte
		binreader.PutUint40(buf[0:5], ol.Offset)
		binreader.PutUint40(buf[5:10], ol.Length)
		out.Write(buf[:])
	}
	for _, blk := range tb.blocks {
		var buf [12]byte
		binreader.PutUint40(buf[0:5], blk.Offset)
		put24(buf[5:8], blk.CompressedSize)
		put24(buf[8:11], blk.UncompressedSize)
		buf[11] = blk.MethodIndex
		out.Write(buf[:])
	}
	for _, name := range tb.methodNames {
		padded := make([]byte, 32)
		copy(padded, name)
		out.Write(padded)
	}
	out.Write(tb.directoryIndexBlob)

	return out.Bytes()
}

func putU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}
func putU64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}
func put24(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
}

func TestDecodeTocHeaderAndTables(t *testing.T) {
	tb := &tocBuilder{
		version: VersionPartitionSize,
		chunkIDs: []ChunkID{
			ReadChunkID([]byte{1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}),
			ReadChunkID([]byte{1, 2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}),
		},
		offsetLengths: []OffsetAndLength{
			{Offset: 0, Length: 1024},
			{Offset: 1024, Length: 2048},
		},
		blocks: []CompressionBlock{
			{Offset: 0, CompressedSize: 1024, UncompressedSize: 1024, MethodIndex: 0},
			{Offset: 1024, CompressedSize: 900, UncompressedSize: 2048, MethodIndex: 1},
		},
		methodNames:          []string{"Oodle"},
		compressionBlockSize: 64 * 1024,
		partitionCount:       2,
		partitionSize:        1 << 20,
		containerID:          0xC0FFEE,
	}
	raw := tb.build()

	toc, err := DecodeToc(raw)
	require.NoError(t, err)

	require.Equal(t, 2, toc.EntryCount())
	require.Equal(t, 2, toc.PartitionCount)
	require.Equal(t, uint64(1<<20), toc.PartitionSize)
	require.Equal(t, "none", toc.MethodName(0))
	require.Equal(t, "Oodle", toc.MethodName(1))
	require.Equal(t, uint64(0xC0FFEE), toc.ContainerID)

	idx, ok := toc.Lookup(tb.chunkIDs[1])
	require.True(t, ok)
	require.Equal(t, 1, idx)
	require.Equal(t, uint64(1024), toc.OffsetLengths[idx].Offset)

	_, ok = toc.Lookup(ReadChunkID([]byte{9, 9, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}))
	require.False(t, ok)
}

func TestDecodeTocRejectsBadHeaderSize(t *testing.T) {
	tb := &tocBuilder{version: VersionInitial}
	raw := tb.build()
	// corrupt the toc_header_size field (bytes 4:8 after the 16-byte magic + version + 3 reserved)
	binary.LittleEndian.PutUint32(raw[20:24], 99)

	_, err := DecodeToc(raw)
	require.Error(t, err)
}

func TestDecodeTocPreVersionPartitionSizeBackfill(t *testing.T) {
	tb := &tocBuilder{
		version:        VersionInitial,
		partitionCount: 0,
		partitionSize:  0,
	}
	raw := tb.build()

	toc, err := DecodeToc(raw)
	require.NoError(t, err)
	require.Equal(t, 1, toc.PartitionCount)
	require.Equal(t, ^uint64(0), toc.PartitionSize)
}
