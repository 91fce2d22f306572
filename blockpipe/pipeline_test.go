package blockpipe

import (
	"bytes"
	"context"
	"crypto/aes"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"

	"github.com/pakio/pakio/binreader"
	"github.com/pakio/pakio/codec"
	"github.com/pakio/pakio/containererrs"
	"github.com/pakio/pakio/keystore"
)

// fakeSource serves fixed byte slices per fileIndex, counting how many
// times each is read.
type fakeSource struct {
	files [][]byte
	reads int
	after func(reads int) // invoked after every successful read, for cancellation tests
}

func (f *fakeSource) ReadAt(ctx context.Context, fileIndex int, offset int64, n int) ([]byte, error) {
	f.reads++
	if fileIndex < 0 || fileIndex >= len(f.files) {
		return nil, &containererrs.PartitionMissingError{Index: fileIndex}
	}
	data := f.files[fileIndex]
	if offset < 0 || int(offset)+n > len(data) {
		return nil, &containererrs.ShortReadError{Offset: offset, Want: n, Got: len(data) - int(offset)}
	}
	out := append([]byte(nil), data[offset:int(offset)+n]...)
	if f.after != nil {
		f.after(f.reads)
	}
	return out, nil
}

func alignUp16Len(n int) int { return n + (16-(n%16))%16 }

func TestExtractAESAndZlibSingleBlock(t *testing.T) {
	key := bytes.Repeat([]byte{0x07}, 32)
	guid, err := binreader.ParseGUID("11111111-1111-1111-1111-111111111111")
	require.NoError(t, err)

	plain := bytes.Repeat([]byte{0x41}, 100*1024)
	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, err = zw.Write(plain)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	padded := make([]byte, alignUp16Len(compressed.Len()))
	copy(padded, compressed.Bytes())
	cipher, err := aes.NewCipher(key)
	require.NoError(t, err)
	ciphertext := make([]byte, len(padded))
	for off := 0; off < len(padded); off += 16 {
		cipher.Encrypt(ciphertext[off:off+16], padded[off:off+16])
	}

	src := &fakeSource{files: [][]byte{ciphertext}}
	keys := keystore.New()
	require.NoError(t, keys.Put(guid, key))

	req := Request{
		GUID:      guid,
		Encrypted: true,
		OutputLen: int64(len(plain)),
		Blocks: []Block{{
			Index:            0,
			FileIndex:        0,
			OnDiskOffset:     0,
			CompressedSize:   uint32(compressed.Len()),
			UncompressedSize: uint32(len(plain)),
			MethodName:       "zlib",
			Encrypted:        true,
			CopyStart:        0,
			CopyEnd:          uint32(len(plain)),
			OutputOffset:     0,
		}},
	}

	out, err := Extract(context.Background(), req, src, keys, codec.NewRegistry(), nil)
	require.NoError(t, err)
	require.True(t, bytes.Equal(plain, out))
}

func TestExtractMissingKey(t *testing.T) {
	guid, err := binreader.ParseGUID("22222222-2222-2222-2222-222222222222")
	require.NoError(t, err)

	req := Request{
		GUID:      guid,
		Encrypted: true,
		OutputLen: 16,
		Blocks:    []Block{{CompressedSize: 16, UncompressedSize: 16, Encrypted: true}},
	}
	_, err = Extract(context.Background(), req, &fakeSource{files: [][]byte{make([]byte, 16)}}, keystore.New(), codec.NewRegistry(), nil)
	require.Error(t, err)
	var keyErr *containererrs.KeyMissingError
	require.ErrorAs(t, err, &keyErr)
}

func TestExtractAcrossTwoPartitions(t *testing.T) {
	// Simulates scenario 4: a chunk whose covering blocks are split across
	// two CAS partition files.
	partition0 := bytes.Repeat([]byte{0xAA}, 64*1024)
	partition1 := bytes.Repeat([]byte{0xBB}, 64*1024)

	req := Request{
		OutputLen: int64(len(partition0) + len(partition1)),
		Blocks: []Block{
			{Index: 0, FileIndex: 0, OnDiskOffset: 0, CompressedSize: uint32(len(partition0)), UncompressedSize: uint32(len(partition0)), MethodName: "none", CopyStart: 0, CopyEnd: uint32(len(partition0)), OutputOffset: 0},
			{Index: 1, FileIndex: 1, OnDiskOffset: 0, CompressedSize: uint32(len(partition1)), UncompressedSize: uint32(len(partition1)), MethodName: "none", CopyStart: 0, CopyEnd: uint32(len(partition1)), OutputOffset: int64(len(partition0))},
		},
	}
	src := &fakeSource{files: [][]byte{partition0, partition1}}

	out, err := Extract(context.Background(), req, src, keystore.New(), codec.NewRegistry(), nil)
	require.NoError(t, err)
	require.True(t, bytes.Equal(out[:len(partition0)], partition0))
	require.True(t, bytes.Equal(out[len(partition0):], partition1))
}

func TestExtractCancellationStopsAtBlockBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	blockData := bytes.Repeat([]byte{0x01}, 4096)
	src := &fakeSource{
		files: [][]byte{blockData},
		after: func(reads int) {
			if reads == 1 {
				cancel()
			}
		},
	}

	req := Request{
		OutputLen: int64(len(blockData) * 3),
		Blocks: []Block{
			{Index: 0, FileIndex: 0, OnDiskOffset: 0, CompressedSize: uint32(len(blockData)), UncompressedSize: uint32(len(blockData)), MethodName: "none", CopyEnd: uint32(len(blockData)), OutputOffset: 0},
			{Index: 1, FileIndex: 0, OnDiskOffset: 0, CompressedSize: uint32(len(blockData)), UncompressedSize: uint32(len(blockData)), MethodName: "none", CopyEnd: uint32(len(blockData)), OutputOffset: int64(len(blockData))},
			{Index: 2, FileIndex: 0, OnDiskOffset: 0, CompressedSize: uint32(len(blockData)), UncompressedSize: uint32(len(blockData)), MethodName: "none", CopyEnd: uint32(len(blockData)), OutputOffset: int64(len(blockData) * 2)},
		},
	}

	_, err := Extract(ctx, req, src, keystore.New(), codec.NewRegistry(), nil)
	require.Error(t, err)
	var cancelled *containererrs.CancelledError
	require.ErrorAs(t, err, &cancelled)
	require.Equal(t, 1, src.reads, "no block read should be issued after cancellation")
}

func TestExtractParallelMatchesSequential(t *testing.T) {
	// Five distinct-content blocks across two partitions, each large enough
	// that a bug in result-slot indexing (rather than append order) would
	// show up as scrambled output instead of merely wrong length.
	partition0 := make([]byte, 48*1024)
	partition1 := make([]byte, 48*1024)
	for i := range partition0 {
		partition0[i] = byte(i + i/(16*1024))
	}
	for i := range partition1 {
		partition1[i] = byte(200 + i + i/(16*1024))
	}

	blockSize := 16 * 1024
	blocks := []Block{
		{Index: 0, FileIndex: 0, OnDiskOffset: 0, CompressedSize: uint32(blockSize), UncompressedSize: uint32(blockSize), MethodName: "none", CopyEnd: uint32(blockSize), OutputOffset: 0},
		{Index: 1, FileIndex: 0, OnDiskOffset: int64(blockSize), CompressedSize: uint32(blockSize), UncompressedSize: uint32(blockSize), MethodName: "none", CopyEnd: uint32(blockSize), OutputOffset: int64(blockSize)},
		{Index: 2, FileIndex: 0, OnDiskOffset: int64(blockSize * 2), CompressedSize: uint32(blockSize), UncompressedSize: uint32(blockSize), MethodName: "none", CopyEnd: uint32(blockSize), OutputOffset: int64(blockSize * 2)},
		{Index: 3, FileIndex: 1, OnDiskOffset: 0, CompressedSize: uint32(blockSize), UncompressedSize: uint32(blockSize), MethodName: "none", CopyEnd: uint32(blockSize), OutputOffset: int64(blockSize * 3)},
		{Index: 4, FileIndex: 1, OnDiskOffset: int64(blockSize), CompressedSize: uint32(blockSize), UncompressedSize: uint32(blockSize), MethodName: "none", CopyEnd: uint32(blockSize), OutputOffset: int64(blockSize * 4)},
	}

	req := Request{
		OutputLen: int64(blockSize * len(blocks)),
		Blocks:    blocks,
	}

	seqSrc := &fakeSource{files: [][]byte{partition0, partition1}}
	seqReq := req
	seqReq.Parallel = false
	seqOut, err := Extract(context.Background(), seqReq, seqSrc, keystore.New(), codec.NewRegistry(), nil)
	require.NoError(t, err)

	parSrc := &fakeSource{files: [][]byte{partition0, partition1}}
	parReq := req
	parReq.Parallel = true
	parOut, err := Extract(context.Background(), parReq, parSrc, keystore.New(), codec.NewRegistry(), nil)
	require.NoError(t, err)

	require.True(t, bytes.Equal(seqOut, parOut), "parallel extraction must produce byte-identical output to sequential")
	require.Equal(t, len(blocks), seqSrc.reads)
	require.Equal(t, len(blocks), parSrc.reads)
}

func TestExtractUnknownCodec(t *testing.T) {
	req := Request{
		OutputLen: 16,
		Blocks:    []Block{{CompressedSize: 16, UncompressedSize: 16, MethodName: "Oodle"}},
	}
	src := &fakeSource{files: [][]byte{make([]byte, 16)}}
	_, err := Extract(context.Background(), req, src, keystore.New(), codec.NewRegistry(), nil)
	require.Error(t, err)
	var unknown *containererrs.UnknownCodecError
	require.ErrorAs(t, err, &unknown)
}
