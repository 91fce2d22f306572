// Package blockpipe implements the shared block-read, decrypt, decompress,
// and assembly pipeline used by both the PAK and IoStore decoders to turn a
// resolved locator into the caller's requested bytes.
package blockpipe

import (
	"context"
)

// FileSource resolves a FileIndex (the PAK's single body, or an IoStore
// partition number) to a positional reader. Callers open every handle a
// request might touch before calling Extract; the pipeline never opens
// files itself.
type FileSource interface {
	// ReadAt returns exactly n bytes at offset from the file identified by
	// fileIndex, or a *containererrs.PartitionMissingError / ShortReadError.
	ReadAt(ctx context.Context, fileIndex int, offset int64, n int) ([]byte, error)
}

// Block describes one compression block covering part of a request: where
// its (possibly encrypted, possibly compressed) bytes live on disk, and
// which slice of its decompressed bytes belongs in the output.
type Block struct {
	Index            int // position within the request, for diagnostics
	FileIndex        int
	OnDiskOffset     int64
	CompressedSize   uint32
	UncompressedSize uint32
	MethodName       string
	Encrypted        bool

	// CopyStart/CopyEnd select the sub-range of this block's decompressed
	// bytes that belongs in the output; CopyEnd-CopyStart bytes are copied
	// starting at OutputOffset.
	CopyStart    uint32
	CopyEnd      uint32
	OutputOffset int64
}

func alignUp16(n uint32) int {
	return int(n) + (16-(int(n)%16))%16
}
