package pak

import "github.com/pakio/pakio/blockpipe"

// Plan computes the block-read plan blockpipe.Extract needs to materialize
// e's full uncompressed bytes.
func (ix *Index) Plan(e *Entry) []blockpipe.Block {
	bodyStart := e.Offset + EntryHeaderSize(e.CompressionMethodIndex != 0, len(e.Blocks))
	methodName := ix.MethodName(e.CompressionMethodIndex)

	if e.CompressionMethodIndex == 0 {
		return []blockpipe.Block{{
			Index:            0,
			FileIndex:        0,
			OnDiskOffset:     bodyStart,
			CompressedSize:   uint32(e.CompressedSize),
			UncompressedSize: uint32(e.UncompressedSize),
			MethodName:       "none",
			Encrypted:        e.Encrypted,
			CopyStart:        0,
			CopyEnd:          uint32(e.UncompressedSize),
			OutputOffset:     0,
		}}
	}

	blocks := make([]blockpipe.Block, len(e.Blocks))
	var outputOffset int64
	remaining := e.UncompressedSize
	for i, span := range e.Blocks {
		uncompressed := ix.CompressionBlockSize
		if int64(uncompressed) > remaining {
			uncompressed = uint32(remaining)
		}
		blocks[i] = blockpipe.Block{
			Index:            i,
			FileIndex:        0,
			OnDiskOffset:     bodyStart + int64(span.Start),
			CompressedSize:   uint32(span.End - span.Start),
			UncompressedSize: uncompressed,
			MethodName:       methodName,
			Encrypted:        e.Encrypted,
			CopyStart:        0,
			CopyEnd:          uncompressed,
			OutputOffset:     outputOffset,
		}
		outputOffset += int64(uncompressed)
		remaining -= int64(uncompressed)
	}
	return blocks
}
