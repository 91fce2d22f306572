package iostore

import (
	"github.com/pakio/pakio/blockpipe"
	"github.com/pakio/pakio/containererrs"
)

// Plan computes the block-read plan blockpipe.Extract needs to materialize
// the chunk at chunkIndex's full logical bytes. Each covering compression
// block is routed to its owning partition independently, so a chunk
// spanning a partition boundary reads correctly from both files.
func (t *Toc) Plan(chunkIndex int) ([]blockpipe.Block, error) {
	if chunkIndex < 0 || chunkIndex >= len(t.OffsetLengths) {
		return nil, &containererrs.CorruptIndexError{Context: "chunk index out of range"}
	}
	ol := t.OffsetLengths[chunkIndex]
	if ol.Length == 0 || t.CompressionBlockSize == 0 {
		return nil, nil
	}

	firstBlock := ol.Offset / uint64(t.CompressionBlockSize)
	lastBlock := (ol.Offset + ol.Length - 1) / uint64(t.CompressionBlockSize)

	blocks := make([]blockpipe.Block, 0, lastBlock-firstBlock+1)
	var outputOffset int64
	encrypted := t.Flags.Has(FlagEncrypted)

	for bi := firstBlock; bi <= lastBlock; bi++ {
		if bi >= uint64(len(t.CompressionBlocks)) {
			return nil, &containererrs.CorruptIndexError{Context: "compression block index out of range"}
		}
		cb := t.CompressionBlocks[bi]

		partition := 0
		intraOffset := cb.Offset
		if t.PartitionSize != 0 && t.PartitionSize != ^uint64(0) {
			partition = int(cb.Offset / t.PartitionSize)
			intraOffset = cb.Offset % t.PartitionSize
		}

		blockLogicalStart := bi * uint64(t.CompressionBlockSize)
		copyStart := uint32(0)
		if bi == firstBlock {
			copyStart = uint32(ol.Offset - blockLogicalStart)
		}
		copyEnd := cb.UncompressedSize
		if bi == lastBlock {
			if end := uint32(ol.Offset + ol.Length - blockLogicalStart); end < copyEnd {
				copyEnd = end
			}
		}

		blocks = append(blocks, blockpipe.Block{
			Index:            int(bi - firstBlock),
			FileIndex:        partition,
			OnDiskOffset:     int64(intraOffset),
			CompressedSize:   cb.CompressedSize,
			UncompressedSize: cb.UncompressedSize,
			MethodName:       t.MethodName(cb.MethodIndex),
			Encrypted:        encrypted,
			CopyStart:        copyStart,
			CopyEnd:          copyEnd,
			OutputOffset:     outputOffset,
		})
		outputOffset += int64(copyEnd - copyStart)
	}
	return blocks, nil
}
