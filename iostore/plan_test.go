package iostore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlanRoutesBlocksAcrossPartitionBoundary(t *testing.T) {
	const partitionSize = 1 << 20    // 1 MiB
	const blockSize = 64 * 1024      // 64 KiB
	const baseOffset = 0xFFE00       // within partition 0, 512 bytes before its end
	const length = 0x40000           // 256 KiB, crosses into partition 1

	firstBlock := uint64(baseOffset) / blockSize
	lastBlock := uint64(baseOffset+length-1) / blockSize
	require.Equal(t, uint64(15), firstBlock)
	require.Equal(t, uint64(19), lastBlock)

	blocks := make([]CompressionBlock, lastBlock+1)
	for i := range blocks {
		blocks[i] = CompressionBlock{
			Offset:           uint64(i) * blockSize, // physical offset tracks logical offset 1:1 here
			CompressedSize:   blockSize,
			UncompressedSize: blockSize,
			MethodIndex:      0,
		}
	}

	toc := &Toc{
		OffsetLengths:        []OffsetAndLength{{Offset: baseOffset, Length: length}},
		CompressionBlocks:    blocks,
		CompressionMethods:   []string{"none"},
		CompressionBlockSize: blockSize,
		PartitionSize:        partitionSize,
	}

	plan, err := toc.Plan(0)
	require.NoError(t, err)
	require.Len(t, plan, int(lastBlock-firstBlock+1))

	// Last block of partition 0 (index 15) sits just before the 1 MiB mark.
	require.Equal(t, 0, plan[0].FileIndex)
	// Partition boundary falls between logical blocks 15 (ends at 1<<20) and 16.
	require.Equal(t, 1, plan[1].FileIndex)

	var total uint32
	for _, b := range plan {
		total += b.CopyEnd - b.CopyStart
	}
	require.Equal(t, uint32(length), total)
}

func TestPlanEmptyChunkReturnsNoBlocks(t *testing.T) {
	toc := &Toc{
		OffsetLengths:        []OffsetAndLength{{Offset: 0, Length: 0}},
		CompressionBlockSize: 1024,
	}
	plan, err := toc.Plan(0)
	require.NoError(t, err)
	require.Nil(t, plan)
}
