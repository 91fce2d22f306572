package iostore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// buildSeedTable brute-forces a valid two-level perfect-hash seed table for
// the given chunk IDs, mirroring how a real TOC writer would have produced
// one: chunks sharing a seed_index bucket get a positive seed such that
// hash(id, seed) relocates each to its own true array index; singleton
// buckets use a direct negative-seed slot.
func buildSeedTable(t *testing.T, ids []ChunkID) []int32 {
	t.Helper()
	n := len(ids)
	seeds := make([]int32, n)
	buckets := make(map[uint64][]int)
	for i, id := range ids {
		b := hashChunkID(id, 0) % uint64(n)
		buckets[b] = append(buckets[b], i)
	}
	for bucket, members := range buckets {
		if len(members) == 1 {
			seeds[bucket] = -(int32(members[0]) + 1)
			continue
		}
		found := false
		for s := uint32(1); s < 1_000_000 && !found; s++ {
			ok := true
			for _, m := range members {
				if hashChunkID(ids[m], s)%uint64(n) != uint64(m) {
					ok = false
					break
				}
			}
			if ok {
				seeds[bucket] = int32(s)
				found = true
			}
		}
		require.True(t, found, "could not find a seed for bucket %d", bucket)
	}
	return seeds
}

func TestPerfectHashLookupHitAndMiss(t *testing.T) {
	ids := []ChunkID{
		ReadChunkID([]byte{1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}),
		ReadChunkID([]byte{1, 2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}),
		ReadChunkID([]byte{1, 3, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}),
	}
	seeds := buildSeedTable(t, ids)

	toc := &Toc{ChunkIDs: ids}
	toc.buildLookup(seeds)

	for i, id := range ids {
		idx, ok := toc.Lookup(id)
		require.True(t, ok, "chunk %d should be found", i)
		require.Equal(t, i, idx)
	}

	missing := ReadChunkID([]byte{1, 9, 9, 9, 0, 0, 0, 0, 0, 0, 0, 0})
	_, ok := toc.Lookup(missing)
	require.False(t, ok)
}

func TestLegacyLookupWithoutPerfectHash(t *testing.T) {
	ids := []ChunkID{
		ReadChunkID([]byte{2, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}),
		ReadChunkID([]byte{2, 2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}),
	}
	toc := &Toc{ChunkIDs: ids}
	toc.buildLookup(nil)

	idx, ok := toc.Lookup(ids[1])
	require.True(t, ok)
	require.Equal(t, 1, idx)

	_, ok = toc.Lookup(ReadChunkID([]byte{9, 9, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}))
	require.False(t, ok)
}
