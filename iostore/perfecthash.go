package iostore

// buildLookup populates the legacy and perfect-hash lookup tables from
// the decoded chunk ID list and perfect-hash seed table. Call once after
// the TOC's arrays are fully decoded.
func (t *Toc) buildLookup(seeds []int32) {
	t.perfectHashSeeds = seeds
	for i, id := range t.ChunkIDs {
		t.legacyByChunkID.Set(id, i)
	}
	if len(seeds) == 0 {
		return
	}
	for i, id := range t.ChunkIDs {
		seedIndex := hashChunkID(id, 0) % uint64(len(seeds))
		seed := seeds[seedIndex]
		if seed < 0 {
			slot := int(-seed - 1)
			if slot >= 0 && slot < len(t.ChunkIDs) && t.ChunkIDs[slot] == id {
				continue
			}
			t.overflowByChunkID.Set(id, i)
		}
	}
}

// Lookup resolves a ChunkID to its index into ChunkIDs/OffsetLengths,
// preferring the perfect-hash table when one is present and falling back
// to the legacy linear map otherwise.
func (t *Toc) Lookup(id ChunkID) (int, bool) {
	if len(t.perfectHashSeeds) == 0 {
		return t.legacyByChunkID.Get(id)
	}

	seedIndex := hashChunkID(id, 0) % uint64(len(t.perfectHashSeeds))
	seed := t.perfectHashSeeds[seedIndex]
	if seed == 0 {
		return 0, false
	}
	if seed < 0 {
		slot := int(-seed - 1)
		if slot >= 0 && slot < len(t.ChunkIDs) && t.ChunkIDs[slot] == id {
			return slot, true
		}
		if idx, ok := t.overflowByChunkID.Get(id); ok {
			return idx, true
		}
		return 0, false
	}

	slot := hashChunkID(id, uint32(seed)) % uint64(len(t.ChunkIDs))
	if t.ChunkIDs[slot] == id {
		return int(slot), true
	}
	if idx, ok := t.overflowByChunkID.Get(id); ok {
		return idx, true
	}
	return 0, false
}
