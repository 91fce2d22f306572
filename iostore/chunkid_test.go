package iostore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadChunkIDRoundTrip(t *testing.T) {
	raw := []byte{0x02, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0, 0, 0}
	id := ReadChunkID(raw)
	require.Equal(t, byte(0x02), id.Type())
	require.Equal(t, uint64(0x0807060504030201), id.Index())
	require.Equal(t, "020102030405060708000000", id.String())
}

func TestHashChunkIDDependsOnSeed(t *testing.T) {
	id := ReadChunkID([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
	h0 := hashChunkID(id, 0)
	h1 := hashChunkID(id, 1)
	require.NotEqual(t, h0, h1)

	id2 := ReadChunkID([]byte{9, 9, 9, 4, 5, 6, 7, 8, 9, 10, 11, 12})
	require.NotEqual(t, hashChunkID(id, 0), hashChunkID(id2, 0))
}
