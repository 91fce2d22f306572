package keystore

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pakio/pakio/binreader"
)

func mustGUID(t *testing.T, s string) binreader.GUID {
	t.Helper()
	g, err := binreader.ParseGUID(s)
	require.NoError(t, err)
	return g
}

func TestPutGetRoundTrip(t *testing.T) {
	s := New()
	guid := mustGUID(t, "11111111-1111-1111-1111-111111111111")
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	require.NoError(t, s.Put(guid, key))

	got, ok := s.Get(guid)
	require.True(t, ok)
	require.Equal(t, key, got)
}

func TestPutRejectsWrongLength(t *testing.T) {
	s := New()
	guid := mustGUID(t, "11111111-1111-1111-1111-111111111111")
	require.Error(t, s.Put(guid, []byte{1, 2, 3}))
}

func TestGetMissing(t *testing.T) {
	s := New()
	_, ok := s.Get(binreader.GUID{})
	require.False(t, ok)
}

func TestPutHex(t *testing.T) {
	s := New()
	guid := mustGUID(t, "11111111-1111-1111-1111-111111111111")
	hexKey := strings.Repeat("ab", KeySize)
	require.NoError(t, s.PutHex(guid, "0x"+hexKey))
	got, ok := s.Get(guid)
	require.True(t, ok)
	require.Equal(t, byte(0xab), got[0])
}

func TestBulkPut(t *testing.T) {
	s := New()
	g1 := mustGUID(t, "11111111-1111-1111-1111-111111111111")
	g2 := mustGUID(t, "22222222-2222-2222-2222-222222222222")
	require.NoError(t, s.BulkPut(map[binreader.GUID][]byte{
		g1: make([]byte, KeySize),
		g2: make([]byte, KeySize),
	}))
	require.Equal(t, 2, s.Len())
}

// TestConcurrentPutGetAtomicity exercises the key-store atomicity
// invariant: a concurrent Get during an in-flight Put must observe
// either the whole old key or the whole new key, never a mix.
func TestConcurrentPutGetAtomicity(t *testing.T) {
	s := New()
	guid := mustGUID(t, "11111111-1111-1111-1111-111111111111")
	oldKey := make([]byte, KeySize)
	newKey := make([]byte, KeySize)
	for i := range newKey {
		newKey[i] = 0xFF
	}
	require.NoError(t, s.Put(guid, oldKey))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				s.Put(guid, newKey)
			}
		}
	}()

	for i := 0; i < 10000; i++ {
		got, ok := s.Get(guid)
		require.True(t, ok)
		require.True(t, allBytesEqual(got, 0x00) || allBytesEqual(got, 0xFF), "torn read: %x", got)
	}
	close(stop)
	wg.Wait()
}

func allBytesEqual(b []byte, v byte) bool {
	for _, x := range b {
		if x != v {
			return false
		}
	}
	return true
}
