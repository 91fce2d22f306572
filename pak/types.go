// Package pak decodes the legacy PAK single-file archive format: the
// trailer footer, the mount point, and the file-record index, for format
// versions 3 through 11. Footers of versions 1 and 2 are recognized, but
// Decode rejects them with an UnsupportedVersionError.
package pak

import (
	"strings"

	"github.com/pakio/pakio/binreader"
)

// BlockSpan is one compression block's [start,end) byte range, relative
// to the entry's data-body start (i.e. immediately after that entry's
// per-entry header, which duplicates some of the index's fields on disk).
type BlockSpan struct {
	Start uint64
	End   uint64
}

// Entry is one file record in a PakIndex.
type Entry struct {
	Path                   string // original casing, as read from the index
	Offset                 int64  // absolute offset of the entry's on-disk header
	UncompressedSize       int64
	CompressedSize         int64
	CompressionMethodIndex uint32 // 0 = none
	Encrypted              bool
	Hash                   [20]byte
	Blocks                 []BlockSpan // only populated when CompressionMethodIndex != 0
}

// Index is the fully decoded, read-only form of a PAK archive's index.
type Index struct {
	Version               int
	MountPoint             string
	EncryptionGUID         binreader.GUID
	IndexEncrypted         bool
	CompressionBlockSize   uint32
	CompressionMethods     []string // indexed from 1; index 0 is implicitly "none"
	entriesByLowerPath     map[string]*Entry
	order                  []string // lower-cased paths in index order, for stable listing
}

// MethodName resolves a compression-method index to its registered name.
func (ix *Index) MethodName(methodIndex uint32) string {
	if methodIndex == 0 {
		return "none"
	}
	i := int(methodIndex) - 1
	if i < 0 || i >= len(ix.CompressionMethods) {
		return ""
	}
	return ix.CompressionMethods[i]
}

// Lookup returns the entry for a logical path, matched case-insensitively.
func (ix *Index) Lookup(path string) (*Entry, bool) {
	e, ok := ix.entriesByLowerPath[normalizePath(path)]
	return e, ok
}

// Len returns the number of entries in the index.
func (ix *Index) Len() int { return len(ix.order) }

// Range calls fn for every entry in index order, stopping early if fn
// returns false.
func (ix *Index) Range(fn func(e *Entry) bool) {
	for _, lower := range ix.order {
		if !fn(ix.entriesByLowerPath[lower]) {
			return
		}
	}
}

func normalizePath(p string) string {
	return strings.ToLower(p)
}
