package pak

import (
	"crypto/sha1"
	"fmt"

	"github.com/pakio/pakio/aescrypt"
	"github.com/pakio/pakio/binreader"
	"github.com/pakio/pakio/containererrs"
	"github.com/pakio/pakio/keystore"
)

// relativeCompressionOffsetsVersion is the first version (the
// "Relative-Compression-Offsets" variant) whose per-entry block spans are
// stored relative to the entry body rather than as absolute file offsets.
const relativeCompressionOffsetsVersion = 8

// EntryHeaderSize returns the size, in bytes, of the per-entry header
// that precedes an entry's compressed body on disk -- offset, compressed
// size, uncompressed size, compression method index, SHA-1 hash,
// encrypted flag, and (when compressed) the block-span table.
func EntryHeaderSize(compressed bool, blockCount int) int64 {
	const base = 8 + 8 + 8 + 4 + 20 + 1
	if !compressed {
		return base
	}
	return base + 4 + int64(blockCount)*16
}

// Decode parses a complete PAK archive via fr, consulting keys to decrypt
// an encrypted index when required.
func Decode(fr *binreader.FileReader, keys *keystore.Store) (*Index, error) {
	f, err := locateFooter(fr)
	if err != nil {
		return nil, err
	}
	if f.version < 3 {
		// Versions 1-2 predate the documented index layout this decoder
		// targets; refuse explicitly rather than guess.
		return nil, &containererrs.UnsupportedVersionError{Version: f.version}
	}

	readSize := f.indexSize
	if f.encryptedIndex {
		// On-disk ciphertext is padded up to the next AES block boundary;
		// indexSize itself records the true post-decryption length.
		readSize = int64(binreader.AlignUp16(uint64(f.indexSize)))
	}
	raw, err := fr.ReadAt(f.indexOffset, int(readSize))
	if err != nil {
		return nil, fmt.Errorf("pak: reading index blob: %w", err)
	}

	if f.encryptedIndex && !f.guid.IsZero() {
		key, ok := keys.Get(f.guid)
		if !ok {
			return nil, &containererrs.KeyMissingError{GUID: f.guid.String()}
		}
		decrypted, err := aescrypt.DecryptECB(raw, key)
		if err != nil {
			return nil, err
		}
		if int64(len(decrypted)) < f.indexSize {
			return nil, &containererrs.CorruptIndexError{Context: "decrypted index shorter than recorded size"}
		}
		raw = decrypted[:f.indexSize]
	}

	return decodeIndexBlob(raw, f)
}

func decodeIndexBlob(raw []byte, f *footer) (*Index, error) {
	b := binreader.NewBuffer(raw)

	mountPoint, err := readLengthPrefixedString(b)
	if err != nil {
		return nil, fmt.Errorf("pak: reading mount point: %w", err)
	}

	entryCount, err := b.ReadU32()
	if err != nil {
		return nil, fmt.Errorf("pak: reading entry count: %w", err)
	}

	ix := &Index{
		Version:             f.version,
		MountPoint:           mountPoint,
		EncryptionGUID:       f.guid,
		IndexEncrypted:       f.encryptedIndex,
		CompressionMethods:   f.compressionMethodNames,
		entriesByLowerPath:   make(map[string]*Entry, entryCount),
		order:                make([]string, 0, entryCount),
	}
	if f.version >= relativeCompressionOffsetsVersion {
		// Version-dependent default; may be overridden below once the
		// first compressed entry reveals the container's actual block size.
		ix.CompressionBlockSize = 64 * 1024
	}

	relative := f.version >= relativeCompressionOffsetsVersion

	for i := uint32(0); i < entryCount; i++ {
		path, err := readLengthPrefixedString(b)
		if err != nil {
			return nil, fmt.Errorf("pak: reading entry %d path: %w", i, err)
		}

		entry, blockSize, err := decodeEntry(b, relative)
		if err != nil {
			return nil, fmt.Errorf("pak: reading entry %d (%s): %w", i, path, err)
		}
		entry.Path = mountPoint + path

		if blockSize > 0 {
			ix.CompressionBlockSize = blockSize
		}
		if entry.Encrypted && entry.CompressedSize%16 != 0 {
			return nil, &containererrs.CorruptIndexError{Context: fmt.Sprintf("entry %s: encrypted compressed size not 16-aligned", entry.Path)}
		}
		for _, span := range entry.Blocks {
			if entry.Encrypted && (span.End-span.Start)%16 != 0 {
				return nil, &containererrs.CorruptIndexError{Context: fmt.Sprintf("entry %s: encrypted block span not 16-aligned", entry.Path)}
			}
		}

		lower := normalizePath(entry.Path)
		ix.entriesByLowerPath[lower] = entry
		ix.order = append(ix.order, lower)
	}

	return ix, nil
}

// decodeEntry reads one file record. relative selects the
// Relative-Compression-Offsets (v8+) layout, whose block spans (and,
// nominally, other offset fields) are stored relative to the entry body
// rather than as absolute file offsets.
func decodeEntry(b *binreader.Buffer, relative bool) (*Entry, uint32, error) {
	offset, err := b.ReadI64()
	if err != nil {
		return nil, 0, err
	}
	compressedSize, err := b.ReadI64()
	if err != nil {
		return nil, 0, err
	}
	uncompressedSize, err := b.ReadI64()
	if err != nil {
		return nil, 0, err
	}
	methodIndex, err := b.ReadU32()
	if err != nil {
		return nil, 0, err
	}
	hashBuf, err := b.ReadBytes(sha1.Size)
	if err != nil {
		return nil, 0, err
	}

	e := &Entry{
		Offset:                 offset,
		UncompressedSize:       uncompressedSize,
		CompressedSize:         compressedSize,
		CompressionMethodIndex: methodIndex,
	}
	copy(e.Hash[:], hashBuf)

	var blockSize uint32
	if methodIndex != 0 {
		blockCount, err := b.ReadU32()
		if err != nil {
			return nil, 0, err
		}
		blocks := make([]BlockSpan, blockCount)
		bodyStart := uint64(0)
		if !relative {
			bodyStart = uint64(offset) + uint64(EntryHeaderSize(true, int(blockCount)))
		}
		for i := range blocks {
			start, err := b.ReadU64()
			if err != nil {
				return nil, 0, err
			}
			end, err := b.ReadU64()
			if err != nil {
				return nil, 0, err
			}
			if relative {
				blocks[i] = BlockSpan{Start: start, End: end}
			} else {
				if start < bodyStart || end < start {
					return nil, 0, &containererrs.CorruptIndexError{Context: "compression block span out of range"}
				}
				blocks[i] = BlockSpan{Start: start - bodyStart, End: end - bodyStart}
			}
		}
		e.Blocks = blocks

		bs, err := b.ReadU32()
		if err != nil {
			return nil, 0, err
		}
		blockSize = bs
	}

	encFlag, err := b.ReadU8()
	if err != nil {
		return nil, 0, err
	}
	e.Encrypted = encFlag != 0

	return e, blockSize, nil
}

func readLengthPrefixedString(b *binreader.Buffer) (string, error) {
	n, err := b.ReadU32()
	if err != nil {
		return "", err
	}
	buf, err := b.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}
