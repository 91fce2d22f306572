package pak

import (
	"github.com/pakio/pakio/binreader"
	"github.com/pakio/pakio/containererrs"
)

// Magic is the PAK footer's fixed magic number.
const Magic uint32 = 0x5A6F12E1

// footer is the decoded trailer, common across versions; later versions
// append extra fields after the base prefix rather than reordering it, so
// the base layout is always readable once the right total footer size
// has been located.
type footer struct {
	guid            binreader.GUID
	encryptedIndex  bool
	version         int
	indexOffset     int64
	indexSize       int64
	indexHash       [20]byte
	frozenIndex     bool
	compressionMethodNames []string
	perBlockEncryption     bool
}

// candidateFooterSizes lists every footer size this decoder recognizes,
// tried largest/most-specific first so that a well-formed modern footer
// is found on the first attempt.
var candidateFooterSizes = []int{227, 62, 61, 44}

const (
	baseFooterNoGUIDSize = 4 + 4 + 8 + 8 + 20        // v1-v2: magic,version,offset,size,hash
	baseFooterSize       = 4 + 16 + 1 + 4 + 8 + 8 + 20 // v3+: magic,guid,encFlag,version,offset,size,hash (61)
)

func footerSizeForVersion(version int) int {
	switch {
	case version <= 2:
		return baseFooterNoGUIDSize
	case version <= 6:
		return baseFooterSize
	case version <= 8:
		return baseFooterSize + 1 // frozen index flag
	default:
		// frozen index flag + compression method name table (count + 5*32) + per-block encryption flag
		return baseFooterSize + 1 + (4 + 5*32) + 1
	}
}

// locateFooter tries each candidate size, accepting the first one whose
// magic matches and whose embedded version is internally consistent with
// that candidate's size.
func locateFooter(fr *binreader.FileReader) (*footer, error) {
	fileSize := fr.Size()

	var lastErr error
	for _, size := range candidateFooterSizes {
		if int64(size) > fileSize {
			continue
		}
		footerStart := fileSize - int64(size)
		buf, err := fr.ReadAt(footerStart, size)
		if err != nil {
			lastErr = err
			continue
		}

		f, parseErr := parseFooterBuffer(buf)
		if parseErr != nil {
			lastErr = parseErr
			continue
		}
		if footerSizeForVersion(f.version) != size {
			lastErr = &containererrs.FormatError{Context: "footer size does not match embedded version"}
			continue
		}
		return f, nil
	}
	if lastErr == nil {
		lastErr = &containererrs.FormatError{Context: "no candidate footer size matched file"}
	}
	return nil, &containererrs.FormatError{Context: "PAK footer magic not found", Cause: lastErr}
}

// parseFooterBuffer reads the version-agnostic base prefix; if the
// version turns out to need trailing fields, those are parsed too
// provided buf is long enough (the caller already sized the read to the
// candidate footer size).
func parseFooterBuffer(buf []byte) (*footer, error) {
	if len(buf) < 4 {
		return nil, &containererrs.FormatError{Context: "footer shorter than magic"}
	}
	b := binreader.NewBuffer(buf)
	magic, err := b.ReadU32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, &containererrs.FormatError{Context: "bad PAK magic"}
	}

	f := &footer{}

	if len(buf) == baseFooterNoGUIDSize {
		version, err := b.ReadU32()
		if err != nil {
			return nil, err
		}
		f.version = int(version)
		if f.version < 1 || f.version > 2 {
			return nil, &containererrs.FormatError{Context: "version/footer-size mismatch for unversioned-GUID footer"}
		}
	} else {
		guid, err := b.ReadGUID()
		if err != nil {
			return nil, err
		}
		f.guid = guid
		encFlag, err := b.ReadU8()
		if err != nil {
			return nil, err
		}
		f.encryptedIndex = encFlag != 0
		version, err := b.ReadU32()
		if err != nil {
			return nil, err
		}
		f.version = int(version)
	}

	indexOffset, err := b.ReadI64()
	if err != nil {
		return nil, err
	}
	f.indexOffset = indexOffset

	indexSize, err := b.ReadI64()
	if err != nil {
		return nil, err
	}
	f.indexSize = indexSize

	hashBytes, err := b.ReadBytes(20)
	if err != nil {
		return nil, err
	}
	copy(f.indexHash[:], hashBytes)

	if f.version >= 7 {
		frozen, err := b.ReadU8()
		if err != nil {
			return nil, err
		}
		f.frozenIndex = frozen != 0
	}
	if f.version >= 9 {
		count, err := b.ReadU32()
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, count)
		for i := uint32(0); i < count; i++ {
			nameBuf, err := b.ReadBytes(32)
			if err != nil {
				return nil, err
			}
			names = append(names, nullTerminatedString(nameBuf))
		}
		f.compressionMethodNames = names

		perBlock, err := b.ReadU8()
		if err != nil {
			return nil, err
		}
		f.perBlockEncryption = perBlock != 0
	}

	if f.version < 1 || f.version > 11 {
		return nil, &containererrs.UnsupportedVersionError{Version: f.version}
	}

	return f, nil
}

func nullTerminatedString(buf []byte) string {
	for i, c := range buf {
		if c == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}
