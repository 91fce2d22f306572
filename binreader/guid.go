package binreader

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// GUID is a 128-bit container/key identifier, laid out on disk as
// u32 d1 | u16 d2 | u16 d3 | u8[8] d4 and canonicalized on print as
// lowercase hyphenated hex via google/uuid.
type GUID [16]byte

// Zero is the reserved all-zeros GUID meaning "not encrypted".
var Zero GUID

// IsZero reports whether g is the reserved all-zeros GUID.
func (g GUID) IsZero() bool { return g == Zero }

// String renders g in canonical xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx form.
func (g GUID) String() string {
	return uuid.UUID(g).String()
}

// ParseGUID accepts the canonical hyphenated hex form, or any other textual
// form google/uuid's Parse accepts (such as 32 hex digits without hyphens).
// Raw 16-byte binary input is not accepted.
func ParseGUID(s string) (GUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return GUID{}, err
	}
	return GUID(u), nil
}

// ReadGUID decodes the on-disk d1|d2|d3|d4 layout from buf (must be 16
// bytes). d1/d2/d3 are stored on disk little-endian but google/uuid's
// byte layout (and the canonical hex form String delegates to) is
// big-endian for those same fields, so each is byte-swapped on the way
// in; d4 is opaque bytes and copied verbatim. This keeps ReadGUID and
// ParseGUID producing identical GUID values for the same logical GUID.
func ReadGUID(buf []byte) GUID {
	_ = buf[15]
	var g GUID
	binary.BigEndian.PutUint32(g[0:4], binary.LittleEndian.Uint32(buf[0:4]))
	binary.BigEndian.PutUint16(g[4:6], binary.LittleEndian.Uint16(buf[4:6]))
	binary.BigEndian.PutUint16(g[6:8], binary.LittleEndian.Uint16(buf[6:8]))
	copy(g[8:16], buf[8:16])
	return g
}

// ReadGUID reads a 16-byte GUID from the cursor.
func (b *Buffer) ReadGUID() (GUID, error) {
	buf, err := b.ReadBytes(16)
	if err != nil {
		return GUID{}, err
	}
	return ReadGUID(buf), nil
}
