// Package binreader provides little-endian primitive reads over a fixed
// buffer or a random-access file, with bounded slice reads that never
// return a short result silently.
package binreader

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ShortReadError is returned whenever a read would run past the end of
// the underlying buffer or file.
type ShortReadError struct {
	Offset int64
	Want   int
	Got    int
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("short read at offset %d: wanted %d bytes, got %d", e.Offset, e.Want, e.Got)
}

// Buffer is a cursor over an in-memory byte slice.
type Buffer struct {
	buf []byte
	pos int
}

// NewBuffer wraps buf for sequential little-endian reads starting at offset 0.
func NewBuffer(buf []byte) *Buffer {
	return &Buffer{buf: buf}
}

// Len returns the number of unread bytes remaining.
func (b *Buffer) Len() int { return len(b.buf) - b.pos }

// Pos returns the current cursor position.
func (b *Buffer) Pos() int { return b.pos }

// Seek repositions the cursor to an absolute offset.
func (b *Buffer) Seek(off int) error {
	if off < 0 || off > len(b.buf) {
		return &ShortReadError{Offset: int64(off), Want: 0, Got: len(b.buf)}
	}
	b.pos = off
	return nil
}

// ReadBytes advances the cursor by n and returns a slice of exactly n bytes.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	if n < 0 || b.pos+n > len(b.buf) {
		return nil, &ShortReadError{Offset: int64(b.pos), Want: n, Got: b.Len()}
	}
	out := b.buf[b.pos : b.pos+n]
	b.pos += n
	return out, nil
}

// ReadAt performs a non-mutating absolute read of n bytes at offset.
func (b *Buffer) ReadAt(offset, n int) ([]byte, error) {
	if offset < 0 || n < 0 || offset+n > len(b.buf) {
		got := len(b.buf) - offset
		if got < 0 {
			got = 0
		}
		return nil, &ShortReadError{Offset: int64(offset), Want: n, Got: got}
	}
	return b.buf[offset : offset+n], nil
}

func (b *Buffer) ReadU8() (uint8, error) {
	v, err := b.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

func (b *Buffer) ReadU16() (uint16, error) {
	v, err := b.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(v), nil
}

func (b *Buffer) ReadU32() (uint32, error) {
	v, err := b.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(v), nil
}

func (b *Buffer) ReadU64() (uint64, error) {
	v, err := b.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(v), nil
}

func (b *Buffer) ReadI32() (int32, error) {
	v, err := b.ReadU32()
	return int32(v), err
}

func (b *Buffer) ReadI64() (int64, error) {
	v, err := b.ReadU64()
	return int64(v), err
}

// ReadU40 decodes a 5-byte little-endian integer, zero-extended to 64 bits.
func (b *Buffer) ReadU40() (uint64, error) {
	v, err := b.ReadBytes(5)
	if err != nil {
		return 0, err
	}
	return Uint40(v), nil
}

// ReadU24 decodes a 3-byte little-endian integer, zero-extended to 32 bits.
func (b *Buffer) ReadU24() (uint32, error) {
	v, err := b.ReadBytes(3)
	if err != nil {
		return 0, err
	}
	return Uint24(v), nil
}

// Uint40 decodes a 5-byte little-endian buffer, zero-extended to 64 bits.
// It panics if len(buf) < 5 and ignores any bytes past the fifth; callers
// that need bounds checking should go through Buffer.ReadU40 instead.
func Uint40(buf []byte) uint64 {
	_ = buf[4]
	var tmp [8]byte
	copy(tmp[:5], buf)
	return binary.LittleEndian.Uint64(tmp[:])
}

// Uint24 decodes a 3-byte little-endian buffer, zero-extended to 32 bits.
func Uint24(buf []byte) uint32 {
	_ = buf[2]
	var tmp [4]byte
	copy(tmp[:3], buf)
	return binary.LittleEndian.Uint32(tmp[:])
}

// PutUint40 encodes v into a 5-byte little-endian buffer. v must fit in 40 bits.
func PutUint40(buf []byte, v uint64) {
	_ = buf[4]
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	copy(buf, tmp[:5])
}

// AlignUp16 rounds n up to the next multiple of 16.
func AlignUp16(n uint64) uint64 {
	return n + (16-(n%16))%16
}

// FileReader performs bounded, non-mutating positional reads against a
// random-access file handle (or anything exposing io.ReaderAt).
type FileReader struct {
	r    io.ReaderAt
	size int64
}

// NewFileReader wraps r, whose total addressable size is size. Size reports
// it (the PAK decoder uses it to locate the trailer); ReadAt does not check
// reads against it and relies on what r.ReadAt itself returns.
func NewFileReader(r io.ReaderAt, size int64) *FileReader {
	return &FileReader{r: r, size: size}
}

// ReadAt reads exactly n bytes at absolute offset off.
func (f *FileReader) ReadAt(off int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := f.r.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("binreader: read at %d: %w", off, err)
	}
	if got != n {
		return nil, &ShortReadError{Offset: off, Want: n, Got: got}
	}
	return buf, nil
}

// ReadU32At reads a little-endian uint32 at absolute offset off.
func (f *FileReader) ReadU32At(off int64) (uint32, error) {
	b, err := f.ReadAt(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64At reads a little-endian uint64 at absolute offset off.
func (f *FileReader) ReadU64At(off int64) (uint64, error) {
	b, err := f.ReadAt(off, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Size returns the file's total addressable length.
func (f *FileReader) Size() int64 { return f.size }
