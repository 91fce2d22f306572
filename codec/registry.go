// Package codec implements the name-to-decompressor registry consumed by
// the extraction pipeline. It ships "none"/""  (identity), "zlib", and
// "gzip" by default, backed by github.com/klauspost/compress rather than
// the stdlib implementations, matching the compression stack the
// retrieved example pack reaches for.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/pakio/pakio/containererrs"
)

// Decompressor decompresses src, which is known to unpack to exactly
// expectedLen bytes.
type Decompressor func(src []byte, expectedLen int) ([]byte, error)

// Registry is a name->Decompressor mapping, safe for concurrent Decompress
// calls once construction-time Register calls have finished; a single
// mutex serializes registration the way keystore.Store serializes key
// writes (infrequent, configuration-time only).
type Registry struct {
	mu    sync.RWMutex
	codec map[string]Decompressor
}

// NewRegistry returns a Registry seeded with "none"/"", "zlib", and "gzip".
func NewRegistry() *Registry {
	r := &Registry{codec: make(map[string]Decompressor)}
	r.Register("none", decompressNone)
	r.Register("", decompressNone)
	r.Register("zlib", decompressZlib)
	r.Register("gzip", decompressGzip)
	return r
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns a process-wide Registry, constructed once. Library code
// should still prefer an explicit instance passed at open time; Default is
// a convenience for simple callers and tests, per the Design Notes'
// allowance for a process-wide default alongside an explicit instance.
func Default() *Registry {
	defaultOnce.Do(func() { defaultReg = NewRegistry() })
	return defaultReg
}

// Register installs fn under the case-insensitive name, overwriting any
// previous registration (including a built-in one).
func (r *Registry) Register(name string, fn Decompressor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codec[strings.ToLower(name)] = fn
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.codec[strings.ToLower(name)]
	return ok
}

// Decompress returns exactly expectedLen bytes of decompressed data, or a
// *containererrs.CompressionError / *containererrs.UnknownCodecError.
func (r *Registry) Decompress(src []byte, expectedLen int, method string) ([]byte, error) {
	r.mu.RLock()
	fn, ok := r.codec[strings.ToLower(method)]
	r.mu.RUnlock()
	if !ok {
		return nil, &containererrs.UnknownCodecError{Name: method}
	}
	out, err := fn(src, expectedLen)
	if err != nil {
		return nil, &containererrs.CompressionError{Method: method, Cause: err}
	}
	if len(out) != expectedLen {
		return nil, &containererrs.CompressionError{
			Method: method,
			Cause:  fmt.Errorf("decompressed to %d bytes, expected %d", len(out), expectedLen),
		}
	}
	return out, nil
}

func decompressNone(src []byte, expectedLen int) ([]byte, error) {
	if len(src) < expectedLen {
		return nil, fmt.Errorf("identity codec: source shorter than expected length (%d < %d)", len(src), expectedLen)
	}
	out := make([]byte, expectedLen)
	copy(out, src[:expectedLen])
	return out, nil
}

func decompressZlib(src []byte, expectedLen int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return readExact(zr, expectedLen)
}

func decompressGzip(src []byte, expectedLen int) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	return readExact(gr, expectedLen)
}

func readExact(r io.Reader, expectedLen int) ([]byte, error) {
	out := make([]byte, expectedLen)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}
