// Package archive presents a uniform read-only view over either a PAK or
// an IoStore container: list/has/info/get/close, dispatched at open time
// on the path's extension.
package archive

import (
	"sync"
	"time"

	"github.com/pakio/pakio/blockpipe"
	"github.com/pakio/pakio/codec"
	"github.com/pakio/pakio/containererrs"
	"github.com/pakio/pakio/keystore"
)

// Config carries the options recognized by the open factories.
type Config struct {
	// LoadDirectoryIndex, when true (the default), decodes an IoStore
	// directory index at open time. When false the directory index is
	// never decoded and entries are addressed by synthesized chunk names.
	LoadDirectoryIndex bool
	// MaxFileSize is an advisory cap; Get on an entry larger than this
	// fails with FileTooLargeError. Zero means unbounded.
	MaxFileSize uint64
	// Verbose is recorded but not consulted by the archives or the
	// pipeline; their klog.V(2) tracing follows klog's own verbosity
	// setting whatever this field holds.
	Verbose bool
	// ParallelExtraction, when true, decodes a Get's covering blocks
	// concurrently via errgroup instead of one at a time. The assembled
	// output is byte-identical either way.
	ParallelExtraction bool

	Keys       *keystore.Store
	Codecs     *codec.Registry
	BlockCache *blockpipe.Cache
}

// Option configures a Config at open time.
type Option func(*Config)

// WithKeyStore supplies the key store consulted for encrypted containers.
func WithKeyStore(ks *keystore.Store) Option { return func(c *Config) { c.Keys = ks } }

// WithCodecRegistry supplies the codec registry consulted for decompression.
func WithCodecRegistry(r *codec.Registry) Option { return func(c *Config) { c.Codecs = r } }

// WithMaxFileSize sets the advisory MaxFileSize.
func WithMaxFileSize(n uint64) Option { return func(c *Config) { c.MaxFileSize = n } }

// WithVerbose sets Config.Verbose, which does not change tracing output.
func WithVerbose(v bool) Option { return func(c *Config) { c.Verbose = v } }

// WithoutDirectoryIndex skips IoStore directory-index decoding; entries are
// then listed and resolved by synthesized chunk name only.
func WithoutDirectoryIndex() Option { return func(c *Config) { c.LoadDirectoryIndex = false } }

// WithParallelExtraction decodes a Get's covering blocks concurrently
// rather than sequentially. Safe for any container; only pays off when
// entries span several blocks.
func WithParallelExtraction() Option {
	return func(c *Config) { c.ParallelExtraction = true }
}

// WithBlockCache enables a bounded, TTL-expiring cache of decoded blocks
// shared across every Get on the archive, holding up to capacity entries
// and expiring each ttl after insertion. The archive's Close stops the
// cache's background eviction goroutine.
func WithBlockCache(capacity uint64, ttl time.Duration) Option {
	return func(c *Config) { c.BlockCache = blockpipe.NewCache(capacity, ttl) }
}

func newConfig(opts []Option) *Config {
	c := &Config{LoadDirectoryIndex: true}
	for _, opt := range opts {
		opt(c)
	}
	if c.Keys == nil {
		c.Keys = keystore.New()
	}
	if c.Codecs == nil {
		c.Codecs = codec.Default()
	}
	return c
}

// FileEntry is the facade's unified view of one container entry,
// abstracting over a PakEntry or an IoStore ChunkId.
type FileEntry struct {
	Path                 string
	UncompressedSize     int64
	CompressedSize       int64
	Compressed           bool
	Encrypted            bool
	CompressionMethod    string
	synthesizedPath      bool
}

// state is the archive's lifecycle: Opening -> Open -> Closed.
type state int

const (
	stateOpening state = iota
	stateOpen
	stateClosed
)

// Archive is the uniform read-only interface exposed over either
// container family.
type Archive interface {
	Name() string
	IsEncrypted() bool
	FileCount() int
	Version() int
	MountPoint() string

	List(glob string) ([]FileEntry, error)
	Has(path string) bool
	Info(path string) (FileEntry, bool, error)
	Get(path string) ([]byte, error)

	Close() error
}

// stateGuard is embedded by both concrete archives to share the
// Opening/Open/Closed transition logic and its guard against concurrent
// close-while-in-flight.
type stateGuard struct {
	mu      sync.RWMutex
	current state
	wg      sync.WaitGroup
}

func (g *stateGuard) markOpen() {
	g.mu.Lock()
	g.current = stateOpen
	g.mu.Unlock()
}

// enter registers an in-flight operation; it fails with ClosedError once
// the archive has transitioned to Closed.
func (g *stateGuard) enter() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.current == stateClosed {
		return &containererrs.ClosedError{}
	}
	g.wg.Add(1)
	return nil
}

func (g *stateGuard) leave() { g.wg.Done() }

// closeGuard transitions to Closed, idempotently, waiting for in-flight
// operations registered via enter to drain first.
func (g *stateGuard) closeGuard() {
	g.mu.Lock()
	if g.current == stateClosed {
		g.mu.Unlock()
		return
	}
	g.current = stateClosed
	g.mu.Unlock()
	g.wg.Wait()
}
