package archive

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ryanuber/go-glob"
	"k8s.io/klog/v2"

	"github.com/pakio/pakio/binreader"
	"github.com/pakio/pakio/blockpipe"
	"github.com/pakio/pakio/containererrs"
	"github.com/pakio/pakio/pak"
)

// pakArchive adapts a decoded pak.Index plus its backing file handle to
// the Archive interface.
type pakArchive struct {
	stateGuard

	path string
	cfg  *Config
	file *os.File
	fr   *binreader.FileReader
	idx  *pak.Index
}

// openPak opens path as a PAK archive and decodes its index.
func openPak(path string, cfg *Config) (Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("archive: opening pak %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("archive: stat pak %s: %w", path, err)
	}

	fr := binreader.NewFileReader(f, info.Size())
	idx, err := pak.Decode(fr, cfg.Keys)
	if err != nil {
		f.Close()
		return nil, err
	}

	a := &pakArchive{path: path, cfg: cfg, file: f, fr: fr, idx: idx}
	a.markOpen()
	klog.V(2).Infof("archive: opened pak %s (version %d, %d entries)", path, idx.Version, idx.Len())
	return a, nil
}

func (a *pakArchive) Name() string        { return a.path }
func (a *pakArchive) IsEncrypted() bool   { return a.idx.IndexEncrypted || !a.idx.EncryptionGUID.IsZero() }
func (a *pakArchive) FileCount() int      { return a.idx.Len() }
func (a *pakArchive) Version() int        { return a.idx.Version }
func (a *pakArchive) MountPoint() string  { return a.idx.MountPoint }

func (a *pakArchive) List(pattern string) ([]FileEntry, error) {
	if err := a.enter(); err != nil {
		return nil, err
	}
	defer a.leave()

	var out []FileEntry
	a.idx.Range(func(e *pak.Entry) bool {
		if pattern == "" || glob.Glob(strings.ToLower(pattern), strings.ToLower(e.Path)) {
			out = append(out, a.toFileEntry(e))
		}
		return true
	})
	return out, nil
}

func (a *pakArchive) Has(path string) bool {
	if err := a.enter(); err != nil {
		return false
	}
	defer a.leave()
	_, ok := a.idx.Lookup(path)
	return ok
}

func (a *pakArchive) Info(path string) (FileEntry, bool, error) {
	if err := a.enter(); err != nil {
		return FileEntry{}, false, err
	}
	defer a.leave()
	e, ok := a.idx.Lookup(path)
	if !ok {
		return FileEntry{}, false, nil
	}
	return a.toFileEntry(e), true, nil
}

func (a *pakArchive) Get(path string) ([]byte, error) {
	if err := a.enter(); err != nil {
		return nil, err
	}
	defer a.leave()

	e, ok := a.idx.Lookup(path)
	if !ok {
		return nil, &containererrs.FileNotFoundError{Path: path}
	}
	if a.cfg.MaxFileSize > 0 && uint64(e.UncompressedSize) > a.cfg.MaxFileSize {
		return nil, &containererrs.FileTooLargeError{Size: uint64(e.UncompressedSize), Max: a.cfg.MaxFileSize}
	}

	blocks := a.idx.Plan(e)
	req := blockpipe.Request{
		GUID:      a.idx.EncryptionGUID,
		Encrypted: e.Encrypted,
		Blocks:    blocks,
		OutputLen: e.UncompressedSize,
		Parallel:  a.cfg.ParallelExtraction,
	}
	return blockpipe.Extract(context.Background(), req, &singleFileSource{r: a.fr}, a.cfg.Keys, a.cfg.Codecs, a.cfg.BlockCache)
}

func (a *pakArchive) Close() error {
	a.mu.RLock()
	alreadyClosed := a.current == stateClosed
	a.mu.RUnlock()
	if alreadyClosed {
		return nil
	}
	a.closeGuard()
	if a.cfg.BlockCache != nil {
		a.cfg.BlockCache.Close()
	}
	return a.file.Close()
}

func (a *pakArchive) toFileEntry(e *pak.Entry) FileEntry {
	return FileEntry{
		Path:              e.Path,
		UncompressedSize:  e.UncompressedSize,
		CompressedSize:    e.CompressedSize,
		Compressed:        e.CompressionMethodIndex != 0,
		Encrypted:         e.Encrypted,
		CompressionMethod: a.idx.MethodName(e.CompressionMethodIndex),
	}
}

// singleFileSource adapts a single binreader.FileReader (fileIndex is
// always 0) to blockpipe.FileSource, for the PAK's one-file layout.
type singleFileSource struct {
	r *binreader.FileReader
}

func (s *singleFileSource) ReadAt(_ context.Context, fileIndex int, offset int64, n int) ([]byte, error) {
	if fileIndex != 0 {
		return nil, &containererrs.PartitionMissingError{Index: fileIndex}
	}
	return s.r.ReadAt(offset, n)
}
