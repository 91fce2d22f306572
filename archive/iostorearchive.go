package archive

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ryanuber/go-glob"
	"k8s.io/klog/v2"

	"github.com/pakio/pakio/blockpipe"
	"github.com/pakio/pakio/containererrs"
	"github.com/pakio/pakio/iostore"
)

// iostoreArchive adapts a decoded iostore.Toc plus its open CAS partition
// handles to the Archive interface. Logical paths are only available
// through the directory index; without one, entries are addressed by a
// synthesized chunk_{hex}.uasset name, per the spec's documented fallback.
type iostoreArchive struct {
	stateGuard

	basePath   string
	cfg        *Config
	partitions []*os.File
	toc        *iostore.Toc

	pathToChunk map[string]int
}

// openIoStore opens basePath+".utoc" and every referenced CAS partition.
func openIoStore(basePath string, cfg *Config) (Archive, error) {
	tocPath := basePath + ".utoc"
	raw, err := os.ReadFile(tocPath)
	if err != nil {
		return nil, fmt.Errorf("archive: reading toc %s: %w", tocPath, err)
	}
	toc, err := iostore.DecodeToc(raw)
	if err != nil {
		return nil, err
	}

	partitionCount := toc.PartitionCount
	if partitionCount < 1 {
		partitionCount = 1
	}
	partitions := make([]*os.File, partitionCount)
	for i := 0; i < partitionCount; i++ {
		path := basePath + ".ucas"
		if i > 0 {
			path = fmt.Sprintf("%s_s%d.ucas", basePath, i)
		}
		f, err := os.Open(path)
		if err != nil {
			for _, opened := range partitions {
				if opened != nil {
					opened.Close()
				}
			}
			return nil, fmt.Errorf("archive: opening partition %s: %w", path, err)
		}
		partitions[i] = f
	}

	a := &iostoreArchive{basePath: basePath, cfg: cfg, partitions: partitions, toc: toc}
	if cfg.LoadDirectoryIndex {
		a.buildPathIndex()
	}
	a.markOpen()
	klog.V(2).Infof("archive: opened iostore %s (%d chunks, %d partitions)", basePath, toc.EntryCount(), partitionCount)
	return a, nil
}

func (a *iostoreArchive) buildPathIndex() {
	entries, err := a.toc.ListFiles()
	if err != nil || len(entries) == 0 {
		return
	}
	a.pathToChunk = make(map[string]int, len(entries))
	for _, e := range entries {
		a.pathToChunk[strings.ToLower(e.Path)] = e.ChunkIndex
	}
}

func (a *iostoreArchive) synthesizedPathFor(i int) string {
	return fmt.Sprintf("chunk_%s.uasset", a.toc.ChunkIDs[i].String())
}

func (a *iostoreArchive) resolve(path string) (int, bool) {
	lower := strings.ToLower(path)
	if a.pathToChunk != nil {
		if idx, ok := a.pathToChunk[lower]; ok {
			return idx, true
		}
	}
	for i := range a.toc.ChunkIDs {
		if strings.ToLower(a.synthesizedPathFor(i)) == lower {
			return i, true
		}
	}
	return 0, false
}

func (a *iostoreArchive) pathForChunk(i int) string {
	if a.pathToChunk != nil {
		for p, idx := range a.pathToChunk {
			if idx == i {
				return p
			}
		}
	}
	return a.synthesizedPathFor(i)
}

func (a *iostoreArchive) Name() string       { return a.basePath }
func (a *iostoreArchive) IsEncrypted() bool  { return a.toc.Flags.Has(iostore.FlagEncrypted) }
func (a *iostoreArchive) FileCount() int     { return a.toc.EntryCount() }
func (a *iostoreArchive) Version() int       { return int(a.toc.Version) }
func (a *iostoreArchive) MountPoint() string { return "" }

func (a *iostoreArchive) List(pattern string) ([]FileEntry, error) {
	if err := a.enter(); err != nil {
		return nil, err
	}
	defer a.leave()

	out := make([]FileEntry, 0, a.toc.EntryCount())
	for i := range a.toc.ChunkIDs {
		path := a.pathForChunk(i)
		if pattern != "" && !glob.Glob(strings.ToLower(pattern), strings.ToLower(path)) {
			continue
		}
		out = append(out, a.toFileEntry(i, path))
	}
	return out, nil
}

func (a *iostoreArchive) Has(path string) bool {
	if err := a.enter(); err != nil {
		return false
	}
	defer a.leave()
	_, ok := a.resolve(path)
	return ok
}

func (a *iostoreArchive) Info(path string) (FileEntry, bool, error) {
	if err := a.enter(); err != nil {
		return FileEntry{}, false, err
	}
	defer a.leave()
	idx, ok := a.resolve(path)
	if !ok {
		return FileEntry{}, false, nil
	}
	return a.toFileEntry(idx, a.pathForChunk(idx)), true, nil
}

func (a *iostoreArchive) Get(path string) ([]byte, error) {
	if err := a.enter(); err != nil {
		return nil, err
	}
	defer a.leave()

	idx, ok := a.resolve(path)
	if !ok {
		return nil, &containererrs.FileNotFoundError{Path: path}
	}
	ol := a.toc.OffsetLengths[idx]
	if a.cfg.MaxFileSize > 0 && ol.Length > a.cfg.MaxFileSize {
		return nil, &containererrs.FileTooLargeError{Size: ol.Length, Max: a.cfg.MaxFileSize}
	}

	blocks, err := a.toc.Plan(idx)
	if err != nil {
		return nil, err
	}
	req := blockpipe.Request{
		GUID:      a.toc.EncryptionGUID,
		Encrypted: a.toc.Flags.Has(iostore.FlagEncrypted),
		Blocks:    blocks,
		OutputLen: int64(ol.Length),
		Parallel:  a.cfg.ParallelExtraction,
	}
	return blockpipe.Extract(context.Background(), req, &partitionSource{files: a.partitions}, a.cfg.Keys, a.cfg.Codecs, a.cfg.BlockCache)
}

func (a *iostoreArchive) Close() error {
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
	var firstErr error
	for _, f := range a.partitions {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *iostoreArchive) toFileEntry(idx int, path string) FileEntry {
	ol := a.toc.OffsetLengths[idx]
	var compressedSize int64
	if blocks, err := a.toc.Plan(idx); err == nil {
		for _, b := range blocks {
			compressedSize += int64(b.CompressedSize)
		}
	}
	return FileEntry{
		Path:             path,
		UncompressedSize: int64(ol.Length),
		CompressedSize:   compressedSize,
		Compressed:       a.toc.Flags.Has(iostore.FlagCompressed),
		Encrypted:        a.toc.Flags.Has(iostore.FlagEncrypted),
		synthesizedPath:  a.pathToChunk == nil,
	}
}

// partitionSource adapts the iostore archive's open CAS partition handles
// to blockpipe.FileSource.
type partitionSource struct {
	files []*os.File
}

func (s *partitionSource) ReadAt(_ context.Context, fileIndex int, offset int64, n int) ([]byte, error) {
	if fileIndex < 0 || fileIndex >= len(s.files) || s.files[fileIndex] == nil {
		return nil, &containererrs.PartitionMissingError{Index: fileIndex}
	}
	buf := make([]byte, n)
	got, err := s.files[fileIndex].ReadAt(buf, offset)
	if err != nil {
		return nil, &containererrs.ShortReadError{Offset: offset, Want: n, Got: got, Resource: fmt.Sprintf("partition %d", fileIndex)}
	}
	return buf, nil
}
