package archive

import (
	"fmt"
	"strings"
)

// Open dispatches on path's extension: ".pak" opens a PAK archive and
// ".utoc" opens the IoStore container pair. Any other path, including one
// without an extension, is rejected; use OpenIoStore for a bare base path.
func Open(path string, opts ...Option) (Archive, error) {
	cfg := newConfig(opts)
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".pak"):
		return openPak(path, cfg)
	case strings.HasSuffix(strings.ToLower(path), ".utoc"):
		return openIoStore(path[:len(path)-len(".utoc")], cfg)
	default:
		return nil, fmt.Errorf("archive: cannot determine container type for %q (expected .pak or .utoc)", path)
	}
}

// OpenPak opens path as a PAK archive.
func OpenPak(path string, opts ...Option) (Archive, error) {
	return openPak(path, newConfig(opts))
}

// OpenIoStore opens the IoStore container pair rooted at basePath
// (without a .utoc/.ucas extension).
func OpenIoStore(basePath string, opts ...Option) (Archive, error) {
	return openIoStore(basePath, newConfig(opts))
}
