package iostore

import (
	"fmt"
	"sync"

	"github.com/pakio/pakio/binreader"
)

// DirectoryEntry is one file of the flattened directory index: its name
// (resolved from the string table), its full path (mount point, directory
// path, name), and the chunk-table index of the file it names. ListFiles
// returns file nodes only, so IsDir is false on every entry it produces;
// no sibling or child links are kept.
type DirectoryEntry struct {
	Name       string
	Path       string
	ChunkIndex int
	IsDir      bool
}

// directoryIndex is the lazily-decoded form of a TOC's directory-index
// blob: nested (name_index, first_child, next_sibling, user_data) nodes
// over a flat string table. Decoding reads the directory-node, file-node
// and string tables in one pass, then walks the nodes from the root into
// the final flat file list.
type directoryIndex struct {
	once  sync.Once
	err   error
	files []DirectoryEntry
}

type dirNode struct {
	nameIndex    int32
	firstChild   int32
	nextSibling  int32
	firstFile    int32
}

type fileNode struct {
	nameIndex   int32
	nextFile    int32
	userData    uint32
}

// ListFiles decodes (on first call) and returns the flattened file list
// recorded in the TOC's directory index. Returns nil when the container
// carries no directory index.
func (t *Toc) ListFiles() ([]DirectoryEntry, error) {
	if len(t.DirectoryIndexBlob) == 0 {
		return nil, nil
	}
	t.dirIndex.once.Do(func() {
		t.dirIndex.files, t.dirIndex.err = decodeDirectoryIndex(t.DirectoryIndexBlob)
	})
	return t.dirIndex.files, t.dirIndex.err
}

func decodeDirectoryIndex(blob []byte) ([]DirectoryEntry, error) {
	b := binreader.NewBuffer(blob)

	mountPoint, err := readLPString(b)
	if err != nil {
		return nil, fmt.Errorf("iostore: reading directory index mount point: %w", err)
	}

	dirCount, err := b.ReadU32()
	if err != nil {
		return nil, err
	}
	dirs := make([]dirNode, dirCount)
	for i := range dirs {
		n, err := readDirNode(b)
		if err != nil {
			return nil, fmt.Errorf("iostore: reading directory node %d: %w", i, err)
		}
		dirs[i] = n
	}

	fileCount, err := b.ReadU32()
	if err != nil {
		return nil, err
	}
	files := make([]fileNode, fileCount)
	for i := range files {
		n, err := readFileNode(b)
		if err != nil {
			return nil, fmt.Errorf("iostore: reading file node %d: %w", i, err)
		}
		files[i] = n
	}

	stringCount, err := b.ReadU32()
	if err != nil {
		return nil, err
	}
	names := make([]string, stringCount)
	for i := range names {
		s, err := readLPString(b)
		if err != nil {
			return nil, fmt.Errorf("iostore: reading directory index string %d: %w", i, err)
		}
		names[i] = s
	}
	resolveName := func(idx int32) string {
		if idx < 0 || int(idx) >= len(names) {
			return ""
		}
		return names[idx]
	}

	if len(dirs) == 0 {
		return nil, nil
	}

	var out []DirectoryEntry
	var walk func(dirIdx int32, prefix string)
	walk = func(dirIdx int32, prefix string) {
		if dirIdx < 0 || int(dirIdx) >= len(dirs) {
			return
		}
		d := dirs[dirIdx]
		dirPath := prefix
		if name := resolveName(d.nameIndex); name != "" {
			dirPath = prefix + name + "/"
		}

		for fi := d.firstFile; fi >= 0 && int(fi) < len(files); {
			f := files[fi]
			name := resolveName(f.nameIndex)
			out = append(out, DirectoryEntry{
				Name:       name,
				Path:       mountPoint + dirPath + name,
				ChunkIndex: int(f.userData),
				IsDir:      false,
			})
			fi = f.nextFile
		}

		for ci := d.firstChild; ci >= 0 && int(ci) < len(dirs); {
			walk(ci, dirPath)
			ci = dirs[ci].nextSibling
		}
	}
	walk(0, "")

	return out, nil
}

func readDirNode(b *binreader.Buffer) (dirNode, error) {
	name, err := b.ReadI32()
	if err != nil {
		return dirNode{}, err
	}
	firstChild, err := b.ReadI32()
	if err != nil {
		return dirNode{}, err
	}
	nextSibling, err := b.ReadI32()
	if err != nil {
		return dirNode{}, err
	}
	firstFile, err := b.ReadI32()
	if err != nil {
		return dirNode{}, err
	}
	return dirNode{nameIndex: name, firstChild: firstChild, nextSibling: nextSibling, firstFile: firstFile}, nil
}

func readFileNode(b *binreader.Buffer) (fileNode, error) {
	name, err := b.ReadI32()
	if err != nil {
		return fileNode{}, err
	}
	next, err := b.ReadI32()
	if err != nil {
		return fileNode{}, err
	}
	userData, err := b.ReadU32()
	if err != nil {
		return fileNode{}, err
	}
	return fileNode{nameIndex: name, nextFile: next, userData: userData}, nil
}

func readLPString(b *binreader.Buffer) (string, error) {
	n, err := b.ReadU32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf, err := b.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return nullTerminatedString(buf), nil
}
