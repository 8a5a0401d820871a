// Package archive reads the header archive the --header-archive flag
// points at: a flat binary bundle of include directories and file
// contents the core overlays at a synthetic root before compiling,
// instead of touching the real filesystem for system headers.
package archive

import (
	"encoding/binary"
	"fmt"
	"io"
)

// SupportedVersion is the only archive format version this reader
// accepts. Any other value aborts the load.
const SupportedVersion = 1

// File is one bundled header's name and raw contents.
type File struct {
	Name string
	Data []byte
}

// Archive is a decoded header archive: the include directories to
// prepend as system includes, and the files overlaid at the synthetic
// root those directories are rewritten relative to.
type Archive struct {
	Dirs  []string
	Files []File
}

// Read decodes the little-endian binary layout:
//
//	u32  version
//	u32  n_dirs;  { u32 len, bytes[len] }  x n_dirs
//	u32  n_files; { u32 name_len, name_bytes, u32 data_len, data_bytes } x n_files
//
// A version other than SupportedVersion, or any truncated section,
// aborts with an error; the caller treats this the same as a missing
// archive file and fails the whole invocation.
func Read(r io.Reader) (*Archive, error) {
	br := &byteReader{r: r}

	version, err := br.readU32()
	if err != nil {
		return nil, fmt.Errorf("read archive version: %w", err)
	}
	if version != SupportedVersion {
		return nil, fmt.Errorf("unsupported archive version %d, want %d", version, SupportedVersion)
	}

	nDirs, err := br.readU32()
	if err != nil {
		return nil, fmt.Errorf("read directory count: %w", err)
	}
	arc := &Archive{}
	for i := uint32(0); i < nDirs; i++ {
		dir, err := br.readString()
		if err != nil {
			return nil, fmt.Errorf("read directory %d: %w", i, err)
		}
		arc.Dirs = append(arc.Dirs, dir)
	}

	nFiles, err := br.readU32()
	if err != nil {
		return nil, fmt.Errorf("read file count: %w", err)
	}
	for i := uint32(0); i < nFiles; i++ {
		name, err := br.readString()
		if err != nil {
			return nil, fmt.Errorf("read file %d name: %w", i, err)
		}
		data, err := br.readBytes()
		if err != nil {
			return nil, fmt.Errorf("read file %d data: %w", i, err)
		}
		arc.Files = append(arc.Files, File{Name: name, Data: data})
	}

	return arc, nil
}

// byteReader layers the archive's length-prefixed fields over a plain
// io.Reader.
type byteReader struct {
	r io.Reader
}

func (b *byteReader) readU32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(b.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (b *byteReader) readBytes() ([]byte, error) {
	n, err := b.readU32()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(b.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *byteReader) readString() (string, error) {
	buf, err := b.readBytes()
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// RewriteIncludeDirs rewrites each of arc's recorded include
// directories relative to root, the synthetic path the archive's files
// are overlaid at, so they can be prepended to the front end's system
// include search path with no-stdinc enforcement.
func RewriteIncludeDirs(arc *Archive, root string) []string {
	out := make([]string, 0, len(arc.Dirs))
	for _, d := range arc.Dirs {
		out = append(out, joinRoot(root, d))
	}
	return out
}

func joinRoot(root, dir string) string {
	if dir == "" {
		return root
	}
	if root == "" {
		return dir
	}
	return root + "/" + dir
}
