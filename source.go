package tarview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/opencontainers/go-digest"
)

// Source provides the raw bytes of an archive.
//
// Fetch is called at most once per Archive and must return the complete
// content. SourceID identifies the content in logs and errors.
type Source interface {
	SourceID() string
	Fetch(ctx context.Context) ([]byte, error)
}

// BytesSource serves an in-memory buffer.
type BytesSource struct {
	data []byte
	id   string
}

// NewBytesSource returns a Source over data. The archive takes ownership of
// data; callers must not modify it afterwards.
func NewBytesSource(data []byte) *BytesSource {
	return &BytesSource{
		data: data,
		id:   "bytes:" + digest.FromBytes(data).String(),
	}
}

// SourceID returns the digest-derived identifier of the buffer.
func (s *BytesSource) SourceID() string { return s.id }

// Fetch returns the buffer.
func (s *BytesSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.data, nil
}

// FileSource reads a local file.
type FileSource struct {
	path string
}

// NewFileSource returns a Source reading the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// SourceID returns "file:" followed by the path.
func (s *FileSource) SourceID() string { return "file:" + s.path }

// Fetch reads the whole file.
func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", s.path)
	}
	return readAllAt(ctx, f, info.Size())
}

// ReaderAtSource reads from any random-access reader of known size, such as an
// *os.File or an HTTP range source.
type ReaderAtSource struct {
	r    io.ReaderAt
	size int64
	id   string
}

// NewReaderAtSource returns a Source reading size bytes from r.
func NewReaderAtSource(r io.ReaderAt, size int64, id string) *ReaderAtSource {
	return &ReaderAtSource{r: r, size: size, id: id}
}

// SourceID returns the identifier given at construction.
func (s *ReaderAtSource) SourceID() string { return s.id }

// Fetch reads the full range [0, size).
func (s *ReaderAtSource) Fetch(ctx context.Context) ([]byte, error) {
	return readAllAt(ctx, s.r, s.size)
}

// readChunk bounds each ReadAt call so cancellation is noticed between chunks.
const readChunk = 4 << 20

func readAllAt(ctx context.Context, r io.ReaderAt, size int64) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("negative size %d", size)
	}
	buf := make([]byte, size)
	for off := int64(0); off < size; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(off+readChunk, size)
		n, err := r.ReadAt(buf[off:end], off)
		off += int64(n)
		if err != nil {
			if errors.Is(err, io.EOF) && off == end {
				continue
			}
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("short read at offset %d of %d: %w", off, size, io.ErrUnexpectedEOF)
			}
			return nil, err
		}
		if n == 0 {
			return nil, io.ErrNoProgress
		}
	}
	return buf, nil
}
