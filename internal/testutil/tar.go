package testutil

import (
	"archive/tar"
	"bytes"
	"fmt"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// TestEntry describes one member of a generated archive.
type TestEntry struct {
	Name    string
	Type    byte // tar.TypeReg when zero
	Content []byte
}

// File is shorthand for a regular file entry.
func File(name, content string) TestEntry {
	return TestEntry{Name: name, Type: tar.TypeReg, Content: []byte(content)}
}

// Dir is shorthand for a directory entry.
func Dir(name string) TestEntry {
	return TestEntry{Name: name, Type: tar.TypeDir}
}

// BuildTar writes entries with archive/tar in USTAR format, including the
// two trailing zero blocks.
func BuildTar(tb testing.TB, entries ...TestEntry) []byte {
	tb.Helper()

	var buf bytes.Buffer
	w := tar.NewWriter(&buf)
	for _, e := range entries {
		typ := e.Type
		if typ == 0 {
			typ = tar.TypeReg
		}
		hdr := &tar.Header{
			Typeflag: typ,
			Name:     e.Name,
			Mode:     0o644,
			Size:     int64(len(e.Content)),
			Format:   tar.FormatUSTAR,
		}
		if typ == tar.TypeDir {
			hdr.Mode = 0o755
			hdr.Size = 0
		}
		if err := w.WriteHeader(hdr); err != nil {
			tb.Fatalf("write header %q: %v", e.Name, err)
		}
		if hdr.Size > 0 {
			if _, err := w.Write(e.Content); err != nil {
				tb.Fatalf("write content %q: %v", e.Name, err)
			}
		}
	}
	if err := w.Close(); err != nil {
		tb.Fatalf("close tar writer: %v", err)
	}
	return buf.Bytes()
}

// RawHeader returns a bare 512-byte header block with the given name, size
// field text and type flag. sizeField is copied as-is into the 12-byte size
// field, so tests can place arbitrary text there.
func RawHeader(name, sizeField string, typeflag byte) []byte {
	hdr := make([]byte, 512)
	copy(hdr[0:100], name)
	copy(hdr[100:], "0000644\x00")
	copy(hdr[124:136], sizeField)
	hdr[156] = typeflag
	copy(hdr[257:], "ustar\x0000")
	return hdr
}

// OctalSize formats n the way tar writers do: 11 octal digits and a NUL.
func OctalSize(n int) string {
	return fmt.Sprintf("%011o\x00", n)
}

// Padded returns content padded with zeros to a whole number of blocks.
func Padded(content []byte) []byte {
	n := len(content)
	if rem := n % 512; rem != 0 {
		n += 512 - rem
	}
	out := make([]byte, n)
	copy(out, content)
	return out
}

// ZeroBlocks returns n all-zero blocks.
func ZeroBlocks(n int) []byte {
	return make([]byte, 512*n)
}

// Concat joins byte slices.
func Concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

// Gzip compresses data.
func Gzip(tb testing.TB, data []byte) []byte {
	tb.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		tb.Fatalf("gzip write: %v", err)
	}
	if err := w.Close(); err != nil {
		tb.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

// Zstd compresses data.
func Zstd(tb testing.TB, data []byte) []byte {
	tb.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		tb.Fatalf("zstd writer: %v", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}
