// Package compress detects and unwraps compressed archive buffers.
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Format identifies the compression wrapping an archive.
type Format uint8

// Supported formats.
const (
	None Format = iota
	Gzip
	Zstd
)

func (f Format) String() string {
	switch f {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	default:
		return "none"
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Sentinel errors.
var (
	// ErrDecompression is returned when a compressed stream is corrupt.
	ErrDecompression = errors.New("tarview: decompression failed")

	// ErrTooLarge is returned when decompressed output exceeds the limit.
	ErrTooLarge = errors.New("tarview: archive too large")
)

// Detect reports the compression format of buf by its magic bytes.
func Detect(buf []byte) Format {
	switch {
	case bytes.HasPrefix(buf, zstdMagic):
		return Zstd
	case bytes.HasPrefix(buf, gzipMagic):
		return Gzip
	default:
		return None
	}
}

// Decompress unwraps buf according to its detected format. Uncompressed
// input is returned as-is. maxSize caps the output; 0 disables the cap.
func Decompress(buf []byte, maxSize int64) ([]byte, Format, error) {
	format := Detect(buf)
	switch format {
	case Gzip:
		zr, err := gzip.NewReader(bytes.NewReader(buf))
		if err != nil {
			return nil, format, fmt.Errorf("%w: %v", ErrDecompression, err)
		}
		defer zr.Close()
		out, err := readLimited(zr, maxSize)
		return out, format, err
	case Zstd:
		opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
		if maxSize > 0 {
			opts = append(opts, zstd.WithDecoderMaxMemory(uint64(maxSize)))
		}
		dec, err := zstd.NewReader(bytes.NewReader(buf), opts...)
		if err != nil {
			return nil, format, fmt.Errorf("%w: %v", ErrDecompression, err)
		}
		defer dec.Close()
		out, err := readLimited(dec, maxSize)
		return out, format, err
	default:
		if maxSize > 0 && int64(len(buf)) > maxSize {
			return nil, format, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrTooLarge, len(buf), maxSize)
		}
		return buf, format, nil
	}
}

// readLimited reads r to EOF, failing once more than maxSize bytes arrive.
func readLimited(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize > 0 {
		r = io.LimitReader(r, maxSize+1)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrTooLarge, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	if maxSize > 0 && int64(len(out)) > maxSize {
		return nil, fmt.Errorf("%w: decompressed size exceeds limit %d", ErrTooLarge, maxSize)
	}
	return out, nil
}
