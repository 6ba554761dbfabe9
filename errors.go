package tarview

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/meigma/tarview/internal/compress"
	"github.com/meigma/tarview/internal/ustar"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when no entry matches a lookup.
	ErrNotFound = errors.New("tarview: entry not found")

	// ErrSourceRead is returned when the archive bytes could not be read.
	ErrSourceRead = errors.New("tarview: source read failed")
)

// Errors re-exported from internal packages.
var (
	// ErrMalformedSize is returned when a header size field is unusable.
	ErrMalformedSize = ustar.ErrMalformedSize

	// ErrTruncated is returned when reading an entry whose payload runs past
	// the end of the archive. Other entries stay readable.
	ErrTruncated = ustar.ErrTruncated

	// ErrDecompression is returned when a compressed archive is corrupt.
	ErrDecompression = compress.ErrDecompression

	// ErrTooLarge is returned when an archive exceeds the configured size limit.
	ErrTooLarge = compress.ErrTooLarge
)

// SizeError describes the header whose size field stopped indexing.
type SizeError = ustar.SizeError

// TruncatedError describes an entry whose payload was cut off.
type TruncatedError = ustar.TruncatedError

// NotFoundError reports a lookup key that matched no entry.
//
// It matches both ErrNotFound and fs.ErrNotExist.
type NotFoundError struct {
	Name  string   // lookup key as given by the caller
	Known []string // raw names present in the archive
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tarview: %q not found in archive (%d entries)", e.Name, len(e.Known))
}

// Is reports whether target is ErrNotFound or fs.ErrNotExist.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound || target == fs.ErrNotExist
}

// SourceReadError wraps a failure to read the archive source.
//
// It matches ErrSourceRead as well as the underlying cause.
type SourceReadError struct {
	SourceID string
	Err      error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("tarview: read source %s: %v", e.SourceID, e.Err)
}

// Unwrap returns ErrSourceRead and the underlying cause.
func (e *SourceReadError) Unwrap() []error {
	return []error{ErrSourceRead, e.Err}
}
