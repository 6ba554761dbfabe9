package ustar

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTruncated is returned when an entry's payload extends past the end of
// the archive buffer.
var ErrTruncated = errors.New("tarview: truncated entry")

// TruncatedError describes an entry whose payload was cut off.
type TruncatedError struct {
	Name      string
	Size      int64 // size declared by the header
	Available int64 // payload bytes present in the buffer
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("tarview: entry %q is truncated: %d of %d bytes present", e.Name, e.Available, e.Size)
}

// Unwrap lets errors.Is match ErrTruncated.
func (e *TruncatedError) Unwrap() error {
	return ErrTruncated
}

// Entry is one archive member.
type Entry struct {
	Name         string // name as stored in the archive
	Kind         Kind
	Size         int64 // payload length in bytes
	HeaderOffset int64 // offset of the 512-byte header block
}

// DataOffset returns the offset of the first payload byte.
func (e Entry) DataOffset() int64 {
	return e.HeaderOffset + BlockSize
}

// NextOffset returns the offset of the header that follows this entry.
func (e Entry) NextOffset() int64 {
	return NextOffset(e.HeaderOffset, e.Size)
}

// NormalizedName returns the name used for lookups.
func (e Entry) NormalizedName() string {
	return Normalize(e.Name)
}

// NextOffset returns the offset of the header following an entry whose header
// starts at headerOffset and whose payload is size bytes long. The payload is
// padded to a whole number of blocks.
func NextOffset(headerOffset, size int64) int64 {
	next := headerOffset + BlockSize + BlockSize*(size/BlockSize)
	if size%BlockSize != 0 {
		next += BlockSize
	}
	return next
}

// Normalize drops the leading path segment of name, up to and including the
// first slash. Names without a slash are returned unchanged.
func Normalize(name string) string {
	if _, rest, ok := strings.Cut(name, "/"); ok {
		return rest
	}
	return name
}

// Index walks the header blocks of buf and returns the entries in archive
// order.
//
// Indexing ends at the first header with an empty name or when fewer than
// BlockSize bytes remain. A size field that cannot be parsed aborts indexing
// with a *SizeError. An entry whose payload runs past the end of buf is still
// indexed; only reading it fails (see Payload).
func Index(buf []byte) ([]Entry, error) {
	var entries []Entry
	total := int64(len(buf))
	for off := int64(0); total-off >= BlockSize; {
		hdr := buf[off : off+BlockSize]
		name := ReadName(hdr)
		if name == "" {
			break
		}

		size, err := ParseSize(hdr)
		if err != nil {
			var se *SizeError
			if errors.As(err, &se) {
				se.HeaderOffset = off
			}
			return nil, err
		}
		entries = append(entries, Entry{
			Name:         name,
			Kind:         ReadKind(hdr),
			Size:         size,
			HeaderOffset: off,
		})
		off = NextOffset(off, size)
	}
	return entries, nil
}

// Payload returns the payload of e within buf. The result aliases buf.
func Payload(buf []byte, e Entry) ([]byte, error) {
	start := e.DataOffset()
	total := int64(len(buf))
	if start > total || e.Size > total-start {
		return nil, &TruncatedError{
			Name:      e.Name,
			Size:      e.Size,
			Available: max(total-start, 0),
		}
	}
	return buf[start : start+e.Size], nil
}
