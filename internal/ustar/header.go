package ustar

import (
	"errors"
	"fmt"
)

// Header layout.
const (
	BlockSize = 512

	nameOffset = 0
	nameLen    = 100
	sizeOffset = 124
	sizeDigits = 11 // the 12th byte of the size field is a terminator
	typeOffset = 156
)

// ErrMalformedSize is returned when a size field cannot be used to locate
// the next header.
var ErrMalformedSize = errors.New("tarview: malformed size field")

// SizeError describes a size field that could not be decoded.
type SizeError struct {
	Name         string // entry name from the same header
	HeaderOffset int64
	Field        string // raw text of the interpreted size digits
	Reason       string
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("tarview: entry %q at offset %d: size %q: %s", e.Name, e.HeaderOffset, e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformedSize.
func (e *SizeError) Unwrap() error {
	return ErrMalformedSize
}

// Kind is the raw type flag of an entry.
type Kind byte

// Type flags with dedicated meaning. Every other flag is kept verbatim.
const (
	KindFile      Kind = '0'
	KindDirectory Kind = '5'
)

// IsFile reports whether the entry is a regular file.
func (k Kind) IsFile() bool { return k == KindFile }

// IsDir reports whether the entry is a directory.
func (k Kind) IsDir() bool { return k == KindDirectory }

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return string(rune(k))
	}
}

// ReadName decodes the name field of hdr. Bytes after the first NUL are
// discarded; without a NUL the whole field is used.
func ReadName(hdr []byte) string {
	field := hdr[nameOffset : nameOffset+nameLen]
	for i, c := range field {
		if c == 0 {
			return string(field[:i])
		}
	}
	return string(field)
}

// ReadKind returns the type flag of hdr.
func ReadKind(hdr []byte) Kind {
	return Kind(hdr[typeOffset])
}

// ParseSize decodes the octal size field of hdr.
//
// Only the first 11 bytes are looked at. Leading spaces are skipped and the
// run of octal digits that follows is the value; the first non-digit ends it.
// A field without digits is an error.
func ParseSize(hdr []byte) (int64, error) {
	field := hdr[sizeOffset : sizeOffset+sizeDigits]

	i := 0
	for i < len(field) && field[i] == ' ' {
		i++
	}
	start := i

	var n uint64
	for ; i < len(field); i++ {
		c := field[i]
		if c < '0' || c > '7' {
			break
		}
		n = n*8 + uint64(c-'0')
	}
	if i == start {
		return 0, &SizeError{
			Name:   ReadName(hdr),
			Field:  printable(field),
			Reason: "no octal digits",
		}
	}
	// 11 octal digits cannot exceed 8^11-1.
	return int64(n), nil
}

// printable renders a raw field for error messages.
func printable(field []byte) string {
	out := make([]byte, len(field))
	for i, c := range field {
		if c < 0x20 || c > 0x7e {
			c = '.'
		}
		out[i] = c
	}
	return string(out)
}
