// Package records splits recording logs into length-prefixed records.
//
// A log is a sequence of records, each preceded by its length as a
// little-endian uint16. Records are opaque bytes; decoding them is up to the
// caller.
package records

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
)

// prefixLen is the size of the length prefix.
const prefixLen = 2

// MaxRecordSize is the largest record the format can describe.
const MaxRecordSize = 1<<16 - 1

// ErrShortRecord is returned when a length prefix or record body is cut off.
var ErrShortRecord = errors.New("records: truncated record")

// Reader yields records from an in-memory log.
type Reader struct {
	data []byte
	off  int
}

// NewReader returns a Reader over data. Returned records alias data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() ([]byte, error) {
	remaining := len(r.data) - r.off
	if remaining == 0 {
		return nil, io.EOF
	}
	if remaining < prefixLen {
		return nil, fmt.Errorf("%w: %d byte length prefix at offset %d", ErrShortRecord, remaining, r.off)
	}
	n := int(binary.LittleEndian.Uint16(r.data[r.off:]))
	start := r.off + prefixLen
	if n > len(r.data)-start {
		return nil, fmt.Errorf("%w: record at offset %d needs %d bytes, %d left", ErrShortRecord, r.off, n, len(r.data)-start)
	}
	r.off = start + n
	return r.data[start:r.off:r.off], nil
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Progress returns the consumed fraction of the log in [0, 1].
func (r *Reader) Progress() float64 {
	if len(r.data) == 0 {
		return 1
	}
	return float64(r.off) / float64(len(r.data))
}

// All iterates over the records in data. Iteration stops after the first
// error, which is yielded with a nil record.
func All(data []byte) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		r := NewReader(data)
		for {
			rec, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Split returns every record in data.
func Split(data []byte) ([][]byte, error) {
	var out [][]byte
	for rec, err := range All(data) {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Append adds rec to dst with its length prefix.
func Append(dst, rec []byte) ([]byte, error) {
	if len(rec) > MaxRecordSize {
		return dst, fmt.Errorf("records: record of %d bytes exceeds %d", len(rec), MaxRecordSize)
	}
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(rec)))
	return append(dst, rec...), nil
}
