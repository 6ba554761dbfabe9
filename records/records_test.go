package records

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLog(t *testing.T, recs ...[]byte) []byte {
	t.Helper()
	var out []byte
	for _, rec := range recs {
		var err error
		out, err = Append(out, rec)
		require.NoError(t, err)
	}
	return out
}

func TestReader(t *testing.T) {
	t.Parallel()

	data := buildLog(t, []byte("first"), nil, bytes.Repeat([]byte{0xab}, 300))
	assert.Equal(t, []byte{5, 0}, data[:2], "length is little-endian")

	r := NewReader(data)
	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "first", string(rec))
	assert.Equal(t, 7, r.Offset())

	rec, err = r.Next()
	require.NoError(t, err)
	assert.Empty(t, rec)

	rec, err = r.Next()
	require.NoError(t, err)
	assert.Len(t, rec, 300)
	assert.InDelta(t, 1.0, r.Progress(), 1e-9)

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestReader_Truncated(t *testing.T) {
	t.Parallel()

	data := buildLog(t, []byte("ok"), []byte("cut off"))

	tests := []struct {
		name string
		data []byte
	}{
		{"short body", data[:len(data)-3]},
		{"half prefix", append(buildLog(t, []byte("ok")), 0x01)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			recs, err := Split(tt.data)
			require.ErrorIs(t, err, ErrShortRecord)
			require.Len(t, recs, 1)
			assert.Equal(t, "ok", string(recs[0]))
		})
	}
}

func TestAll_StopsEarly(t *testing.T) {
	t.Parallel()

	data := buildLog(t, []byte("a"), []byte("b"), []byte("c"))
	var seen []string
	for rec, err := range All(data) {
		require.NoError(t, err)
		seen = append(seen, string(rec))
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestSplit_Empty(t *testing.T) {
	t.Parallel()

	recs, err := Split(nil)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.InDelta(t, 1.0, NewReader(nil).Progress(), 1e-9)
}

func TestAppend_TooLarge(t *testing.T) {
	t.Parallel()

	_, err := Append(nil, make([]byte, MaxRecordSize+1))
	require.Error(t, err)

	out, err := Append(nil, make([]byte, MaxRecordSize))
	require.NoError(t, err)
	assert.Len(t, out, MaxRecordSize+2)
}
