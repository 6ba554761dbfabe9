package sink

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSink_Write(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "out")
	s := New(dest)

	require.NoError(t, s.Write("a/b/c.txt", []byte("nested")))
	got, err := os.ReadFile(filepath.Join(dest, "a", "b", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "nested", string(got))

	leftovers, err := filepath.Glob(filepath.Join(dest, "a", "b", ".tarview-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFileSink_ShouldWrite(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "exists.txt"), []byte("x"), 0o600))

	s := New(dest)
	assert.False(t, s.ShouldWrite("exists.txt"))
	assert.True(t, s.ShouldWrite("new.txt"))
	assert.True(t, s.ShouldWrite("../bad"), "invalid paths are left to Write")

	assert.True(t, New(dest, WithOverwrite(true)).ShouldWrite("exists.txt"))
}

func TestFileSink_RejectsInvalidPaths(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir())
	for _, name := range []string{"", ".", "../escape", "/abs", "a//b"} {
		err := s.Write(name, []byte("x"))
		var pathErr *fs.PathError
		require.ErrorAs(t, err, &pathErr, name)
		assert.ErrorIs(t, err, fs.ErrInvalid, name)
	}
}
