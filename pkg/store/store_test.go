package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCreatesDirectory(t *testing.T) {
	root := t.TempDir()
	s := New(root, "example.com")

	require.NoError(t, s.Ensure())
	info, err := os.Stat(filepath.Join(root, "example.com"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.NoError(t, s.Ensure(), "existing directory is fine")
}

func TestEnsureFailsOnFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "example.com"), []byte("x"), 0o644))

	err := New(root, "example.com").Ensure()
	assert.ErrorIs(t, err, ErrCreateDir)
}

func TestWriteListOverwrites(t *testing.T) {
	s := New(t.TempDir(), "example.com")
	require.NoError(t, s.Ensure())

	require.NoError(t, s.WriteList("200.txt", []string{"a.example.com", "b.example.com", "c.example.com"}))
	require.NoError(t, s.WriteList("200.txt", []string{"d.example.com"}))

	data, err := os.ReadFile(s.Path("200.txt"))
	require.NoError(t, err)
	assert.Equal(t, "d.example.com\n", string(data))
}

func TestWriteListEmpty(t *testing.T) {
	s := New(t.TempDir(), "example.com")
	require.NoError(t, s.Ensure())

	require.NoError(t, s.WriteList("403.txt", nil))

	data, err := os.ReadFile(s.Path("403.txt"))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestWriteListWithoutEnsure(t *testing.T) {
	s := New(t.TempDir(), "missing")
	err := s.WriteList("200.txt", []string{"a"})
	assert.ErrorIs(t, err, ErrWrite)
}

func TestReadList(t *testing.T) {
	s := New(t.TempDir(), "example.com")
	require.NoError(t, s.Ensure())

	got, err := s.ReadList("404.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{}, got, "missing file reads as empty")

	require.NoError(t, os.WriteFile(s.Path("404.txt"), []byte("x.example.com\n\n  y.example.com \n"), 0o644))
	got, err = s.ReadList("404.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"x.example.com", "y.example.com"}, got)
}

func TestWriteJSON(t *testing.T) {
	s := New(t.TempDir(), "example.com")
	require.NoError(t, s.Ensure())

	require.NoError(t, s.WriteJSON(SummaryFile, map[string]int{"found": 2}))

	data, err := os.ReadFile(s.Path(SummaryFile))
	require.NoError(t, err)
	assert.JSONEq(t, `{"found":2}`, string(data))
}
