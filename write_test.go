package grpcbuild_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grpcbuild/grpcbuild"
)

func TestWriteIfChangedCreates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.go")

	wrote, err := grpcbuild.WriteIfChanged(path, []byte("hello"))
	require.NoError(t, err)
	require.True(t, wrote)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello", string(content))
}

func TestWriteIfChangedSkipsIdentical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.go")

	wrote, err := grpcbuild.WriteIfChanged(path, []byte("same"))
	require.NoError(t, err)
	require.True(t, wrote)

	info, err := os.Stat(path)
	require.NoError(t, err)
	before := info.ModTime()

	wrote, err = grpcbuild.WriteIfChanged(path, []byte("same"))
	require.NoError(t, err)
	require.False(t, wrote, "identical content must not be rewritten")

	info, err = os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, before, info.ModTime(), "skipped write must not touch the file")
}

func TestWriteIfChangedOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.go")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	wrote, err := grpcbuild.WriteIfChanged(path, []byte("new"))
	require.NoError(t, err)
	require.True(t, wrote)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "new", string(content))
}

func TestWriteIfChangedAnnotatesPath(t *testing.T) {
	// A directory cannot be read as a file; the failure must name it.
	dir := t.TempDir()
	_, err := grpcbuild.WriteIfChanged(dir, []byte("x"))
	require.Error(t, err)
	require.ErrorContains(t, err, dir)
}
