package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFileInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signals.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	first, err := GetFileInfo(path)
	require.NoError(t, err)
	assert.EqualValues(t, 3, first.Size)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("{}\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	appended, err := GetFileInfo(path)
	require.NoError(t, err)
	assert.EqualValues(t, 6, appended.Size)
	assert.False(t, first.Replaced(appended))

	tmp := filepath.Join(dir, "signals.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("{}\n"), 0o644))
	require.NoError(t, os.Rename(tmp, path))

	replaced, err := GetFileInfo(path)
	require.NoError(t, err)
	assert.True(t, appended.Replaced(replaced))
}

func TestGetFileInfo_Missing(t *testing.T) {
	_, err := GetFileInfo(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileInfo_UnknownInode(t *testing.T) {
	assert.False(t, FileInfo{Inode: 0}.Replaced(FileInfo{Inode: 7}))
	assert.False(t, FileInfo{Inode: 7}.Replaced(FileInfo{Inode: 0}))
	assert.True(t, FileInfo{Inode: 7}.Replaced(FileInfo{Inode: 8}))
}
