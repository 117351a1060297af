package memfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-nfsd/nfsd3/internal/vfs"
)

func TestDefaultConfigLookupAndRead(t *testing.T) {
	ctx := context.Background()
	fs := New(DefaultConfig())

	root := fs.RootDir()
	aID, err := fs.Lookup(ctx, root, "a.txt")
	require.NoError(t, err)

	data, eof, err := fs.Read(ctx, aID, 0, 4096)
	require.NoError(t, err)
	assert.True(t, eof)
	assert.Equal(t, "hello world\n", string(data))
}

func TestReadDirPlusListsAllEntries(t *testing.T) {
	ctx := context.Background()
	fs := New(DefaultConfig())
	root := fs.RootDir()

	it, err := fs.ReadDirPlus(ctx, root, 0)
	require.NoError(t, err)

	var names []string
	for {
		r := it.Next(ctx)
		require.NoError(t, r.Err)
		if r.Eof {
			break
		}
		names = append(names, r.Entry.Name)
	}
	assert.Contains(t, names, ".")
	assert.Contains(t, names, "..")
	assert.Contains(t, names, "a.txt")
	assert.Contains(t, names, "b.txt")
	assert.Contains(t, names, "cat.txt")
	assert.Contains(t, names, "a directory")
}

func TestWriteThenCommit(t *testing.T) {
	ctx := context.Background()
	fs := New(DefaultConfig())
	root := fs.RootDir()

	id, err := fs.Create(ctx, root, "w.txt", vfs.Unchecked, vfs.SetAttr{}, 0)
	require.NoError(t, err)

	committed, verf1, err := fs.Write(ctx, id, 0, vfs.Unstable, []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, vfs.Unstable, committed)

	verf2, err := fs.Commit(ctx, id, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, verf1, verf2)

	data, eof, err := fs.Read(ctx, id, 0, 10)
	require.NoError(t, err)
	assert.True(t, eof)
	assert.Equal(t, "abc", string(data))
}

func TestCreateExclusiveIdempotence(t *testing.T) {
	ctx := context.Background()
	fs := New(DefaultConfig())
	root := fs.RootDir()

	id1, err := fs.Create(ctx, root, "x.txt", vfs.Exclusive, vfs.SetAttr{}, 0xABCD)
	require.NoError(t, err)

	id2, err := fs.Create(ctx, root, "x.txt", vfs.Exclusive, vfs.SetAttr{}, 0xABCD)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	_, err = fs.Create(ctx, root, "x.txt", vfs.Exclusive, vfs.SetAttr{}, 0xDEAD)
	require.Error(t, err)
	verr, ok := err.(*vfs.Error)
	require.True(t, ok)
	assert.Equal(t, vfs.ErrAlreadyExists, verr.Code)
}

func TestRemoveThenLookupFails(t *testing.T) {
	ctx := context.Background()
	fs := New(DefaultConfig())
	root := fs.RootDir()

	require.NoError(t, fs.Remove(ctx, root, "a.txt"))
	_, err := fs.Lookup(ctx, root, "a.txt")
	require.Error(t, err)
}

func TestRmdirRejectsNonEmpty(t *testing.T) {
	ctx := context.Background()
	fs := New(DefaultConfig())
	root := fs.RootDir()

	err := fs.Rmdir(ctx, root, "a directory")
	require.Error(t, err)
	verr, ok := err.(*vfs.Error)
	require.True(t, ok)
	assert.Equal(t, vfs.ErrNotEmpty, verr.Code)
}
