package metadata_test

import (
	"context"
	"testing"
	"time"

	"github.com/canmi21/rfs/internal/metadata"
	"github.com/canmi21/rfs/pkg/digest"
	"github.com/canmi21/rfs/pkg/rfserrors"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *metadata.Manager {
	t.Helper()
	m, err := metadata.New(metadata.Config{DirCacheSize: 64})
	require.NoError(t, err)
	return m
}

func fileMeta(name string, size uint64, blocks map[uint64]metadata.BlockInfo) metadata.FileMetadata {
	now := time.Now().UTC()
	return metadata.FileMetadata{Filename: name, Size: size, CreatedAt: now, ModifiedAt: now, Blocks: blocks}
}

func TestCreateFileAtRootAppearsInListing(t *testing.T) {
	root := t.TempDir()
	m := newManager(t)
	ctx := context.Background()

	meta := fileMeta("note.txt", 11, map[uint64]metadata.BlockInfo{
		0: {XXH3: digest.Calculate([]byte("hello world")), Index: 1},
	})
	require.NoError(t, m.CreateFile(ctx, root, "/", "note.txt", meta))

	listing, err := m.ListDirectory(ctx, root, "/")
	require.NoError(t, err)
	entry, ok := listing["note.txt"]
	require.True(t, ok)
	require.Equal(t, metadata.EntryTypeFile, entry.Type)
	require.Equal(t, uint64(11), entry.File.Size)
}

func TestCreateEmptyFile(t *testing.T) {
	root := t.TempDir()
	m := newManager(t)
	ctx := context.Background()

	meta := fileMeta("empty.bin", 0, map[uint64]metadata.BlockInfo{})
	require.NoError(t, m.CreateFile(ctx, root, "/", "empty.bin", meta))

	listing, err := m.ListDirectory(ctx, root, "/")
	require.NoError(t, err)
	require.Equal(t, uint64(0), listing["empty.bin"].File.Size)
}

func TestCreateFileDuplicateNameRejected(t *testing.T) {
	root := t.TempDir()
	m := newManager(t)
	ctx := context.Background()

	meta := fileMeta("dup.txt", 3, map[uint64]metadata.BlockInfo{0: {Index: 1}})
	require.NoError(t, m.CreateFile(ctx, root, "/", "dup.txt", meta))

	err := m.CreateFile(ctx, root, "/", "dup.txt", meta)
	require.Error(t, err)
	require.Equal(t, rfserrors.ErrorCodeEntryAlreadyExists, rfserrors.GetErrorCode(err))
}

func TestCreateFileInNestedDirectoryMintsDirectoryEntries(t *testing.T) {
	root := t.TempDir()
	m := newManager(t)
	ctx := context.Background()

	meta := fileMeta("leaf.txt", 4, map[uint64]metadata.BlockInfo{0: {Index: 1}})
	require.NoError(t, m.CreateFile(ctx, root, "/a/b", "leaf.txt", meta))

	rootListing, err := m.ListDirectory(ctx, root, "/")
	require.NoError(t, err)
	aEntry, ok := rootListing["a"]
	require.True(t, ok)
	require.Equal(t, metadata.EntryTypeDirectory, aEntry.Type)

	aListing, err := m.ListDirectory(ctx, root, "/a")
	require.NoError(t, err)
	bEntry, ok := aListing["b"]
	require.True(t, ok)
	require.Equal(t, metadata.EntryTypeDirectory, bEntry.Type)

	bListing, err := m.ListDirectory(ctx, root, "/a/b")
	require.NoError(t, err)
	require.Equal(t, uint64(4), bListing["leaf.txt"].File.Size)
}

func TestCreateFilePropagatesSizeUpTheTree(t *testing.T) {
	root := t.TempDir()
	m := newManager(t)
	ctx := context.Background()

	meta := fileMeta("leaf.txt", 100, map[uint64]metadata.BlockInfo{0: {Index: 1}})
	require.NoError(t, m.CreateFile(ctx, root, "/a/b", "leaf.txt", meta))

	rootListing, err := m.ListDirectory(ctx, root, "/")
	require.NoError(t, err)
	require.Equal(t, uint64(100), rootListing["a"].Directory.Size)

	aListing, err := m.ListDirectory(ctx, root, "/a")
	require.NoError(t, err)
	require.Equal(t, uint64(100), aListing["b"].Directory.Size)

	meta2 := fileMeta("second.txt", 50, map[uint64]metadata.BlockInfo{0: {Index: 1}})
	require.NoError(t, m.CreateFile(ctx, root, "/a/b", "second.txt", meta2))

	rootListing, err = m.ListDirectory(ctx, root, "/")
	require.NoError(t, err)
	require.Equal(t, uint64(150), rootListing["a"].Directory.Size)
}

func TestListDirectoryOfUnknownPathIsEmpty(t *testing.T) {
	root := t.TempDir()
	m := newManager(t)
	ctx := context.Background()

	listing, err := m.ListDirectory(ctx, root, "/never/created")
	require.NoError(t, err)
	require.Empty(t, listing)
}

func TestFileEntryBlocksThroughIntermediatePath(t *testing.T) {
	root := t.TempDir()
	m := newManager(t)
	ctx := context.Background()

	meta := fileMeta("blocked.txt", 5, map[uint64]metadata.BlockInfo{0: {Index: 1}})
	require.NoError(t, m.CreateFile(ctx, root, "/dir", "blocked.txt", meta))

	err := m.CreateFile(ctx, root, "/dir/blocked.txt", "cant-nest-under-file", meta)
	require.Error(t, err)
	require.Equal(t, rfserrors.ErrorCodeNotADirectory, rfserrors.GetErrorCode(err))
}

func TestReadFileBlockMapRoundTrip(t *testing.T) {
	root := t.TempDir()
	m := newManager(t)
	ctx := context.Background()

	blocks := map[uint64]metadata.BlockInfo{
		0: {XXH3: digest.Calculate([]byte("aa")), Index: 1},
		1: {XXH3: digest.Calculate([]byte("bb")), Index: 1},
	}
	meta := fileMeta("doc.txt", 4, blocks)
	require.NoError(t, m.CreateFile(ctx, root, "/x", "doc.txt", meta))

	listing, err := m.ListDirectory(ctx, root, "/x")
	require.NoError(t, err)
	cid := listing["doc.txt"].File.CID

	loaded, err := m.ReadFileBlockMap(root, "/x", cid)
	require.NoError(t, err)
	require.Equal(t, meta.Filename, loaded.Filename)
	require.Equal(t, meta.Size, loaded.Size)
	require.Equal(t, blocks, loaded.Blocks)
}
