package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/canmi21/rfs/internal/blockstore"
	"github.com/canmi21/rfs/internal/ingest"
	"github.com/canmi21/rfs/internal/metadata"
	"github.com/canmi21/rfs/internal/slicer"
	"github.com/stretchr/testify/require"
)

type harness struct {
	orchestrator *ingest.Orchestrator
	blocks       *blockstore.Store
	metadata     *metadata.Manager
}

func newHarness(t *testing.T) harness {
	t.Helper()
	blocks, err := blockstore.New(blockstore.Config{CacheSize: 64})
	require.NoError(t, err)
	meta, err := metadata.New(metadata.Config{DirCacheSize: 64})
	require.NoError(t, err)
	return harness{
		orchestrator: ingest.New(ingest.Config{BlockStore: blocks, Metadata: meta}),
		blocks:       blocks,
		metadata:     meta,
	}
}

func writeLocalFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.bin")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func (h harness) fileCID(t *testing.T, ctx context.Context, root, dir, name string) string {
	t.Helper()
	listing, err := h.metadata.ListDirectory(ctx, root, dir)
	require.NoError(t, err)
	entry, ok := listing[name]
	require.True(t, ok)
	return entry.File.CID
}

// concatenateBlocks exercises invariant #2 directly against the block store
// and the block map, the way an operator diagnosing a dedup bug would,
// without going through any file-reconstruction entry point on the daemon's
// public surface (ingestion and listing are the only operations it exposes).
func (h harness) concatenateBlocks(t *testing.T, root string, fileMeta metadata.FileMetadata) []byte {
	t.Helper()
	out := make([]byte, 0, fileMeta.Size)
	for i := uint64(0); i < uint64(len(fileMeta.Blocks)); i++ {
		block, ok := fileMeta.Blocks[i]
		require.True(t, ok, "block map has a gap at sequence %d", i)
		data, err := h.blocks.Read(root, block.XXH3, block.Index)
		require.NoError(t, err)
		out = append(out, data...)
	}
	return out
}

func TestIngestEmptyFile(t *testing.T) {
	root := t.TempDir()
	h := newHarness(t)
	ctx := context.Background()

	local := writeLocalFile(t, nil)
	require.NoError(t, h.orchestrator.IngestFile(ctx, root, "/", "empty.bin", local))

	listing, err := h.metadata.ListDirectory(ctx, root, "/")
	require.NoError(t, err)
	require.Equal(t, uint64(0), listing["empty.bin"].File.Size)

	cid := h.fileCID(t, ctx, root, "/", "empty.bin")
	fileMeta, err := h.metadata.ReadFileBlockMap(root, "/", cid)
	require.NoError(t, err)
	require.Empty(t, fileMeta.Blocks)
}

func TestIngestSmallFileRoundTrips(t *testing.T) {
	root := t.TempDir()
	h := newHarness(t)
	ctx := context.Background()

	data := []byte("the quick brown fox jumps over the lazy dog")
	local := writeLocalFile(t, data)
	require.NoError(t, h.orchestrator.IngestFile(ctx, root, "/", "fox.txt", local))

	cid := h.fileCID(t, ctx, root, "/", "fox.txt")
	fileMeta, err := h.metadata.ReadFileBlockMap(root, "/", cid)
	require.NoError(t, err)
	require.Equal(t, data, h.concatenateBlocks(t, root, fileMeta))
}

func TestIngestDedupWithinFile(t *testing.T) {
	root := t.TempDir()
	h := newHarness(t)
	ctx := context.Background()

	chunk := make([]byte, slicer.ChunkSize)
	for i := range chunk {
		chunk[i] = byte(i)
	}
	data := append(append([]byte{}, chunk...), chunk...)
	local := writeLocalFile(t, data)
	require.NoError(t, h.orchestrator.IngestFile(ctx, root, "/", "repeat.bin", local))

	cid := h.fileCID(t, ctx, root, "/", "repeat.bin")
	fileMeta, err := h.metadata.ReadFileBlockMap(root, "/", cid)
	require.NoError(t, err)
	require.Equal(t, data, h.concatenateBlocks(t, root, fileMeta))

	require.Equal(t, fileMeta.Blocks[0].XXH3, fileMeta.Blocks[1].XXH3)
	require.Equal(t, fileMeta.Blocks[0].Index, fileMeta.Blocks[1].Index)
}

func TestIngestCrossFileDedupSharesBlocks(t *testing.T) {
	root := t.TempDir()
	h := newHarness(t)
	ctx := context.Background()

	data := []byte("shared content across files")
	localA := writeLocalFile(t, data)
	localB := writeLocalFile(t, data)

	require.NoError(t, h.orchestrator.IngestFile(ctx, root, "/", "a.txt", localA))
	require.NoError(t, h.orchestrator.IngestFile(ctx, root, "/", "b.txt", localB))

	cidA := h.fileCID(t, ctx, root, "/", "a.txt")
	cidB := h.fileCID(t, ctx, root, "/", "b.txt")

	metaA, err := h.metadata.ReadFileBlockMap(root, "/", cidA)
	require.NoError(t, err)
	metaB, err := h.metadata.ReadFileBlockMap(root, "/", cidB)
	require.NoError(t, err)
	require.Equal(t, metaA.Blocks[0].XXH3, metaB.Blocks[0].XXH3)
	require.Equal(t, metaA.Blocks[0].Index, metaB.Blocks[0].Index)
}

func TestIngestInvalidFilenameFailsBeforeSlicing(t *testing.T) {
	root := t.TempDir()
	h := newHarness(t)
	ctx := context.Background()

	data := make([]byte, 4096)
	local := writeLocalFile(t, data)
	err := h.orchestrator.IngestFile(ctx, root, "/", "bad..name", local)
	require.Error(t, err)

	entries, statErr := os.ReadDir(root)
	require.NoError(t, statErr)
	require.Empty(t, entries, "no block or metadata tree should be created for a rejected filename")
}

func TestIngestMultiChunkFileRoundTrips(t *testing.T) {
	root := t.TempDir()
	h := newHarness(t)
	ctx := context.Background()

	// Big enough to span several slicer chunks, the last one short; it still
	// fits in a single read buffer.
	data := make([]byte, 256*1024+777)
	for i := range data {
		data[i] = byte(i * 7)
	}
	local := writeLocalFile(t, data)
	require.NoError(t, h.orchestrator.IngestFile(ctx, root, "/deep/dir", "blob.bin", local))

	cid := h.fileCID(t, ctx, root, "/deep/dir", "blob.bin")
	fileMeta, err := h.metadata.ReadFileBlockMap(root, "/deep/dir", cid)
	require.NoError(t, err)
	require.Equal(t, data, h.concatenateBlocks(t, root, fileMeta))
}
