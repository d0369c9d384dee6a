// Package ingest orchestrates the full path from a file on local disk to a
// stored, deduplicated, content-addressed representation in a pool: slicing
// it into chunks, writing each chunk to the block store, and recording the
// resulting block map as the file's metadata entry.
package ingest

import (
	"context"
	"time"

	"github.com/canmi21/rfs/internal/blockstore"
	"github.com/canmi21/rfs/internal/metadata"
	"github.com/canmi21/rfs/internal/slicer"
	"github.com/canmi21/rfs/pkg/digest"
	"github.com/canmi21/rfs/pkg/pathutil"
	"go.uber.org/zap"
)

// Config holds the subsystems an Orchestrator coordinates.
type Config struct {
	Logger     *zap.SugaredLogger
	BlockStore *blockstore.Store
	Metadata   *metadata.Manager
}

// Orchestrator binds slicing, block storage, and metadata recording into a
// single ingest operation.
type Orchestrator struct {
	log      *zap.SugaredLogger
	blocks   *blockstore.Store
	metadata *metadata.Manager
}

// New constructs an Orchestrator over already-initialized subsystems.
func New(config Config) *Orchestrator {
	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Orchestrator{log: log, blocks: config.BlockStore, metadata: config.Metadata}
}

// IngestFile reads localPath from local disk, slices it into chunks,
// deduplicates and stores each chunk in poolRoot's block store, and records
// the resulting file at rfsDirPath/filename. filename is validated before
// the slicer ever runs, so a bad name fails immediately instead of after a
// full, possibly large, slice/hash/write pass. Every chunk is hashed and
// stored before any metadata is written, so a mid-ingest failure never
// leaves a partially-recorded file visible in a listing.
func (o *Orchestrator) IngestFile(ctx context.Context, poolRoot, rfsDirPath, filename, localPath string) error {
	if err := pathutil.ValidateComponent(filename); err != nil {
		return err
	}

	var totalSize uint64
	blocks := make(map[uint64]metadata.BlockInfo)
	err := slicer.Slice(ctx, o.log, localPath, func(chunk slicer.Chunk) error {
		fp := digest.Calculate(chunk.Data)
		index, err := o.blocks.Write(poolRoot, fp, chunk.Data)
		if err != nil {
			return err
		}
		blocks[chunk.Index] = metadata.BlockInfo{XXH3: fp, Index: index}
		totalSize += uint64(len(chunk.Data))
		return nil
	})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	fileMeta := metadata.FileMetadata{
		Filename:   filename,
		Size:       totalSize,
		CreatedAt:  now,
		ModifiedAt: now,
		Blocks:     blocks,
	}

	if err := o.metadata.CreateFile(ctx, poolRoot, rfsDirPath, filename, fileMeta); err != nil {
		return err
	}

	o.log.Infow("ingested file", "localPath", localPath, "dir", rfsDirPath, "filename", filename,
		"size", totalSize, "chunks", len(blocks))
	return nil
}
