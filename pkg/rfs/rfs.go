// Package rfs is the daemon's top-level entry point: it wires a pool
// resolver to the block store, slicer, and metadata manager, and exposes
// the operations a caller needs to ingest files and list directories.
package rfs

import (
	"context"

	"github.com/canmi21/rfs/internal/blockstore"
	"github.com/canmi21/rfs/internal/ingest"
	"github.com/canmi21/rfs/internal/metadata"
	"github.com/canmi21/rfs/pkg/options"
	"github.com/canmi21/rfs/pkg/pool"
	"go.uber.org/zap"
)

// Instance is a running daemon bound to a pool registry.
type Instance struct {
	pools        pool.Resolver
	orchestrator *ingest.Orchestrator
	metadata     *metadata.Manager
	log          *zap.SugaredLogger
}

// NewInstance wires a pool resolver to fresh block store and metadata
// subsystems configured by opts.
func NewInstance(ctx context.Context, pools pool.Resolver, opts ...options.OptionFunc) (*Instance, error) {
	o := options.Apply(opts...)

	log := o.Logger
	if log == nil {
		prod, err := zap.NewProduction()
		if err != nil {
			return nil, err
		}
		log = prod.Sugar()
	}

	blocks, err := blockstore.New(blockstore.Config{Logger: log, CacheSize: o.BlockCacheSize})
	if err != nil {
		return nil, err
	}

	meta, err := metadata.New(metadata.Config{Logger: log, DirCacheSize: o.ResolvedDirCacheSize})
	if err != nil {
		return nil, err
	}

	orchestrator := ingest.New(ingest.Config{Logger: log, BlockStore: blocks, Metadata: meta})

	return &Instance{pools: pools, orchestrator: orchestrator, metadata: meta, log: log}, nil
}

// IngestFile stores localPath's content under poolID at rfsDirPath/filename.
func (i *Instance) IngestFile(ctx context.Context, poolID uint64, rfsDirPath, filename, localPath string) error {
	root, err := i.pools.Resolve(poolID)
	if err != nil {
		return err
	}
	return i.orchestrator.IngestFile(ctx, root, rfsDirPath, filename, localPath)
}

// ListDirectory returns the listing at rfsDirPath within poolID.
func (i *Instance) ListDirectory(ctx context.Context, poolID uint64, rfsDirPath string) (metadata.DirectoryListing, error) {
	root, err := i.pools.Resolve(poolID)
	if err != nil {
		return nil, err
	}
	return i.metadata.ListDirectory(ctx, root, rfsDirPath)
}
