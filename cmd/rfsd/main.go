// Command rfsd is a minimal command-line front end for the storage daemon:
// it registers one pool from flags, then ingests a file or lists a
// directory. It does not implement a network listener or a persistent
// pool registry; those belong to a deployment-specific wrapper.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/canmi21/rfs/pkg/options"
	"github.com/canmi21/rfs/pkg/pool"
	"github.com/canmi21/rfs/pkg/rfs"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "rfsd:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		poolPath string
		dirPath  string
		ingest   string
		filename string
	)
	flag.StringVar(&poolPath, "pool", "", "filesystem root of the pool to serve (required)")
	flag.StringVar(&dirPath, "dir", "/", "virtual directory to operate on")
	flag.StringVar(&ingest, "ingest", "", "local file path to ingest into -dir")
	flag.StringVar(&filename, "name", "", "name to give the ingested file (defaults to its base name)")
	flag.Parse()

	if poolPath == "" {
		return fmt.Errorf("-pool is required")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Sugar()

	registry := pool.NewRegistry()
	const poolID = 1
	registry.Register(poolID, poolPath)

	ctx := context.Background()
	instance, err := rfs.NewInstance(ctx, registry, options.WithLogger(log))
	if err != nil {
		return fmt.Errorf("initializing daemon: %w", err)
	}

	if ingest != "" {
		name := filename
		if name == "" {
			name = flagBase(ingest)
		}
		if err := instance.IngestFile(ctx, poolID, dirPath, name, ingest); err != nil {
			return fmt.Errorf("ingesting %q: %w", ingest, err)
		}
		log.Infow("ingest complete", "localPath", ingest, "dir", dirPath, "name", name)
		return nil
	}

	listing, err := instance.ListDirectory(ctx, poolID, dirPath)
	if err != nil {
		return fmt.Errorf("listing %q: %w", dirPath, err)
	}
	for name, entry := range listing {
		switch entry.Type {
		case "File":
			fmt.Printf("%-10s %-40s cid=%s size=%d\n", entry.Type, name, entry.File.CID, entry.File.Size)
		case "Directory":
			fmt.Printf("%-10s %-40s cid=%s size=%d\n", entry.Type, name, entry.Directory.CID, entry.Directory.Size)
		}
	}
	return nil
}

// flagBase returns the final path component of p without pulling in
// path/filepath just to strip a directory prefix for a default flag value.
func flagBase(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}
