// Package blockstore persists and retrieves fixed-content blocks addressed
// by their digest.Fingerprint. Blocks are written once under
// "<pool>/blocks/<h0>/<h1>/<h2>/<fingerprint-hex>-<n>", where the three
// leading hex pairs of the fingerprint split the block into a fan-out
// directory tree and n is a collision index: a fingerprint collision (two
// different byte slices hashing to the same 128-bit value) is resolved by
// keeping both files side by side and probing them in order on write.
package blockstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/canmi21/rfs/pkg/digest"
	"github.com/canmi21/rfs/pkg/filesys"
	"github.com/canmi21/rfs/pkg/rfserrors"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Config carries the dependencies a Store needs.
type Config struct {
	Logger    *zap.SugaredLogger
	CacheSize int // number of recently-written/read blocks cached in memory; 0 disables the cache.
}

// cacheKey identifies one physical block file. poolRoot is part of the key
// because a single Store is shared across every pool resolved through the
// same Instance (pkg/rfs); without it, two pools whose blocks happen to
// share a (fingerprint, index) pair would read back each other's bytes.
type cacheKey struct {
	poolRoot    string
	fingerprint digest.Fingerprint
	index       uint32
}

// Store writes and reads content-addressed blocks. Each call names the pool
// root it operates on, so one Store can serve several pools.
type Store struct {
	log   *zap.SugaredLogger
	cache *lru.Cache[cacheKey, []byte]
}

// New constructs a Store. A nil or zero-value Config falls back to an
// unbuffered logger-less store suitable only for tests.
func New(config Config) (*Store, error) {
	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	var cache *lru.Cache[cacheKey, []byte]
	if config.CacheSize > 0 {
		c, err := lru.New[cacheKey, []byte](config.CacheSize)
		if err != nil {
			return nil, rfserrors.NewIOError(err, "").WithDetail("cacheSize", config.CacheSize)
		}
		cache = c
	}

	return &Store{log: log, cache: cache}, nil
}

// blockDir returns "<poolRoot>/blocks/<h0>/<h1>/<h2>" for a fingerprint.
func blockDir(poolRoot string, fp digest.Fingerprint) string {
	hex := fp.Hex()
	return filepath.Join(poolRoot, "blocks", hex[0:2], hex[2:4], hex[4:6])
}

func blockFileName(fp digest.Fingerprint, index uint32) string {
	return fmt.Sprintf("%s-%d", fp.Hex(), index)
}

// Write persists data under fp, returning the collision index of the file
// it was written to (or matched, if an identical block already exists).
// Fingerprint collisions across distinct content are resolved by scanning
// every existing "<hex>-<n>" file in the block's directory, byte-comparing
// each against data, and returning the first exact match; only when none
// match is a new file appended at the next free index.
func (s *Store) Write(poolRoot string, fp digest.Fingerprint, data []byte) (uint32, error) {
	dir := blockDir(poolRoot, fp)
	if err := filesys.CreateDir(dir, 0755, true); err != nil {
		return 0, err
	}

	prefix := fp.Hex() + "-"
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, rfserrors.ClassifyIOError(err, dir)
	}

	var maxIndex uint32
	var candidates []uint32
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		n, ok := parseIndex(name[len(prefix):])
		if !ok {
			continue
		}
		if n > maxIndex {
			maxIndex = n
		}
		candidates = append(candidates, n)
	}

	for _, n := range candidates {
		path := filepath.Join(dir, blockFileName(fp, n))
		existing, err := filesys.ReadFile(path)
		if err != nil {
			return 0, err
		}
		if string(existing) == string(data) {
			s.putCache(cacheKey{poolRoot, fp, n}, data)
			return n, nil
		}
	}

	newIndex := maxIndex + 1
	path := filepath.Join(dir, blockFileName(fp, newIndex))
	if err := filesys.WriteFile(path, 0644, data); err != nil {
		return 0, err
	}

	s.log.Debugw("wrote block", "fingerprint", fp.Hex(), "index", newIndex, "size", len(data))
	s.putCache(cacheKey{poolRoot, fp, newIndex}, data)
	return newIndex, nil
}

// Read returns the bytes of the block identified by (fp, index).
func (s *Store) Read(poolRoot string, fp digest.Fingerprint, index uint32) ([]byte, error) {
	key := cacheKey{poolRoot, fp, index}
	if s.cache != nil {
		if data, ok := s.cache.Get(key); ok {
			return data, nil
		}
	}

	path := filepath.Join(blockDir(poolRoot, fp), blockFileName(fp, index))
	data, err := filesys.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s.putCache(key, data)
	return data, nil
}

// putCache stores a private copy of data, since callers such as the slicer
// reuse the backing buffer once Write returns.
func (s *Store) putCache(key cacheKey, data []byte) {
	if s.cache != nil {
		s.cache.Add(key, append([]byte(nil), data...))
	}
}

func parseIndex(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	var n uint64
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + uint64(r-'0')
		if n > 1<<32-1 {
			return 0, false
		}
	}
	return uint32(n), true
}
