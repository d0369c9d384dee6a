// Package options provides functional-option configuration for the daemon's
// ambient knobs. Chunk size, buffer size, CID length, and lock poll interval
// are fixed constants for on-disk format compatibility and are therefore not
// exposed here; only genuinely optional behavior (cache sizing, logger
// injection) is configurable.
package options

import "go.uber.org/zap"

// Options holds the configuration parameters for a daemon instance.
type Options struct {
	// Logger receives structured logs from every component. When nil,
	// rfs.NewInstance uses a production zap logger.
	Logger *zap.SugaredLogger `json:"-"`

	// BlockCacheSize bounds the in-process LRU used to skip redundant reads
	// of recently-written blocks. Zero disables the cache.
	BlockCacheSize int `json:"blockCacheSize"`

	// ResolvedDirCacheSize bounds the in-process LRU used by the metadata
	// manager to remember component-path -> physical-path resolutions that
	// can never change once minted. Zero disables the cache.
	ResolvedDirCacheSize int `json:"resolvedDirCacheSize"`
}

// OptionFunc is a function that modifies an Options value.
type OptionFunc func(*Options)

// WithLogger injects the logger used by every component.
func WithLogger(logger *zap.SugaredLogger) OptionFunc {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithBlockCacheSize sets the block-store read cache capacity.
func WithBlockCacheSize(size int) OptionFunc {
	return func(o *Options) {
		if size >= 0 {
			o.BlockCacheSize = size
		}
	}
}

// WithResolvedDirCacheSize sets the resolved-directory cache capacity.
func WithResolvedDirCacheSize(size int) OptionFunc {
	return func(o *Options) {
		if size >= 0 {
			o.ResolvedDirCacheSize = size
		}
	}
}
