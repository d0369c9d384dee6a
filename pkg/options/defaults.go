package options

const (
	// DefaultBlockCacheSize bounds the number of recently written/read
	// blocks kept in memory, shared by all pools of an instance.
	DefaultBlockCacheSize = 1024

	// DefaultResolvedDirCacheSize bounds the number of component-path ->
	// physical-path resolutions kept in memory, shared by all pools of an
	// instance.
	DefaultResolvedDirCacheSize = 4096
)

// NewDefaultOptions returns the daemon's default configuration. Logger is
// left nil; rfs.NewInstance substitutes a production zap logger when none is
// supplied via WithLogger.
func NewDefaultOptions() Options {
	return Options{
		BlockCacheSize:       DefaultBlockCacheSize,
		ResolvedDirCacheSize: DefaultResolvedDirCacheSize,
	}
}

// Apply builds an Options value starting from the defaults and applying the
// given functional options in order.
func Apply(opts ...OptionFunc) Options {
	o := NewDefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
