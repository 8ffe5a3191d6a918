package onboarding

import "github.com/goliatone/go-repository-cache/cache"

// StoreOption configures onboarding store construction.
type StoreOption func(*StoreOptions)

// StoreOptions captures optional behavior for onboarding persistence.
type StoreOptions struct {
	CacheEnabled bool
	CacheConfig  *cache.Config
}

// WithCache toggles the repository cache decorator.
func WithCache(enabled bool) StoreOption {
	return func(opts *StoreOptions) {
		if opts == nil {
			return
		}
		opts.CacheEnabled = enabled
	}
}

// WithCacheConfig supplies the cache configuration to use when caching is enabled.
func WithCacheConfig(cfg cache.Config) StoreOption {
	return func(opts *StoreOptions) {
		if opts == nil {
			return
		}
		opts.CacheConfig = &cfg
	}
}

func applyStoreOptions(options []StoreOption) StoreOptions {
	var opts StoreOptions
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&opts)
	}
	return opts
}
