package knowledge

const (
	defaultTopK = 3
	maxTopK     = 10
)

// SearchOption adjusts a single Search call.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK int
}

// WithTopK sets how many matches Search returns. Values outside
// [1, 10] keep the default.
func WithTopK(k int) SearchOption {
	return func(cfg *searchConfig) {
		if k >= 1 && k <= maxTopK {
			cfg.topK = k
		}
	}
}

func buildSearchConfig(opts []SearchOption) searchConfig {
	cfg := searchConfig{topK: defaultTopK}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
