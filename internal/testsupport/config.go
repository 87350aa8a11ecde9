package testsupport

import (
	"path/filepath"
	"testing"

	"fapiao/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.SiliconFlow.APIKey = "test-key"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithAPIKey sets the SiliconFlow API key on the test config.
func WithAPIKey(key string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.SiliconFlow.APIKey = key
	}
}

// WithTemplate sets the filename template on the test config.
func WithTemplate(template string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Naming.Template = config.NormalizeTemplate(template)
	}
}

// WithConfidenceThreshold overrides the recognition confidence gate.
func WithConfidenceThreshold(threshold float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Recognition.ConfidenceThreshold = threshold
	}
}
