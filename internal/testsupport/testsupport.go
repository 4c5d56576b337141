// Package testsupport provides shared builders for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/lbbniu/jimeng-tts/internal/artifacts"
	"github.com/lbbniu/jimeng-tts/internal/config"
	"github.com/lbbniu/jimeng-tts/internal/quota"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test,
// no pacing delays, and no retry sleeps so tests run instantly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfg := &cfgVal
	cfg.Storage.DataDir = filepath.Join(base, "data")
	cfg.Storage.OutputDir = filepath.Join(base, "output")
	cfg.API.RequestDelay = 0
	cfg.Generation.RetryDelay = 0

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return cfg
}

// WithAllowance sets the daily quota allowance on the test config.
func WithAllowance(allowance int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Quota.DailyAllowance = allowance
	}
}

// WithMaxRetries sets the submission retry budget on the test config.
func WithMaxRetries(retries int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Generation.MaxRetries = retries
	}
}

// OpenStore opens an artifact store under the config's data dir and closes
// it when the test finishes.
func OpenStore(t testing.TB, cfg *config.Config) *artifacts.Store {
	t.Helper()
	store, err := artifacts.Open(filepath.Join(cfg.Storage.DataDir, "artifacts"))
	if err != nil {
		t.Fatalf("open artifact store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// OpenLedger opens a quota ledger under the config's data dir with the
// config's daily allowance and closes it when the test finishes.
func OpenLedger(t testing.TB, cfg *config.Config, opts ...quota.Option) *quota.Ledger {
	t.Helper()
	ledger, err := quota.Open(filepath.Join(cfg.Storage.DataDir, "quota.db"), cfg.Quota.DailyAllowance, opts...)
	if err != nil {
		t.Fatalf("open quota ledger: %v", err)
	}
	t.Cleanup(func() { ledger.Close() })
	return ledger
}
