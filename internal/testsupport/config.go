package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"hashtools/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The store is a SQLite file inside the temp directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ReportDir = filepath.Join(base, "reports")
	cfgVal.Store.Driver = config.DriverSQLite
	cfgVal.Store.DSN = filepath.Join(base, "inventory.db")
	cfgVal.Store.FetchSize = 3
	cfgVal.Store.BatchSize = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithRoots registers storage roots as given.
func WithRoots(roots ...config.Root) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Roots = append(b.cfg.Roots, roots...)
	}
}

// WithRootDirs creates one directory per name under the base directory and
// registers it as a root. Priorities follow argument order starting at 10.
func WithRootDirs(names ...string) ConfigOption {
	return func(b *configBuilder) {
		for i, name := range names {
			dir := filepath.Join(b.baseDir, "roots", name)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				b.t.Fatalf("mkdir root %s: %v", name, err)
			}
			b.cfg.Roots = append(b.cfg.Roots, config.Root{Path: dir, Priority: 10 * (i + 1)})
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ReportDir)
}

// RootDir returns the path WithRootDirs used for name.
func RootDir(cfg *config.Config, name string) string {
	return filepath.Join(BaseDir(cfg), "roots", name)
}
