package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"hashtools/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantReports := filepath.Join(tempHome, ".local", "share", "hashtools", "reports")
	if cfg.Paths.ReportDir != wantReports {
		t.Fatalf("unexpected report dir: got %q want %q", cfg.Paths.ReportDir, wantReports)
	}
	if cfg.Store.Driver != config.DriverSQLite {
		t.Fatalf("unexpected store driver: %q", cfg.Store.Driver)
	}
	if cfg.Store.DSN != filepath.Join(tempHome, ".local", "share", "hashtools", "inventory.db") {
		t.Fatalf("unexpected store dsn: %q", cfg.Store.DSN)
	}
	if cfg.Generate.Threads != 2 || cfg.Generate.QueueSize != 10_000 || cfg.Generate.BatchSize != 500 {
		t.Fatalf("unexpected generate defaults: %+v", cfg.Generate)
	}
	if cfg.Generate.ChunkSize != 16*1024 {
		t.Fatalf("unexpected chunk size: %d", cfg.Generate.ChunkSize)
	}
	if got := cfg.MaxRuntime().Hours(); got != 12 {
		t.Fatalf("unexpected max runtime: %vh", got)
	}
	if got := cfg.ConsistencyProgressInterval().Milliseconds(); got != 250 {
		t.Fatalf("unexpected consistency refresh: %dms", got)
	}
	if cfg.RootTable().Len() != 0 {
		t.Fatal("expected no roots by default")
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	payload := struct {
		Paths struct {
			ReportDir string `toml:"report_dir"`
		} `toml:"paths"`
		Generate struct {
			Threads   int `toml:"threads"`
			QueueSize int `toml:"queue_size"`
		} `toml:"generate"`
		Logging struct {
			Format string `toml:"format"`
			Level  string `toml:"level"`
		} `toml:"logging"`
		Roots []struct {
			Path     string `toml:"path"`
			Priority int    `toml:"priority"`
			Vault    bool   `toml:"vault"`
		} `toml:"roots"`
	}{}
	payload.Paths.ReportDir = "~/reports"
	payload.Generate.Threads = 8
	payload.Generate.QueueSize = 64
	payload.Logging.Format = "JSON"
	payload.Logging.Level = "Debug"
	payload.Roots = append(payload.Roots,
		struct {
			Path     string `toml:"path"`
			Priority int    `toml:"priority"`
			Vault    bool   `toml:"vault"`
		}{Path: "/mnt/vault/", Priority: 1, Vault: true},
		struct {
			Path     string `toml:"path"`
			Priority int    `toml:"priority"`
			Vault    bool   `toml:"vault"`
		}{Path: "/mnt/photos", Priority: 2},
	)

	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.Paths.ReportDir != filepath.Join(tempHome, "reports") {
		t.Fatalf("unexpected report dir: %q", cfg.Paths.ReportDir)
	}
	if cfg.Generate.Threads != 8 || cfg.Generate.QueueSize != 64 {
		t.Fatalf("unexpected generate values: %+v", cfg.Generate)
	}
	if cfg.Generate.BatchSize != 500 {
		t.Fatalf("expected default batch size to survive, got %d", cfg.Generate.BatchSize)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging values: %+v", cfg.Logging)
	}

	table := cfg.RootTable()
	vault, ok := table.Lookup("/mnt/vault")
	if !ok {
		t.Fatal("expected vault root to be configured")
	}
	if vault.Priority != 1 || !vault.Vault {
		t.Fatalf("unexpected vault root: %+v", vault)
	}
	if _, ok := table.Lookup("/mnt/photos"); !ok {
		t.Fatal("expected photos root to be configured")
	}
}

func TestLoadStoreDSNFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("HASHTOOLS_STORE_DSN", "  ~/elsewhere/inv.db ")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	home, _ := os.UserHomeDir()
	if cfg.Store.DSN != filepath.Join(home, "elsewhere", "inv.db") {
		t.Fatalf("expected env dsn to be expanded, got %q", cfg.Store.DSN)
	}
}

func TestLoadPostgresDSNIsNotExpanded(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	body := "[store]\ndriver = \"PostgreSQL\"\ndsn = \"postgres://hashtools@db/hashtools?sslmode=disable\"\n"
	if err := os.WriteFile(configPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store.Driver != config.DriverPostgres {
		t.Fatalf("unexpected driver: %q", cfg.Store.Driver)
	}
	if cfg.Store.DSN != "postgres://hashtools@db/hashtools?sslmode=disable" {
		t.Fatalf("unexpected dsn: %q", cfg.Store.DSN)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"driver", func(c *config.Config) { c.Store.Driver = "oracle" }, "store.driver"},
		{"dsn", func(c *config.Config) { c.Store.DSN = "" }, "store.dsn"},
		{"chunk", func(c *config.Config) { c.Generate.ChunkSize = 10 }, "generate.chunk_size"},
		{"relative-root", func(c *config.Config) { c.Roots = []config.Root{{Path: "photos"}} }, "must be absolute"},
		{"duplicate-root", func(c *config.Config) {
			c.Roots = []config.Root{{Path: "/a"}, {Path: "/a", Priority: 2}}
		}, "more than once"},
		{"level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.RootTable().Len() != 2 {
		t.Fatalf("expected two sample roots, got %d", cfg.RootTable().Len())
	}
}

func TestEnsureDirectoriesCreatesReportAndStoreParents(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ReportDir = filepath.Join(base, "reports")
	cfg.Store.DSN = filepath.Join(base, "db", "inventory.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{"logs", "reports", "db"} {
		if info, err := os.Stat(filepath.Join(base, dir)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s directory, err=%v", dir, err)
		}
	}
}
