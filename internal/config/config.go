package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"hashtools/internal/record"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LogDir    string `toml:"log_dir"`
	ReportDir string `toml:"report_dir"`
}

// Store contains the inventory database connection settings.
type Store struct {
	// Driver is "sqlite" or "postgres".
	Driver string `toml:"driver"`
	// DSN is a file path for sqlite or a connection string for postgres.
	DSN string `toml:"dsn"`
	// FetchSize bounds the rows fetched per round trip when streaming.
	FetchSize int `toml:"fetch_size"`
	// BatchSize bounds the rows written per transaction on import and delete.
	BatchSize int `toml:"batch_size"`
}

// Generate contains digest pipeline sizing.
type Generate struct {
	Threads            int `toml:"threads"`
	QueueSize          int `toml:"queue_size"`
	BatchSize          int `toml:"batch_size"`
	ChunkSize          int `toml:"chunk_size"`
	ProgressIntervalMS int `toml:"progress_interval_ms"`
}

// Consistency contains verifier limits.
type Consistency struct {
	MaxRuntimeHours    int `toml:"max_runtime_hours"`
	ProgressIntervalMS int `toml:"progress_interval_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// File enables an additional log file in paths.log_dir.
	File bool `toml:"file"`
}

// Root describes one storage root and its selection priority.
type Root struct {
	Path     string `toml:"path"`
	Priority int    `toml:"priority"`
	Vault    bool   `toml:"vault"`
}

// Config encapsulates all configuration values for hashtools.
//
// Configuration sections by subsystem:
//   - Paths: log and stale-record report directories
//   - Store: inventory database driver and connection
//   - Generate: digest pipeline workers, queue, and batch sizes
//   - Consistency: verifier runtime cap and refresh rate
//   - Logging: log format and level
//   - Roots: storage roots with priority and vault flag
type Config struct {
	Paths       Paths       `toml:"paths"`
	Store       Store       `toml:"store"`
	Generate    Generate    `toml:"generate"`
	Consistency Consistency `toml:"consistency"`
	Logging     Logging     `toml:"logging"`
	Roots       []Root      `toml:"roots"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/hashtools/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, record.Structural(fmt.Errorf("parse config: %w", err))
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, record.Structural(err)
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hashtools.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log and report directories, and the parent of
// a file-backed store.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir, c.Paths.ReportDir}
	if c.Store.Driver == DriverSQLite {
		dirs = append(dirs, filepath.Dir(c.Store.DSN))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RootTable returns the configured roots as a lookup table.
func (c *Config) RootTable() *record.RootTable {
	roots := make([]record.Root, 0, len(c.Roots))
	for _, r := range c.Roots {
		roots = append(roots, record.Root{Path: r.Path, Priority: r.Priority, Vault: r.Vault})
	}
	return record.NewRootTable(roots)
}

// MaxRuntime returns the consistency run cap.
func (c *Config) MaxRuntime() time.Duration {
	return time.Duration(c.Consistency.MaxRuntimeHours) * time.Hour
}

// GenerateProgressInterval returns how often the digest pipeline redraws progress.
func (c *Config) GenerateProgressInterval() time.Duration {
	return time.Duration(c.Generate.ProgressIntervalMS) * time.Millisecond
}

// ConsistencyProgressInterval returns how often the verifier redraws its status line.
func (c *Config) ConsistencyProgressInterval() time.Duration {
	return time.Duration(c.Consistency.ProgressIntervalMS) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
