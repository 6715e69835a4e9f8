package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeGenerate()
	c.normalizeConsistency()
	if err := c.normalizeRoots(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ReportDir) == "" {
		c.Paths.ReportDir = defaultReportDir
	}
	if c.Paths.ReportDir, err = expandPath(c.Paths.ReportDir); err != nil {
		return fmt.Errorf("paths.report_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case "":
		c.Store.Driver = defaultStoreDriver
	case "postgresql", "pg":
		c.Store.Driver = DriverPostgres
	case "sqlite3":
		c.Store.Driver = DriverSQLite
	}
	if value, ok := os.LookupEnv("HASHTOOLS_STORE_DSN"); ok && strings.TrimSpace(value) != "" {
		c.Store.DSN = strings.TrimSpace(value)
	}
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	if c.Store.Driver == DriverSQLite {
		if c.Store.DSN == "" {
			c.Store.DSN = defaultSQLiteDSN
		}
		var err error
		if c.Store.DSN, err = expandPath(c.Store.DSN); err != nil {
			return fmt.Errorf("store.dsn: %w", err)
		}
	}
	if c.Store.FetchSize <= 0 {
		c.Store.FetchSize = defaultStoreFetchSize
	}
	if c.Store.BatchSize <= 0 {
		c.Store.BatchSize = defaultStoreBatchSize
	}
	return nil
}

func (c *Config) normalizeGenerate() {
	if c.Generate.Threads <= 0 {
		c.Generate.Threads = defaultGenerateThreads
	}
	if c.Generate.QueueSize <= 0 {
		c.Generate.QueueSize = defaultGenerateQueueSize
	}
	if c.Generate.BatchSize <= 0 {
		c.Generate.BatchSize = defaultGenerateBatchSize
	}
	if c.Generate.ChunkSize <= 0 {
		c.Generate.ChunkSize = defaultGenerateChunkSize
	}
	if c.Generate.ProgressIntervalMS <= 0 {
		c.Generate.ProgressIntervalMS = defaultGenerateProgressMS
	}
}

func (c *Config) normalizeConsistency() {
	if c.Consistency.MaxRuntimeHours <= 0 {
		c.Consistency.MaxRuntimeHours = defaultConsistencyMaxHours
	}
	if c.Consistency.ProgressIntervalMS <= 0 {
		c.Consistency.ProgressIntervalMS = defaultConsistencyProgressMS
	}
}

func (c *Config) normalizeRoots() error {
	for i := range c.Roots {
		path := strings.TrimSpace(c.Roots[i].Path)
		if path == "" {
			continue
		}
		expanded, err := expandPath(path)
		if err != nil {
			return fmt.Errorf("roots[%d].path: %w", i, err)
		}
		c.Roots[i].Path = filepath.Clean(expanded)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
