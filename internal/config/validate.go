package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateGenerate(); err != nil {
		return err
	}
	if err := c.validateRoots(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("store.driver: unsupported value %q (want %q or %q)", c.Store.Driver, DriverSQLite, DriverPostgres)
	}
	if c.Store.DSN == "" {
		return errors.New("store.dsn must be set")
	}
	return nil
}

func (c *Config) validateGenerate() error {
	if c.Generate.Threads > 1024 {
		return fmt.Errorf("generate.threads: %d exceeds the limit of 1024", c.Generate.Threads)
	}
	if c.Generate.ChunkSize < 512 {
		return fmt.Errorf("generate.chunk_size: must be at least 512 bytes, got %d", c.Generate.ChunkSize)
	}
	return nil
}

func (c *Config) validateRoots() error {
	seen := make(map[string]struct{}, len(c.Roots))
	for i, root := range c.Roots {
		if root.Path == "" {
			return fmt.Errorf("roots[%d].path must be set", i)
		}
		if !strings.HasPrefix(root.Path, "/") {
			return fmt.Errorf("roots[%d].path %q must be absolute", i, root.Path)
		}
		if _, dup := seen[root.Path]; dup {
			return fmt.Errorf("roots[%d].path %q is configured more than once", i, root.Path)
		}
		seen[root.Path] = struct{}{}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
