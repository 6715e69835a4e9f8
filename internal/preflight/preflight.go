package preflight

import (
	"fmt"
	"path/filepath"

	"hashtools/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Report directory", cfg.Paths.ReportDir),
	}
	if cfg.Store.Driver == config.DriverSQLite {
		results = append(results, CheckDirectoryAccess("Store directory", filepath.Dir(cfg.Store.DSN)))
	}
	if cfg.Logging.File {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	for _, root := range cfg.RootTable().Roots() {
		results = append(results, CheckMounted(fmt.Sprintf("Root (priority %d)", root.Priority), root.Path))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
