package verify

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"hashtools/internal/logging"
	"hashtools/internal/record"
)

// Deleter removes store rows by id.
type Deleter interface {
	DeleteIDs(ctx context.Context, ids []int64) (int64, error)
}

// StaleEntry is one line of a stale-record report.
type StaleEntry struct {
	ID       int64
	FullPath string
}

// ReadReport parses a report of id<TAB>full_path lines. Blank lines are
// ignored; any other malformed line is a structural error.
func ReadReport(path string) ([]StaleEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	var entries []StaleEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		idText, fullPath, ok := strings.Cut(text, "\t")
		if !ok || fullPath == "" {
			return nil, record.Structural(fmt.Errorf("%s:%d: expected id<TAB>path", path, line))
		}
		id, err := strconv.ParseInt(idText, 10, 64)
		if err != nil || id <= 0 {
			return nil, record.Structural(fmt.Errorf("%s:%d: invalid id %q", path, line, idText))
		}
		entries = append(entries, StaleEntry{ID: id, FullPath: fullPath})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}
	return entries, nil
}

// StaleResult summarizes DeleteStale.
type StaleResult struct {
	Entries []StaleEntry
	Deleted int64
	Applied bool
}

// DeleteStale loads every report and, when force is set, deletes the listed
// rows. Ids repeated across reports are deleted once.
func DeleteStale(ctx context.Context, d Deleter, paths []string, force bool, logger *slog.Logger) (StaleResult, error) {
	logger = logging.NewComponentLogger(logger, "consistency")
	var result StaleResult
	seen := make(map[int64]struct{})
	for _, path := range paths {
		entries, err := ReadReport(path)
		if err != nil {
			return result, err
		}
		for _, e := range entries {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			result.Entries = append(result.Entries, e)
		}
	}
	if !force || len(result.Entries) == 0 {
		return result, nil
	}

	ids := make([]int64, len(result.Entries))
	for i, e := range result.Entries {
		ids[i] = e.ID
	}
	deleted, err := d.DeleteIDs(ctx, ids)
	result.Deleted = deleted
	if err != nil {
		return result, fmt.Errorf("delete stale rows: %w", err)
	}
	result.Applied = true
	logger.Info("stale rows deleted",
		logging.Int("listed", len(ids)),
		logging.Int64("deleted", deleted),
	)
	return result, nil
}
