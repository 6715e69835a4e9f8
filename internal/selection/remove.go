package selection

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"hashtools/internal/fileutil"
	"hashtools/internal/logging"
	"hashtools/internal/record"
)

// RemoveStatus is the fate of one path considered by Remove.
type RemoveStatus string

const (
	// RemoveNoMeta marks a target file absent from the reference.
	RemoveNoMeta RemoveStatus = "no_meta"
	// RemoveDelete marks a group member present on disk and due for deletion.
	RemoveDelete RemoveStatus = "delete"
	// RemoveNotFound marks a group member no longer on disk.
	RemoveNotFound RemoveStatus = "not_found"
	// RemoveDeleted marks a member that was deleted.
	RemoveDeleted RemoveStatus = "deleted"
)

// RemoveOptions controls Remove.
type RemoveOptions struct {
	Types record.TypeFilter
	// Force deletes every member marked RemoveDelete.
	Force bool
}

// RemoveEntry is one logged path.
type RemoveEntry struct {
	Path   string
	Status RemoveStatus
	Record *record.FileRecord
}

// RemoveResult reports what Remove found and did.
type RemoveResult struct {
	Targets          int
	Matched          int
	Entries          []RemoveEntry
	ReclaimableBytes int64
	Deleted          int
	Applied          bool
}

// Remove expands targets (files, or directories walked recursively) to
// regular files, looks each one up by full path in reference, and marks
// every reference record sharing its (hash, content type) for deletion,
// the target itself included. Targets missing from reference are reported
// as RemoveNoMeta. Nothing is deleted unless opts.Force is set.
func (e *Engine) Remove(reference []record.FileRecord, targets []string, opts RemoveOptions) (*RemoveResult, error) {
	files, err := collectTargetFiles(targets)
	if err != nil {
		return nil, err
	}

	reference = filterTypes(reference, opts.Types)
	byPath := make(map[string]record.FileRecord, len(reference))
	for _, rec := range reference {
		full := filepath.Clean(rec.FullPath())
		if _, dup := byPath[full]; !dup {
			byPath[full] = rec
		}
	}

	result := &RemoveResult{Targets: len(files), Applied: opts.Force}
	wanted := make(map[record.Key]struct{})
	for _, path := range files {
		rec, ok := byPath[path]
		if !ok {
			result.Entries = append(result.Entries, RemoveEntry{Path: path, Status: RemoveNoMeta})
			continue
		}
		result.Matched++
		wanted[rec.Key()] = struct{}{}
	}

	seen := make(map[string]struct{})
	for _, g := range GroupBy(reference) {
		if _, ok := wanted[g.Key]; !ok {
			continue
		}
		for i := range g.Members {
			rec := g.Members[i]
			full := filepath.Clean(rec.FullPath())
			if _, dup := seen[full]; dup {
				continue
			}
			seen[full] = struct{}{}
			status := RemoveNotFound
			if info, err := os.Lstat(full); err == nil && info.Mode().IsRegular() {
				status = RemoveDelete
				result.ReclaimableBytes += rec.Size
			}
			result.Entries = append(result.Entries, RemoveEntry{Path: full, Status: status, Record: &rec})
		}
	}
	if !opts.Force {
		return result, nil
	}

	for i := range result.Entries {
		entry := &result.Entries[i]
		if entry.Status != RemoveDelete {
			continue
		}
		removed, err := fileutil.RemoveIfExists(entry.Path)
		if err != nil {
			return result, fmt.Errorf("remove %s: %w", entry.Path, err)
		}
		if !removed {
			entry.Status = RemoveNotFound
			continue
		}
		entry.Status = RemoveDeleted
		result.Deleted++
		e.logger.Info("group member removed", logging.String(logging.FieldPath, entry.Path))
	}
	return result, nil
}

// collectTargetFiles resolves targets to absolute regular-file paths in
// walk order, each listed once. A target that cannot be stat'ed is a
// structural error.
func collectTargetFiles(targets []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	add := func(path string) {
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}
	for _, target := range targets {
		abs, err := filepath.Abs(target)
		if err != nil {
			return nil, fmt.Errorf("resolve target %s: %w", target, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, record.Structural(fmt.Errorf("target %s: %w", target, err))
		}
		if !info.IsDir() {
			if info.Mode().IsRegular() {
				add(abs)
			}
			continue
		}
		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrPermission) && d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return err
			}
			if d.Type().IsRegular() {
				add(filepath.Clean(path))
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk target %s: %w", target, err)
		}
	}
	return files, nil
}
