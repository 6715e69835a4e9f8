package selection

import (
	"fmt"
	"os"
	"path/filepath"

	"hashtools/internal/fileutil"
	"hashtools/internal/logging"
	"hashtools/internal/preflight"
	"hashtools/internal/record"
)

// SelectOptions controls Select and Prune.
type SelectOptions struct {
	Types record.TypeFilter
	// CopyTo receives a verified copy of every primary at CopyTo/<relative path>.
	CopyTo string
	// Prune schedules every redundant member for deletion.
	Prune bool
	// Force performs the scheduled deletions instead of previewing them.
	Force bool
}

// Deletion is one scheduled or performed removal.
type Deletion struct {
	Record  record.FileRecord
	Removed bool
}

// SelectResult reports what Select chose and did.
type SelectResult struct {
	Groups          []Group
	SelectedBytes   int64
	UnselectedBytes int64
	Copied          []string
	// InPlace lists primaries already sitting at their copy destination.
	InPlace   []string
	Deletions []Deletion
	Applied   bool
}

// Select restricts data to hashes present in reference, groups it, and
// picks the primary of each group.
func (e *Engine) Select(reference, data []record.FileRecord, opts SelectOptions) (*SelectResult, error) {
	refs := hashSet(reference)
	candidates := make([]record.FileRecord, 0, len(data))
	for _, rec := range data {
		if _, ok := refs[rec.Hash]; ok {
			candidates = append(candidates, rec)
		}
	}
	candidates = filterTypes(candidates, opts.Types)

	groups, err := e.ranker.Classify(candidates)
	if err != nil {
		return nil, err
	}

	var dsts []string
	if opts.CopyTo != "" {
		if err := ensureWritable(opts.CopyTo); err != nil {
			return nil, err
		}
		if dsts, err = copyTargets(opts.CopyTo, groups, data); err != nil {
			return nil, err
		}
	}

	result := &SelectResult{Groups: groups, Applied: opts.Prune && opts.Force}
	keep := make(map[string]struct{}, 2*len(groups))
	for i, g := range groups {
		keep[g.Primary().FullPath()] = struct{}{}
		if dsts != nil && dsts[i] != "" {
			keep[dsts[i]] = struct{}{}
		}
	}
	for _, g := range groups {
		result.SelectedBytes += g.Size()
		for _, rec := range g.Redundant() {
			result.UnselectedBytes += rec.Size
			if !opts.Prune {
				continue
			}
			full := rec.FullPath()
			if _, ok := keep[full]; ok {
				e.logger.Warn("redundant record kept as a primary or copy destination",
					logging.String(logging.FieldPath, full),
					logging.String("key", g.Key.String()),
				)
				continue
			}
			keep[full] = struct{}{}
			result.Deletions = append(result.Deletions, Deletion{Record: rec})
		}
	}

	if dsts != nil {
		if err := e.copyPrimaries(groups, dsts, result); err != nil {
			return result, err
		}
	}

	if opts.Prune && opts.Force {
		if err := e.delete(result.Deletions); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (e *Engine) copyPrimaries(groups []Group, dsts []string, result *SelectResult) error {
	for i, g := range groups {
		src := g.Primary().FullPath()
		if dsts[i] == "" {
			result.InPlace = append(result.InPlace, src)
			e.logger.Debug("primary already at destination", logging.String(logging.FieldPath, src))
			continue
		}
		if err := fileutil.CopyPreserving(src, dsts[i]); err != nil {
			return fmt.Errorf("copy %s: %w", src, err)
		}
		result.Copied = append(result.Copied, dsts[i])
		e.logger.Debug("primary copied", logging.String(logging.FieldPath, src), logging.String("destination", dsts[i]))
	}
	return nil
}

// copyTargets maps each group's primary to copyTo/<relativePath>. A primary
// that already is its destination gets an empty entry and is not copied.
// Two primaries landing on the same destination, or a destination that
// names a listed file of different content, is a structural error.
func copyTargets(copyTo string, groups []Group, listed []record.FileRecord) ([]string, error) {
	copyTo, err := filepath.Abs(copyTo)
	if err != nil {
		return nil, fmt.Errorf("resolve copy destination: %w", err)
	}
	keyOf := make(map[string]record.Key, len(listed))
	for _, rec := range listed {
		keyOf[rec.FullPath()] = rec.Key()
	}
	dsts := make([]string, len(groups))
	owner := make(map[string]string, len(groups))
	for i, g := range groups {
		primary := g.Primary()
		src := primary.FullPath()
		dst := filepath.Join(copyTo, filepath.FromSlash(primary.RelativePath))
		if prev, ok := owner[dst]; ok {
			return nil, record.Structural(fmt.Errorf("copy destination %s is shared by %s and %s", dst, prev, src))
		}
		owner[dst] = src
		same, err := fileutil.SameFile(src, dst)
		if err != nil {
			return nil, fmt.Errorf("check copy destination %s: %w", dst, err)
		}
		if same {
			continue
		}
		if key, ok := keyOf[dst]; ok && key != g.Key {
			return nil, record.Structural(fmt.Errorf("copy destination %s holds different content than %s", dst, src))
		}
		dsts[i] = dst
	}
	return dsts, nil
}

func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return record.Structural(fmt.Errorf("copy destination: %w", err))
	}
	if check := preflight.CheckDirectoryAccess("copy destination", dir); !check.Passed {
		return record.Structural(fmt.Errorf("copy destination not writable: %s", check.Detail))
	}
	return nil
}

// Prune is Select with reference == data that deletes every redundant copy.
func (e *Engine) Prune(data []record.FileRecord, opts SelectOptions) (*SelectResult, error) {
	opts.Prune = true
	return e.Select(data, data, opts)
}

func (e *Engine) delete(deletions []Deletion) error {
	for i := range deletions {
		path := deletions[i].Record.FullPath()
		removed, err := fileutil.RemoveIfExists(path)
		if err != nil {
			return fmt.Errorf("delete %s: %w; %d deletions not attempted", path, err, len(deletions)-i-1)
		}
		deletions[i].Removed = removed
		e.logger.Info("redundant copy deleted",
			logging.String(logging.FieldPath, path),
			logging.Bool("existed", removed),
		)
	}
	return nil
}
