package selection

import (
	"fmt"

	"hashtools/internal/fileutil"
	"hashtools/internal/logging"
	"hashtools/internal/record"
)

// PurgeOptions controls Purge.
type PurgeOptions struct {
	Types  record.TypeFilter
	Delete bool
	Force  bool
}

// PurgeStatus is the fate of one matched target record.
type PurgeStatus string

const (
	PurgePending  PurgeStatus = "pending"
	PurgeDeleted  PurgeStatus = "deleted"
	PurgeNotFound PurgeStatus = "not_found"
)

// PurgeMatch is a target record whose content exists in the reference set.
type PurgeMatch struct {
	Record record.FileRecord
	Status PurgeStatus
}

// PurgeGroup collects matches sharing one content identity.
type PurgeGroup struct {
	Key     record.Key
	Matches []PurgeMatch
}

// PurgeResult reports matched records and what happened to them.
type PurgeResult struct {
	Groups           []PurgeGroup
	Matched          int
	ReclaimableBytes int64
	Deleted          int
	NotFound         int
	Applied          bool
}

// Purge matches every target record whose (hash, content type) occurs in
// reference. Files are deleted only when both Delete and Force are set. A
// target path that is itself listed in reference is never matched.
func (e *Engine) Purge(reference, target []record.FileRecord, opts PurgeOptions) (*PurgeResult, error) {
	keys := make(map[record.Key]struct{}, len(reference))
	refPaths := make(map[string]struct{}, len(reference))
	for _, rec := range reference {
		keys[rec.Key()] = struct{}{}
		refPaths[rec.FullPath()] = struct{}{}
	}

	var matched []record.FileRecord
	for _, rec := range filterTypes(target, opts.Types) {
		if _, ok := keys[rec.Key()]; !ok {
			continue
		}
		if _, self := refPaths[rec.FullPath()]; self {
			continue
		}
		matched = append(matched, rec)
	}

	result := &PurgeResult{Applied: opts.Delete && opts.Force}
	for _, g := range GroupBy(matched) {
		pg := PurgeGroup{Key: g.Key}
		for _, rec := range g.Members {
			pg.Matches = append(pg.Matches, PurgeMatch{Record: rec, Status: PurgePending})
			result.Matched++
			result.ReclaimableBytes += rec.Size
		}
		result.Groups = append(result.Groups, pg)
	}
	if !result.Applied {
		return result, nil
	}

	for gi := range result.Groups {
		for mi := range result.Groups[gi].Matches {
			m := &result.Groups[gi].Matches[mi]
			removed, err := fileutil.RemoveIfExists(m.Record.FullPath())
			if err != nil {
				return result, fmt.Errorf("purge %s: %w", m.Record.FullPath(), err)
			}
			if removed {
				m.Status = PurgeDeleted
				result.Deleted++
				e.logger.Info("purged", logging.String(logging.FieldPath, m.Record.FullPath()))
			} else {
				m.Status = PurgeNotFound
				result.NotFound++
				e.logger.Warn("purge target not found", logging.String(logging.FieldPath, m.Record.FullPath()))
			}
		}
	}
	return result, nil
}
