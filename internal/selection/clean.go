package selection

import (
	"errors"
	"fmt"
	"os"

	"hashtools/internal/digest"
	"hashtools/internal/logging"
	"hashtools/internal/record"
)

// ErrRootMissing reports a record whose storage root is not a directory.
var ErrRootMissing = errors.New("storage root is not an accessible directory")

// CleanOptions controls Clean.
type CleanOptions struct {
	// Deep also compares size, timestamp, and detected content type.
	Deep bool
	// Force rewrites the file when anything was removed.
	Force bool
	// Detector classifies files in deep mode; defaults to digest.MimeDetector.
	Detector digest.Detector
	// Progress is called after each record is checked.
	Progress func(done, total int)
}

// CleanRemoval is a record dropped from the file and why.
type CleanRemoval struct {
	Record record.FileRecord
	Reason string
}

// CleanResult reports the outcome for one record file.
type CleanResult struct {
	Path    string
	Total   int
	Kept    []record.FileRecord
	Removed []CleanRemoval
	// Unchecked records could not be inspected and are kept.
	Unchecked  []CleanRemoval
	BackupPath string
	Rewritten  bool
}

// Clean drops records of path whose files no longer match the disk. Every
// referenced storage root must be a directory before anything is checked.
func (e *Engine) Clean(path string, opts CleanOptions) (*CleanResult, error) {
	records, err := record.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := checkRootDirs(records); err != nil {
		return nil, err
	}
	detector := opts.Detector
	if detector == nil {
		detector = digest.MimeDetector{}
	}

	result := &CleanResult{Path: path, Total: len(records)}
	for i, rec := range records {
		reason, checkErr := staleReason(rec, opts.Deep, detector)
		switch {
		case checkErr != nil:
			result.Kept = append(result.Kept, rec)
			result.Unchecked = append(result.Unchecked, CleanRemoval{Record: rec, Reason: checkErr.Error()})
			e.logger.Warn("record could not be checked; kept",
				logging.String(logging.FieldPath, rec.FullPath()),
				logging.Error(checkErr),
			)
		case reason != "":
			result.Removed = append(result.Removed, CleanRemoval{Record: rec, Reason: reason})
			e.logger.Debug("stale record", logging.String(logging.FieldPath, rec.FullPath()), logging.String("reason", reason))
		default:
			result.Kept = append(result.Kept, rec)
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(records))
		}
	}

	if !opts.Force || len(result.Removed) == 0 {
		return result, nil
	}
	backup, err := record.Backup(path, e.now())
	if err != nil {
		return result, err
	}
	result.BackupPath = backup
	if err := record.WriteFile(path, result.Kept); err != nil {
		return result, err
	}
	result.Rewritten = true
	e.logger.Info("record file cleaned",
		logging.String(logging.FieldPath, path),
		logging.Int("kept", len(result.Kept)),
		logging.Int("removed", len(result.Removed)),
		logging.String("backup", backup),
	)
	return result, nil
}

func checkRootDirs(records []record.FileRecord) error {
	checked := make(map[string]struct{})
	for _, rec := range records {
		if _, ok := checked[rec.StorageRoot]; ok {
			continue
		}
		info, err := os.Stat(rec.StorageRoot)
		if err != nil || !info.IsDir() {
			return record.Structural(fmt.Errorf("%w: %s", ErrRootMissing, rec.StorageRoot))
		}
		checked[rec.StorageRoot] = struct{}{}
	}
	return nil
}

// staleReason explains why rec no longer matches the disk. An error means
// the file could not be inspected and may still exist.
func staleReason(rec record.FileRecord, deep bool, detector digest.Detector) (string, error) {
	info, err := os.Lstat(rec.FullPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "missing", nil
		}
		return "", fmt.Errorf("stat: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "not a regular file", nil
	}
	if !deep {
		return "", nil
	}
	if info.Size() != rec.Size {
		return fmt.Sprintf("size changed: %d -> %d", rec.Size, info.Size()), nil
	}
	if ts := record.FormatTimestamp(info.ModTime()); ts != rec.ModifiedAt {
		return fmt.Sprintf("timestamp changed: %s -> %s", rec.ModifiedAt, ts), nil
	}
	contentType, err := detector.Detect(rec.FullPath())
	if err != nil {
		return "", fmt.Errorf("detect: %w", err)
	}
	if contentType = record.NormalizeContentType(contentType); contentType != rec.ContentType {
		return fmt.Sprintf("content type changed: %s -> %s", rec.ContentType, contentType), nil
	}
	return "", nil
}
