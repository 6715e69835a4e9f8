package selection

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"hashtools/internal/logging"
	"hashtools/internal/record"
)

// SizeBucket counts records within a decimal size band.
type SizeBucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// TypeCount counts records per content type or major type.
type TypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// Summary aggregates statistics over one or more record files.
type Summary struct {
	Total          int64        `json:"total"`
	UniqueHashes   int64        `json:"unique_hashes"`
	Duplicates     int64        `json:"duplicates"`
	DuplicateRatio float64      `json:"duplicate_ratio"`
	TotalBytes     int64        `json:"total_bytes"`
	Oldest         string       `json:"oldest,omitempty"`
	Newest         string       `json:"newest,omitempty"`
	Types          []TypeCount  `json:"types"`
	Sizes          []SizeBucket `json:"sizes"`
	Skipped        int64        `json:"skipped_lines"`
}

var sizeLabels = []string{"< 1KB", "KB", "MB", "GB", "TB"}

func sizeBucket(size int64) int {
	switch {
	case size < 1_000:
		return 0
	case size < 1_000_000:
		return 1
	case size < 1_000_000_000:
		return 2
	case size < 1_000_000_000_000:
		return 3
	default:
		return 4
	}
}

// Summarizer accumulates records into a Summary. Malformed lines are logged
// and skipped.
type Summarizer struct {
	detail bool
	logger *slog.Logger
	hashes map[string]struct{}
	types  map[string]int64
	sizes  [5]int64
	sum    Summary
}

// NewSummarizer counts full content types when detail is set, major types otherwise.
func NewSummarizer(detail bool, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		detail: detail,
		logger: logging.NewComponentLogger(logger, "summary"),
		hashes: make(map[string]struct{}),
		types:  make(map[string]int64),
	}
}

// Add folds one record into the summary.
func (s *Summarizer) Add(rec record.FileRecord) {
	s.sum.Total++
	s.hashes[rec.Hash] = struct{}{}
	s.sum.TotalBytes += rec.Size
	s.sizes[sizeBucket(rec.Size)]++
	if s.detail {
		s.types[rec.ContentType]++
	} else {
		s.types[rec.MajorType()]++
	}
	if _, err := rec.ModTime(); err != nil {
		s.logger.Warn("invalid timestamp", logging.String("value", rec.ModifiedAt), logging.String(logging.FieldPath, rec.FullPath()))
		return
	}
	if s.sum.Oldest == "" || rec.ModifiedAt < s.sum.Oldest {
		s.sum.Oldest = rec.ModifiedAt
	}
	if rec.ModifiedAt > s.sum.Newest {
		s.sum.Newest = rec.ModifiedAt
	}
}

// Read folds every well-formed line of r into the summary.
func (s *Summarizer) Read(r io.Reader, name string) error {
	return record.Scan(r, name, func(rec record.FileRecord, err error) error {
		if err != nil {
			var perr *record.ParseError
			if errors.As(err, &perr) {
				s.sum.Skipped++
				s.logger.Warn("malformed line skipped", logging.Error(err))
				return nil
			}
			return err
		}
		s.Add(rec)
		return nil
	})
}

// ReadFile folds the records of path into the summary.
func (s *Summarizer) ReadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open record file: %w", err)
	}
	defer f.Close()
	return s.Read(f, filepath.Base(path))
}

// Summary returns the accumulated statistics.
func (s *Summarizer) Summary() Summary {
	out := s.sum
	out.UniqueHashes = int64(len(s.hashes))
	out.Duplicates = out.Total - out.UniqueHashes
	if out.Total > 0 {
		out.DuplicateRatio = float64(out.Duplicates) / float64(out.Total)
	}
	out.Types = make([]TypeCount, 0, len(s.types))
	for t, n := range s.types {
		out.Types = append(out.Types, TypeCount{Type: t, Count: n})
	}
	sort.Slice(out.Types, func(i, j int) bool {
		return strings.Compare(out.Types[i].Type, out.Types[j].Type) < 0
	})
	out.Sizes = make([]SizeBucket, len(sizeLabels))
	for i, label := range sizeLabels {
		out.Sizes[i] = SizeBucket{Label: label, Count: s.sizes[i]}
	}
	return out
}

// SummarizeFiles summarizes several record files together.
func SummarizeFiles(paths []string, detail bool, logger *slog.Logger) (Summary, error) {
	s := NewSummarizer(detail, logger)
	for _, path := range paths {
		if err := s.ReadFile(path); err != nil {
			return Summary{}, err
		}
	}
	return s.Summary(), nil
}
