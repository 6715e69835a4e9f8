package selection

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"hashtools/internal/record"
)

// SplitOptions controls Split.
type SplitOptions struct {
	Dir    string
	Prefix string
	// MajorType splits by "image" rather than "image_jpeg".
	MajorType bool
	Types     record.TypeFilter
}

// SplitOutput is one file written by Split.
type SplitOutput struct {
	Type  string
	Path  string
	Count int
}

var unsafeTypeChars = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SanitizeType makes a content type safe for use in a file name.
func SanitizeType(contentType string) string {
	return unsafeTypeChars.ReplaceAllString(contentType, "_")
}

// Split writes records into <dir>/<prefix>_<type>.meta files, one per type.
func Split(records []record.FileRecord, opts SplitOptions) ([]SplitOutput, error) {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Prefix == "" {
		opts.Prefix = "split"
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, record.Structural(fmt.Errorf("create output directory: %w", err))
	}

	byType := make(map[string][]record.FileRecord)
	for _, rec := range filterTypes(records, opts.Types) {
		key := SanitizeType(rec.ContentType)
		if opts.MajorType {
			key = SanitizeType(rec.MajorType())
		}
		byType[key] = append(byType[key], rec)
	}

	keys := make([]string, 0, len(byType))
	for k := range byType {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outputs := make([]SplitOutput, 0, len(keys))
	for _, key := range keys {
		path := filepath.Join(opts.Dir, opts.Prefix+"_"+key+".meta")
		if err := record.WriteFile(path, byType[key]); err != nil {
			return outputs, err
		}
		outputs = append(outputs, SplitOutput{Type: key, Path: path, Count: len(byType[key])})
	}
	return outputs, nil
}
