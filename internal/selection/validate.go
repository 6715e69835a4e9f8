package selection

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hashtools/internal/record"
)

// Issue is one problem found while linting a record file.
type Issue struct {
	File    string
	Line    int
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s : line %d : %s", i.File, i.Line, i.Message)
}

// ErrInvalidRecords is returned by ValidateFiles when any issue was found.
var ErrInvalidRecords = errors.New("record files failed validation")

// ValidateFiles lints every line of every file and returns all issues
// found. The error wraps ErrInvalidRecords and is structural when issues exist.
func ValidateFiles(paths []string) ([]Issue, error) {
	var issues []Issue
	for _, path := range paths {
		found, err := validateFile(path)
		if err != nil {
			return issues, err
		}
		issues = append(issues, found...)
	}
	if len(issues) > 0 {
		return issues, record.Structural(fmt.Errorf("%w: %d issue(s)", ErrInvalidRecords, len(issues)))
	}
	return nil, nil
}

func validateFile(path string) ([]Issue, error) {
	name := filepath.Base(path)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return []Issue{{File: name, Message: "does not exist or is not a regular file"}}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var issues []Issue
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	line := 0
	for scanner.Scan() {
		line++
		for _, msg := range lintLine(strings.TrimSuffix(scanner.Text(), "\r")) {
			issues = append(issues, Issue{File: name, Line: line, Message: msg})
		}
	}
	if err := scanner.Err(); err != nil {
		return issues, fmt.Errorf("read %s: %w", path, err)
	}
	return issues, nil
}

func lintLine(text string) []string {
	parts := strings.Split(text, "\t")
	switch len(parts) {
	case record.Columns:
	case record.LegacyColumns:
		return []string{"legacy five-column line without storage root"}
	default:
		return []string{fmt.Sprintf("malformed line: expected %d tab-separated columns but found %d", record.Columns, len(parts))}
	}
	var msgs []string
	if !record.IsHexDigest(strings.ToLower(parts[0])) {
		msgs = append(msgs, fmt.Sprintf("invalid SHA-1 hash in column 1: %q", parts[0]))
	}
	if _, err := time.ParseInLocation(record.TimestampLayout, parts[1], time.Local); err != nil {
		msgs = append(msgs, fmt.Sprintf("invalid timestamp in column 2: %q", parts[1]))
	}
	if n, err := strconv.ParseInt(parts[2], 10, 64); err != nil || n < 0 {
		msgs = append(msgs, fmt.Sprintf("invalid file size in column 3: %q", parts[2]))
	}
	return msgs
}
