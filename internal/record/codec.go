package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// Columns is the number of fields in a record stream line.
	Columns = 6
	// LegacyColumns is the field count of streams written before storage roots were recorded.
	LegacyColumns = 5
)

var (
	// ErrColumnCount reports a line with the wrong number of fields.
	ErrColumnCount = errors.New("wrong column count")
	// ErrLegacyFormat reports a five-column line lacking the storage root.
	ErrLegacyFormat = errors.New("legacy five-column record without storage root")
)

// ParseError locates a malformed line within a record file.
type ParseError struct {
	File string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("%s: line %d: %v", e.File, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Structural marks malformed streams as input errors rather than I/O failures.
func (e *ParseError) Structural() bool { return true }

// Format renders a record as one TSV line without the trailing newline.
func Format(r FileRecord) string {
	var b strings.Builder
	b.Grow(len(r.Hash) + len(r.StorageRoot) + len(r.RelativePath) + 64)
	b.WriteString(r.Hash)
	b.WriteByte('\t')
	b.WriteString(r.ModifiedAt)
	b.WriteByte('\t')
	b.WriteString(strconv.FormatInt(r.Size, 10))
	b.WriteByte('\t')
	b.WriteString(r.ContentType)
	b.WriteByte('\t')
	b.WriteString(r.StorageRoot)
	b.WriteByte('\t')
	b.WriteString(r.RelativePath)
	return b.String()
}

// Parse decodes one TSV line.
func Parse(line string) (FileRecord, error) {
	line = strings.TrimSuffix(line, "\r")
	parts := strings.Split(line, "\t")
	switch len(parts) {
	case Columns:
	case LegacyColumns:
		return FileRecord{}, ErrLegacyFormat
	default:
		return FileRecord{}, fmt.Errorf("%w: expected %d, found %d", ErrColumnCount, Columns, len(parts))
	}
	size, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil || size < 0 {
		return FileRecord{}, fmt.Errorf("invalid size %q", parts[2])
	}
	return FileRecord{
		Hash:         parts[0],
		ModifiedAt:   parts[1],
		Size:         size,
		ContentType:  parts[3],
		StorageRoot:  parts[4],
		RelativePath: parts[5],
	}, nil
}
