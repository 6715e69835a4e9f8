package record

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const maxLineBytes = 1 << 20

// Scan reads a record stream line by line. fn receives either a record or the
// parse error for that line; returning a non-nil error stops the scan and is
// returned from Scan. Blank lines are skipped.
func Scan(r io.Reader, name string, fn func(rec FileRecord, err error) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}
		rec, err := Parse(text)
		if err != nil {
			err = &ParseError{File: name, Line: line, Err: err}
		}
		if cbErr := fn(rec, err); cbErr != nil {
			return cbErr
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}

// ReadFile loads every record in path, failing on the first malformed line.
func ReadFile(path string) ([]FileRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open record file: %w", err)
	}
	defer f.Close()

	var records []FileRecord
	err = Scan(f, filepath.Base(path), func(rec FileRecord, err error) error {
		if err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ReadFiles concatenates the records of several files in argument order.
func ReadFiles(paths ...string) ([]FileRecord, error) {
	var all []FileRecord
	for _, path := range paths {
		records, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

// ReadFilesLenient is ReadFiles for read-only reporting: each malformed line
// is handed to skip and left out instead of failing the read.
func ReadFilesLenient(skip func(*ParseError), paths ...string) ([]FileRecord, error) {
	var all []FileRecord
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open record file: %w", err)
		}
		err = Scan(f, filepath.Base(path), func(rec FileRecord, err error) error {
			var perr *ParseError
			if errors.As(err, &perr) {
				skip(perr)
				return nil
			}
			if err != nil {
				return err
			}
			all = append(all, rec)
			return nil
		})
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	return all, nil
}

// Writer emits records as TSV lines.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps w with buffering.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 64*1024)}
}

// Write buffers one record.
func (w *Writer) Write(rec FileRecord) error {
	if _, err := w.w.WriteString(Format(rec)); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Flush pushes buffered lines to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// WriteFile replaces path with records, writing through a temporary sibling
// so readers never observe a partially written file.
func WriteFile(path string, records []FileRecord) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp record file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	w := NewWriter(tmp)
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("write record file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("flush record file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close record file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace record file: %w", err)
	}
	return nil
}

const backupLayout = "20060102-150405"

// Backup copies path to "<name>.<yyyyMMdd-HHmmss>.bak" next to it, keeping the
// source modification time, and returns the backup path.
func Backup(path string, now time.Time) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	dst := fmt.Sprintf("%s.%s.bak", path, now.Format(backupLayout))

	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return "", fmt.Errorf("backup: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("backup copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("backup close: %w", err)
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return "", fmt.Errorf("backup times: %w", err)
	}
	return dst, nil
}
