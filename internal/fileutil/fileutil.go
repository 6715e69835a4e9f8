// Package fileutil holds the filesystem primitives used by destructive
// selection operations: timestamp-preserving verified copies and deletes.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// VerificationError reports a copy whose destination does not match its
// source after the copy completed.
type VerificationError struct {
	Path  string
	Field string
	Want  string
	Got   string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verify %s: %s mismatch: want %s, got %s", e.Path, e.Field, e.Want, e.Got)
}

// ErrSameFile reports a copy whose destination already names the source.
var ErrSameFile = errors.New("source and destination are the same file")

// SameFile reports whether a and b name the same file, either by cleaned
// path or by device and inode. A destination that does not exist yet is
// never the same file.
func SameFile(a, b string) (bool, error) {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true, nil
	}
	aInfo, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bInfo, err := os.Stat(b)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return os.SameFile(aInfo, bInfo), nil
}

// CopyPreserving copies src to dst, creating parent directories, restoring
// the source modification time, and confirming size, second-precision mtime,
// and sha256 of the bytes on disk. The copy is written to a temporary
// sibling and renamed over dst only after it verifies, so a failed copy
// never disturbs an existing dst.
func CopyPreserving(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if !srcInfo.Mode().IsRegular() {
		return fmt.Errorf("copy %s: not a regular file", src)
	}
	same, err := SameFile(src, dst)
	if err != nil {
		return fmt.Errorf("stat destination: %w", err)
	}
	if same {
		return fmt.Errorf("copy %s to %s: %w", src, dst, ErrSameFile)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temporary copy: %w", err)
	}
	tmpPath := tmp.Name()
	if err := copyToTemp(src, tmp, dst, srcInfo); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename copy into place: %w", err)
	}
	return nil
}

func copyToTemp(src string, out *os.File, dst string, srcInfo fs.FileInfo) error {
	defer func() {
		_ = out.Close()
	}()
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	srcHasher := sha256.New()
	written, err := io.Copy(out, io.TeeReader(in, srcHasher))
	if err != nil {
		return err
	}
	if err := out.Chmod(srcInfo.Mode().Perm()); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if written != srcInfo.Size() {
		return &VerificationError{Path: dst, Field: "size", Want: fmt.Sprint(srcInfo.Size()), Got: fmt.Sprint(written)}
	}

	mtime := srcInfo.ModTime()
	if err := os.Chtimes(out.Name(), mtime, mtime); err != nil {
		return fmt.Errorf("restore mtime on %s: %w", dst, err)
	}
	if err := Verify(out.Name(), srcInfo.Size(), mtime); err != nil {
		return err
	}

	onDisk, err := hashFile(out.Name())
	if err != nil {
		return fmt.Errorf("verify %s: %w", dst, err)
	}
	if !bytes.Equal(srcHasher.Sum(nil), onDisk) {
		return &VerificationError{Path: dst, Field: "content", Want: "identical bytes", Got: "corrupted copy"}
	}
	return nil
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// Verify re-stats path and compares its size and second-precision
// modification time against the expected values.
func Verify(path string, size int64, mtime time.Time) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("verify %s: %w", path, err)
	}
	if info.Size() != size {
		return &VerificationError{Path: path, Field: "size", Want: fmt.Sprint(size), Got: fmt.Sprint(info.Size())}
	}
	want := mtime.Truncate(time.Second)
	got := info.ModTime().Truncate(time.Second)
	if !got.Equal(want) {
		return &VerificationError{
			Path:  path,
			Field: "mtime",
			Want:  want.Format(time.RFC3339),
			Got:   got.Format(time.RFC3339),
		}
	}
	return nil
}

// RemoveIfExists deletes path. A path that is already gone reports false
// without error.
func RemoveIfExists(path string) (bool, error) {
	err := os.Remove(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
