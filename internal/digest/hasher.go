package digest

import (
	"crypto/sha1" //nolint:gosec // content identity, not a security boundary
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
)

// DefaultChunkSize is the read buffer size used when none is configured.
const DefaultChunkSize = 16 * 1024

// Hasher computes SHA-1 digests using a fixed read buffer. A Hasher is not
// safe for concurrent use; each worker owns one.
type Hasher struct {
	h   hash.Hash
	buf []byte
}

// NewHasher allocates a hasher reading chunkSize bytes at a time.
func NewHasher(chunkSize int) *Hasher {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Hasher{h: sha1.New(), buf: make([]byte, chunkSize)} //nolint:gosec
}

// Sum returns the lowercase hex digest of everything read from r.
func (h *Hasher) Sum(r io.Reader) (string, error) {
	h.h.Reset()
	for {
		n, err := r.Read(h.buf)
		if n > 0 {
			h.h.Write(h.buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.h.Sum(nil)), nil
}

// SumFile opens path, digests it, and returns the digest together with the
// file's metadata as observed through the open handle.
func (h *Hasher) SumFile(path string) (string, os.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", nil, fmt.Errorf("stat: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", nil, fmt.Errorf("not a regular file")
	}
	sum, err := h.Sum(f)
	if err != nil {
		return "", nil, fmt.Errorf("read: %w", err)
	}
	return sum, info, nil
}
