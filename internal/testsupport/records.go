package testsupport

import (
	"strings"
	"testing"

	"hashtools/internal/record"
)

// Hash returns a 40-character digest made of c repeated.
func Hash(c byte) string {
	return strings.Repeat(string(c), record.DigestLength)
}

// Record builds a 100-byte image/jpeg record.
func Record(hash, modifiedAt, root, rel string) record.FileRecord {
	return record.FileRecord{
		Hash:         hash,
		ModifiedAt:   modifiedAt,
		Size:         100,
		ContentType:  "image/jpeg",
		StorageRoot:  root,
		RelativePath: rel,
	}
}

// WriteRecords writes recs to path as a record stream.
func WriteRecords(t testing.TB, path string, recs []record.FileRecord) {
	t.Helper()
	if err := record.WriteFile(path, recs); err != nil {
		t.Fatalf("write records %s: %v", path, err)
	}
}

// ReadRecords loads path, failing the test on any error.
func ReadRecords(t testing.TB, path string) []record.FileRecord {
	t.Helper()
	recs, err := record.ReadFile(path)
	if err != nil {
		t.Fatalf("read records %s: %v", path, err)
	}
	return recs
}
