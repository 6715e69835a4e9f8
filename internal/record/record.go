package record

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// TimestampLayout is the local-time, second-precision layout used for ModifiedAt.
const TimestampLayout = "2006-01-02T15:04:05"

// FileRecord describes one scanned regular file.
type FileRecord struct {
	Hash         string
	ModifiedAt   string
	Size         int64
	ContentType  string
	StorageRoot  string
	RelativePath string
}

// FullPath joins the storage root and relative path.
func (r FileRecord) FullPath() string {
	return strings.TrimRight(r.StorageRoot, "/") + "/" + r.RelativePath
}

// Key returns the content identity of the record.
func (r FileRecord) Key() Key {
	return Key{Hash: r.Hash, ContentType: r.ContentType}
}

// MajorType returns the part of the content type before the slash.
func (r FileRecord) MajorType() string {
	return MajorType(r.ContentType)
}

// ModTime parses ModifiedAt in the local time zone.
func (r FileRecord) ModTime() (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, r.ModifiedAt, time.Local)
}

// Key groups records that share content.
type Key struct {
	Hash        string
	ContentType string
}

func (k Key) String() string {
	return k.Hash + ":" + k.ContentType
}

// Disposition classifies a member of a content group.
type Disposition string

const (
	// Primary is the single canonical copy chosen per group.
	Primary Disposition = "primary"
	// Redundant is every other member of a group.
	Redundant Disposition = "redundant"
)

// FormatTimestamp renders t in the record timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.In(time.Local).Format(TimestampLayout)
}

// FromFileInfo builds a record for a file found under root. The hash and
// content type are supplied by the caller.
func FromFileInfo(root, rel string, info os.FileInfo, hash, contentType string) FileRecord {
	return FileRecord{
		Hash:         hash,
		ModifiedAt:   FormatTimestamp(info.ModTime()),
		Size:         info.Size(),
		ContentType:  contentType,
		StorageRoot:  root,
		RelativePath: rel,
	}
}

// Validate checks field level constraints that the stream format cannot express.
func (r FileRecord) Validate() error {
	if !IsHexDigest(r.Hash) {
		return fmt.Errorf("invalid hash %q", r.Hash)
	}
	if _, err := r.ModTime(); err != nil {
		return fmt.Errorf("invalid timestamp %q", r.ModifiedAt)
	}
	if r.Size < 0 {
		return fmt.Errorf("negative size %d", r.Size)
	}
	if !strings.Contains(r.ContentType, "/") {
		return fmt.Errorf("invalid content type %q", r.ContentType)
	}
	if !strings.HasPrefix(r.StorageRoot, "/") {
		return fmt.Errorf("storage root %q is not absolute", r.StorageRoot)
	}
	return nil
}

// DigestLength is the number of hex characters in a SHA-1 digest.
const DigestLength = 40

// IsHexDigest reports whether s is a lowercase SHA-1 hex digest.
func IsHexDigest(s string) bool {
	if len(s) != DigestLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
