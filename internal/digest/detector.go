package digest

import (
	"github.com/gabriel-vasile/mimetype"

	"hashtools/internal/record"
)

// Detector classifies a file's content as a MIME type.
type Detector interface {
	Detect(path string) (string, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(path string) (string, error)

// Detect calls f(path).
func (f DetectorFunc) Detect(path string) (string, error) { return f(path) }

// MimeDetector sniffs the leading bytes of a file with mimetype.
type MimeDetector struct{}

// Detect returns the normalized content type of path.
func (MimeDetector) Detect(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	return record.NormalizeContentType(mtype.String()), nil
}
