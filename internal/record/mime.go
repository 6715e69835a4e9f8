package record

import "strings"

// MajorType extracts the major part of a MIME type ("image/jpeg" -> "image").
func MajorType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if i := strings.IndexByte(contentType, '/'); i > 0 {
		return contentType[:i]
	}
	return contentType
}

// NormalizeContentType lowercases a detected type and drops any parameters.
func NormalizeContentType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" {
		return DefaultContentType
	}
	return contentType
}

// DefaultContentType is used when detection yields nothing usable.
const DefaultContentType = "application/octet-stream"

// TypeFilter restricts records by major content type. The zero value accepts everything.
type TypeFilter map[string]struct{}

// NewTypeFilter builds a filter from major types such as "image" or "video".
// Values may be comma separated; blanks are ignored.
func NewTypeFilter(types ...string) TypeFilter {
	filter := TypeFilter{}
	for _, value := range types {
		for _, part := range strings.Split(value, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			filter[part] = struct{}{}
		}
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}

// Allows reports whether contentType passes the filter.
func (f TypeFilter) Allows(contentType string) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[MajorType(contentType)]
	return ok
}
