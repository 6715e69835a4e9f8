package verify

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeSegment = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Segments derives a report segment per root from its last path component.
// roots must be sorted. The first root with a given name keeps it; later
// ones take the lowest _2, _3 suffix not already used by any root's name.
func Segments(roots []string) []string {
	bases := make([]string, len(roots))
	taken := make(map[string]bool, len(roots))
	for i, root := range roots {
		bases[i] = sanitizeSegment(root)
		taken[bases[i]] = true
	}
	out := make([]string, len(roots))
	claimed := make(map[string]bool, len(roots))
	for i, base := range bases {
		if !claimed[base] {
			claimed[base] = true
			out[i] = base
			continue
		}
		for n := 2; ; n++ {
			name := fmt.Sprintf("%s_%d", base, n)
			if !taken[name] {
				taken[name] = true
				claimed[name] = true
				out[i] = name
				break
			}
		}
	}
	return out
}

func sanitizeSegment(root string) string {
	base := filepath.Base(filepath.Clean(root))
	base = strings.Trim(unsafeSegment.ReplaceAllString(base, "_"), "_")
	if base == "" || base == "." {
		return "root"
	}
	return base
}

// ReportName is the file name of the stale-record report for segment.
func ReportName(segment string) string {
	return "missing_rows_" + segment + ".tsv"
}
