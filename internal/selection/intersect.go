package selection

import "hashtools/internal/record"

// Intersect returns the records of a whose hash also appears in b, in the
// order of a.
func Intersect(a, b []record.FileRecord, types record.TypeFilter) []record.FileRecord {
	hashes := hashSet(b)
	var out []record.FileRecord
	for _, rec := range filterTypes(a, types) {
		if _, ok := hashes[rec.Hash]; ok {
			out = append(out, rec)
		}
	}
	return out
}
