package selection

import "hashtools/internal/record"

// Group is every record sharing one content identity, best first.
type Group struct {
	Key     record.Key
	Members []record.FileRecord
}

// Primary returns the canonical member.
func (g Group) Primary() record.FileRecord {
	return g.Members[0]
}

// Redundant returns every member except the primary.
func (g Group) Redundant() []record.FileRecord {
	return g.Members[1:]
}

// Disposition classifies member i.
func (g Group) Disposition(i int) record.Disposition {
	if i == 0 {
		return record.Primary
	}
	return record.Redundant
}

// Size returns the size of one copy.
func (g Group) Size() int64 {
	return g.Members[0].Size
}

// GroupBy partitions records by (hash, content type) in order of first
// appearance. A full path listed more than once is kept once per group.
func GroupBy(records []record.FileRecord) []Group {
	index := make(map[record.Key]int)
	paths := make(map[record.Key]map[string]struct{})
	var groups []Group
	for _, rec := range records {
		key := rec.Key()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			paths[key] = make(map[string]struct{})
			groups = append(groups, Group{Key: key})
		}
		full := rec.FullPath()
		if _, dup := paths[key][full]; dup {
			continue
		}
		paths[key][full] = struct{}{}
		groups[i].Members = append(groups[i].Members, rec)
	}
	return groups
}

// Classify groups records and ranks each group so that Members[0] is primary.
func (r *Ranker) Classify(records []record.FileRecord) ([]Group, error) {
	if err := r.CheckRoots(records); err != nil {
		return nil, err
	}
	groups := GroupBy(records)
	for i := range groups {
		if err := r.Sort(groups[i].Members); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func filterTypes(records []record.FileRecord, types record.TypeFilter) []record.FileRecord {
	if len(types) == 0 {
		return records
	}
	out := make([]record.FileRecord, 0, len(records))
	for _, rec := range records {
		if types.Allows(rec.ContentType) {
			out = append(out, rec)
		}
	}
	return out
}

func hashSet(records []record.FileRecord) map[string]struct{} {
	set := make(map[string]struct{}, len(records))
	for _, rec := range records {
		set[rec.Hash] = struct{}{}
	}
	return set
}
