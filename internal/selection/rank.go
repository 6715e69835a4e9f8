package selection

import (
	"errors"
	"fmt"
	"sort"

	"hashtools/internal/record"
)

// ErrUnknownRoot reports a record whose storage root is not configured.
var ErrUnknownRoot = errors.New("storage root is not configured")

// Ranker orders the members of a group. A nil or empty root table gives
// every root the same priority.
type Ranker struct {
	roots *record.RootTable
}

// NewRanker builds a ranker over the configured roots.
func NewRanker(roots *record.RootTable) *Ranker {
	return &Ranker{roots: roots}
}

// Priority resolves the priority of a record's storage root.
func (r *Ranker) Priority(rec record.FileRecord) (int, error) {
	if r.roots.Len() == 0 {
		return 0, nil
	}
	root, ok := r.roots.Lookup(rec.StorageRoot)
	if !ok {
		return 0, record.Structural(fmt.Errorf("%w: %s (%s)", ErrUnknownRoot, rec.StorageRoot, rec.FullPath()))
	}
	return root.Priority, nil
}

// CheckRoots resolves every record's root, failing on the first unknown one.
func (r *Ranker) CheckRoots(records []record.FileRecord) error {
	if r.roots.Len() == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	for _, rec := range records {
		if _, ok := seen[rec.StorageRoot]; ok {
			continue
		}
		if _, err := r.Priority(rec); err != nil {
			return err
		}
		seen[rec.StorageRoot] = struct{}{}
	}
	return nil
}

type rankKey struct {
	modifiedAt string
	priority   int
	fullPath   string
}

func less(a, b rankKey) bool {
	// The timestamp layout is fixed width, so lexical order is chronological.
	if a.modifiedAt != b.modifiedAt {
		return a.modifiedAt < b.modifiedAt
	}
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.fullPath > b.fullPath
}

// Less reports whether a ranks before b.
func (r *Ranker) Less(a, b record.FileRecord) (bool, error) {
	ka, err := r.key(a)
	if err != nil {
		return false, err
	}
	kb, err := r.key(b)
	if err != nil {
		return false, err
	}
	return less(ka, kb), nil
}

func (r *Ranker) key(rec record.FileRecord) (rankKey, error) {
	priority, err := r.Priority(rec)
	if err != nil {
		return rankKey{}, err
	}
	return rankKey{modifiedAt: rec.ModifiedAt, priority: priority, fullPath: rec.FullPath()}, nil
}

// Sort orders members best first.
func (r *Ranker) Sort(members []record.FileRecord) error {
	keys := make([]rankKey, len(members))
	for i, rec := range members {
		k, err := r.key(rec)
		if err != nil {
			return err
		}
		keys[i] = k
	}
	sort.Sort(byRank{members: members, keys: keys})
	return nil
}

type byRank struct {
	members []record.FileRecord
	keys    []rankKey
}

func (s byRank) Len() int           { return len(s.members) }
func (s byRank) Less(i, j int) bool { return less(s.keys[i], s.keys[j]) }
func (s byRank) Swap(i, j int) {
	s.members[i], s.members[j] = s.members[j], s.members[i]
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
}
