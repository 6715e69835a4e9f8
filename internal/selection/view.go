package selection

import "hashtools/internal/record"

// ViewOptions controls View.
type ViewOptions struct {
	Types          record.TypeFilter
	DuplicatesOnly bool
}

// View groups records for display without touching the filesystem.
func (e *Engine) View(records []record.FileRecord, opts ViewOptions) ([]Group, error) {
	groups, err := e.ranker.Classify(filterTypes(records, opts.Types))
	if err != nil {
		return nil, err
	}
	if !opts.DuplicatesOnly {
		return groups, nil
	}
	dups := groups[:0]
	for _, g := range groups {
		if len(g.Members) > 1 {
			dups = append(dups, g)
		}
	}
	return dups, nil
}
