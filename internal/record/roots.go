package record

import (
	"path/filepath"
	"sort"
	"strings"
)

// Root is a configured storage root.
type Root struct {
	Path     string
	Priority int
	Vault    bool
}

// RootTable resolves storage root paths to their configuration.
type RootTable struct {
	byPath map[string]Root
}

// NewRootTable indexes roots by their cleaned path.
func NewRootTable(roots []Root) *RootTable {
	t := &RootTable{byPath: make(map[string]Root, len(roots))}
	for _, root := range roots {
		root.Path = cleanRoot(root.Path)
		t.byPath[root.Path] = root
	}
	return t
}

// Lookup returns the root registered for path.
func (t *RootTable) Lookup(path string) (Root, bool) {
	if t == nil {
		return Root{}, false
	}
	root, ok := t.byPath[cleanRoot(path)]
	return root, ok
}

// Len reports the number of configured roots.
func (t *RootTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byPath)
}

// Roots returns the configured roots sorted by path.
func (t *RootTable) Roots() []Root {
	if t == nil {
		return nil
	}
	out := make([]Root, 0, len(t.byPath))
	for _, root := range t.byPath {
		out = append(out, root)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func cleanRoot(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return path
	}
	return filepath.Clean(path)
}
