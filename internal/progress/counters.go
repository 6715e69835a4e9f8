package progress

import (
	"sync"
	"sync/atomic"
)

// Counter holds the tallies of one unit of work (a pipeline run or a
// storage root). All fields are safe for concurrent use.
type Counter struct {
	Total   atomic.Int64
	Done    atomic.Int64
	Skipped atomic.Int64
	Failed  atomic.Int64
}

// Snapshot is a point-in-time copy of a Counter.
type Snapshot struct {
	Name    string
	Total   int64
	Done    int64
	Skipped int64
	Failed  int64
}

func (c *Counter) snapshot(name string) Snapshot {
	return Snapshot{
		Name:    name,
		Total:   c.Total.Load(),
		Done:    c.Done.Load(),
		Skipped: c.Skipped.Load(),
		Failed:  c.Failed.Load(),
	}
}

// Counters is an arena of named counters kept in registration order.
type Counters struct {
	mu     sync.RWMutex
	names  []string
	byName map[string]*Counter
}

// NewCounters returns an empty arena.
func NewCounters() *Counters {
	return &Counters{byName: make(map[string]*Counter)}
}

// Get returns the counter registered under name, creating it on first use.
func (c *Counters) Get(name string) *Counter {
	c.mu.RLock()
	counter, ok := c.byName[name]
	c.mu.RUnlock()
	if ok {
		return counter
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if counter, ok = c.byName[name]; ok {
		return counter
	}
	counter = &Counter{}
	c.byName[name] = counter
	c.names = append(c.names, name)
	return counter
}

// Snapshot copies every counter in registration order.
func (c *Counters) Snapshot() []Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Snapshot, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, c.byName[name].snapshot(name))
	}
	return out
}

// Sum adds every counter together.
func (c *Counters) Sum() Snapshot {
	var total Snapshot
	for _, s := range c.Snapshot() {
		total.Total += s.Total
		total.Done += s.Done
		total.Skipped += s.Skipped
		total.Failed += s.Failed
	}
	return total
}
