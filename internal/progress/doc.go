// Package progress provides the shared counter arena that long-running
// operations update from many goroutines, and a Reporter that periodically
// renders a status line from it.
//
// Counters are plain atomics; nothing in this package ever blocks a worker.
// The Reporter only draws when its output is a terminal, so piping a
// command's output leaves it clean.
package progress
