// Package verify confirms that every record held in the store still exists
// on disk.
//
// Storage roots are first checked for presence; a single absent root aborts
// the run before any report is written. Each root is then scanned by its own
// task, streaming (id, full_path) rows in bounded windows and recording the
// rows whose path no longer exists into a per-root report. Reports feed
// DeleteStale, which removes those rows from the store.
package verify
