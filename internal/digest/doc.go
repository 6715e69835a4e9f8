// Package digest walks a directory tree and produces one FileRecord per
// regular file under bounded memory and concurrency.
//
// A single scanner enumerates files and feeds a fixed pool of workers. Each
// worker owns one Hasher for its lifetime and pushes finished records onto a
// bounded queue drained by a single writer, which flushes in batches. A full
// queue blocks the workers, so in-flight records never exceed the queue
// capacity plus one batch. Output is in completion order.
//
// Per-file failures are logged and counted; only a write failure aborts the
// run. Cancelling the context stops the scan and the workers, flushes what is
// already queued, and makes Run return context.Canceled.
package digest
