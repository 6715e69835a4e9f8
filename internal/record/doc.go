// Package record defines the fingerprinted file record shared by the digest
// pipeline, the selection engine, and the consistency verifier.
//
// A FileRecord is an immutable value: corrections produce a new record. The
// package also owns the tab-separated record stream format, reading and
// writing whole record files, timestamped backups, and the storage root table
// used to rank records that live under different roots.
//
// Record streams are plain text, one record per line, with fields in the order
// hash, modifiedAt, size, contentType, storageRoot, relativePath. Older
// five-column files without storageRoot are rejected with ErrLegacyFormat
// rather than parsed.
package record
