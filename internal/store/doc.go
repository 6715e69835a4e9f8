// Package store persists the file inventory in SQL.
//
// Two dialects are supported through database/sql: SQLite via the pure-Go
// modernc.org/sqlite driver (the default, and what tests use) and PostgreSQL
// via lib/pq. The schema is embedded per dialect and guarded by a
// schema_version row checked on open.
//
// The store exposes a ranked view of every content group, where the first
// row of each (hash, content_type) partition is the primary, and keyset
// paginated streaming of the records under one storage root so that callers
// never hold more than fetch_size rows.
package store
