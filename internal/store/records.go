package store

import (
	"context"
	"database/sql"
	"fmt"

	"hashtools/internal/record"
)

// Row is the minimal projection streamed per storage root.
type Row struct {
	ID       int64
	FullPath string
}

// RankedRecord is one row of the ranked view.
type RankedRecord struct {
	ID       int64
	Record   record.FileRecord
	Priority int
	Vault    bool
	Rank     int64
}

// Disposition derives primary/redundant from the rank.
func (r RankedRecord) Disposition() record.Disposition {
	if r.Rank == 1 {
		return record.Primary
	}
	return record.Redundant
}

// SyncRoots upserts the configured roots so the ranked view sees current priorities.
func (s *Store) SyncRoots(ctx context.Context, roots []record.Root) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin roots tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(
		`INSERT INTO storage_roots (path, priority, is_vault) VALUES (?, ?, ?)
         ON CONFLICT (path) DO UPDATE SET priority = excluded.priority, is_vault = excluded.is_vault`))
	if err != nil {
		return fmt.Errorf("prepare roots upsert: %w", err)
	}
	defer stmt.Close()

	for _, root := range roots {
		if _, err := stmt.ExecContext(ctx, root.Path, root.Priority, root.Vault); err != nil {
			return fmt.Errorf("upsert root %s: %w", root.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roots: %w", err)
	}
	return nil
}

// Roots returns the roots known to the store, sorted by path.
func (s *Store) Roots(ctx context.Context) ([]record.Root, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT path, priority, is_vault FROM storage_roots ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("query roots: %w", err)
	}
	defer rows.Close()

	var roots []record.Root
	for rows.Next() {
		var r record.Root
		if err := rows.Scan(&r.Path, &r.Priority, &r.Vault); err != nil {
			return nil, fmt.Errorf("scan root: %w", err)
		}
		roots = append(roots, r)
	}
	return roots, rows.Err()
}

// Import inserts records in batched transactions. Records whose full path
// is already stored are ignored. It returns the number of rows inserted.
func (s *Store) Import(ctx context.Context, records []record.FileRecord) (int64, error) {
	var inserted int64
	for start := 0; start < len(records); start += s.batchSize {
		end := min(start+s.batchSize, len(records))
		n, err := s.importBatch(ctx, records[start:end])
		inserted += n
		if err != nil {
			return inserted, err
		}
	}
	return inserted, nil
}

func (s *Store) importBatch(ctx context.Context, batch []record.FileRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(
		`INSERT INTO records (hash, content_type, size, modified_at, storage_root, relative_path, full_path)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (full_path) DO NOTHING`))
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, rec := range batch {
		res, err := stmt.ExecContext(ctx, rec.Hash, rec.ContentType, rec.Size, rec.ModifiedAt, rec.StorageRoot, rec.RelativePath, rec.FullPath())
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", rec.FullPath(), err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += n
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return inserted, nil
}

// StorageRoots returns the distinct storage roots referenced by records, sorted.
func (s *Store) StorageRoots(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT storage_root FROM records ORDER BY storage_root")
	if err != nil {
		return nil, fmt.Errorf("query storage roots: %w", err)
	}
	defer rows.Close()

	var roots []string
	for rows.Next() {
		var root string
		if err := rows.Scan(&root); err != nil {
			return nil, fmt.Errorf("scan storage root: %w", err)
		}
		roots = append(roots, root)
	}
	return roots, rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM records").Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// CountRoot returns the number of records under root.
func (s *Store) CountRoot(ctx context.Context, root string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind("SELECT COUNT(1) FROM records WHERE storage_root = ?"), root).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records under %s: %w", root, err)
	}
	return n, nil
}

// StreamRoot calls fn for every record under root in id order. Rows are
// fetched in keyset windows of FetchSize, and fn runs after each window's
// result set has been released.
func (s *Store) StreamRoot(ctx context.Context, root string, fn func(Row) error) error {
	query := s.dialect.rebind("SELECT id, full_path FROM records WHERE storage_root = ? AND id > ? ORDER BY id LIMIT ?")
	window := make([]Row, 0, s.fetchSize)
	var after int64
	for {
		window = window[:0]
		if err := s.fetchWindow(ctx, query, root, after, &window); err != nil {
			return err
		}
		for _, row := range window {
			if err := fn(row); err != nil {
				return err
			}
		}
		if len(window) < s.fetchSize {
			return nil
		}
		after = window[len(window)-1].ID
	}
}

func (s *Store) fetchWindow(ctx context.Context, query, root string, after int64, window *[]Row) error {
	rows, err := s.db.QueryContext(ctx, query, root, after, s.fetchSize)
	if err != nil {
		return fmt.Errorf("stream %s: %w", root, err)
	}
	defer rows.Close()
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.ID, &row.FullPath); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		*window = append(*window, row)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("stream %s: %w", root, err)
	}
	return nil
}

// RankedOptions filters Ranked.
type RankedOptions struct {
	RedundantOnly bool
	Types         record.TypeFilter
}

// Ranked streams the ranked view ordered by group then rank.
func (s *Store) Ranked(ctx context.Context, opts RankedOptions, fn func(RankedRecord) error) error {
	query := `SELECT id, hash, content_type, size, modified_at, storage_root, relative_path,
                     priority, is_vault, group_rank
              FROM ranked_records`
	if opts.RedundantOnly {
		query += " WHERE group_rank > 1"
	}
	query += " ORDER BY hash, content_type, group_rank"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query ranked records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rr, err := scanRanked(rows)
		if err != nil {
			return err
		}
		if !opts.Types.Allows(rr.Record.ContentType) {
			continue
		}
		if err := fn(rr); err != nil {
			return err
		}
	}
	return rows.Err()
}

func scanRanked(rows *sql.Rows) (RankedRecord, error) {
	var rr RankedRecord
	r := &rr.Record
	if err := rows.Scan(&rr.ID, &r.Hash, &r.ContentType, &r.Size, &r.ModifiedAt, &r.StorageRoot, &r.RelativePath,
		&rr.Priority, &rr.Vault, &rr.Rank); err != nil {
		return RankedRecord{}, fmt.Errorf("scan ranked record: %w", err)
	}
	return rr, nil
}

// DeleteIDs removes records by id in batched transactions and returns the
// number of rows deleted.
func (s *Store) DeleteIDs(ctx context.Context, ids []int64) (int64, error) {
	var deleted int64
	for start := 0; start < len(ids); start += s.batchSize {
		end := min(start+s.batchSize, len(ids))
		batch := ids[start:end]
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		query := s.dialect.rebind("DELETE FROM records WHERE id IN (" + placeholders(len(batch)) + ")")
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return deleted, fmt.Errorf("delete batch: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			deleted += n
		}
	}
	return deleted, nil
}
