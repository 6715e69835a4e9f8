package store

// ExecForTest runs a raw statement against the store.
func (s *Store) ExecForTest(query string) error {
	_, err := s.db.Exec(query)
	return err
}
