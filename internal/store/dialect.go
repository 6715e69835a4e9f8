package store

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"hashtools/internal/config"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

type dialect struct {
	name        string
	driver      string
	schema      string
	tableExists string
	pragmas     []string
	numbered    bool
}

var (
	sqliteDialect = dialect{
		name:        config.DriverSQLite,
		driver:      "sqlite",
		schema:      sqliteSchema,
		tableExists: "SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
		pragmas: []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA busy_timeout = 5000",
		},
	}
	postgresDialect = dialect{
		name:        config.DriverPostgres,
		driver:      "postgres",
		schema:      postgresSchema,
		tableExists: "SELECT COUNT(1) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = 'schema_version'",
		numbered:    true,
	}
)

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case config.DriverSQLite:
		return sqliteDialect, nil
	case config.DriverPostgres:
		return postgresDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// rebind rewrites ? placeholders as $1, $2, ... for numbered dialects.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
