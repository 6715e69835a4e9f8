package config

const (
	// DriverSQLite selects the embedded SQLite store.
	DriverSQLite = "sqlite"
	// DriverPostgres selects a PostgreSQL server.
	DriverPostgres = "postgres"
)

const (
	defaultLogDir                = "~/.local/share/hashtools/logs"
	defaultReportDir             = "~/.local/share/hashtools/reports"
	defaultStoreDriver           = DriverSQLite
	defaultSQLiteDSN             = "~/.local/share/hashtools/inventory.db"
	defaultStoreFetchSize        = 10_000
	defaultStoreBatchSize        = 1_000
	defaultGenerateThreads       = 2
	defaultGenerateQueueSize     = 10_000
	defaultGenerateBatchSize     = 500
	defaultGenerateChunkSize     = 16 * 1024
	defaultGenerateProgressMS    = 1_000
	defaultConsistencyMaxHours   = 12
	defaultConsistencyProgressMS = 250
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:    defaultLogDir,
			ReportDir: defaultReportDir,
		},
		Store: Store{
			Driver:    defaultStoreDriver,
			DSN:       defaultSQLiteDSN,
			FetchSize: defaultStoreFetchSize,
			BatchSize: defaultStoreBatchSize,
		},
		Generate: Generate{
			Threads:            defaultGenerateThreads,
			QueueSize:          defaultGenerateQueueSize,
			BatchSize:          defaultGenerateBatchSize,
			ChunkSize:          defaultGenerateChunkSize,
			ProgressIntervalMS: defaultGenerateProgressMS,
		},
		Consistency: Consistency{
			MaxRuntimeHours:    defaultConsistencyMaxHours,
			ProgressIntervalMS: defaultConsistencyProgressMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
