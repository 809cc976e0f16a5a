package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// migration is one forward-only schema step.
type migration struct {
	version int
	name    string
	stmts   []string
}

// migrations is the ordered schema history. Never edit an applied step; append a new one.
var migrations = []migration{
	{
		version: 1,
		name:    "baseline",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS member (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				reg_no TEXT NOT NULL DEFAULT '',
				email TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_member_name ON member(name)`,
			`CREATE TABLE IF NOT EXISTS tracked_date (
				id TEXT PRIMARY KEY,
				date_string TEXT NOT NULL UNIQUE
			)`,
			`CREATE TABLE IF NOT EXISTS attendance (
				id TEXT PRIMARY KEY,
				member_id TEXT NOT NULL,
				date_id TEXT NOT NULL,
				intent TEXT NOT NULL,
				applied TEXT NOT NULL,
				presence_1 TEXT NOT NULL,
				presence_2 TEXT NOT NULL,
				locked INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date_id)`,
		},
	},
	{
		version: 2,
		name:    "mirror_run",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS mirror_run (
				id TEXT PRIMARY KEY,
				trigger TEXT NOT NULL,
				status TEXT NOT NULL,
				dates INTEGER NOT NULL DEFAULT 0,
				users INTEGER NOT NULL DEFAULT 0,
				records INTEGER NOT NULL DEFAULT 0,
				error TEXT NOT NULL DEFAULT '',
				started_at TEXT NOT NULL,
				finished_at TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_mirror_run_started ON mirror_run(started_at)`,
		},
	},
	{
		version: 3,
		name:    "audit_event",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS audit_event (
				id TEXT PRIMARY KEY,
				timestamp TEXT NOT NULL,
				category TEXT NOT NULL,
				action TEXT NOT NULL,
				actor_email TEXT NOT NULL,
				resource_id TEXT NOT NULL DEFAULT '',
				resource_type TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX IF NOT EXISTS idx_audit_event_timestamp ON audit_event(timestamp)`,
		},
	},
}

// OpenSQLite opens the database at dsn, sizes the pool and brings the schema up to date.
// PRE: the modernc.org/sqlite driver is registered by the caller
// POST: Returns a reachable, migrated database; the caller closes it
func OpenSQLite(dsn, dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if err := InitDB(db, dbPath); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitDB prepares a database for use.
// PRE: db is a valid database connection
// POST: WAL mode enabled, schema at LatestSchemaVersion
func InitDB(db *sql.DB, dbPath string) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if err := MigrateDB(db, dbPath); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// LatestSchemaVersion returns the version MigrateDB brings a database to.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// SchemaVersion returns the applied schema version, 0 for a fresh database.
// PRE: db is a valid database connection
// POST: Returns the highest applied migration version
func SchemaVersion(db *sql.DB) (int, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return 0, fmt.Errorf("create schema_version: %w", err)
	}
	var v sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema_version: %w", err)
	}
	return int(v.Int64), nil
}

// MigrateDB applies every pending migration, each in its own transaction.
// PRE: db is a valid database connection; dbPath is used for logging only
// POST: SchemaVersion(db) == LatestSchemaVersion()
// INVARIANT: Running it twice is a no-op
func MigrateDB(db *sql.DB, dbPath string) error {
	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		slog.Info("schema_migrated", "db", dbPath, "version", m.version, "name", m.name)
	}
	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, ?)",
		m.version, m.name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return err
	}
	return tx.Commit()
}
