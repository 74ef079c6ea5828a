// Package sqlite provides SQLite-based persistent storage for the consensus
// engine. Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// Actors: the participant population
		`CREATE TABLE IF NOT EXISTS actors (
			id          TEXT PRIMARY KEY,
			email       TEXT NOT NULL DEFAULT '',
			role        TEXT NOT NULL DEFAULT 'anonymous',
			credential  TEXT NOT NULL DEFAULT '',
			trust_score INTEGER NOT NULL DEFAULT 0,
			ban_level   INTEGER NOT NULL DEFAULT 0,
			ban_expires INTEGER,
			verified    BOOLEAN NOT NULL DEFAULT 0,
			deleted     BOOLEAN NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL,
			last_login  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_actors_role ON actors(role)`,
		`CREATE INDEX IF NOT EXISTS idx_actors_trust ON actors(trust_score)`,

		// Trust actions: immutable event log of score deltas
		`CREATE TABLE IF NOT EXISTS trust_actions (
			id         TEXT PRIMARY KEY,
			actor_id   TEXT NOT NULL,
			kind       TEXT NOT NULL,
			points     INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_actor ON trust_actions(actor_id, kind)`,

		// Aggregable entities: facts, vetoes, published debates
		`CREATE TABLE IF NOT EXISTS entities (
			id              TEXT PRIMARY KEY,
			kind            TEXT NOT NULL,
			author_id       TEXT NOT NULL,
			subject_id      TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL,
			vote_count      INTEGER NOT NULL DEFAULT 0,
			positive_weight REAL NOT NULL DEFAULT 0,
			negative_weight REAL NOT NULL DEFAULT 0,
			created_at      INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind, status)`,

		// Weighted votes: one row per (entity, voter)
		`CREATE TABLE IF NOT EXISTS votes (
			entity_id TEXT NOT NULL,
			voter_id  TEXT NOT NULL,
			polarity  INTEGER NOT NULL,
			weight    REAL NOT NULL,
			cast_at   INTEGER NOT NULL,
			PRIMARY KEY (entity_id, voter_id)
		)`,

		// Expert verification requests + quorum approvals
		`CREATE TABLE IF NOT EXISTS verification_requests (
			id          TEXT PRIMARY KEY,
			actor_id    TEXT NOT NULL,
			target_role TEXT NOT NULL,
			status      TEXT NOT NULL DEFAULT 'pending',
			created_at  INTEGER NOT NULL,
			resolved_at INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS approvals (
			id          TEXT PRIMARY KEY,
			request_id  TEXT NOT NULL,
			reviewer_id TEXT NOT NULL,
			approved    BOOLEAN NOT NULL,
			comment     TEXT NOT NULL DEFAULT '',
			override    BOOLEAN NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL,
			UNIQUE (request_id, reviewer_id)
		)`,

		// Abuse flags + permanent-ban denylist
		`CREATE TABLE IF NOT EXISTS flags (
			id          TEXT PRIMARY KEY,
			actor_id    TEXT NOT NULL,
			reason      TEXT NOT NULL DEFAULT '',
			status      TEXT NOT NULL DEFAULT 'pending',
			created_at  INTEGER NOT NULL,
			resolved_at INTEGER,
			resolved_by TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_flags_actor ON flags(actor_id, status)`,
		`CREATE TABLE IF NOT EXISTS denylist (
			email      TEXT NOT NULL DEFAULT '',
			ip_hash    TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_denylist_email ON denylist(email)`,
		`CREATE INDEX IF NOT EXISTS idx_denylist_ip ON denylist(ip_hash)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_denylist_identity ON denylist(email, ip_hash)`,

		// Configuration tables — absent rows fall back to hard-coded defaults
		`CREATE TABLE IF NOT EXISTS config_action_points (
			kind   TEXT PRIMARY KEY,
			points INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS config_trust_tiers (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			min_score INTEGER,
			max_score INTEGER,
			modifier  REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS config_role_weights (
			role   TEXT PRIMARY KEY,
			weight REAL NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullableUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func unixPtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(n.Int64, 0)
	return &t
}
