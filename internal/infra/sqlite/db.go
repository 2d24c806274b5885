// Package sqlite is the durable store for the settlement engine: game
// records, per-asset custody counters, the append-only audit log, and the
// delegate-key directory.
//
// Every state-changing settlement operation runs inside one immediate
// transaction covering its game row, treasury row, and audit event — the
// three are never observable out of sync.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go sqlite driver
)

// DB wraps the sqlite database handle.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database under dir and applies migrations.
func Open(dir string) (*DB, error) {
	path := filepath.Join(dir, "parlor.db")
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; the registry serializes anyway.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{db: sqlDB}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying handle.
func (db *DB) Close() error { return db.db.Close() }

// Migrations returns the schema statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		// Wager records. seq is the internal sequence number; id is the
		// caller-supplied external identifier, unique forever.
		`CREATE TABLE IF NOT EXISTS games (
			seq           INTEGER PRIMARY KEY AUTOINCREMENT,
			id            TEXT NOT NULL UNIQUE,
			seed_hash     TEXT NOT NULL,
			player        TEXT NOT NULL,
			asset         TEXT NOT NULL,
			bet_amount    INTEGER NOT NULL,
			payout_amount INTEGER NOT NULL DEFAULT 0,
			status        TEXT NOT NULL DEFAULT 'ACTIVE',
			created_at    TEXT NOT NULL,
			settled_at    TEXT,
			revealed_seed TEXT NOT NULL DEFAULT '',
			extra         TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_games_status ON games(status, asset)`,

		// Per-asset custody counters and bet limits.
		`CREATE TABLE IF NOT EXISTS treasury (
			asset      TEXT PRIMARY KEY,
			custodied  INTEGER NOT NULL DEFAULT 0,
			treasury   INTEGER NOT NULL DEFAULT 0,
			locked     INTEGER NOT NULL DEFAULT 0,
			min_bet    INTEGER NOT NULL DEFAULT 0,
			max_bet    INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Append-only audit log.
		`CREATE TABLE IF NOT EXISTS audit_events (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL,
			type       TEXT NOT NULL,
			game_id    TEXT NOT NULL DEFAULT '',
			asset      TEXT NOT NULL DEFAULT '',
			amount     INTEGER NOT NULL DEFAULT 0,
			payload    TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_game ON audit_events(game_id)`,

		// Keys authorized to sign on behalf of a delegated signer identity.
		`CREATE TABLE IF NOT EXISTS delegate_keys (
			signer   TEXT NOT NULL,
			delegate TEXT NOT NULL,
			added_at TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (signer, delegate)
		)`,
	}
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Tx is a transaction-scoped view of the store.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a single transaction. Any error rolls the whole
// transaction back; no partial effects persist.
func (db *DB) WithTx(fn func(*Tx) error) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(&Tx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
