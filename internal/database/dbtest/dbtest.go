// Package dbtest opens throwaway in-memory SQLite databases carrying the
// same tables as the MySQL schema so repository and service tests can run
// real SQL without a server.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/iliyamo/fest-registration/internal/database"
)

var seq atomic.Int64

// sqliteSchema mirrors database.MySQLSchema using SQLite types.
var sqliteSchema = []string{
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'VOLUNTEER',
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE refresh_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(id),
		token_hash TEXT NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		price_amount INTEGER NOT NULL,
		max_team_size INTEGER NOT NULL DEFAULT 1,
		is_active INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE group_ids (
		group_id TEXT PRIMARY KEY,
		kind TEXT NOT NULL
	)`,
	`CREATE TABLE tier_pass_groups (
		group_id TEXT PRIMARY KEY,
		contact_name TEXT NOT NULL,
		contact_email TEXT NOT NULL,
		contact_phone TEXT NOT NULL,
		total_amount INTEGER NOT NULL,
		payment_txn_id TEXT NOT NULL,
		payment_screenshot_path TEXT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME NOT NULL,
		reviewed_at DATETIME NULL,
		reviewed_by TEXT NULL,
		rejection_reason TEXT NULL
	)`,
	`CREATE TABLE tier_pass_members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		group_id TEXT NOT NULL REFERENCES tier_pass_groups(group_id),
		user_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL,
		college TEXT NOT NULL,
		tier TEXT NULL,
		pass_type TEXT NULL,
		pass_tier TEXT NULL,
		position INTEGER NOT NULL
	)`,
	`CREATE TABLE event_groups (
		group_id TEXT PRIMARY KEY,
		event_id INTEGER NOT NULL REFERENCES events(id),
		contact_name TEXT NOT NULL,
		contact_email TEXT NOT NULL,
		contact_phone TEXT NOT NULL,
		total_amount INTEGER NOT NULL,
		payment_txn_id TEXT NOT NULL,
		payment_screenshot_path TEXT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME NOT NULL,
		reviewed_at DATETIME NULL,
		reviewed_by TEXT NULL,
		rejection_reason TEXT NULL
	)`,
	`CREATE TABLE event_members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		group_id TEXT NOT NULL REFERENCES event_groups(group_id),
		user_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT NOT NULL,
		college TEXT NOT NULL,
		position INTEGER NOT NULL
	)`,
}

// Open returns a migrated in-memory database that is closed when the test
// ends.  Every call gets its own database.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:festreg_%d?mode=memory&cache=shared", seq.Add(1))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(context.Background(), db, sqliteSchema); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

// Exec runs a statement and fails the test on error.
func Exec(t testing.TB, db *sql.DB, q string, args ...interface{}) {
	t.Helper()
	if _, err := db.Exec(q, args...); err != nil {
		t.Fatalf("exec %q: %v", q, err)
	}
}
