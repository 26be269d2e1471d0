package storage

import (
	"fmt"

	"workshop-service/internal/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// Open connects to the configured store. For sqlite it also applies the
// pragmas the schema depends on and creates missing tables; the Azure SQL
// schema is provisioned out of band.
func Open(cfg config.Config) (*sqlx.DB, error) {
	driver, dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.DBType == config.DBTypeSqlite {
		// sqlite allows a single writer; one pooled connection keeps
		// concurrent registrations queued instead of failing with busy errors.
		db.SetMaxOpenConns(1)

		for _, pragma := range []string{
			"PRAGMA foreign_keys = ON",
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
			}
		}

		if err := createTables(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

func createTables(db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL DEFAULT 'PARTICIPANT',
		subject_id TEXT UNIQUE,
		avatar_url TEXT,
		created_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS workshop (
		workshop_id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		session_datetime DATETIME NOT NULL,
		duration_min INTEGER NOT NULL,
		max_capacity INTEGER NOT NULL,
		prerequisite TEXT NOT NULL DEFAULT '',
		required_installations TEXT NOT NULL DEFAULT '',
		track TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS registration (
		registration_id INTEGER PRIMARY KEY AUTOINCREMENT,
		workshop_id INTEGER NOT NULL REFERENCES workshop(workshop_id),
		user_id INTEGER NOT NULL REFERENCES users(user_id),
		status TEXT NOT NULL,
		registered_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, workshop_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_registration_workshop_status
		ON registration (workshop_id, status)`,
	`CREATE TABLE IF NOT EXISTS skill (
		skill_id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS user_skill (
		user_skill_id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL REFERENCES users(user_id),
		skill_id INTEGER NOT NULL REFERENCES skill(skill_id),
		grade INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS workshop_skill (
		workshop_skill_id INTEGER PRIMARY KEY AUTOINCREMENT,
		workshop_id INTEGER NOT NULL REFERENCES workshop(workshop_id),
		skill_id INTEGER NOT NULL REFERENCES skill(skill_id)
	)`,
}
