package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"social-publisher/models"
	"social-publisher/utils"

	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Open connects to the store selected by settings.
func Open(ctx context.Context, settings models.StoreSettings) (Store, error) {
	switch settings.Driver {
	case DriverMongo:
		return NewMongoStore(ctx, settings.DSN, settings.Database)
	case DriverSQLite, DriverPostgres, "":
		driver := settings.Driver
		if driver == "" {
			driver = DriverSQLite
		}
		db, err := InitDB(driver, settings.DSN)
		if err != nil {
			return nil, err
		}
		return NewSQLStore(db, driver), nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", settings.Driver)
	}
}

// InitDB opens a SQL database and makes sure the schema exists.
func InitDB(driver, dsn string) (*sql.DB, error) {
	if driver == DriverSQLite && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		// Ensure the directory for the database file exists.
		dir := filepath.Dir(dsn)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite serialises writers; one connection also keeps :memory: databases shared.
		db.SetMaxOpenConns(1)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	utils.Info("database", "InitDB", fmt.Sprintf("connected to %s database", driver))
	return db, nil
}

func createSchema(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			platforms TEXT NOT NULL DEFAULT '[]',
			platform_post_ids TEXT NOT NULL DEFAULT '{}',
			manual_platforms TEXT NOT NULL DEFAULT '[]',
			scheduled_date BIGINT,
			images TEXT NOT NULL DEFAULT '[]',
			urls TEXT NOT NULL DEFAULT '[]',
			hashtags TEXT NOT NULL DEFAULT '[]',
			approved_by TEXT NOT NULL DEFAULT '',
			approved_at BIGINT,
			rejection_reason TEXT NOT NULL DEFAULT '',
			last_results TEXT NOT NULL DEFAULT '[]',
			claimed_at BIGINT,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			published_at BIGINT,
			version BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_status_scheduled ON posts(status, scheduled_date)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_user_created ON posts(user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			notify_on_publish BOOLEAN NOT NULL DEFAULT TRUE,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS admin_requests (
			id TEXT PRIMARY KEY,
			target_user_id TEXT NOT NULL,
			target_email TEXT NOT NULL DEFAULT '',
			target_display_name TEXT NOT NULL DEFAULT '',
			requested_role TEXT NOT NULL,
			current_role TEXT NOT NULL,
			requester_id TEXT NOT NULL,
			requester_email TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			processed_at BIGINT,
			processed_by TEXT NOT NULL DEFAULT ''
		)`,
		// One outstanding request per target and role.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_admin_requests_pending
			ON admin_requests(target_user_id, requested_role) WHERE status = 'pending'`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}
