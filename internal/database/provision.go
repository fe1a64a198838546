package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"snapgram/internal/config"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"gorm.io/gorm"
)

// MaintenanceURL is the URL form DSN pointing at dbName on the primary host.
func MaintenanceURL(cfg *config.Config, dbName string) string {
	sslMode := cfg.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.DBUser, cfg.DBPassword),
		Host:     cfg.DBHost + ":" + cfg.DBPort,
		Path:     "/" + dbName,
		RawQuery: "sslmode=" + url.QueryEscape(sslMode),
	}
	return u.String()
}

// EnsureDatabase creates cfg.DBName through the maintenance database when it
// does not exist yet. It reports whether the database was created.
func EnsureDatabase(ctx context.Context, cfg *config.Config) (bool, error) {
	sqlDB, err := sql.Open("pgx", MaintenanceURL(cfg, "postgres"))
	if err != nil {
		return false, fmt.Errorf("open maintenance db: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()
	return ensureDatabase(ctx, sqlDB, cfg.DBName)
}

func ensureDatabase(ctx context.Context, sqlDB *sql.DB, name string) (bool, error) {
	var exists bool
	if err := sqlDB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check database %q: %w", name, err)
	}
	if exists {
		return false, nil
	}
	// CREATE DATABASE cannot take bind parameters.
	if _, err := sqlDB.ExecContext(ctx, createDatabaseSQL(name)); err != nil {
		return false, fmt.Errorf("create database %q: %w", name, err)
	}
	return true, nil
}

func createDatabaseSQL(name string) string {
	return "CREATE DATABASE " + pgx.Identifier{name}.Sanitize()
}

// TableStatus describes one managed table.
type TableStatus struct {
	Table  string
	Exists bool
	Rows   int64
}

// Status reports which managed tables exist and how many rows they hold.
func Status(db *gorm.DB) ([]TableStatus, error) {
	var out []TableStatus
	for _, model := range PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse model: %w", err)
		}
		st := TableStatus{Table: stmt.Schema.Table}
		if db.Migrator().HasTable(model) {
			st.Exists = true
			if err := db.Table(st.Table).Count(&st.Rows).Error; err != nil {
				return nil, fmt.Errorf("count %s: %w", st.Table, err)
			}
		}
		out = append(out, st)
	}
	return out, nil
}
