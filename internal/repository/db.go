package repository

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"todoapi/internal/config"
)

// DSN builds the MySQL data source name for cfg
func DSN(cfg config.DatabaseConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.Name
	mc.ParseTime = true
	mc.Loc = time.UTC
	// report matched rather than changed rows so an UPDATE that rewrites
	// the same value is not mistaken for a missing row
	mc.ClientFoundRows = true
	return mc.FormatDSN()
}

// Open opens and verifies a MySQL connection pool
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// schema creates the tables when they do not exist yet
var schema = []string{
	`CREATE TABLE IF NOT EXISTS activities (
		id VARCHAR(25) NOT NULL PRIMARY KEY,
		email VARCHAR(255) NOT NULL,
		title VARCHAR(50) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		deleted_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS todos (
		id VARCHAR(25) NOT NULL PRIMARY KEY,
		activity_group_id VARCHAR(25) NOT NULL,
		title VARCHAR(50) NOT NULL,
		is_active TINYINT(1) DEFAULT 1,
		priority VARCHAR(40) DEFAULT 'very-high',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		deleted_at TEXT
	)`,
}

// Migrate applies the schema
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// newID generates a resource identifier
func newID() (string, error) {
	return gonanoid.New(IDLength)
}
