package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/datacat/internal/common"
	_ "modernc.org/sqlite"
)

// SQLiteDB manages the SQLite database connection.
type SQLiteDB struct {
	db     *sql.DB
	logger arbor.ILogger
	config *common.SQLiteConfig
}

// NewSQLiteDB opens (creating if necessary) the dataset repository database.
func NewSQLiteDB(logger arbor.ILogger, config *common.SQLiteConfig) (*SQLiteDB, error) {
	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	if config.ResetOnStartup {
		if config.Environment != "development" {
			logger.Warn().
				Str("environment", config.Environment).
				Msg("reset_on_startup is enabled but environment is not 'development' - ignoring reset request for safety")
		} else {
			if err := resetDatabase(logger, config.Path); err != nil {
				return nil, fmt.Errorf("failed to reset database: %w", err)
			}
		}
	}

	logger.Debug().Str("path", config.Path).Msg("Opening database connection")

	// modernc.org/sqlite registers the driver as "sqlite", not "sqlite3".
	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers poorly under concurrent connections; a single
	// connection plus WAL mode avoids SQLITE_BUSY. DatasetRepository also
	// serializes its writes with a mutex.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteDB{
		db:     db,
		logger: logger,
		config: config,
	}

	if err := s.configure(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := s.InitSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info().Str("path", config.Path).Msg("SQLite database initialized")
	return s, nil
}

// configure sets up SQLite pragmas.
func (s *SQLiteDB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

// DB returns the underlying database connection.
func (s *SQLiteDB) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLiteDB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// BeginTx starts a new transaction.
func (s *SQLiteDB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// Ping verifies the database connection.
func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// resetDatabase deletes the database file and associated WAL/SHM files.
// Only called in the development environment.
func resetDatabase(logger arbor.ILogger, dbPath string) error {
	logger.Warn().Str("path", dbPath).Msg("Resetting database (deleting all data)")

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				return fmt.Errorf("failed to delete %s: %w", path, err)
			}
			continue
		}
		logger.Debug().Str("path", path).Msg("Deleted database file")
	}

	return nil
}
