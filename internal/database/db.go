package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB represents the database connection with pooling
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool manages database connection pooling
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool creates a new database connection pool
func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]any {
	stats := cp.db.Stats()

	return map[string]any{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
}

// NewDB opens the SQLite database at path, creating its directory and schema
func NewDB(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pool := NewConnectionPool(db, 10, 5, 5*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized",
		"path", path,
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns)

	return database, nil
}

// migrate creates the directory and raw-event tables
func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS members (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL, -- insertion order, drives first-match resolution
			display_name TEXT NOT NULL,
			email TEXT,
			recording_name TEXT,
			roles TEXT, -- JSON array
			projects TEXT, -- JSON array
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS member_identifiers (
			member_id TEXT NOT NULL,
			source TEXT NOT NULL,
			identifier TEXT NOT NULL,
			PRIMARY KEY (source, identifier),
			FOREIGN KEY (member_id) REFERENCES members(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE IF NOT EXISTS project_resources (
			kind TEXT NOT NULL, -- 'repository', 'channel', 'folder'
			resource_id TEXT NOT NULL,
			project_key TEXT NOT NULL,
			PRIMARY KEY (kind, resource_id)
		)`,

		`CREATE TABLE IF NOT EXISTS raw_events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			pk TEXT NOT NULL UNIQUE,
			event_id TEXT NOT NULL,
			source TEXT NOT NULL,
			type TEXT,
			actor TEXT,
			participants TEXT, -- JSON array
			timestamp TEXT NOT NULL, -- as delivered by the collector
			occurred_ms INTEGER, -- NULL when the collector timestamp is unparseable
			metadata TEXT, -- JSON object
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_members_position ON members(position)`,
		`CREATE INDEX IF NOT EXISTS idx_member_identifiers_member ON member_identifiers(member_id)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_events_occurred ON raw_events(occurred_ms)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_events_source_id ON raw_events(source, event_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements initializes frequently used prepared statements
func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"list_members": `SELECT id, display_name, email, recording_name, roles, projects
			FROM members ORDER BY position ASC`,

		"list_identifiers": `SELECT member_id, source, identifier FROM member_identifiers`,

		"list_project_resources": `SELECT kind, resource_id, project_key FROM project_resources`,

		"events_in_range": `SELECT event_id, source, type, actor, participants, timestamp, metadata
			FROM raw_events
			WHERE (occurred_ms BETWEEN ? AND ?) OR occurred_ms IS NULL
			ORDER BY occurred_ms ASC, seq ASC`,

		"insert_event": `INSERT INTO raw_events (
			pk, event_id, source, type, actor, participants, timestamp, occurred_ms, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt

		slog.Debug("Prepared statement initialized", "name", name)
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]any {
	return db.pool.GetStats()
}

// Close closes the database connection and prepared statements
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}
	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}
