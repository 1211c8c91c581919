// Package duckdb exports a finished extraction run to a DuckDB database so
// transcripts, exons and diagnostics can be queried with SQL.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding one run.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for in-memory.
func (s *Store) Path() string {
	return s.path
}

var tables = []string{"transcripts", "exons", "diagnostics", "inputs"}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transcripts (
			transcript_id VARCHAR PRIMARY KEY,
			gene_id VARCHAR,
			seq_id VARCHAR,
			strand VARCHAR,
			exon_count BIGINT,
			length BIGINT,
			extracted BOOLEAN
		)`,
		`CREATE TABLE IF NOT EXISTS exons (
			transcript_id VARCHAR,
			rank BIGINT,
			seq_id VARCHAR,
			start BIGINT,
			"end" BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			seq BIGINT,
			severity VARCHAR,
			kind VARCHAR,
			transcript_id VARCHAR,
			message VARCHAR,
			context VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS inputs (
			role VARCHAR,
			path VARCHAR,
			size BIGINT,
			mod_time TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes the rows of a previous run.
func (s *Store) Clear() error {
	for _, table := range tables {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
