package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/matthewbaird/stationcu/internal/types"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (creating if needed) a catalog database at path.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := CreateTable(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// CreateTable creates the catalog_entries table if it does not exist.
func CreateTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS catalog_entries (
			position     INTEGER NOT NULL,
			stock_number TEXT NOT NULL PRIMARY KEY,
			description  TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("creating catalog table: %w", err)
	}
	return nil
}

// Import replaces the table contents with entries, preserving their order.
func Import(ctx context.Context, db *sql.DB, entries []types.CatalogEntry) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM catalog_entries"); err != nil {
		return fmt.Errorf("clearing catalog: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO catalog_entries (position, stock_number, description) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, i, e.StockNumber, e.Description); err != nil {
			return fmt.Errorf("inserting %s: %w", e.StockNumber, err)
		}
	}
	return tx.Commit()
}

// LoadSQLite reads every entry in import order.
func LoadSQLite(ctx context.Context, db *sql.DB) ([]types.CatalogEntry, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT stock_number, description FROM catalog_entries ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var entries []types.CatalogEntry
	for rows.Next() {
		var e types.CatalogEntry
		if err := rows.Scan(&e.StockNumber, &e.Description); err != nil {
			return nil, fmt.Errorf("scanning catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// FromSQLite opens path and builds a catalog from its contents.
func FromSQLite(ctx context.Context, path string, limit int) (*Catalog, error) {
	db, err := OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	entries, err := LoadSQLite(ctx, db)
	if err != nil {
		return nil, err
	}
	return New(entries, limit), nil
}

// Open returns the catalog stored at path, or the embedded catalog when
// path is empty.
func Open(ctx context.Context, path string, limit int) (*Catalog, error) {
	if path == "" {
		return Default(limit)
	}
	c, err := FromSQLite(ctx, path, limit)
	if err != nil {
		return nil, fmt.Errorf("loading catalog from %s: %w", path, err)
	}
	return c, nil
}
