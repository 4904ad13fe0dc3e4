// Package catalog provides the SQLite-backed layer catalog.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver registration

	"github.com/mhollberg/strata/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS layers (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	filename   TEXT NOT NULL,
	properties TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_layers_created_at ON layers(created_at);
`

// SQLiteCatalog implements the LayerCatalog port on a SQLite database.
type SQLiteCatalog struct {
	db    *sql.DB
	newID func() string
	now   func() time.Time
}

// NewSQLiteCatalog opens (and creates, if needed) the catalog database at
// path and ensures the schema exists.
func NewSQLiteCatalog(ctx context.Context, path string) (*SQLiteCatalog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, &domain.CatalogError{Operation: "open", Err: err}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, &domain.CatalogError{Operation: "open", Err: err}
	}

	// One writer at a time; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, &domain.CatalogError{Operation: "open", Err: err}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, &domain.CatalogError{Operation: "migrate", Err: err}
	}

	return &SQLiteCatalog{
		db:    db,
		newID: uuid.NewString,
		now:   time.Now,
	}, nil
}

// Create inserts a new layer record and returns its generated id.
// Timestamps are set here so every record carries catalog time, not
// caller time.
func (c *SQLiteCatalog) Create(ctx context.Context, rec domain.LayerRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", err
	}

	props, err := json.Marshal(rec.Properties)
	if err != nil {
		return "", &domain.CatalogError{Operation: "create", Err: err}
	}

	id := c.newID()
	now := c.now().UTC()

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO layers (id, name, filename, properties, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, rec.Name, rec.Filename, string(props), now, now,
	)
	if err != nil {
		return "", &domain.CatalogError{Operation: "create", Err: err}
	}

	return id, nil
}

// List returns all layer records, most recent first.
func (c *SQLiteCatalog) List(ctx context.Context) ([]domain.LayerRecord, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name, filename, properties, created_at, updated_at
		 FROM layers ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, &domain.CatalogError{Operation: "list", Err: err}
	}
	defer func() { _ = rows.Close() }()

	var records []domain.LayerRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, &domain.CatalogError{Operation: "list", Err: err}
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.CatalogError{Operation: "list", Err: err}
	}
	return records, nil
}

// FindByID returns the record with the given id.
func (c *SQLiteCatalog) FindByID(ctx context.Context, id string) (*domain.LayerRecord, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, name, filename, properties, created_at, updated_at
		 FROM layers WHERE id = ?`,
		id,
	)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.CatalogError{Operation: "find", ID: id, Err: domain.ErrLayerNotFound}
		}
		return nil, &domain.CatalogError{Operation: "find", ID: id, Err: err}
	}
	return &rec, nil
}

// DeleteByID removes the record with the given id.
func (c *SQLiteCatalog) DeleteByID(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM layers WHERE id = ?`, id)
	if err != nil {
		return &domain.CatalogError{Operation: "delete", ID: id, Err: err}
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return &domain.CatalogError{Operation: "delete", ID: id, Err: err}
	}
	if affected == 0 {
		return &domain.CatalogError{Operation: "delete", ID: id, Err: domain.ErrLayerNotFound}
	}
	return nil
}

// Ping verifies the catalog database is reachable.
func (c *SQLiteCatalog) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return &domain.CatalogError{Operation: "ping", Err: domain.ErrCatalogUnavailable}
	}
	return nil
}

// Close closes the underlying database.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans one catalog row into a LayerRecord.
func scanRecord(s scanner) (domain.LayerRecord, error) {
	var rec domain.LayerRecord
	var props string

	err := s.Scan(&rec.ID, &rec.Name, &rec.Filename, &props, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return domain.LayerRecord{}, err
	}

	if err := json.Unmarshal([]byte(props), &rec.Properties); err != nil {
		return domain.LayerRecord{}, fmt.Errorf("decoding properties: %w", err)
	}
	return rec, nil
}
