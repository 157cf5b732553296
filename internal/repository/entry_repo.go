package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"eldom_bridge"
)

type EntrySQLite struct {
	db *sql.DB
}

func NewEntrySQLite(db *sql.DB) *EntrySQLite {
	return &EntrySQLite{db: db}
}

var _ EntryRepo = (*EntrySQLite)(nil)

const (
	insertEntrySQL = `
		INSERT INTO config_entries (unique_id, username, password, api, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	selectEntrySQL = `
		SELECT unique_id, username, password, api, created_at
		FROM config_entries WHERE unique_id = ?
	`
	listEntriesSQL = `
		SELECT unique_id, username, password, api, created_at
		FROM config_entries ORDER BY created_at ASC
	`
	deleteEntrySQL = `DELETE FROM config_entries WHERE unique_id = ?`
)

// Save inserts a new entry. An existing unique id yields ErrDuplicate.
func (r *EntrySQLite) Save(ctx context.Context, e eldom_bridge.Entry) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, insertEntrySQL, e.UniqueID, e.Username, e.Password, e.API, created.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("save entry %q: %w", e.UniqueID, ErrDuplicate)
		}
		return fmt.Errorf("save entry %q: %w", e.UniqueID, err)
	}
	return nil
}

// Get returns (nil, nil) when no entry has the id.
func (r *EntrySQLite) Get(ctx context.Context, uniqueID string) (*eldom_bridge.Entry, error) {
	var e eldom_bridge.Entry
	err := r.db.QueryRowContext(ctx, selectEntrySQL, uniqueID).
		Scan(&e.UniqueID, &e.Username, &e.Password, &e.API, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select entry %q: %w", uniqueID, err)
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

func (r *EntrySQLite) List(ctx context.Context) ([]eldom_bridge.Entry, error) {
	rows, err := r.db.QueryContext(ctx, listEntriesSQL)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []eldom_bridge.Entry
	for rows.Next() {
		var e eldom_bridge.Entry
		if err := rows.Scan(&e.UniqueID, &e.Username, &e.Password, &e.API, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete is a no-op for an unknown id.
func (r *EntrySQLite) Delete(ctx context.Context, uniqueID string) error {
	if _, err := r.db.ExecContext(ctx, deleteEntrySQL, uniqueID); err != nil {
		return fmt.Errorf("delete entry %q: %w", uniqueID, err)
	}
	return nil
}

// sqlite reports constraint violations only through the message text.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "PRIMARY KEY")
}
