package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eldom_bridge"
)

// ErrDuplicate is returned when a config entry with the same unique id exists.
var ErrDuplicate = errors.New("duplicate entry")

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*eldom_bridge.User, error)
}

// EntryRepo persists configured vendor accounts.
type EntryRepo interface {
	Save(ctx context.Context, e eldom_bridge.Entry) error
	Get(ctx context.Context, uniqueID string) (*eldom_bridge.Entry, error)
	List(ctx context.Context) ([]eldom_bridge.Entry, error)
	Delete(ctx context.Context, uniqueID string) error
}

type EventRepo interface {
	Append(ctx context.Context, e eldom_bridge.DeviceEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]eldom_bridge.DeviceEvent, error)
}

type Repository struct {
	EntryRepo EntryRepo
	EventRepo EventRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		EntryRepo: NewEntrySQLite(db),
		EventRepo: NewEventSQLite(db),
		Auth:      NewUserRepository(db),
	}
}
