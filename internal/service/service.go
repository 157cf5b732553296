package service

import (
	"context"
	"time"

	"eldom_bridge"
	"eldom_bridge/internal/logger"
	"eldom_bridge/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Entries is the config flow: create, list and delete vendor accounts.
type Entries interface {
	CreateEntry(ctx context.Context, p EntryParams) (eldom_bridge.Entry, error)
	EnsureEntry(ctx context.Context, p EntryParams) error
	ListEntries(ctx context.Context) ([]eldom_bridge.EntryStatus, error)
	DeleteEntry(ctx context.Context, uniqueID string) error
}

// Control exposes entity state and actions.
type Control interface {
	ListEntities(ctx context.Context) ([]eldom_bridge.EntityState, error)
	GetEntity(ctx context.Context, uniqueID string) (eldom_bridge.EntityState, error)
	Execute(ctx context.Context, uniqueID, action string, p ActionParams) (eldom_bridge.EntityState, error)
	RefreshAll(ctx context.Context) error
	SubscribeStates(fn StatesListener) (cancel func())
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]eldom_bridge.DeviceEvent, error)
}

// Lifecycle starts and stops the configured entries.
// Stop via Shutdown in main() for graceful shutdown.
type Lifecycle interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Service aggregates all sub-services.
type Service struct {
	Entries
	Control
	EventLog
	Lifecycle
	Authorization
}

// Options configure NewService.
type Options struct {
	Connector    Connector
	PollInterval time.Duration
	SigningKey   string
	TokenTTL     time.Duration
	Log          *logger.Logger
}

// NewService wires the repository layer into the concrete services.
func NewService(repos *repository.Repository, opts Options) *Service {
	integration := NewIntegration(opts.Connector, repos.EntryRepo, repos.EventRepo, opts.PollInterval, opts.Log)
	return &Service{
		Entries:       NewEntryService(repos.EntryRepo, integration, opts.Log),
		Control:       NewControlService(integration, repos.EventRepo, opts.Log),
		EventLog:      NewEventLogService(repos.EventRepo),
		Lifecycle:     integration,
		Authorization: NewAuthService(repos.Auth, opts.SigningKey, opts.TokenTTL),
	}
}
