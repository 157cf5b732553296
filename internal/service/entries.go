package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eldom_bridge"
	"eldom_bridge/internal/logger"
	"eldom_bridge/internal/repository"
)

var (
	ErrAlreadyConfigured = errors.New("already_configured")
	ErrEntryNotFound     = errors.New("entry not found")
	errMissingUsername   = errors.New("username is required")
	errMissingPassword   = errors.New("password is required")
)

// EntryService implements the config flow and entry management.
type EntryService struct {
	repo        repository.EntryRepo
	integration *Integration
	log         *logger.Logger
}

func NewEntryService(repo repository.EntryRepo, integration *Integration, log *logger.Logger) *EntryService {
	return &EntryService{repo: repo, integration: integration, log: log.Named("entries")}
}

// UniqueID is the lowercased username joined with the API family.
func UniqueID(username, api string) string {
	return strings.ToLower(strings.TrimSpace(username)) + "_" + api
}

func normalizeParams(p EntryParams) (EntryParams, error) {
	p.Username = strings.TrimSpace(p.Username)
	if p.Username == "" {
		return p, errMissingUsername
	}
	if p.Password == "" {
		return p, errMissingPassword
	}
	switch p.API {
	case "":
		p.API = eldom_bridge.APIClassic
	case eldom_bridge.APIClassic, eldom_bridge.APIIoT:
	default:
		return p, fmt.Errorf("%w: %q", ErrInvalidAPI, p.API)
	}
	return p, nil
}

// CreateEntry validates the credentials by setting the entry up, then persists
// it. A second entry for the same account fails with ErrAlreadyConfigured;
// rejected credentials with ErrInvalidAuth.
func (s *EntryService) CreateEntry(ctx context.Context, p EntryParams) (eldom_bridge.Entry, error) {
	p, err := normalizeParams(p)
	if err != nil {
		return eldom_bridge.Entry{}, err
	}
	entry := newEntry(p)

	existing, err := s.repo.Get(ctx, entry.UniqueID)
	if err != nil {
		return eldom_bridge.Entry{}, err
	}
	if existing != nil {
		return eldom_bridge.Entry{}, ErrAlreadyConfigured
	}

	if err := s.integration.Setup(ctx, entry); err != nil {
		switch {
		case errors.Is(err, errAlreadyLoaded):
			return eldom_bridge.Entry{}, ErrAlreadyConfigured
		case errors.Is(err, ErrInvalidAuth):
			return eldom_bridge.Entry{}, ErrInvalidAuth
		}
		s.log.Errorw("entry_setup_failed", "entry_id", entry.UniqueID, "error", err)
		return eldom_bridge.Entry{}, err
	}

	if err := s.repo.Save(ctx, entry); err != nil {
		_ = s.integration.Unload(context.WithoutCancel(ctx), entry.UniqueID)
		if errors.Is(err, repository.ErrDuplicate) {
			return eldom_bridge.Entry{}, ErrAlreadyConfigured
		}
		return eldom_bridge.Entry{}, err
	}
	s.log.Infow("entry_created", "entry_id", entry.UniqueID, "api", entry.API)
	return entry, nil
}

// EnsureEntry creates the entry unless the account is already configured; used
// for the bootstrap account from the config file. When the vendor cannot be
// reached the entry is saved anyway and set up by the retry loop. Rejected
// credentials are still an error.
func (s *EntryService) EnsureEntry(ctx context.Context, p EntryParams) error {
	_, err := s.CreateEntry(ctx, p)
	switch {
	case err == nil, errors.Is(err, ErrAlreadyConfigured):
		return nil
	case !errors.Is(err, ErrNotReady):
		return err
	}

	p, _ = normalizeParams(p)
	entry := newEntry(p)
	if saveErr := s.repo.Save(ctx, entry); saveErr != nil {
		if errors.Is(saveErr, repository.ErrDuplicate) {
			return nil
		}
		return saveErr
	}
	s.log.Warnw("entry_setup_deferred", "entry_id", entry.UniqueID, "error", err)
	s.integration.retry(entry, err)
	return nil
}

func newEntry(p EntryParams) eldom_bridge.Entry {
	return eldom_bridge.Entry{
		UniqueID:  UniqueID(p.Username, p.API),
		Username:  p.Username,
		Password:  p.Password,
		API:       p.API,
		CreatedAt: time.Now().UTC(),
	}
}

// ListEntries returns every entry with its runtime state.
func (s *EntryService) ListEntries(ctx context.Context) ([]eldom_bridge.EntryStatus, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]eldom_bridge.EntryStatus, 0, len(list))
	for _, e := range list {
		state, lastErr := s.integration.Status(e.UniqueID)
		st := eldom_bridge.EntryStatus{Entry: e, State: state}
		if lastErr != nil {
			st.LastError = lastErr.Error()
		}
		out = append(out, st)
	}
	return out, nil
}

// DeleteEntry unloads and removes an entry.
func (s *EntryService) DeleteEntry(ctx context.Context, uniqueID string) error {
	existing, err := s.repo.Get(ctx, uniqueID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrEntryNotFound
	}
	if err := s.integration.Unload(ctx, uniqueID); err != nil && !errors.Is(err, ErrEntryNotLoaded) {
		return err
	}
	if err := s.repo.Delete(ctx, uniqueID); err != nil {
		return err
	}
	s.log.Infow("entry_deleted", "entry_id", uniqueID)
	return nil
}
