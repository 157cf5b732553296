package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eldom_bridge"
	"eldom_bridge/internal/entity"
	"eldom_bridge/internal/logger"
	"eldom_bridge/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrEntityNotFound     = errors.New("entity not found")
	ErrUnsupportedAction  = errors.New("action not supported by entity")
	ErrMissingTemperature = errors.New("temperature is required")
	ErrMissingMode        = errors.New("mode is required")
)

// ControlService dispatches entity actions and serves entity state.
type ControlService struct {
	integration *Integration
	eventRepo   repository.EventRepo
	log         *logger.Logger
}

func NewControlService(integration *Integration, eventRepo repository.EventRepo, log *logger.Logger) *ControlService {
	return &ControlService{integration: integration, eventRepo: eventRepo, log: log.Named("control")}
}

func (s *ControlService) ListEntities(ctx context.Context) ([]eldom_bridge.EntityState, error) {
	return s.integration.States(), nil
}

func (s *ControlService) GetEntity(ctx context.Context, uniqueID string) (eldom_bridge.EntityState, error) {
	e, _, ok := s.integration.Entity(uniqueID)
	if !ok {
		return eldom_bridge.EntityState{}, ErrEntityNotFound
	}
	return e.State(), nil
}

// Execute runs action on the entity and returns its state afterwards.
func (s *ControlService) Execute(ctx context.Context, uniqueID, action string, p ActionParams) (eldom_bridge.EntityState, error) {
	e, entryID, ok := s.integration.Entity(uniqueID)
	if !ok {
		return eldom_bridge.EntityState{}, ErrEntityNotFound
	}

	err := dispatch(ctx, e, action, p)
	s.audit(ctx, entryID, e, action, p, err)
	if err != nil {
		return eldom_bridge.EntityState{}, err
	}
	return e.State(), nil
}

func dispatch(ctx context.Context, e entity.Entity, action string, p ActionParams) error {
	unsupported := fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, action, e.Kind())
	switch action {
	case ActionTurnOn, ActionTurnOff:
		sw, ok := e.(entity.Switchable)
		if !ok {
			return unsupported
		}
		if action == ActionTurnOn {
			return sw.TurnOn(ctx)
		}
		return sw.TurnOff(ctx)
	case ActionSetTemperature:
		ts, ok := e.(entity.TemperatureSetter)
		if !ok {
			return unsupported
		}
		if p.Temperature == nil {
			return ErrMissingTemperature
		}
		return ts.SetTemperature(ctx, *p.Temperature)
	case ActionSetOperationMode:
		ms, ok := e.(entity.OperationModeSetter)
		if !ok {
			return unsupported
		}
		if p.Mode == "" {
			return ErrMissingMode
		}
		return ms.SetOperationMode(ctx, p.Mode)
	case ActionSetHVACMode:
		hs, ok := e.(entity.HVACModeSetter)
		if !ok {
			return unsupported
		}
		if p.Mode == "" {
			return ErrMissingMode
		}
		return hs.SetHVACMode(ctx, p.Mode)
	case ActionPress:
		b, ok := e.(entity.Pressable)
		if !ok {
			return unsupported
		}
		return b.Press(ctx)
	default:
		return unsupported
	}
}

func (s *ControlService) audit(ctx context.Context, entryID string, e entity.Entity, action string, p ActionParams, err error) {
	meta := map[string]any{"unique_id": e.UniqueID(), "action": action, "ok": err == nil}
	if p.Temperature != nil {
		meta["temperature"] = *p.Temperature
	}
	if p.Mode != "" {
		meta["mode"] = p.Mode
	}
	if err != nil {
		meta["error"] = err.Error()
	}
	ev := eldom_bridge.DeviceEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  time.Now().UTC(),
		Type:        eldom_bridge.EventCommand,
		EntryID:     entryID,
		DeviceID:    e.State().DeviceID,
		Description: action,
		Metadata:    meta,
	}
	if aerr := s.eventRepo.Append(context.WithoutCancel(ctx), ev); aerr != nil {
		s.log.Errorw("event_append_failed", "type", ev.Type, "unique_id", e.UniqueID(), "error", aerr)
	}
}

// RefreshAll refreshes every running entry now.
func (s *ControlService) RefreshAll(ctx context.Context) error {
	return s.integration.Refresh(ctx)
}

// SubscribeStates streams entity states of every entry after each refresh.
func (s *ControlService) SubscribeStates(fn StatesListener) (cancel func()) {
	return s.integration.Subscribe(fn)
}
