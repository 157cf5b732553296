package service

import (
	"context"
	"errors"
	"slices"
	"testing"

	"eldom_bridge"
	"eldom_bridge/internal/device"
	"eldom_bridge/internal/entity"
	"eldom_bridge/internal/logger"
)

func newTestControl(t *testing.T) (*ControlService, *fakeClassicAPI, *fakeEventRepo) {
	t.Helper()
	api := &fakeClassicAPI{}
	events := &fakeEventRepo{}
	i := newTestIntegration(&fakeConnector{source: &fakeSource{api: api}}, newMemEntryRepo(), events)
	ctx := context.Background()
	if err := i.Setup(ctx, testEntry); err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	t.Cleanup(func() { _ = i.Shutdown(ctx) })
	return NewControlService(i, events, logger.Nop()), api, events
}

func ptr(v float64) *float64 { return &v }

func TestControl_ExecuteDispatch(t *testing.T) {
	tests := []struct {
		name     string
		uniqueID string
		action   string
		params   ActionParams
		wantCall string
	}{
		{"water heater temperature", "FB0001", ActionSetTemperature, ActionParams{Temperature: ptr(65)}, "setTemperature"},
		{"water heater mode", "FB0001", ActionSetOperationMode, ActionParams{Mode: device.ModeOff}, "setState"},
		{"water heater on", "FB0001", ActionTurnOn, ActionParams{}, "setState"},
		{"climate hvac off", "CV0002", ActionSetHVACMode, ActionParams{Mode: entity.HVACOff}, "setState"},
		{"climate temperature", "CV0002", ActionSetTemperature, ActionParams{Temperature: ptr(21)}, "setTemperature"},
		{"powerful switch", "FB0001-powerful-switch", ActionTurnOn, ActionParams{}, "setHeater"},
		{"reset button", "FB0001-reset-energy-usage-button", ActionPress, ActionParams{}, "resetEnergy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, api, events := newTestControl(t)

			st, err := svc.Execute(context.Background(), tt.uniqueID, tt.action, tt.params)
			if err != nil {
				t.Fatalf("Execute error: %v", err)
			}
			if st.UniqueID != tt.uniqueID {
				t.Fatalf("returned state of %q", st.UniqueID)
			}
			if got := api.callList(); !slices.Equal(got, []string{tt.wantCall}) {
				t.Fatalf("remote calls = %v, want [%s]", got, tt.wantCall)
			}
			want := []string{eldom_bridge.EventSetup, eldom_bridge.EventCommand}
			if got := events.appendedTypes(); !slices.Equal(got, want) {
				t.Fatalf("events = %v, want %v", got, want)
			}
		})
	}
}

func TestControl_ExecuteErrors(t *testing.T) {
	tests := []struct {
		name     string
		uniqueID string
		action   string
		params   ActionParams
		wantErr  error
	}{
		{"unknown entity", "nope", ActionTurnOn, ActionParams{}, ErrEntityNotFound},
		{"press on water heater", "FB0001", ActionPress, ActionParams{}, ErrUnsupportedAction},
		{"unknown action", "FB0001", "explode", ActionParams{}, ErrUnsupportedAction},
		{"sensor turn on", "FB0001-heater-sensor", ActionTurnOn, ActionParams{}, ErrUnsupportedAction},
		{"missing temperature", "FB0001", ActionSetTemperature, ActionParams{}, ErrMissingTemperature},
		{"missing mode", "FB0001", ActionSetOperationMode, ActionParams{}, ErrMissingMode},
		{"invalid mode", "FB0001", ActionSetOperationMode, ActionParams{Mode: "Turbo"}, device.ErrInvalidOperationMode},
		{"hvac mode on water heater", "FB0001", ActionSetHVACMode, ActionParams{Mode: entity.HVACHeat}, ErrUnsupportedAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, api, _ := newTestControl(t)

			_, err := svc.Execute(context.Background(), tt.uniqueID, tt.action, tt.params)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if calls := api.callList(); len(calls) != 0 {
				t.Fatalf("no remote call expected, got %v", calls)
			}
		})
	}
}

func TestControl_FailedCommandIsAudited(t *testing.T) {
	svc, _, events := newTestControl(t)

	_, _ = svc.Execute(context.Background(), "FB0001", ActionSetOperationMode, ActionParams{Mode: "Turbo"})

	events.mu.Lock()
	defer events.mu.Unlock()
	last := events.appended[len(events.appended)-1]
	if last.Type != eldom_bridge.EventCommand || last.DeviceID != "FB0001" {
		t.Fatalf("unexpected audit event: %+v", last)
	}
	meta, _ := last.Metadata.(map[string]any)
	if meta["ok"] != false || meta["mode"] != "Turbo" {
		t.Fatalf("unexpected metadata: %v", last.Metadata)
	}
}

func TestControl_ListAndGet(t *testing.T) {
	svc, _, _ := newTestControl(t)
	ctx := context.Background()

	list, err := svc.ListEntities(ctx)
	if err != nil {
		t.Fatalf("ListEntities error: %v", err)
	}
	if len(list) != 9 {
		t.Fatalf("expected 9 entities, got %d", len(list))
	}

	st, err := svc.GetEntity(ctx, "CV0002")
	if err != nil {
		t.Fatalf("GetEntity error: %v", err)
	}
	if st.Kind != string(entity.KindClimate) || !st.Available {
		t.Fatalf("unexpected state: %+v", st)
	}
	if _, err := svc.GetEntity(ctx, "missing"); !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}
}

func TestControl_RefreshAllPublishes(t *testing.T) {
	svc, _, _ := newTestControl(t)

	var got int
	cancel := svc.SubscribeStates(func(entryID string, states []eldom_bridge.EntityState) {
		got = len(states)
	})
	defer cancel()

	if err := svc.RefreshAll(context.Background()); err != nil {
		t.Fatalf("RefreshAll error: %v", err)
	}
	if got != 9 {
		t.Fatalf("expected 9 published states, got %d", got)
	}
}
