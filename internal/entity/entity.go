// Package entity adapts coordinator devices into the entities exposed over the
// API and MQTT: climate, water heater, switch, sensor and button.
package entity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"eldom_bridge"
	"eldom_bridge/internal/device"
	"eldom_bridge/internal/logger"
)

// Kind is the entity platform.
type Kind string

const (
	KindClimate     Kind = "climate"
	KindWaterHeater Kind = "water_heater"
	KindSwitch      Kind = "switch"
	KindSensor      Kind = "sensor"
	KindButton      Kind = "button"
)

var (
	ErrOperationFailed = errors.New("operation failed")
	ErrUnavailable     = errors.New("entity unavailable")
)

// Coordinator is the part of the polling coordinator entities depend on.
type Coordinator interface {
	Lookup(t device.Type, id string) (device.Device, uint64, bool)
	Devices() device.Devices
	Available() bool
	RequestRefresh(ctx context.Context) error
	Subscribe(fn func()) (cancel func())
}

// Entity is implemented by every adapter.
type Entity interface {
	UniqueID() string
	Kind() Kind
	DeviceType() device.Type
	DeviceKey() string
	Available() bool
	State() eldom_bridge.EntityState
	HandleCoordinatorUpdate()
}

// Action interfaces; an entity implements the ones its platform supports.
type (
	Switchable interface {
		TurnOn(ctx context.Context) error
		TurnOff(ctx context.Context) error
	}
	TemperatureSetter interface {
		SetTemperature(ctx context.Context, temperature float64) error
	}
	OperationModeSetter interface {
		SetOperationMode(ctx context.Context, mode string) error
	}
	HVACModeSetter interface {
		SetHVACMode(ctx context.Context, mode string) error
	}
	Pressable interface {
		Press(ctx context.Context) error
	}
)

// base keeps the coordinator reference and the device resolved at the last
// notification.
type base struct {
	entryID  string
	uniqueID string
	kind     Kind
	coord    Coordinator
	typ      device.Type
	key      string
	log      *logger.Logger

	mu        sync.RWMutex
	dev       device.Device
	gen       uint64
	updatedAt time.Time
}

func newBase(entryID, uniqueID string, kind Kind, coord Coordinator, dev device.Device, log *logger.Logger) *base {
	b := &base{
		entryID:  entryID,
		uniqueID: uniqueID,
		kind:     kind,
		coord:    coord,
		typ:      dev.Type(),
		key:      dev.ID(),
		log:      log,
	}
	b.resolve()
	return b
}

func (b *base) UniqueID() string        { return b.uniqueID }
func (b *base) Kind() Kind              { return b.kind }
func (b *base) DeviceType() device.Type { return b.typ }
func (b *base) DeviceKey() string       { return b.key }

// HandleCoordinatorUpdate re-resolves the device in the latest snapshot.
func (b *base) HandleCoordinatorUpdate() { b.resolve() }

func (b *base) resolve() {
	dev, gen, ok := b.coord.Lookup(b.typ, b.key)
	b.mu.Lock()
	defer b.mu.Unlock()
	if ok {
		b.dev, b.gen = dev, gen
	} else {
		b.dev = nil
	}
	b.updatedAt = time.Now().UTC()
}

func (b *base) device() (device.Device, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dev, b.dev != nil
}

// Available is false while the coordinator is failing or the device is gone
// from the snapshot.
func (b *base) Available() bool {
	_, ok := b.device()
	return ok && b.coord.Available()
}

// state fills the common fields; the caller sets Name, State and Attributes.
func (b *base) state() eldom_bridge.EntityState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st := eldom_bridge.EntityState{
		UniqueID:   b.uniqueID,
		EntryID:    b.entryID,
		Kind:       string(b.kind),
		Generation: b.gen,
		UpdatedAt:  b.updatedAt,
		Available:  b.dev != nil && b.coord.Available(),
	}
	if b.dev != nil {
		st.DeviceID = b.dev.DeviceID()
		st.DeviceName = b.dev.Name()
		st.Model = b.typ.DisplayName()
	}
	return st
}

// run executes a device mutation and then asks the coordinator for a refresh.
// mode is the operation mode the action moves to, empty when it changes none.
func (b *base) run(ctx context.Context, op, mode string, fn func(device.Device) error) error {
	dev, ok := b.device()
	if !ok || !b.coord.Available() {
		return fmt.Errorf("%w: %s", ErrUnavailable, b.uniqueID)
	}
	if err := fn(dev); err != nil {
		if errors.Is(err, device.ErrInvalidOperationMode) {
			b.log.Warnw("invalid_operation_mode",
				"operation", op,
				"device_id", dev.DeviceID(),
				"mode", mode,
			)
			return err
		}
		b.log.Errorw("operation_failed",
			"operation", op,
			"device_id", dev.DeviceID(),
			"mode", mode,
			"error", err,
		)
		return fmt.Errorf("%w: %s on %s: %w", ErrOperationFailed, op, dev.DeviceID(), err)
	}
	b.refresh(ctx)
	return nil
}

func (b *base) refresh(ctx context.Context) {
	if err := b.coord.RequestRefresh(ctx); err != nil {
		b.log.Warnw("refresh_after_command_failed", "unique_id", b.uniqueID, "error", err)
	}
}
