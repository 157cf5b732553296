package device

import (
	"context"
	"time"

	"eldom_bridge/internal/eldom"
	"eldom_bridge/internal/logger"
)

// Temperature bounds of convector heaters.
const (
	ConvectorMinTemp = 5
	ConvectorMaxTemp = 35
)

// ConvectorHeater is a classic convector heater.
type ConvectorHeater struct {
	id     string
	api    ClassicAPI
	log    *logger.Logger
	status guarded[eldom.ConvectorHeaterDetails]
}

func NewConvectorHeater(id string, details eldom.ConvectorHeaterDetails, api ClassicAPI, log *logger.Logger) *ConvectorHeater {
	h := &ConvectorHeater{id: id, api: api, log: log}
	h.status.set(details)
	return h
}

var _ Device = (*ConvectorHeater)(nil)

func (h *ConvectorHeater) ID() string                      { return h.id }
func (h *ConvectorHeater) DeviceID() string                { return h.status.get().DeviceID }
func (h *ConvectorHeater) Name() string                    { return shortName(TypeConvectorHeater, h.DeviceID()) }
func (h *ConvectorHeater) Type() Type                      { return TypeConvectorHeater }
func (h *ConvectorHeater) Category() Category              { return CategoryClimate }
func (h *ConvectorHeater) Capabilities() Capability        { return 0 }
func (h *ConvectorHeater) SoftwareVersion() string         { return h.status.get().SoftwareVersion }
func (h *ConvectorHeater) HardwareVersion() string         { return h.status.get().HardwareVersion }
func (h *ConvectorHeater) Modes() []string                 { return ClassicConvectorModes.Names() }
func (h *ConvectorHeater) MinTemperature() float64         { return ConvectorMinTemp }
func (h *ConvectorHeater) MaxTemperature() float64         { return ConvectorMaxTemp }
func (h *ConvectorHeater) CurrentTemperature() float64     { return h.status.get().AmbientTemp }
func (h *ConvectorHeater) TargetTemperature() float64      { return h.status.get().SetTemp }
func (h *ConvectorHeater) PowerfulEnabled() bool           { return h.status.get().BoostHeating }
func (h *ConvectorHeater) HeaterEnabled() bool             { return h.status.get().Power != 0 }
func (h *ConvectorHeater) DayEnergyConsumption() float64   { return h.status.get().EnergyD }
func (h *ConvectorHeater) NightEnergyConsumption() float64 { return h.status.get().EnergyN }
func (h *ConvectorHeater) SavedEnergy() float64            { return 0 }
func (h *ConvectorHeater) EnergyResetAt() time.Time        { return time.Time{} }

func (h *ConvectorHeater) CurrentOperation() string {
	return ClassicConvectorModes.nameOrUnknown(h.status.get().State)
}

func (h *ConvectorHeater) TurnOn(ctx context.Context) error  { return h.SetOperationMode(ctx, ModeHeat) }
func (h *ConvectorHeater) TurnOff(ctx context.Context) error { return h.SetOperationMode(ctx, ModeOff) }

func (h *ConvectorHeater) SetOperationMode(ctx context.Context, mode string) error {
	code, err := lookupMode(ClassicConvectorModes, mode)
	if err != nil {
		return err
	}
	deviceID := h.DeviceID()
	return optimistic(ctx, &h.status,
		func(d *eldom.ConvectorHeaterDetails) func() { return swap(&d.State, code) },
		func(ctx context.Context) error {
			return h.api.SetState(ctx, eldom.KindConvectorHeater, deviceID, code)
		},
	)
}

func (h *ConvectorHeater) SetTemperature(ctx context.Context, temperature float64) error {
	deviceID := h.DeviceID()
	return optimistic(ctx, &h.status,
		func(d *eldom.ConvectorHeaterDetails) func() { return swap(&d.SetTemp, temperature) },
		func(ctx context.Context) error {
			return h.api.SetTemperature(ctx, eldom.KindConvectorHeater, deviceID, temperature)
		},
	)
}

func (h *ConvectorHeater) EnablePowerfulMode(context.Context) error {
	h.log.Warnw("powerful_mode_not_supported", "device_id", h.DeviceID())
	return nil
}

func (h *ConvectorHeater) ResetEnergyUsage(context.Context) error {
	h.log.Warnw("energy_reset_not_supported", "device_id", h.DeviceID())
	return nil
}
