package entity

import (
	"context"
	"fmt"

	"eldom_bridge"
	"eldom_bridge/internal/device"
	"eldom_bridge/internal/logger"
)

// HVAC modes of the climate entity.
const (
	HVACOff  = "off"
	HVACHeat = "heat"
)

// Climate represents a convector heater.
type Climate struct {
	*base
}

func NewClimate(entryID string, coord Coordinator, dev device.Device, log *logger.Logger) *Climate {
	return &Climate{base: newBase(entryID, dev.DeviceID(), KindClimate, coord, dev, log)}
}

var (
	_ Switchable          = (*Climate)(nil)
	_ TemperatureSetter   = (*Climate)(nil)
	_ HVACModeSetter      = (*Climate)(nil)
	_ OperationModeSetter = (*Climate)(nil)
)

// HVACMode is off when the heater is off and heat for every other mode.
func HVACMode(dev device.Device) string {
	if dev.CurrentOperation() == device.ModeOff {
		return HVACOff
	}
	return HVACHeat
}

func (c *Climate) State() eldom_bridge.EntityState {
	st := c.state()
	dev, ok := c.device()
	if !ok {
		return st
	}
	action := "off"
	if dev.CurrentOperation() != device.ModeOff {
		action = "idle"
		if dev.HeaterEnabled() {
			action = "heating"
		}
	}
	st.Name = dev.Name()
	st.State = HVACMode(dev)
	st.Attributes = map[string]any{
		"hvac_modes":          []string{HVACOff, HVACHeat},
		"hvac_action":         action,
		"preset_mode":         dev.CurrentOperation(),
		"preset_modes":        dev.Modes(),
		"current_temperature": dev.CurrentTemperature(),
		"temperature":         dev.TargetTemperature(),
		"min_temp":            dev.MinTemperature(),
		"max_temp":            dev.MaxTemperature(),
		"target_temp_step":    0.5,
	}
	return st
}

func (c *Climate) TurnOn(ctx context.Context) error {
	return c.run(ctx, "turn_on", device.ModeHeat, func(d device.Device) error { return d.TurnOn(ctx) })
}

func (c *Climate) TurnOff(ctx context.Context) error {
	return c.run(ctx, "turn_off", device.ModeOff, func(d device.Device) error { return d.TurnOff(ctx) })
}

func (c *Climate) SetHVACMode(ctx context.Context, mode string) error {
	switch mode {
	case HVACOff:
		return c.TurnOff(ctx)
	case HVACHeat:
		return c.TurnOn(ctx)
	default:
		c.log.Warnw("invalid_hvac_mode", "unique_id", c.uniqueID, "mode", mode)
		return fmt.Errorf("%w: hvac mode %q", device.ErrInvalidOperationMode, mode)
	}
}

// SetOperationMode selects a device mode directly, e.g. Antifrost.
func (c *Climate) SetOperationMode(ctx context.Context, mode string) error {
	return c.run(ctx, "set_operation_mode", mode, func(d device.Device) error { return d.SetOperationMode(ctx, mode) })
}

func (c *Climate) SetTemperature(ctx context.Context, temperature float64) error {
	return c.run(ctx, "set_temperature", "", func(d device.Device) error { return d.SetTemperature(ctx, temperature) })
}
