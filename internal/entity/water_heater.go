package entity

import (
	"context"

	"eldom_bridge"
	"eldom_bridge/internal/device"
	"eldom_bridge/internal/logger"
)

// Home Assistant operation names of the boiler modes.
var waterHeaterAliases = map[string]string{
	device.ModeOff:     "off",
	device.ModeHeating: "electric",
	device.ModeSmart:   "eco",
	device.ModeStudy:   "high_demand",
}

// OperationForAlias maps a Home Assistant operation name back to the boiler
// mode. Names that are not aliases pass through unchanged.
func OperationForAlias(alias string) string {
	for mode, a := range waterHeaterAliases {
		if a == alias {
			return mode
		}
	}
	return alias
}

// WaterHeater represents a boiler.
type WaterHeater struct {
	*base
}

func NewWaterHeater(entryID string, coord Coordinator, dev device.Device, log *logger.Logger) *WaterHeater {
	return &WaterHeater{base: newBase(entryID, dev.DeviceID(), KindWaterHeater, coord, dev, log)}
}

var (
	_ Switchable          = (*WaterHeater)(nil)
	_ TemperatureSetter   = (*WaterHeater)(nil)
	_ OperationModeSetter = (*WaterHeater)(nil)
)

func (w *WaterHeater) State() eldom_bridge.EntityState {
	st := w.state()
	dev, ok := w.device()
	if !ok {
		return st
	}
	op := dev.CurrentOperation()
	st.Name = dev.Name()
	st.State = op
	st.Attributes = map[string]any{
		"operation_list":      dev.Modes(),
		"current_temperature": dev.CurrentTemperature(),
		"temperature":         dev.TargetTemperature(),
		"min_temp":            dev.MinTemperature(),
		"max_temp":            dev.MaxTemperature(),
		"software_version":    dev.SoftwareVersion(),
		"hardware_version":    dev.HardwareVersion(),
	}
	if alias, ok := waterHeaterAliases[op]; ok {
		st.Attributes["ha_operation"] = alias
	}
	return st
}

func (w *WaterHeater) TurnOn(ctx context.Context) error {
	return w.run(ctx, "turn_on", device.ModeSmart, func(d device.Device) error { return d.TurnOn(ctx) })
}

func (w *WaterHeater) TurnOff(ctx context.Context) error {
	return w.run(ctx, "turn_off", device.ModeOff, func(d device.Device) error { return d.TurnOff(ctx) })
}

func (w *WaterHeater) SetOperationMode(ctx context.Context, mode string) error {
	return w.run(ctx, "set_operation_mode", mode, func(d device.Device) error { return d.SetOperationMode(ctx, mode) })
}

func (w *WaterHeater) SetTemperature(ctx context.Context, temperature float64) error {
	return w.run(ctx, "set_temperature", "", func(d device.Device) error { return d.SetTemperature(ctx, temperature) })
}
