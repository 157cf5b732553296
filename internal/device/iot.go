package device

import (
	"context"
	"strconv"
	"time"

	"eldom_bridge/internal/eldom"
	"eldom_bridge/internal/logger"
)

// iotLabel prefers the printed serial number over the uuid.
func iotLabel(info eldom.IoTDevice) string {
	if info.SerialNumber != "" {
		return info.SerialNumber
	}
	return info.UUID
}

// IoTFlatBoiler is a flat boiler on the IoT cloud.
type IoTFlatBoiler struct {
	info   eldom.IoTDevice
	api    IoTAPI
	log    *logger.Logger
	status guarded[eldom.IoTFlatBoilerStatus]
}

func NewIoTFlatBoiler(info eldom.IoTDevice, status eldom.IoTFlatBoilerStatus, api IoTAPI, log *logger.Logger) *IoTFlatBoiler {
	b := &IoTFlatBoiler{info: info, api: api, log: log}
	b.status.set(status)
	return b
}

var _ Device = (*IoTFlatBoiler)(nil)

func (b *IoTFlatBoiler) ID() string              { return b.info.UUID }
func (b *IoTFlatBoiler) DeviceID() string        { return b.info.UUID }
func (b *IoTFlatBoiler) Name() string            { return shortName(TypeIoTFlatBoiler, iotLabel(b.info)) }
func (b *IoTFlatBoiler) Type() Type              { return TypeIoTFlatBoiler }
func (b *IoTFlatBoiler) Category() Category      { return CategoryWaterHeater }
func (b *IoTFlatBoiler) SoftwareVersion() string { return b.info.FirmwareVersion }
func (b *IoTFlatBoiler) HardwareVersion() string { return b.info.HardwareVersion }
func (b *IoTFlatBoiler) Modes() []string         { return IoTBoilerModes.Names() }
func (b *IoTFlatBoiler) MinTemperature() float64 { return BoilerMinTemp }
func (b *IoTFlatBoiler) MaxTemperature() float64 { return BoilerMaxTemp }
func (b *IoTFlatBoiler) PowerfulEnabled() bool   { return b.CurrentOperation() == ModePowerful }
func (b *IoTFlatBoiler) HeaterEnabled() bool     { return eldom.Number(b.status.get().H) != 0 }
func (b *IoTFlatBoiler) SavedEnergy() float64    { return eldom.Number(b.status.get().ES) }
func (b *IoTFlatBoiler) TargetTemperature() float64 {
	return eldom.Scaled(b.status.get().ST)
}

func (b *IoTFlatBoiler) Capabilities() Capability {
	return CapPowerful | CapEnergyMetering | CapEnergyReset
}

func (b *IoTFlatBoiler) CurrentTemperature() float64 {
	s := b.status.get()
	return (eldom.Scaled(s.T1) + eldom.Scaled(s.T2)) / 2
}

func (b *IoTFlatBoiler) DayEnergyConsumption() float64   { return eldom.Number(b.status.get().ED) }
func (b *IoTFlatBoiler) NightEnergyConsumption() float64 { return eldom.Number(b.status.get().EN) }

func (b *IoTFlatBoiler) EnergyResetAt() time.Time {
	sec, err := strconv.ParseInt(b.status.get().RD, 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func (b *IoTFlatBoiler) CurrentOperation() string {
	return IoTBoilerModes.nameOrUnknown(int(eldom.Number(b.status.get().M)))
}

func (b *IoTFlatBoiler) TurnOn(ctx context.Context) error  { return b.SetOperationMode(ctx, ModeSmart) }
func (b *IoTFlatBoiler) TurnOff(ctx context.Context) error { return b.SetOperationMode(ctx, ModeOff) }

func (b *IoTFlatBoiler) SetOperationMode(ctx context.Context, mode string) error {
	code, err := lookupMode(IoTBoilerModes, mode)
	if err != nil {
		return err
	}
	return b.sendMode(ctx, code)
}

func (b *IoTFlatBoiler) sendMode(ctx context.Context, code int) error {
	value := strconv.Itoa(code)
	return optimistic(ctx, &b.status,
		func(s *eldom.IoTFlatBoilerStatus) func() { return swap(&s.M, value) },
		func(ctx context.Context) error {
			return b.api.SendCommand(ctx, b.info.UUID, eldom.IoTCommandMode, value)
		},
	)
}

func (b *IoTFlatBoiler) SetTemperature(ctx context.Context, temperature float64) error {
	value := eldom.Unscaled(temperature)
	return optimistic(ctx, &b.status,
		func(s *eldom.IoTFlatBoilerStatus) func() { return swap(&s.ST, value) },
		func(ctx context.Context) error {
			return b.api.SendCommand(ctx, b.info.UUID, eldom.IoTCommandTemperature, value)
		},
	)
}

// EnablePowerfulMode switches to the Powerful mode; only from Heating or Smart.
func (b *IoTFlatBoiler) EnablePowerfulMode(ctx context.Context) error {
	if !PowerfulPermitted(b) {
		b.log.Warnw("powerful_mode_not_permitted", "device_id", b.DeviceID(), "mode", b.CurrentOperation())
		return nil
	}
	code, _ := IoTBoilerModes.Code(ModePowerful)
	return b.sendMode(ctx, code)
}

func (b *IoTFlatBoiler) ResetEnergyUsage(ctx context.Context) error {
	return optimistic(ctx, &b.status,
		func(s *eldom.IoTFlatBoilerStatus) func() {
			return undoAll(
				swap(&s.ED, "0"), swap(&s.EN, "0"), swap(&s.ES, "0"),
				swap(&s.RD, strconv.FormatInt(time.Now().Unix(), 10)),
			)
		},
		func(ctx context.Context) error {
			return b.api.SendCommand(ctx, b.info.UUID, eldom.IoTCommandResetEnergy, "1")
		},
	)
}

// IoTConvectorHeater is a convector heater on the IoT cloud.
type IoTConvectorHeater struct {
	info   eldom.IoTDevice
	api    IoTAPI
	log    *logger.Logger
	status guarded[eldom.IoTConvectorStatus]
}

func NewIoTConvectorHeater(info eldom.IoTDevice, status eldom.IoTConvectorStatus, api IoTAPI, log *logger.Logger) *IoTConvectorHeater {
	h := &IoTConvectorHeater{info: info, api: api, log: log}
	h.status.set(status)
	return h
}

var _ Device = (*IoTConvectorHeater)(nil)

func (h *IoTConvectorHeater) ID() string               { return h.info.UUID }
func (h *IoTConvectorHeater) DeviceID() string         { return h.info.UUID }
func (h *IoTConvectorHeater) Name() string             { return shortName(TypeIoTConvectorHeater, iotLabel(h.info)) }
func (h *IoTConvectorHeater) Type() Type               { return TypeIoTConvectorHeater }
func (h *IoTConvectorHeater) Category() Category       { return CategoryClimate }
func (h *IoTConvectorHeater) Capabilities() Capability { return 0 }
func (h *IoTConvectorHeater) SoftwareVersion() string  { return h.info.FirmwareVersion }
func (h *IoTConvectorHeater) HardwareVersion() string  { return h.info.HardwareVersion }
func (h *IoTConvectorHeater) Modes() []string          { return IoTConvectorModes.Names() }
func (h *IoTConvectorHeater) MinTemperature() float64  { return ConvectorMinTemp }
func (h *IoTConvectorHeater) MaxTemperature() float64  { return ConvectorMaxTemp }
func (h *IoTConvectorHeater) PowerfulEnabled() bool    { return false }
func (h *IoTConvectorHeater) SavedEnergy() float64     { return 0 }
func (h *IoTConvectorHeater) EnergyResetAt() time.Time { return time.Time{} }

func (h *IoTConvectorHeater) CurrentTemperature() float64 { return eldom.Scaled(h.status.get().T) }
func (h *IoTConvectorHeater) TargetTemperature() float64  { return eldom.Scaled(h.status.get().ST) }
func (h *IoTConvectorHeater) HeaterEnabled() bool         { return eldom.Number(h.status.get().PWR) != 0 }

func (h *IoTConvectorHeater) DayEnergyConsumption() float64   { return eldom.Number(h.status.get().ED) }
func (h *IoTConvectorHeater) NightEnergyConsumption() float64 { return eldom.Number(h.status.get().EN) }

func (h *IoTConvectorHeater) CurrentOperation() string {
	return IoTConvectorModes.nameOrUnknown(int(eldom.Number(h.status.get().M)))
}

func (h *IoTConvectorHeater) TurnOn(ctx context.Context) error  { return h.SetOperationMode(ctx, ModeHeat) }
func (h *IoTConvectorHeater) TurnOff(ctx context.Context) error { return h.SetOperationMode(ctx, ModeOff) }

func (h *IoTConvectorHeater) SetOperationMode(ctx context.Context, mode string) error {
	code, err := lookupMode(IoTConvectorModes, mode)
	if err != nil {
		return err
	}
	value := strconv.Itoa(code)
	return optimistic(ctx, &h.status,
		func(s *eldom.IoTConvectorStatus) func() { return swap(&s.M, value) },
		func(ctx context.Context) error {
			return h.api.SendCommand(ctx, h.info.UUID, eldom.IoTCommandMode, value)
		},
	)
}

func (h *IoTConvectorHeater) SetTemperature(ctx context.Context, temperature float64) error {
	value := eldom.Unscaled(temperature)
	return optimistic(ctx, &h.status,
		func(s *eldom.IoTConvectorStatus) func() { return swap(&s.ST, value) },
		func(ctx context.Context) error {
			return h.api.SendCommand(ctx, h.info.UUID, eldom.IoTCommandTemperature, value)
		},
	)
}

func (h *IoTConvectorHeater) EnablePowerfulMode(context.Context) error {
	h.log.Warnw("powerful_mode_not_supported", "device_id", h.DeviceID())
	return nil
}

func (h *IoTConvectorHeater) ResetEnergyUsage(context.Context) error {
	h.log.Warnw("energy_reset_not_supported", "device_id", h.DeviceID())
	return nil
}
