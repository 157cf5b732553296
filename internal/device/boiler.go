package device

import (
	"context"
	"time"

	"eldom_bridge/internal/eldom"
	"eldom_bridge/internal/logger"
)

// Temperature bounds of every boiler generation.
const (
	BoilerMinTemp = 35
	BoilerMaxTemp = 75
)

// FlatBoiler is a classic flat boiler with two water chambers.
type FlatBoiler struct {
	id     string
	api    ClassicAPI
	log    *logger.Logger
	status guarded[eldom.FlatBoilerDetails]
}

func NewFlatBoiler(id string, details eldom.FlatBoilerDetails, api ClassicAPI, log *logger.Logger) *FlatBoiler {
	b := &FlatBoiler{id: id, api: api, log: log}
	b.status.set(details)
	return b
}

var _ Device = (*FlatBoiler)(nil)

func (b *FlatBoiler) ID() string                 { return b.id }
func (b *FlatBoiler) DeviceID() string           { return b.status.get().DeviceID }
func (b *FlatBoiler) Name() string               { return shortName(TypeFlatBoiler, b.DeviceID()) }
func (b *FlatBoiler) Type() Type                 { return TypeFlatBoiler }
func (b *FlatBoiler) Category() Category         { return CategoryWaterHeater }
func (b *FlatBoiler) SoftwareVersion() string    { return b.status.get().SoftwareVersion }
func (b *FlatBoiler) HardwareVersion() string    { return b.status.get().HardwareVersion }
func (b *FlatBoiler) Modes() []string            { return ClassicBoilerModes.Names() }
func (b *FlatBoiler) MinTemperature() float64    { return BoilerMinTemp }
func (b *FlatBoiler) MaxTemperature() float64    { return BoilerMaxTemp }
func (b *FlatBoiler) TargetTemperature() float64 { return b.status.get().SetTemp }
func (b *FlatBoiler) PowerfulEnabled() bool      { return b.status.get().HasBoost }
func (b *FlatBoiler) HeaterEnabled() bool        { return b.status.get().PowerFlag != 0 }
func (b *FlatBoiler) SavedEnergy() float64       { return b.status.get().SavedEnergy }
func (b *FlatBoiler) EnergyResetAt() time.Time   { return b.status.get().ResetDate }

func (b *FlatBoiler) Capabilities() Capability {
	return CapPowerful | CapEnergyMetering | CapEnergyReset
}

// CurrentTemperature is the mean of both chambers.
func (b *FlatBoiler) CurrentTemperature() float64 {
	s := b.status.get()
	return (s.STLTemp + s.FTTemp) / 2
}

func (b *FlatBoiler) DayEnergyConsumption() float64   { return b.status.get().EnergyD }
func (b *FlatBoiler) NightEnergyConsumption() float64 { return b.status.get().EnergyN }

func (b *FlatBoiler) CurrentOperation() string {
	return ClassicBoilerModes.nameOrUnknown(b.status.get().State)
}

func (b *FlatBoiler) TurnOn(ctx context.Context) error  { return b.SetOperationMode(ctx, ModeSmart) }
func (b *FlatBoiler) TurnOff(ctx context.Context) error { return b.SetOperationMode(ctx, ModeOff) }

func (b *FlatBoiler) SetOperationMode(ctx context.Context, mode string) error {
	code, err := lookupMode(ClassicBoilerModes, mode)
	if err != nil {
		return err
	}
	deviceID := b.DeviceID()
	return optimistic(ctx, &b.status,
		func(d *eldom.FlatBoilerDetails) func() { return swap(&d.State, code) },
		func(ctx context.Context) error { return b.api.SetState(ctx, eldom.KindFlatBoiler, deviceID, code) },
	)
}

func (b *FlatBoiler) SetTemperature(ctx context.Context, temperature float64) error {
	deviceID := b.DeviceID()
	return optimistic(ctx, &b.status,
		func(d *eldom.FlatBoilerDetails) func() { return swap(&d.SetTemp, temperature) },
		func(ctx context.Context) error {
			return b.api.SetTemperature(ctx, eldom.KindFlatBoiler, deviceID, temperature)
		},
	)
}

// EnablePowerfulMode is only accepted in Heating or Smart mode.
func (b *FlatBoiler) EnablePowerfulMode(ctx context.Context) error {
	if !PowerfulPermitted(b) {
		b.log.Warnw("powerful_mode_not_permitted", "device_id", b.DeviceID(), "mode", b.CurrentOperation())
		return nil
	}
	deviceID := b.DeviceID()
	return optimistic(ctx, &b.status,
		func(d *eldom.FlatBoilerDetails) func() { return swap(&d.HasBoost, true) },
		func(ctx context.Context) error { return b.api.SetPowerful(ctx, eldom.KindFlatBoiler, deviceID) },
	)
}

func (b *FlatBoiler) ResetEnergyUsage(ctx context.Context) error {
	deviceID := b.DeviceID()
	return optimistic(ctx, &b.status,
		func(d *eldom.FlatBoilerDetails) func() {
			return undoAll(
				swap(&d.EnergyD, 0), swap(&d.EnergyN, 0), swap(&d.SavedEnergy, 0),
				swap(&d.ResetDate, time.Now().UTC()),
			)
		},
		func(ctx context.Context) error { return b.api.ResetEnergy(ctx, eldom.KindFlatBoiler, deviceID) },
	)
}

// SmartBoiler is a classic cylindrical smart boiler.
type SmartBoiler struct {
	id     string
	api    ClassicAPI
	log    *logger.Logger
	status guarded[eldom.SmartBoilerDetails]
}

func NewSmartBoiler(id string, details eldom.SmartBoilerDetails, api ClassicAPI, log *logger.Logger) *SmartBoiler {
	b := &SmartBoiler{id: id, api: api, log: log}
	b.status.set(details)
	return b
}

var _ Device = (*SmartBoiler)(nil)

func (b *SmartBoiler) ID() string                      { return b.id }
func (b *SmartBoiler) DeviceID() string                { return b.status.get().DeviceID }
func (b *SmartBoiler) Name() string                    { return shortName(TypeSmartBoiler, b.DeviceID()) }
func (b *SmartBoiler) Type() Type                      { return TypeSmartBoiler }
func (b *SmartBoiler) Category() Category              { return CategoryWaterHeater }
func (b *SmartBoiler) SoftwareVersion() string         { return b.status.get().SoftwareVersion }
func (b *SmartBoiler) HardwareVersion() string         { return b.status.get().HardwareVersion }
func (b *SmartBoiler) Modes() []string                 { return ClassicBoilerModes.Names() }
func (b *SmartBoiler) MinTemperature() float64         { return BoilerMinTemp }
func (b *SmartBoiler) MaxTemperature() float64         { return BoilerMaxTemp }
func (b *SmartBoiler) CurrentTemperature() float64     { return b.status.get().WHTempL }
func (b *SmartBoiler) TargetTemperature() float64      { return b.status.get().SetTemp }
func (b *SmartBoiler) PowerfulEnabled() bool           { return b.status.get().BoostHeating }
func (b *SmartBoiler) HeaterEnabled() bool             { return b.status.get().Heater }
func (b *SmartBoiler) DayEnergyConsumption() float64   { return b.status.get().EnergyD }
func (b *SmartBoiler) NightEnergyConsumption() float64 { return b.status.get().EnergyN }
func (b *SmartBoiler) SavedEnergy() float64            { return b.status.get().SavedEnergy }
func (b *SmartBoiler) EnergyResetAt() time.Time        { return b.status.get().ResetDate }

func (b *SmartBoiler) Capabilities() Capability {
	return CapPowerful | CapEnergyMetering | CapEnergyReset
}

func (b *SmartBoiler) CurrentOperation() string {
	return ClassicBoilerModes.nameOrUnknown(b.status.get().State)
}

func (b *SmartBoiler) TurnOn(ctx context.Context) error  { return b.SetOperationMode(ctx, ModeSmart) }
func (b *SmartBoiler) TurnOff(ctx context.Context) error { return b.SetOperationMode(ctx, ModeOff) }

func (b *SmartBoiler) SetOperationMode(ctx context.Context, mode string) error {
	code, err := lookupMode(ClassicBoilerModes, mode)
	if err != nil {
		return err
	}
	deviceID := b.DeviceID()
	return optimistic(ctx, &b.status,
		func(d *eldom.SmartBoilerDetails) func() { return swap(&d.State, code) },
		func(ctx context.Context) error { return b.api.SetState(ctx, eldom.KindSmartBoiler, deviceID, code) },
	)
}

func (b *SmartBoiler) SetTemperature(ctx context.Context, temperature float64) error {
	deviceID := b.DeviceID()
	return optimistic(ctx, &b.status,
		func(d *eldom.SmartBoilerDetails) func() { return swap(&d.SetTemp, temperature) },
		func(ctx context.Context) error {
			return b.api.SetTemperature(ctx, eldom.KindSmartBoiler, deviceID, temperature)
		},
	)
}

// EnablePowerfulMode is only accepted in Smart mode.
func (b *SmartBoiler) EnablePowerfulMode(ctx context.Context) error {
	if !PowerfulPermitted(b) {
		b.log.Warnw("powerful_mode_not_permitted", "device_id", b.DeviceID(), "mode", b.CurrentOperation())
		return nil
	}
	deviceID := b.DeviceID()
	return optimistic(ctx, &b.status,
		func(d *eldom.SmartBoilerDetails) func() { return swap(&d.BoostHeating, true) },
		func(ctx context.Context) error { return b.api.SetPowerful(ctx, eldom.KindSmartBoiler, deviceID) },
	)
}

func (b *SmartBoiler) ResetEnergyUsage(ctx context.Context) error {
	deviceID := b.DeviceID()
	return optimistic(ctx, &b.status,
		func(d *eldom.SmartBoilerDetails) func() {
			return undoAll(
				swap(&d.EnergyD, 0), swap(&d.EnergyN, 0), swap(&d.SavedEnergy, 0),
				swap(&d.ResetDate, time.Now().UTC()),
			)
		},
		func(ctx context.Context) error { return b.api.ResetEnergy(ctx, eldom.KindSmartBoiler, deviceID) },
	)
}
