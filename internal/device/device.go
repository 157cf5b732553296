// Package device normalizes the vendor status payloads of every Eldom device
// generation behind one Device contract.
package device

import (
	"context"
	"errors"
	"time"
)

// Type tags a device variant; the snapshot is partitioned by it.
type Type string

const (
	TypeFlatBoiler         Type = "flat_boiler"
	TypeSmartBoiler        Type = "smart_boiler"
	TypeConvectorHeater    Type = "convector_heater"
	TypeIoTFlatBoiler      Type = "iot_flat_boiler"
	TypeIoTConvectorHeater Type = "iot_convector_heater"
)

var typeNames = map[Type]string{
	TypeFlatBoiler:         "Flat Boiler",
	TypeSmartBoiler:        "Smart Boiler",
	TypeConvectorHeater:    "Convector Heater",
	TypeIoTFlatBoiler:      "Flat Boiler",
	TypeIoTConvectorHeater: "Convector Heater",
}

// DisplayName is the model name shown for a device type.
func (t Type) DisplayName() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return string(t)
}

// Category decides which primary entity represents the device.
type Category int

const (
	CategoryWaterHeater Category = iota
	CategoryClimate
)

// Capability flags optional features of a variant.
type Capability uint8

const (
	CapPowerful Capability = 1 << iota
	CapEnergyMetering
	CapEnergyReset
)

// Has reports whether all flags in o are set.
func (c Capability) Has(o Capability) bool { return c&o == o }

var (
	// ErrInvalidOperationMode is returned when a mode name is not in the device's table.
	ErrInvalidOperationMode = errors.New("operation mode not supported")
)

// Device is the read/mutate contract shared by every variant.
//
// Mutators update the local state first and then call the vendor API; if the
// call fails the local state is restored and the error returned. The next
// coordinator refresh replaces the device wholesale either way.
type Device interface {
	ID() string
	DeviceID() string
	Name() string
	Type() Type
	Category() Category
	Capabilities() Capability
	SoftwareVersion() string
	HardwareVersion() string

	Modes() []string
	CurrentOperation() string
	MinTemperature() float64
	MaxTemperature() float64
	CurrentTemperature() float64
	TargetTemperature() float64
	PowerfulEnabled() bool
	HeaterEnabled() bool
	DayEnergyConsumption() float64
	NightEnergyConsumption() float64
	SavedEnergy() float64
	EnergyResetAt() time.Time

	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	SetOperationMode(ctx context.Context, mode string) error
	SetTemperature(ctx context.Context, temperature float64) error
	EnablePowerfulMode(ctx context.Context) error
	ResetEnergyUsage(ctx context.Context) error
}

// shortName builds "Flat Boiler (ABCD)" from the last four characters of the id.
func shortName(t Type, deviceID string) string {
	suffix := deviceID
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return t.DisplayName() + " (" + suffix + ")"
}
