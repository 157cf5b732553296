package device

import (
	"context"
	"fmt"

	"eldom_bridge/internal/eldom"
)

// ClassicAPI is the part of the classic vendor client the devices call into.
type ClassicAPI interface {
	SetState(ctx context.Context, kind eldom.Kind, deviceID string, state int) error
	SetTemperature(ctx context.Context, kind eldom.Kind, deviceID string, temperature float64) error
	SetPowerful(ctx context.Context, kind eldom.Kind, deviceID string) error
	ResetEnergy(ctx context.Context, kind eldom.Kind, deviceID string) error
}

// IoTAPI is the part of the IoT vendor client the devices call into.
type IoTAPI interface {
	SendCommand(ctx context.Context, uuid, name, value string) error
}

func lookupMode(table ModeTable, name string) (int, error) {
	code, ok := table.Code(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOperationMode, name)
	}
	return code, nil
}

func containsMode(mode string, allowed ...string) bool {
	for _, m := range allowed {
		if m == mode {
			return true
		}
	}
	return false
}

// PowerfulPermitted reports whether d accepts EnablePowerfulMode in its current
// mode. Smart boilers boost only from Smart; other boilers from Heating or Smart.
func PowerfulPermitted(d Device) bool {
	if !d.Capabilities().Has(CapPowerful) {
		return false
	}
	mode := d.CurrentOperation()
	if d.Type() == TypeSmartBoiler {
		return mode == ModeSmart
	}
	return containsMode(mode, ModeHeating, ModeSmart)
}
