package entity

import (
	"context"
	"sync/atomic"
	"time"

	"eldom_bridge"
	"eldom_bridge/internal/device"
	"eldom_bridge/internal/logger"
)

// ResetEnergyButton zeroes a boiler's energy counters.
type ResetEnergyButton struct {
	*base
	lastPressed atomic.Pointer[time.Time]
}

func NewResetEnergyButton(entryID string, coord Coordinator, dev device.Device, log *logger.Logger) *ResetEnergyButton {
	return &ResetEnergyButton{base: newBase(entryID, dev.DeviceID()+"-reset-energy-usage-button", KindButton, coord, dev, log)}
}

var _ Pressable = (*ResetEnergyButton)(nil)

func (b *ResetEnergyButton) State() eldom_bridge.EntityState {
	st := b.state()
	dev, ok := b.device()
	if !ok {
		return st
	}
	st.Name = dev.Name() + " Reset energy usage"
	if t := b.lastPressed.Load(); t != nil {
		st.State = t.Format(time.RFC3339)
	}
	st.Attributes = map[string]any{"icon": "mdi:restart"}
	return st
}

func (b *ResetEnergyButton) Press(ctx context.Context) error {
	err := b.run(ctx, "reset_energy_usage", "", func(d device.Device) error { return d.ResetEnergyUsage(ctx) })
	if err == nil {
		now := time.Now().UTC()
		b.lastPressed.Store(&now)
	}
	return err
}
