package entity

import (
	"context"

	"eldom_bridge"
	"eldom_bridge/internal/device"
	"eldom_bridge/internal/logger"
)

// PowerfulSwitch exposes a boiler's boost mode. The vendor has no call to end
// boost early, so turning it off only refreshes.
type PowerfulSwitch struct {
	*base
}

func NewPowerfulSwitch(entryID string, coord Coordinator, dev device.Device, log *logger.Logger) *PowerfulSwitch {
	return &PowerfulSwitch{base: newBase(entryID, dev.DeviceID()+"-powerful-switch", KindSwitch, coord, dev, log)}
}

var _ Switchable = (*PowerfulSwitch)(nil)

func (s *PowerfulSwitch) State() eldom_bridge.EntityState {
	st := s.state()
	dev, ok := s.device()
	if !ok {
		return st
	}
	st.Name = dev.Name() + " Powerful"
	st.State = "off"
	if dev.PowerfulEnabled() {
		st.State = "on"
	}
	st.Attributes = map[string]any{"icon": "mdi:rocket-launch"}
	return st
}

func (s *PowerfulSwitch) TurnOn(ctx context.Context) error {
	return s.run(ctx, "enable_powerful_mode", "", func(d device.Device) error {
		if !device.PowerfulPermitted(d) {
			s.log.Warnw("powerful_mode_not_permitted", "device_id", d.DeviceID(), "mode", d.CurrentOperation())
			return nil
		}
		return d.EnablePowerfulMode(ctx)
	})
}

func (s *PowerfulSwitch) TurnOff(ctx context.Context) error {
	dev, ok := s.device()
	if !ok || !s.coord.Available() {
		return ErrUnavailable
	}
	s.log.Warnw("powerful_mode_turn_off_unsupported", "device_id", dev.DeviceID())
	s.refresh(ctx)
	return nil
}
