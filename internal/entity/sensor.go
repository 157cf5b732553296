package entity

import (
	"time"

	"eldom_bridge"
	"eldom_bridge/internal/device"
	"eldom_bridge/internal/logger"
)

// SensorDescription describes one boiler sensor.
type SensorDescription struct {
	Key         string // unique id suffix
	Name        string
	Icon        string
	DeviceClass string
	StateClass  string
	Unit        string
	Options     []string
	Value       func(device.Device) any
}

// NeverReset is reported while the energy counters were never reset.
const NeverReset = "Never"

// BoilerSensors are created for every device with energy metering.
var BoilerSensors = []SensorDescription{
	{
		Key:         "day-energy-consumption-sensor",
		Name:        "Day energy consumption",
		Icon:        "mdi:lightning-bolt",
		DeviceClass: "energy",
		StateClass:  "total_increasing",
		Unit:        "kWh",
		Value:       func(d device.Device) any { return d.DayEnergyConsumption() },
	},
	{
		Key:         "night-energy-consumption-sensor",
		Name:        "Night energy consumption",
		Icon:        "mdi:lightning-bolt",
		DeviceClass: "energy",
		StateClass:  "total_increasing",
		Unit:        "kWh",
		Value:       func(d device.Device) any { return d.NightEnergyConsumption() },
	},
	{
		Key:         "energy-saved-sensor",
		Name:        "Energy saved",
		Icon:        "mdi:leaf",
		DeviceClass: "energy",
		StateClass:  "total",
		Unit:        "kWh",
		// the vendor reports hundredths
		Value: func(d device.Device) any { return d.SavedEnergy() / 100 },
	},
	{
		Key:         "heater-sensor",
		Name:        "Heater",
		Icon:        "mdi:heating-coil",
		DeviceClass: "enum",
		Options:     []string{"On", "Off"},
		Value: func(d device.Device) any {
			if d.HeaterEnabled() {
				return "On"
			}
			return "Off"
		},
	},
	{
		Key:  "energy-usage-reset-date-sensor",
		Name: "Energy usage reset date",
		Icon: "mdi:calendar-refresh",
		Value: func(d device.Device) any {
			t := d.EnergyResetAt()
			if t.IsZero() {
				return NeverReset
			}
			return t.Format(time.RFC3339)
		},
	},
}

// Sensor is a read-only value of a boiler.
type Sensor struct {
	*base
	desc SensorDescription
}

func NewSensor(entryID string, coord Coordinator, dev device.Device, desc SensorDescription, log *logger.Logger) *Sensor {
	return &Sensor{
		base: newBase(entryID, dev.DeviceID()+"-"+desc.Key, KindSensor, coord, dev, log),
		desc: desc,
	}
}

// Description returns the sensor's metadata.
func (s *Sensor) Description() SensorDescription { return s.desc }

func (s *Sensor) State() eldom_bridge.EntityState {
	st := s.state()
	dev, ok := s.device()
	if !ok {
		return st
	}
	st.Name = dev.Name() + " " + s.desc.Name
	st.State = s.desc.Value(dev)
	attrs := map[string]any{"icon": s.desc.Icon}
	if s.desc.DeviceClass != "" {
		attrs["device_class"] = s.desc.DeviceClass
	}
	if s.desc.StateClass != "" {
		attrs["state_class"] = s.desc.StateClass
	}
	if s.desc.Unit != "" {
		attrs["unit_of_measurement"] = s.desc.Unit
	}
	if len(s.desc.Options) > 0 {
		attrs["options"] = s.desc.Options
	}
	st.Attributes = attrs
	return st
}
