package mqtt

import (
	"strings"

	"eldom_bridge"
	"eldom_bridge/internal/entity"
)

const manufacturer = "Eldom"

// Command topic suffixes.
const (
	cmdMode        = "mode"
	cmdTemperature = "temperature"
	cmdSwitch      = "switch"
	cmdPress       = "press"
)

const (
	payloadOn    = "ON"
	payloadOff   = "OFF"
	payloadPress = "PRESS"
	online       = "online"
	offline      = "offline"
)

// Home Assistant water heater operations; the boiler modes map onto these.
var waterHeaterModes = []string{"off", "electric", "eco", "high_demand"}

type discoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model,omitempty"`
	SWVersion    string   `json:"sw_version,omitempty"`
	HWVersion    string   `json:"hw_version,omitempty"`
}

type availability struct {
	Topic string `json:"topic"`
}

// discoveryConfig is the retained payload Home Assistant reads from
// <discovery_prefix>/<component>/<object_id>/config. Fields are per component.
type discoveryConfig struct {
	Name                   string          `json:"name"`
	UniqueID               string          `json:"unique_id"`
	ObjectID               string          `json:"object_id"`
	Device                 discoveryDevice `json:"device"`
	Availability           []availability  `json:"availability"`
	AvailabilityMode       string          `json:"availability_mode"`
	JSONAttributesTopic    string          `json:"json_attributes_topic,omitempty"`
	JSONAttributesTemplate string          `json:"json_attributes_template,omitempty"`
	Icon                   string          `json:"icon,omitempty"`

	// sensor, switch
	StateTopic        string   `json:"state_topic,omitempty"`
	ValueTemplate     string   `json:"value_template,omitempty"`
	DeviceClass       string   `json:"device_class,omitempty"`
	StateClass        string   `json:"state_class,omitempty"`
	UnitOfMeasurement string   `json:"unit_of_measurement,omitempty"`
	Options           []string `json:"options,omitempty"`

	// switch, button
	CommandTopic string `json:"command_topic,omitempty"`
	PayloadOn    string `json:"payload_on,omitempty"`
	PayloadOff   string `json:"payload_off,omitempty"`
	StateOn      string `json:"state_on,omitempty"`
	StateOff     string `json:"state_off,omitempty"`
	PayloadPress string `json:"payload_press,omitempty"`

	// climate, water_heater
	Modes                      []string `json:"modes,omitempty"`
	ModeStateTopic             string   `json:"mode_state_topic,omitempty"`
	ModeStateTemplate          string   `json:"mode_state_template,omitempty"`
	ModeCommandTopic           string   `json:"mode_command_topic,omitempty"`
	TemperatureStateTopic      string   `json:"temperature_state_topic,omitempty"`
	TemperatureStateTemplate   string   `json:"temperature_state_template,omitempty"`
	TemperatureCommandTopic    string   `json:"temperature_command_topic,omitempty"`
	CurrentTemperatureTopic    string   `json:"current_temperature_topic,omitempty"`
	CurrentTemperatureTemplate string   `json:"current_temperature_template,omitempty"`
	MinTemp                    *float64 `json:"min_temp,omitempty"`
	MaxTemp                    *float64 `json:"max_temp,omitempty"`
	TempStep                   float64  `json:"temp_step,omitempty"`
	TemperatureUnit            string   `json:"temperature_unit,omitempty"`
}

// objectID makes a unique id safe for a topic level.
func objectID(uniqueID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, uniqueID)
}

func (b *Bridge) discoveryTopic(st eldom_bridge.EntityState) string {
	return b.cfg.DiscoveryPrefix + "/" + st.Kind + "/" + objectID(st.UniqueID) + "/config"
}

func (b *Bridge) stateTopic(uniqueID string) string {
	return b.cfg.TopicPrefix + "/" + objectID(uniqueID) + "/state"
}

func (b *Bridge) availabilityTopic(uniqueID string) string {
	return b.cfg.TopicPrefix + "/" + objectID(uniqueID) + "/availability"
}

func (b *Bridge) commandTopic(uniqueID, cmd string) string {
	return b.cfg.TopicPrefix + "/" + objectID(uniqueID) + "/" + cmd + "/set"
}

func (b *Bridge) statusTopic() string {
	return b.cfg.TopicPrefix + "/status"
}

// discovery builds the config of one entity. The second result is false for
// kinds Home Assistant has no MQTT platform for.
func (b *Bridge) discovery(st eldom_bridge.EntityState) (discoveryConfig, bool) {
	state := b.stateTopic(st.UniqueID)
	cfg := discoveryConfig{
		Name:     st.Name,
		UniqueID: st.UniqueID,
		ObjectID: objectID(st.UniqueID),
		Device: discoveryDevice{
			Identifiers:  []string{st.DeviceID},
			Name:         st.DeviceName,
			Manufacturer: manufacturer,
			Model:        st.Model,
			SWVersion:    attrString(st, "software_version"),
			HWVersion:    attrString(st, "hardware_version"),
		},
		Availability: []availability{
			{Topic: b.statusTopic()},
			{Topic: b.availabilityTopic(st.UniqueID)},
		},
		AvailabilityMode:       "all",
		JSONAttributesTopic:    state,
		JSONAttributesTemplate: "{{ value_json.attributes | tojson }}",
		Icon:                   attrString(st, "icon"),
	}

	switch entity.Kind(st.Kind) {
	case entity.KindClimate:
		cfg.Modes = []string{entity.HVACOff, entity.HVACHeat}
		cfg.ModeStateTopic = state
		cfg.ModeStateTemplate = "{{ value_json.state }}"
		cfg.ModeCommandTopic = b.commandTopic(st.UniqueID, cmdMode)
		b.temperatureTopics(&cfg, st)
	case entity.KindWaterHeater:
		cfg.Modes = waterHeaterModes
		cfg.ModeStateTopic = state
		cfg.ModeStateTemplate = "{{ value_json.attributes.ha_operation | default('off') }}"
		cfg.ModeCommandTopic = b.commandTopic(st.UniqueID, cmdMode)
		b.temperatureTopics(&cfg, st)
	case entity.KindSwitch:
		cfg.StateTopic = state
		cfg.ValueTemplate = "{{ value_json.state }}"
		cfg.CommandTopic = b.commandTopic(st.UniqueID, cmdSwitch)
		cfg.PayloadOn, cfg.PayloadOff = payloadOn, payloadOff
		cfg.StateOn, cfg.StateOff = "on", "off"
	case entity.KindSensor:
		cfg.StateTopic = state
		cfg.ValueTemplate = "{{ value_json.state }}"
		cfg.DeviceClass = attrString(st, "device_class")
		cfg.StateClass = attrString(st, "state_class")
		cfg.UnitOfMeasurement = attrString(st, "unit_of_measurement")
		if opts, ok := st.Attributes["options"].([]string); ok {
			cfg.Options = opts
		}
	case entity.KindButton:
		cfg.CommandTopic = b.commandTopic(st.UniqueID, cmdPress)
		cfg.PayloadPress = payloadPress
	default:
		return discoveryConfig{}, false
	}
	return cfg, true
}

func (b *Bridge) temperatureTopics(cfg *discoveryConfig, st eldom_bridge.EntityState) {
	state := b.stateTopic(st.UniqueID)
	cfg.TemperatureStateTopic = state
	cfg.TemperatureStateTemplate = "{{ value_json.attributes.temperature }}"
	cfg.TemperatureCommandTopic = b.commandTopic(st.UniqueID, cmdTemperature)
	cfg.CurrentTemperatureTopic = state
	cfg.CurrentTemperatureTemplate = "{{ value_json.attributes.current_temperature }}"
	cfg.MinTemp = attrFloat(st, "min_temp")
	cfg.MaxTemp = attrFloat(st, "max_temp")
	cfg.TempStep = 0.5
	cfg.TemperatureUnit = "C"
}

func attrString(st eldom_bridge.EntityState, key string) string {
	s, _ := st.Attributes[key].(string)
	return s
}

func attrFloat(st eldom_bridge.EntityState, key string) *float64 {
	if v, ok := st.Attributes[key].(float64); ok {
		return &v
	}
	return nil
}
