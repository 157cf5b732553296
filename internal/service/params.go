package service

import "time"

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "SETUP", "UNLOAD", "COMMAND", "REFRESH_FAILED", "AVAILABILITY"
}

// EntryParams are the config flow inputs.
type EntryParams struct {
	Username string
	Password string
	API      string // "eldom" (default) or "iot_eldom"
}

// ActionParams carry the optional arguments of an entity action.
type ActionParams struct {
	Temperature *float64
	Mode        string // operation mode or hvac mode
}

// Entity actions accepted by Control.Execute.
const (
	ActionTurnOn           = "turn_on"
	ActionTurnOff          = "turn_off"
	ActionSetTemperature   = "set_temperature"
	ActionSetOperationMode = "set_operation_mode"
	ActionSetHVACMode      = "set_hvac_mode"
	ActionPress            = "press"
)
