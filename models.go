package eldom_bridge

import "time"

// Vendor API families an entry can be configured against.
const (
	APIClassic = "eldom"
	APIIoT     = "iot_eldom"
)

// Event types recorded in the device event log.
const (
	EventSetup         = "SETUP"
	EventUnload        = "UNLOAD"
	EventCommand       = "COMMAND"
	EventRefreshFailed = "REFRESH_FAILED"
	EventAvailability  = "AVAILABILITY"
)

// Entry is a configured vendor account (one per username and API family).
type Entry struct {
	UniqueID  string    `json:"unique_id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"` // needed to log in again, never exposed
	API       string    `json:"api"`
	CreatedAt time.Time `json:"created_at"`
}

// Lifecycle states of a configured entry.
const (
	EntryLoaded     = "loaded"
	EntrySetupRetry = "setup_retry"
	EntryNotLoaded  = "not_loaded"
)

// EntryStatus is an entry together with its runtime state.
type EntryStatus struct {
	Entry
	State     string `json:"state"`
	LastError string `json:"last_error,omitempty"`
}

// EntityState is the published view of a single entity.
type EntityState struct {
	UniqueID   string         `json:"unique_id"`
	EntryID    string         `json:"entry_id"`
	Kind       string         `json:"kind"` // climate | water_heater | switch | sensor | button
	Name       string         `json:"name"`
	DeviceID   string         `json:"device_id"`
	DeviceName string         `json:"device_name,omitempty"`
	Model      string         `json:"model,omitempty"`
	State      any            `json:"state"`
	Available  bool           `json:"available"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Generation uint64         `json:"generation"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// DeviceEvent is a single audit log entry.
type DeviceEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	EntryID     string    `json:"entry_id,omitempty"`
	DeviceID    string    `json:"device_id,omitempty"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // don’t expose hash
}
