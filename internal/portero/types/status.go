package types

// LockState is the interpreted state of the physical lock.
type LockState string

const (
	LockStateLocked   LockState = "locked"
	LockStateUnlocked LockState = "unlocked"
	LockStateError    LockState = "error"
)

// ReaderStatus describes the Wiegand reader subsystem.
type ReaderStatus string

const (
	ReaderActive   ReaderStatus = "active"
	ReaderInactive ReaderStatus = "inactive"
	ReaderError    ReaderStatus = "error"
)

// HardwareStatus is the read-only snapshot served to external dashboards.
type HardwareStatus struct {
	Timestamp          string       `json:"timestamp"`
	ChipPresent        bool         `json:"chip_present"`
	ChipConnected      bool         `json:"chip_connected"`
	RelayStatus        string       `json:"relay_status"` // "ok" | "error_read" | "unavailable"
	RelayLevel         *int         `json:"relay_level,omitempty"`
	LockState          LockState    `json:"lock_state"`
	ReaderStatus       ReaderStatus `json:"reader_status"`
	OpeningTimeSeconds int          `json:"opening_time_seconds"`
}
