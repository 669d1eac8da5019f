package types

import "time"

// Deny/grant reasons recorded in the access log.  These are stable strings
// consumed by the external dashboard; do not rename casually.
const (
	ReasonGranted         = "granted"
	ReasonUnknownKeyfob   = "unknown_keyfob"
	ReasonKeyfobInactive  = "keyfob_inactive"
	ReasonOutsideSchedule = "outside_schedule"
)

// AccessDecision is the outcome of evaluating one queued credential.
type AccessDecision struct {
	UIDAttempted string
	KeyfobID     *int64 // nil when no keyfob matched
	Granted      bool
	Reason       string
	DoorName     string
	DecidedAt    time.Time
}
