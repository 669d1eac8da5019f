package store

import (
	"context"
	"errors"
	"time"
)

// ErrTransient marks a persistence fault that is expected to clear on its
// own (e.g. SQLITE_BUSY).  The decision engine aborts its batch and retries
// the failed item on the next tick when it sees this; any other error
// consumes the item.  Implementations wrap retryable failures with it.
var ErrTransient = errors.New("transient store error")

// Keyfob is one physical credential's authorization record.  The core only
// reads keyfobs; the external admin UI owns their lifecycle.
type Keyfob struct {
	ID        int64
	UID       string // combined facility/card id, case-insensitive match
	OwnerName string
	Floor     string
	Apartment string
	Active    bool

	ScheduleEnabled bool
	// ActivationDays is a csv of lowercase weekday abbreviations
	// ("mon,tue,..."); empty means no day is allowed.
	ActivationDays string
	// ActivationStart/End are "HH:MM" local times; both empty means the
	// whole allowed day.
	ActivationStart string
	ActivationEnd   string
}

// Description is the human-readable owner label captured into access logs.
func (k Keyfob) Description() string {
	if k.OwnerName != "" {
		return k.OwnerName
	}
	if k.Floor == "" && k.Apartment == "" {
		return ""
	}
	return "P:" + orUnknown(k.Floor) + " D:" + orUnknown(k.Apartment)
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

// KeyfobStore looks up authorization records.
type KeyfobStore interface {
	// FindByUID returns the keyfob whose UID matches case-insensitively,
	// or (nil, nil) when no such keyfob exists.
	FindByUID(ctx context.Context, uid string) (*Keyfob, error)
}

// AccessLogRecord captures one access decision for the audit trail.
type AccessLogRecord struct {
	Timestamp    time.Time
	UIDAttempted string
	KeyfobID     *int64
	Granted      bool
	Reason       string
	// KeyfobDescription snapshots the owner label at decision time, so the
	// log stays meaningful after the keyfob is edited or deleted.
	KeyfobDescription string
	DoorName          string
}

// AccessLogStore persists access decisions as an append-only audit log.
type AccessLogStore interface {
	Record(ctx context.Context, rec AccessLogRecord) error
	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]AccessLogRecord, error)
	// PruneOlderThan deletes records before cutoff, returning the count.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SystemEventRecord is an operational event worth keeping out-of-band of
// the process log (hardware faults, dangerous operations).
type SystemEventRecord struct {
	Timestamp time.Time
	Level     string // "INFO" | "WARNING" | "ERROR" | "CRITICAL"
	EventType string
	Message   string
}

// SystemEventStore persists operational events.
type SystemEventStore interface {
	Record(ctx context.Context, rec SystemEventRecord) error
	List(ctx context.Context, limit int) ([]SystemEventRecord, error)
}
