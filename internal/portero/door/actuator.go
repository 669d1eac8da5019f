// Package door drives the lock relay.  The relay line is the single shared
// hardware output; every write goes through one Actuator and one mutex.
// High = locked (the safe default), low = energized/unlocked.
package door

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/portero-acs/portero/internal/gpio"
	"github.com/portero-acs/portero/internal/metrics"
	"github.com/portero-acs/portero/internal/portero/store"
	"github.com/portero-acs/portero/internal/portero/types"
	"github.com/portero-acs/portero/internal/settings"
)

const (
	levelLocked   = 1
	levelUnlocked = 0
)

var ErrHardwareUnavailable = errors.New("door: hardware unavailable")

// Actuator owns the relay output line.
type Actuator struct {
	name     string
	settings *settings.Store
	events   store.SystemEventStore
	logger   *log.Logger
	metrics  *metrics.Metrics

	mu   sync.Mutex // serializes all relay writes
	line gpio.OutputLine
}

// NewActuator wraps an already-claimed relay line.  line may be nil when
// the hardware subsystem is disabled; every operation then fails fast with
// ErrHardwareUnavailable.
func NewActuator(name string, line gpio.OutputLine, st *settings.Store, events store.SystemEventStore, logger *log.Logger, m *metrics.Metrics) *Actuator {
	return &Actuator{
		name:     name,
		settings: st,
		events:   events,
		logger:   logger,
		metrics:  m,
		line:     line,
	}
}

// Name is the door label recorded into access logs.
func (a *Actuator) Name() string { return a.name }

// MomentaryOpen energizes the relay, blocks for the clamped duration, then
// re-locks.  d <= 0 means "use the configured opening time".  The call
// blocks its goroutine for the full duration; the relay must stay
// energized for exactly that interval.  Any mid-operation failure triggers
// a best-effort re-assert of the locked level before the error returns.
func (a *Actuator) MomentaryOpen(ctx context.Context, d time.Duration) error {
	if a.line == nil {
		return ErrHardwareUnavailable
	}
	if d <= 0 {
		d = a.settings.OpeningTime()
	}
	d = clamp(d)

	a.mu.Lock()
	defer a.mu.Unlock()

	a.logger.Printf("door %s: opening for %s", a.name, d)
	if err := a.line.SetValue(levelUnlocked); err != nil {
		a.metrics.RelayError()
		a.relock()
		return fmt.Errorf("door: energize relay: %w", err)
	}

	// Hold the relay energized.  Shutdown cancels the wait but the locked
	// level is still re-asserted below.
	t := time.NewTimer(d)
	select {
	case <-t.C:
	case <-ctx.Done():
		t.Stop()
	}

	if err := a.line.SetValue(levelLocked); err != nil {
		a.metrics.RelayError()
		a.relock()
		return fmt.Errorf("door: re-lock after open: %w", err)
	}
	a.logger.Printf("door %s: re-locked", a.name)
	return nil
}

// Lock asserts the locked level.
func (a *Actuator) Lock() error {
	if a.line == nil {
		return ErrHardwareUnavailable
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.line.SetValue(levelLocked); err != nil {
		a.metrics.RelayError()
		return fmt.Errorf("door: lock: %w", err)
	}
	a.logger.Printf("door %s: locked", a.name)
	return nil
}

// UnlockPermanently energizes the relay and leaves it energized.  There is
// no automatic re-lock; this is deliberately loud in the logs and the
// system event trail.
func (a *Actuator) UnlockPermanently(ctx context.Context) error {
	if a.line == nil {
		return ErrHardwareUnavailable
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.line.SetValue(levelUnlocked); err != nil {
		a.metrics.RelayError()
		a.relock()
		return fmt.Errorf("door: permanent unlock: %w", err)
	}
	a.logger.Printf("WARNING: door %s UNLOCKED PERMANENTLY", a.name)
	_ = a.events.Record(ctx, store.SystemEventRecord{
		Level:     "WARNING",
		EventType: "Door Permanent Unlock",
		Message:   fmt.Sprintf("door %s unlocked permanently", a.name),
	})
	return nil
}

// Status reads back the relay line level.  This is the only read path; the
// lock position is otherwise assumed from the last write.
func (a *Actuator) Status() (types.LockState, *int) {
	if a.line == nil {
		return types.LockStateError, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	v, err := a.line.Value()
	if err != nil {
		a.logger.Printf("door %s: relay read failed: %v", a.name, err)
		return types.LockStateError, nil
	}
	if v == levelLocked {
		return types.LockStateLocked, &v
	}
	return types.LockStateUnlocked, &v
}

// relock is the best-effort fail-safe after any relay fault.  Caller holds mu.
func (a *Actuator) relock() {
	if err := a.line.SetValue(levelLocked); err != nil {
		a.logger.Printf("door %s: fail-safe re-lock also failed: %v", a.name, err)
	}
}

func clamp(d time.Duration) time.Duration {
	min := time.Duration(settings.MinOpeningTimeSeconds) * time.Second
	max := time.Duration(settings.MaxOpeningTimeSeconds) * time.Second
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}
