// Package hardware owns the GPIO subsystem: the chip handle, the claimed
// relay line, the reader worker and the door actuator, plus the
// availability flags the rest of the system keys off.  It replaces what
// would otherwise be ambient process-wide globals with one explicit,
// injectable context.
package hardware

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/portero-acs/portero/internal/gpio"
	"github.com/portero-acs/portero/internal/metrics"
	"github.com/portero-acs/portero/internal/portero/door"
	"github.com/portero-acs/portero/internal/portero/queue"
	"github.com/portero-acs/portero/internal/portero/store"
	"github.com/portero-acs/portero/internal/portero/types"
	"github.com/portero-acs/portero/internal/portero/wiegand"
	"github.com/portero-acs/portero/internal/settings"
)

// Job name for the engine tick; registered only while hardware is available.
const EngineTickJob = "wiegand_processor"

type Config struct {
	ChipName string
	D0       int
	D1       int
	Relay    int
	DoorName string

	// Disabled force-skips hardware setup (dev machines without a chip).
	Disabled bool

	// Reader overrides AssemblerConfig timings when non-zero; tests use it.
	Reader wiegand.AssemblerConfig
}

// OpenFunc opens a GPIO chip.  nil means the real character device.
type OpenFunc func(name, consumer string) (gpio.Chip, error)

// Subsystem is the owned hardware context.
type Subsystem struct {
	cfg    Config
	logger *log.Logger

	available bool
	chip      gpio.Chip
	relay     gpio.OutputLine

	assembler     *wiegand.Assembler
	door          *door.Actuator
	readerStarted atomic.Bool

	settings *settings.Store

	cleanupOnce sync.Once
}

// Setup opens the chip, asserts the relay to its safe locked level and
// wires the reader and actuator.  Failure never aborts the process: the
// subsystem comes back permanently disabled and every hardware operation
// fails fast.
func Setup(cfg Config, open OpenFunc, q *queue.CredentialQueue, st *settings.Store, events store.SystemEventStore, logger *log.Logger, m *metrics.Metrics) *Subsystem {
	sub := &Subsystem{cfg: cfg, logger: logger, settings: st}

	if open == nil {
		open = gpio.OpenChip
	}

	if cfg.Disabled {
		logger.Printf("hardware: disabled by configuration; reader and relay inactive")
		sub.door = door.NewActuator(cfg.DoorName, nil, st, events, logger, m)
		return sub
	}

	chip, err := open(cfg.ChipName, "portero")
	if err != nil {
		logger.Printf("CRITICAL: hardware: cannot open %s: %v; running without hardware features", cfg.ChipName, err)
		_ = events.Record(context.Background(), store.SystemEventRecord{
			Level:     "CRITICAL",
			EventType: "Hardware Setup",
			Message:   "gpio chip unavailable: " + err.Error(),
		})
		sub.door = door.NewActuator(cfg.DoorName, nil, st, events, logger, m)
		return sub
	}

	// Relay claimed as output at the locked level before anything else.
	relay, err := chip.RequestOutput(cfg.Relay, 1)
	if err != nil {
		logger.Printf("CRITICAL: hardware: cannot claim relay line %d: %v; running without hardware features", cfg.Relay, err)
		_ = chip.Close()
		sub.door = door.NewActuator(cfg.DoorName, nil, st, events, logger, m)
		return sub
	}

	sub.available = true
	sub.chip = chip
	sub.relay = relay
	sub.door = door.NewActuator(cfg.DoorName, relay, st, events, logger, m)

	rc := cfg.Reader
	rc.D0 = cfg.D0
	rc.D1 = cfg.D1
	sub.assembler = wiegand.NewAssembler(rc, chip, q, logger, m)

	logger.Printf("hardware: chip %s ready (D0=%d D1=%d relay=%d)", cfg.ChipName, cfg.D0, cfg.D1, cfg.Relay)
	return sub
}

// Available reports whether GPIO setup succeeded.
func (s *Subsystem) Available() bool { return s.available }

// Door returns the actuator; always non-nil, fails fast when unavailable.
func (s *Subsystem) Door() *door.Actuator { return s.door }

// StartReader launches the frame assembler worker.  No-op when the
// subsystem is unavailable.
func (s *Subsystem) StartReader(ctx context.Context) {
	if !s.available || s.readerStarted.Swap(true) {
		return
	}
	go s.assembler.Run(ctx)
}

// ApplyJobPolicy registers the engine tick job while hardware is available
// and removes it otherwise.  Safe to call repeatedly; registration is
// idempotent.
func (s *Subsystem) ApplyJobPolicy(sched interface {
	AddInterval(name string, every time.Duration, fn func()) error
	Remove(name string)
}, tick func()) {
	if s.available {
		if err := sched.AddInterval(EngineTickJob, 100*time.Millisecond, tick); err != nil {
			s.logger.Printf("hardware: registering engine tick: %v", err)
		}
		return
	}
	sched.Remove(EngineTickJob)
}

// Status is the read-only snapshot served to dashboards.
func (s *Subsystem) Status() types.HardwareStatus {
	st := types.HardwareStatus{
		Timestamp:          time.Now().UTC().Format(time.RFC3339Nano),
		ChipPresent:        s.available,
		OpeningTimeSeconds: s.settings.OpeningTimeSeconds(),
	}

	if !s.available {
		st.RelayStatus = "unavailable"
		st.LockState = types.LockStateError
		st.ReaderStatus = types.ReaderError
		return st
	}

	st.ChipConnected = s.assembler.Connected()

	lock, level := s.door.Status()
	st.LockState = lock
	st.RelayLevel = level
	if lock == types.LockStateError {
		st.RelayStatus = "error_read"
	} else {
		st.RelayStatus = "ok"
	}

	switch {
	case !s.readerStarted.Load():
		st.ReaderStatus = types.ReaderInactive
	case st.ChipConnected:
		st.ReaderStatus = types.ReaderActive
	default:
		st.ReaderStatus = types.ReaderError
	}
	return st
}

// Cleanup re-asserts the locked relay level and releases lines and chip.
// Runs exactly once regardless of how shutdown was reached.
func (s *Subsystem) Cleanup() {
	s.cleanupOnce.Do(func() {
		if !s.available {
			return
		}
		s.logger.Printf("hardware: cleanup: asserting locked state and releasing lines")
		if err := s.door.Lock(); err != nil {
			s.logger.Printf("hardware: cleanup lock failed: %v", err)
		}
		if err := s.relay.Close(); err != nil {
			s.logger.Printf("hardware: cleanup relay close: %v", err)
		}
		if err := s.chip.Close(); err != nil {
			s.logger.Printf("hardware: cleanup chip close: %v", err)
		}
	})
}
