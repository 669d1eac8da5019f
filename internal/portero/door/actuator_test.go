package door

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/portero-acs/portero/internal/gpio"
	"github.com/portero-acs/portero/internal/gpio/gpiotest"
	"github.com/portero-acs/portero/internal/metrics"
	"github.com/portero-acs/portero/internal/portero/store/memory"
	"github.com/portero-acs/portero/internal/portero/types"
	"github.com/portero-acs/portero/internal/settings"
)

func newTestActuator(t *testing.T, line gpio.OutputLine) (*Actuator, *memory.SystemEventStore) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	st, err := settings.Load(filepath.Join(t.TempDir(), "settings.yaml"), logger)
	if err != nil {
		t.Fatalf("settings.Load: %v", err)
	}
	events := memory.NewSystemEventStore()
	return NewActuator("Principal", line, st, events, logger, metrics.Nop()), events
}

// claimedLine mimics the hardware setup path: relay claimed as an output at
// the locked level.
func claimedLine(t *testing.T) *gpiotest.Output {
	t.Helper()
	chip := gpiotest.NewChip()
	if _, err := chip.RequestOutput(12, levelLocked); err != nil {
		t.Fatalf("RequestOutput: %v", err)
	}
	return chip.Output(12)
}

func TestMomentaryOpen_EnergizesThenRelocks(t *testing.T) {
	line := claimedLine(t)
	a, _ := newTestActuator(t, line)

	// A cancelled context cuts the hold short; the re-lock must still land.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := a.MomentaryOpen(ctx, time.Second); err != nil {
		t.Fatalf("MomentaryOpen: %v", err)
	}

	want := []int{levelLocked, levelUnlocked, levelLocked}
	if len(line.Levels) != len(want) {
		t.Fatalf("relay writes = %v, want %v", line.Levels, want)
	}
	for i := range want {
		if line.Levels[i] != want[i] {
			t.Fatalf("relay writes = %v, want %v", line.Levels, want)
		}
	}
	if line.Level() != levelLocked {
		t.Fatalf("final level = %d, want locked", line.Level())
	}
}

func TestMomentaryOpen_HoldsForDuration(t *testing.T) {
	line := claimedLine(t)
	a, _ := newTestActuator(t, line)

	start := time.Now()
	if err := a.MomentaryOpen(context.Background(), time.Second); err != nil {
		t.Fatalf("MomentaryOpen: %v", err)
	}
	if held := time.Since(start); held < time.Second {
		t.Fatalf("relay held for %s, want at least 1s", held)
	}
	if line.Level() != levelLocked {
		t.Fatalf("final level = %d, want locked", line.Level())
	}
}

func TestMomentaryOpen_EnergizeFaultRelocks(t *testing.T) {
	line := claimedLine(t)
	a, _ := newTestActuator(t, line)

	line.InjectSetErr(errors.New("write failed"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.MomentaryOpen(ctx, time.Second); err == nil {
		t.Fatal("MomentaryOpen succeeded despite relay fault")
	}
	// The failed energize wrote nothing; the fail-safe re-lock did.
	if line.Level() != levelLocked {
		t.Fatalf("final level = %d, want locked after fault", line.Level())
	}
}

func TestLockAndUnlockPermanently(t *testing.T) {
	line := claimedLine(t)
	a, events := newTestActuator(t, line)

	if err := a.UnlockPermanently(context.Background()); err != nil {
		t.Fatalf("UnlockPermanently: %v", err)
	}
	if line.Level() != levelUnlocked {
		t.Fatalf("level = %d after permanent unlock, want unlocked", line.Level())
	}
	if state, _ := a.Status(); state != types.LockStateUnlocked {
		t.Fatalf("Status = %v, want unlocked", state)
	}

	recs := events.Records()
	if len(recs) != 1 || recs[0].Level != "WARNING" {
		t.Fatalf("events = %+v, want one WARNING", recs)
	}

	if err := a.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if state, _ := a.Status(); state != types.LockStateLocked {
		t.Fatalf("Status = %v after Lock, want locked", state)
	}
}

func TestNilLineFailsFast(t *testing.T) {
	a, _ := newTestActuator(t, nil)

	if err := a.MomentaryOpen(context.Background(), time.Second); !errors.Is(err, ErrHardwareUnavailable) {
		t.Fatalf("MomentaryOpen err = %v, want ErrHardwareUnavailable", err)
	}
	if err := a.Lock(); !errors.Is(err, ErrHardwareUnavailable) {
		t.Fatalf("Lock err = %v, want ErrHardwareUnavailable", err)
	}
	if err := a.UnlockPermanently(context.Background()); !errors.Is(err, ErrHardwareUnavailable) {
		t.Fatalf("UnlockPermanently err = %v, want ErrHardwareUnavailable", err)
	}
	if state, level := a.Status(); state != types.LockStateError || level != nil {
		t.Fatalf("Status = %v, %v; want error state", state, level)
	}
}

func TestStatus_ReadFaultReportsError(t *testing.T) {
	line := claimedLine(t)
	a, _ := newTestActuator(t, line)

	line.ReadErr = errors.New("read failed")
	if state, level := a.Status(); state != types.LockStateError || level != nil {
		t.Fatalf("Status = %v, %v; want error state on read fault", state, level)
	}
}

func TestClamp(t *testing.T) {
	cases := []struct {
		in, want time.Duration
	}{
		{500 * time.Millisecond, time.Second},
		{time.Second, time.Second},
		{5 * time.Second, 5 * time.Second},
		{60 * time.Second, 60 * time.Second},
		{2 * time.Minute, 60 * time.Second},
	}
	for _, tc := range cases {
		if got := clamp(tc.in); got != tc.want {
			t.Fatalf("clamp(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
