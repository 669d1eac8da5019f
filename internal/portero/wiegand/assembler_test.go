package wiegand

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/portero-acs/portero/internal/gpio/gpiotest"
	"github.com/portero-acs/portero/internal/metrics"
	"github.com/portero-acs/portero/internal/portero/queue"
)

const (
	testD0 = 7
	testD1 = 8
)

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func testAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{
		D0:               testD0,
		D1:               testD1,
		FrameTimeout:     10 * time.Millisecond,
		PollInterval:     2 * time.Millisecond,
		ProbeInterval:    5 * time.Millisecond,
		ReconnectBackoff: 5 * time.Millisecond,
		FaultBackoff:     5 * time.Millisecond,
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startAssembler(t *testing.T, chip *gpiotest.Chip, q *queue.CredentialQueue) (*Assembler, context.CancelFunc) {
	t.Helper()
	a := NewAssembler(testAssemblerConfig(), chip, q, testLogger(), metrics.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return a, cancel
}

func fireFrame(chip *gpiotest.Chip, bits []uint8) {
	for _, b := range bits {
		if b == 0 {
			chip.FireEdge(testD0)
		} else {
			chip.FireEdge(testD1)
		}
	}
}

func TestAssembler_AssemblesAndEnqueuesFrame(t *testing.T) {
	chip := gpiotest.NewChip()
	q := queue.New(4, testLogger(), metrics.Nop())
	a, _ := startAssembler(t, chip, q)

	waitFor(t, "subscriptions", func() bool {
		return chip.Subscribed(testD0) && chip.Subscribed(testD1) && a.Connected()
	})

	fireFrame(chip, encodeFrame(42, 12345))

	var uid string
	waitFor(t, "decoded credential", func() bool {
		var ok bool
		uid, ok = q.TryDequeue()
		return ok
	})
	if want := "2765369"; uid != want { // 42<<16 | 12345
		t.Fatalf("uid = %q, want %q", uid, want)
	}
}

func TestAssembler_DiscardsShortFrame(t *testing.T) {
	chip := gpiotest.NewChip()
	q := queue.New(4, testLogger(), metrics.Nop())
	a, _ := startAssembler(t, chip, q)

	waitFor(t, "subscriptions", func() bool { return a.Connected() })

	for i := 0; i < 10; i++ {
		chip.FireEdge(testD1)
	}

	// Give the poll loop enough time to delimit and reject the fragment.
	time.Sleep(50 * time.Millisecond)
	if uid, ok := q.TryDequeue(); ok {
		t.Fatalf("short frame produced credential %q", uid)
	}
	if got := a.buf.Len(); got != 0 {
		t.Fatalf("buffer still holds %d bits after rejection", got)
	}
}

func TestAssembler_DiscardsOverflowedFrame(t *testing.T) {
	chip := gpiotest.NewChip()
	q := queue.New(4, testLogger(), metrics.Nop())
	a, _ := startAssembler(t, chip, q)

	waitFor(t, "subscriptions", func() bool { return a.Connected() })

	// A jammed line floods edges; the buffer caps and the oversized frame
	// is rejected rather than parsed out of garbage.
	for i := 0; i < 100; i++ {
		chip.FireEdge(testD1)
	}

	time.Sleep(50 * time.Millisecond)
	if uid, ok := q.TryDequeue(); ok {
		t.Fatalf("overflowed frame produced credential %q", uid)
	}
}

func TestAssembler_RetriesFailedSubscribe(t *testing.T) {
	chip := gpiotest.NewChip()
	chip.SetRequestErr(errors.New("line busy"))
	q := queue.New(4, testLogger(), metrics.Nop())
	a, _ := startAssembler(t, chip, q)

	waitFor(t, "connect after failed subscribe", func() bool { return a.Connected() })
}

func TestAssembler_ReconnectsAfterProbeFailure(t *testing.T) {
	chip := gpiotest.NewChip()
	q := queue.New(4, testLogger(), metrics.Nop())
	a, _ := startAssembler(t, chip, q)

	waitFor(t, "initial connect", func() bool { return a.Connected() })

	chip.SetProbeErr(errors.New("chip gone"))
	waitFor(t, "disconnect detection", func() bool { return !a.Connected() })

	chip.SetProbeErr(nil)
	waitFor(t, "reconnect", func() bool {
		return a.Connected() && chip.Subscribed(testD0) && chip.Subscribed(testD1)
	})

	// The re-established subscriptions must still deliver frames.
	fireFrame(chip, encodeFrame(1, 1))
	waitFor(t, "credential after reconnect", func() bool {
		_, ok := q.TryDequeue()
		return ok
	})
}

func TestAssembler_StopsOnContextCancel(t *testing.T) {
	chip := gpiotest.NewChip()
	q := queue.New(4, testLogger(), metrics.Nop())

	a := NewAssembler(testAssemblerConfig(), chip, q, testLogger(), metrics.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.Run(ctx)
	}()

	waitFor(t, "connect", func() bool { return a.Connected() })
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if a.Connected() {
		t.Fatal("still reporting connected after shutdown")
	}
}
