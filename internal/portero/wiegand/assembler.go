package wiegand

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/portero-acs/portero/internal/gpio"
	"github.com/portero-acs/portero/internal/metrics"
	"github.com/portero-acs/portero/internal/portero/queue"
)

var errDisconnected = errors.New("wiegand: chip connection lost")

// AssemblerConfig carries the timing and backoff parameters of the reader
// loop.  Zero values fall back to the protocol defaults; tests shrink them.
type AssemblerConfig struct {
	D0 int // data-0 line offset
	D1 int // data-1 line offset

	// FrameTimeout is the inter-pulse silence that delimits a frame.
	FrameTimeout time.Duration // default 50ms
	// PollInterval is the cadence of the timeout check.
	PollInterval time.Duration // default 10ms
	// ProbeInterval is the cadence of the chip liveness probe.
	ProbeInterval time.Duration // default 1s

	ReconnectBackoff time.Duration // after a failed (re)subscribe, default 10s
	FaultBackoff     time.Duration // after an unexpected loop fault, default 15s
}

func (c *AssemblerConfig) applyDefaults() {
	if c.FrameTimeout <= 0 {
		c.FrameTimeout = 50 * time.Millisecond
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Millisecond
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = time.Second
	}
	if c.ReconnectBackoff <= 0 {
		c.ReconnectBackoff = 10 * time.Second
	}
	if c.FaultBackoff <= 0 {
		c.FaultBackoff = 15 * time.Second
	}
}

// Assembler owns the reader worker: it subscribes the two data lines,
// watches the shared bit buffer for inter-pulse silence, decodes delimited
// frames and enqueues credentials.  It also owns reconnection: once the
// first connect has succeeded it retries forever, releasing its edge
// subscriptions before every retry.
type Assembler struct {
	cfg     AssemblerConfig
	chip    gpio.Chip
	queue   *queue.CredentialQueue
	logger  *log.Logger
	metrics *metrics.Metrics

	buf       *bitBuffer
	capture   *PulseCapture
	connected atomic.Bool
}

func NewAssembler(cfg AssemblerConfig, chip gpio.Chip, q *queue.CredentialQueue, logger *log.Logger, m *metrics.Metrics) *Assembler {
	cfg.applyDefaults()
	buf := newBitBuffer(FrameBits + overflowSlack)
	return &Assembler{
		cfg:     cfg,
		chip:    chip,
		queue:   q,
		logger:  logger,
		metrics: m,
		buf:     buf,
		capture: NewPulseCapture(cfg.D0, cfg.D1, buf),
	}
}

// Connected reports whether the edge subscriptions are currently live.
// Consumed by status reporting.
func (a *Assembler) Connected() bool { return a.connected.Load() }

// Run drives the Disconnected -> Connecting -> Connected state machine
// until ctx is cancelled.  It never returns an error: every fault resolves
// to a logged backoff and a retry.
func (a *Assembler) Run(ctx context.Context) {
	for ctx.Err() == nil {
		lines, err := a.subscribe()
		if err != nil {
			a.logger.Printf("wiegand: subscribe failed: %v (retrying in %s)", err, a.cfg.ReconnectBackoff)
			sleep(ctx, a.cfg.ReconnectBackoff)
			continue
		}

		a.connected.Store(true)
		a.logger.Printf("wiegand: listening on D0=%d D1=%d", a.cfg.D0, a.cfg.D1)

		err = a.collect(ctx)

		a.connected.Store(false)
		for _, l := range lines {
			_ = l.Close()
		}

		switch {
		case err == nil:
			return // ctx cancelled
		case errors.Is(err, errDisconnected):
			a.logger.Printf("wiegand: %v (reconnecting in %s)", err, a.cfg.ReconnectBackoff)
			sleep(ctx, a.cfg.ReconnectBackoff)
		default:
			a.logger.Printf("wiegand: collect loop fault: %v (retrying in %s)", err, a.cfg.FaultBackoff)
			sleep(ctx, a.cfg.FaultBackoff)
		}
	}
}

func (a *Assembler) subscribe() ([]gpio.Line, error) {
	l0, err := a.chip.RequestFallingEdges(a.cfg.D0, a.capture.HandleEdge)
	if err != nil {
		return nil, fmt.Errorf("line D0: %w", err)
	}
	l1, err := a.chip.RequestFallingEdges(a.cfg.D1, a.capture.HandleEdge)
	if err != nil {
		_ = l0.Close()
		return nil, fmt.Errorf("line D1: %w", err)
	}
	return []gpio.Line{l0, l1}, nil
}

// collect runs the Connected state: poll the buffer for frame-delimiting
// silence and probe chip liveness.  Returns nil on ctx cancellation,
// errDisconnected when the probe fails, and a recovered fault otherwise.
func (a *Assembler) collect(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in collect loop: %v", r)
		}
	}()

	poll := time.NewTicker(a.cfg.PollInterval)
	defer poll.Stop()
	probe := time.NewTicker(a.cfg.ProbeInterval)
	defer probe.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-probe.C:
			if perr := a.chip.Probe(a.cfg.D0); perr != nil {
				return fmt.Errorf("%w: %v", errDisconnected, perr)
			}
		case <-poll.C:
			if bits, ok := a.buf.TakeIfStale(a.cfg.FrameTimeout); ok {
				a.handleFrame(bits)
			}
		}
	}
}

func (a *Assembler) handleFrame(bits []uint8) {
	cred, parity, err := Decode(bits)
	if err != nil {
		a.logger.Printf("wiegand: discarding frame: %v", err)
		a.metrics.FrameObserved(metrics.FrameBadLength)
		return
	}
	if !parity.EvenOK {
		a.logger.Printf("wiegand: even parity check failed (bit 0)")
	}
	if !parity.OddOK {
		a.logger.Printf("wiegand: odd parity check failed (bit 25)")
	}
	if !parity.OK() {
		a.metrics.ParityError()
	}

	a.metrics.FrameObserved(metrics.FrameDecoded)
	uid := cred.UID()
	a.logger.Printf("wiegand: read fc=%d cn=%d uid=%s", cred.Facility, cred.Card, uid)
	a.queue.TryEnqueue(uid)
}

// sleep blocks for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
