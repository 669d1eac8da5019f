// Package gpiotest provides a scriptable in-memory gpio.Chip for tests.
package gpiotest

import (
	"errors"
	"sync"
	"time"

	"github.com/portero-acs/portero/internal/gpio"
)

var ErrClosed = errors.New("gpiotest: chip closed")

// Chip is a fake gpio.Chip.  Edges are fired synchronously from the test
// goroutine via FireEdge, mimicking the kernel's event delivery.
type Chip struct {
	mu       sync.Mutex
	closed   bool
	now      time.Duration
	handlers map[int]gpio.EventHandler
	outputs  map[int]*Output

	// RequestErr, when set, fails the next line request and is cleared.
	RequestErr error
	// ProbeErr, when set, is returned by Probe until cleared.
	ProbeErr error
}

func NewChip() *Chip {
	return &Chip{
		handlers: make(map[int]gpio.EventHandler),
		outputs:  make(map[int]*Output),
	}
}

func (c *Chip) RequestFallingEdges(offset int, fn gpio.EventHandler) (gpio.Line, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if err := c.RequestErr; err != nil {
		c.RequestErr = nil
		return nil, err
	}
	c.handlers[offset] = fn
	return &line{chip: c, offset: offset}, nil
}

func (c *Chip) RequestOutput(offset, initial int) (gpio.OutputLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if err := c.RequestErr; err != nil {
		c.RequestErr = nil
		return nil, err
	}
	out := &Output{level: initial, Levels: []int{initial}}
	c.outputs[offset] = out
	return out, nil
}

func (c *Chip) Probe(int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.ProbeErr
}

func (c *Chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// FireEdge delivers a falling edge on offset to the registered handler.
// Each edge advances the fake monotonic clock by 200us, comfortably inside
// any realistic inter-pulse gap.
func (c *Chip) FireEdge(offset int) {
	c.mu.Lock()
	c.now += 200 * time.Microsecond
	fn := c.handlers[offset]
	ts := c.now
	c.mu.Unlock()
	if fn != nil {
		fn(gpio.Event{Offset: offset, Timestamp: ts})
	}
}

// SetProbeErr makes Probe fail with err until cleared with nil.  Safe to
// call while the chip is in use.
func (c *Chip) SetProbeErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ProbeErr = err
}

// SetRequestErr arms a one-shot line-request failure.
func (c *Chip) SetRequestErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RequestErr = err
}

// Subscribed reports whether an edge handler is registered on offset.
func (c *Chip) Subscribed(offset int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.handlers[offset]
	return ok
}

// Output returns the fake output line claimed on offset, or nil.
func (c *Chip) Output(offset int) *Output {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outputs[offset]
}

type line struct {
	chip   *Chip
	offset int
}

func (l *line) Close() error {
	l.chip.mu.Lock()
	defer l.chip.mu.Unlock()
	delete(l.chip.handlers, l.offset)
	return nil
}

// Output is a fake output line that records every level written.
type Output struct {
	mu     sync.Mutex
	level  int
	Levels []int // every value ever written, including the initial level

	// SetErr, when set, fails the next SetValue and is cleared.
	SetErr error
	// ReadErr, when set, fails Value until cleared.
	ReadErr error
}

func (o *Output) SetValue(v int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.SetErr; err != nil {
		o.SetErr = nil
		return err
	}
	o.level = v
	o.Levels = append(o.Levels, v)
	return nil
}

func (o *Output) Value() (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ReadErr != nil {
		return 0, o.ReadErr
	}
	return o.level, nil
}

func (o *Output) Close() error { return nil }

// Level returns the current output level.
func (o *Output) Level() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.level
}

// InjectSetErr arms a one-shot write failure.
func (o *Output) InjectSetErr(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.SetErr = err
}
