package wiegand

import "github.com/portero-acs/portero/internal/gpio"

// PulseCapture maps falling edges on the two Wiegand data lines to bits:
// D0 carries zeros, D1 carries ones.  HandleEdge is invoked from the GPIO
// event-delivery goroutine and must stay cheap and non-blocking.
type PulseCapture struct {
	d0  int
	d1  int
	buf *bitBuffer
}

func NewPulseCapture(d0, d1 int, buf *bitBuffer) *PulseCapture {
	return &PulseCapture{d0: d0, d1: d1, buf: buf}
}

func (c *PulseCapture) HandleEdge(ev gpio.Event) {
	switch ev.Offset {
	case c.d0:
		c.buf.Append(0)
	case c.d1:
		c.buf.Append(1)
	}
}
