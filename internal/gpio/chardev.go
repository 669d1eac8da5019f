package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// chardevChip implements Chip on top of the Linux GPIO character device.
type chardevChip struct {
	chip *gpiocdev.Chip
}

// OpenChip opens the named GPIO chip (e.g. "gpiochip0").
func OpenChip(name, consumer string) (Chip, error) {
	c, err := gpiocdev.NewChip(name, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %q: %w", name, err)
	}
	return &chardevChip{chip: c}, nil
}

func (c *chardevChip) RequestFallingEdges(offset int, fn EventHandler) (Line, error) {
	l, err := c.chip.RequestLine(offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			if evt.Type != gpiocdev.LineEventFallingEdge {
				return
			}
			fn(Event{Offset: evt.Offset, Timestamp: evt.Timestamp})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("request falling edges on line %d: %w", offset, err)
	}
	return l, nil
}

func (c *chardevChip) RequestOutput(offset, initial int) (OutputLine, error) {
	l, err := c.chip.RequestLine(offset, gpiocdev.AsOutput(initial))
	if err != nil {
		return nil, fmt.Errorf("request output on line %d: %w", offset, err)
	}
	return l, nil
}

func (c *chardevChip) Probe(offset int) error {
	if _, err := c.chip.LineInfo(offset); err != nil {
		return fmt.Errorf("probe line %d: %w", offset, err)
	}
	return nil
}

func (c *chardevChip) Close() error {
	return c.chip.Close()
}
