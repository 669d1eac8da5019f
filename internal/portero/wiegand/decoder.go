package wiegand

import (
	"errors"
	"fmt"

	"github.com/portero-acs/portero/internal/portero/types"
)

// FrameBits is the fixed length of the 26-bit Wiegand format: one even
// parity bit, 8 facility bits, 16 card bits, one odd parity bit.
const FrameBits = 26

// overflowSlack caps the shared bit buffer at FrameBits+overflowSlack to
// guard against a jammed line flooding the capture path.
const overflowSlack = 8

var ErrFrameLength = errors.New("wiegand: frame length mismatch")

// Parity reports the two parity checks of a frame.  A failed check does
// not prevent field extraction; callers decide what to do with it (today:
// log a warning and proceed).
type Parity struct {
	EvenOK bool // bit 0 over bits 1..12
	OddOK  bool // bit 25 over bits 13..24
}

func (p Parity) OK() bool { return p.EvenOK && p.OddOK }

// Decode validates and extracts a credential from a delimited bit
// sequence.  Length mismatches reject the frame; parity failures are
// reported but do not block extraction.
func Decode(bits []uint8) (types.Credential, Parity, error) {
	if len(bits) != FrameBits {
		return types.Credential{}, Parity{}, fmt.Errorf("%w: got %d bits, want %d", ErrFrameLength, len(bits), FrameBits)
	}

	p := Parity{
		EvenOK: ones(bits[1:13])%2 == int(bits[0]),
		OddOK:  ones(bits[13:25])%2 != int(bits[25]),
	}

	var fc uint8
	for _, b := range bits[1:9] {
		fc = fc<<1 | b
	}
	var cn uint16
	for _, b := range bits[9:25] {
		cn = cn<<1 | uint16(b)
	}

	return types.Credential{Facility: fc, Card: cn}, p, nil
}

func ones(bits []uint8) int {
	n := 0
	for _, b := range bits {
		n += int(b)
	}
	return n
}
