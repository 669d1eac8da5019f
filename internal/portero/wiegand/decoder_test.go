package wiegand

import (
	"errors"
	"testing"
)

// encodeFrame builds a well-formed 26-bit frame for fc/cn with correct
// parity bits.
func encodeFrame(fc uint8, cn uint16) []uint8 {
	bits := make([]uint8, FrameBits)
	for i := 0; i < 8; i++ {
		bits[1+i] = uint8(fc>>(7-i)) & 1
	}
	for i := 0; i < 16; i++ {
		bits[9+i] = uint8(cn>>(15-i)) & 1
	}
	bits[0] = uint8(ones(bits[1:13]) % 2)
	bits[25] = 1 - uint8(ones(bits[13:25])%2)
	return bits
}

func TestDecode_KnownFrame(t *testing.T) {
	// fc=1, cn=1:
	// even parity region has one set bit -> bit 0 = 1
	// odd parity region has one set bit -> bit 25 = 0
	bits := []uint8{
		1,
		0, 0, 0, 0, 0, 0, 0, 1,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1,
		0,
	}
	cred, parity, err := Decode(bits)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !parity.OK() {
		t.Fatalf("parity = %+v, want both OK", parity)
	}
	if cred.Facility != 1 || cred.Card != 1 {
		t.Fatalf("got fc=%d cn=%d, want fc=1 cn=1", cred.Facility, cred.Card)
	}
	if got, want := cred.CombinedID(), uint32(1<<16|1); got != want {
		t.Fatalf("CombinedID = %d, want %d", got, want)
	}
	if got, want := cred.UID(), "65537"; got != want {
		t.Fatalf("UID = %q, want %q", got, want)
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	cases := []struct {
		fc uint8
		cn uint16
	}{
		{0, 0},
		{1, 1},
		{42, 12345},
		{255, 65535},
		{128, 1},
	}
	for _, tc := range cases {
		cred, parity, err := Decode(encodeFrame(tc.fc, tc.cn))
		if err != nil {
			t.Fatalf("fc=%d cn=%d: Decode: %v", tc.fc, tc.cn, err)
		}
		if !parity.OK() {
			t.Fatalf("fc=%d cn=%d: parity = %+v, want both OK", tc.fc, tc.cn, parity)
		}
		if cred.Facility != tc.fc || cred.Card != tc.cn {
			t.Fatalf("got fc=%d cn=%d, want fc=%d cn=%d", cred.Facility, cred.Card, tc.fc, tc.cn)
		}
	}
}

func TestDecode_WrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 25, 27, 34} {
		_, _, err := Decode(make([]uint8, n))
		if !errors.Is(err, ErrFrameLength) {
			t.Fatalf("len=%d: err = %v, want ErrFrameLength", n, err)
		}
	}
}

func TestDecode_BadParityStillExtracts(t *testing.T) {
	bits := encodeFrame(42, 12345)
	bits[0] ^= 1  // corrupt even parity
	bits[25] ^= 1 // corrupt odd parity

	cred, parity, err := Decode(bits)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if parity.EvenOK || parity.OddOK {
		t.Fatalf("parity = %+v, want both failed", parity)
	}
	if cred.Facility != 42 || cred.Card != 12345 {
		t.Fatalf("got fc=%d cn=%d, want fields extracted despite parity failure", cred.Facility, cred.Card)
	}
}
