package types

import "fmt"

// Credential is a decoded identity read from a card: an 8-bit facility
// code and a 16-bit card number.
type Credential struct {
	Facility uint8
	Card     uint16
}

// CombinedID packs facility and card into the single identifier stored
// against keyfobs: facility<<16 | card.
func (c Credential) CombinedID() uint32 {
	return uint32(c.Facility)<<16 | uint32(c.Card)
}

// UID is the combined ID rendered the way keyfob UIDs are stored.
func (c Credential) UID() string {
	return fmt.Sprintf("%d", c.CombinedID())
}
