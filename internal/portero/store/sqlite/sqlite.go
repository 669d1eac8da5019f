// Package sqlite implements the portero stores on modernc.org/sqlite,
// funnelling all writes through the single-writer db.Worker.
package sqlite

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"

	"github.com/portero-acs/portero/internal/portero/store"
)

// classify wraps retryable SQLite failures with store.ErrTransient so the
// decision engine can tell "retry next tick" apart from "consume and log".
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case 5, 6: // SQLITE_BUSY, SQLITE_LOCKED
			return fmt.Errorf("%s: %w: %v", op, store.ErrTransient, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
