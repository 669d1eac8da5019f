package sqlite

import (
	"context"
	"database/sql"

	"github.com/portero-acs/portero/internal/portero/store"
)

type KeyfobStore struct {
	db *sql.DB
}

func NewKeyfobStore(db *sql.DB) *KeyfobStore {
	return &KeyfobStore{db: db}
}

func (s *KeyfobStore) FindByUID(ctx context.Context, uid string) (*store.Keyfob, error) {
	// uid is COLLATE NOCASE in the schema, so = is case-insensitive.
	row := s.db.QueryRowContext(ctx, `
SELECT id, uid, COALESCE(owner_name,''), COALESCE(floor,''), COALESCE(apartment,''),
       is_active, schedule_enabled,
       COALESCE(activation_days,''), COALESCE(activation_start,''), COALESCE(activation_end,'')
FROM keyfobs WHERE uid = ?;
`, uid)

	var k store.Keyfob
	var active, scheduled int
	err := row.Scan(
		&k.ID, &k.UID, &k.OwnerName, &k.Floor, &k.Apartment,
		&active, &scheduled,
		&k.ActivationDays, &k.ActivationStart, &k.ActivationEnd,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify("FindByUID", err)
	}
	k.Active = active != 0
	k.ScheduleEnabled = scheduled != 0
	return &k, nil
}
