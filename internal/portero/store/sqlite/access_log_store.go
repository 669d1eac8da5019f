package sqlite

import (
	"context"
	"database/sql"
	"time"

	dbpkg "github.com/portero-acs/portero/internal/db"
	"github.com/portero-acs/portero/internal/portero/store"
)

type AccessLogStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccessLogStore(db *sql.DB, writer *dbpkg.Worker) *AccessLogStore {
	return &AccessLogStore{db: db, writer: writer}
}

func (s *AccessLogStore) Record(ctx context.Context, rec store.AccessLogRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	var keyfobID any
	if rec.KeyfobID != nil {
		keyfobID = *rec.KeyfobID
	}
	var granted int
	if rec.Granted {
		granted = 1
	}
	var desc any
	if rec.KeyfobDescription != "" {
		desc = rec.KeyfobDescription
	}

	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO access_logs(ts_ms, uid_attempted, keyfob_id, granted, reason, keyfob_description, door_name)
VALUES (?, ?, ?, ?, ?, ?, ?);
`,
			rec.Timestamp.UTC().UnixMilli(), rec.UIDAttempted, keyfobID,
			granted, rec.Reason, desc, rec.DoorName,
		)
		return err
	})
	return classify("Record access log", err)
}

func (s *AccessLogStore) List(ctx context.Context, limit int) ([]store.AccessLogRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT ts_ms, uid_attempted, keyfob_id, granted, reason, COALESCE(keyfob_description,''), door_name
FROM access_logs ORDER BY ts_ms DESC, id DESC LIMIT ?;
`, limit)
	if err != nil {
		return nil, classify("List access logs", err)
	}
	defer rows.Close()

	var out []store.AccessLogRecord
	for rows.Next() {
		var rec store.AccessLogRecord
		var tsMs int64
		var keyfobID sql.NullInt64
		var granted int
		if err := rows.Scan(&tsMs, &rec.UIDAttempted, &keyfobID, &granted, &rec.Reason, &rec.KeyfobDescription, &rec.DoorName); err != nil {
			return nil, classify("List access logs scan", err)
		}
		rec.Timestamp = time.UnixMilli(tsMs).UTC()
		if keyfobID.Valid {
			id := keyfobID.Int64
			rec.KeyfobID = &id
		}
		rec.Granted = granted != 0
		out = append(out, rec)
	}
	return out, classify("List access logs rows", rows.Err())
}

func (s *AccessLogStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM access_logs WHERE ts_ms < ?;`, cutoff.UTC().UnixMilli())
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, classify("PruneOlderThan", err)
}
