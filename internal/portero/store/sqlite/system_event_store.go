package sqlite

import (
	"context"
	"database/sql"
	"time"

	dbpkg "github.com/portero-acs/portero/internal/db"
	"github.com/portero-acs/portero/internal/portero/store"
)

type SystemEventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewSystemEventStore(db *sql.DB, writer *dbpkg.Worker) *SystemEventStore {
	return &SystemEventStore{db: db, writer: writer}
}

func (s *SystemEventStore) Record(ctx context.Context, rec store.SystemEventRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO system_events(ts_ms, level, event_type, message) VALUES (?, ?, ?, ?);
`,
			rec.Timestamp.UTC().UnixMilli(), rec.Level, rec.EventType, rec.Message,
		)
		return err
	})
	return classify("Record system event", err)
}

func (s *SystemEventStore) List(ctx context.Context, limit int) ([]store.SystemEventRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT ts_ms, level, event_type, COALESCE(message,'')
FROM system_events ORDER BY ts_ms DESC, id DESC LIMIT ?;
`, limit)
	if err != nil {
		return nil, classify("List system events", err)
	}
	defer rows.Close()

	var out []store.SystemEventRecord
	for rows.Next() {
		var rec store.SystemEventRecord
		var tsMs int64
		if err := rows.Scan(&tsMs, &rec.Level, &rec.EventType, &rec.Message); err != nil {
			return nil, classify("List system events scan", err)
		}
		rec.Timestamp = time.UnixMilli(tsMs).UTC()
		out = append(out, rec)
	}
	return out, classify("List system events rows", rows.Err())
}
