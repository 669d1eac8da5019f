package sqlite

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	dbpkg "github.com/portero-acs/portero/internal/db"
)

// openTestDB opens a migrated in-memory database on a single connection,
// mirroring the production open path.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := dbpkg.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestWriter(t *testing.T, db *sql.DB) *dbpkg.Worker {
	t.Helper()
	w := dbpkg.NewWorker(db)
	t.Cleanup(w.Close)
	return w
}

func insertKeyfob(t *testing.T, db *sql.DB, uid, owner string, active bool) int64 {
	t.Helper()
	activeInt := 0
	if active {
		activeInt = 1
	}
	res, err := db.Exec(`
INSERT INTO keyfobs(uid, owner_name, is_active, schedule_enabled, created_at_ms)
VALUES (?, ?, ?, 0, 0);
`, uid, owner, activeInt)
	if err != nil {
		t.Fatalf("insert keyfob: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}
	return id
}
