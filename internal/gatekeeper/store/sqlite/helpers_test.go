package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/IsThatLegal/summit-os-sub000/internal/db"
	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store"
)

// openTestDB returns an in-memory SQLite connection with the production
// PRAGMAs and schema.  Closed when the test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Shared cache keeps the in-memory database alive across pool reconnects.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		name,
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}
	if err := db.Migrate(context.Background(), conn, db.SQLite); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker on conn, closed when the test finishes.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testTenant(id, code, plate string, balance int64, locked bool) store.TenantRecord {
	return store.TenantRecord{
		ID:             id,
		FirstName:      "First-" + id,
		LastName:       "Last",
		Email:          id + "@example.com",
		GateAccessCode: code,
		LicensePlate:   plate,
		CurrentBalance: balance,
		IsLockedOut:    locked,
		CreatedAt:      baseTime,
		UpdatedAt:      baseTime,
	}
}
