package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Dialect describes the SQL differences Migrate has to care about.
type Dialect struct {
	Name string
	dir  string
	// createTracking creates schema_migrations if missing.
	createTracking string
	// bind renders the n-th (1-based) positional placeholder.
	bind func(n int) string
}

var (
	SQLite = Dialect{
		Name: "sqlite",
		dir:  "migrations/sqlite",
		createTracking: `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_ms INTEGER NOT NULL
);`,
		bind: func(int) string { return "?" },
	}

	Postgres = Dialect{
		Name: "postgres",
		dir:  "migrations/postgres",
		createTracking: `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at_ms BIGINT NOT NULL
);`,
		bind: func(n int) string { return "$" + strconv.Itoa(n) },
	}
)

type migration struct {
	version int
	name    string
	sql     string
}

// Migrate applies every embedded migration for d that is not yet recorded in
// schema_migrations.  Each migration runs in its own transaction.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	if _, err := db.ExecContext(ctx, d.createTracking); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	ms, err := loadMigrations(d)
	if err != nil {
		return err
	}

	for _, m := range ms {
		applied, err := isApplied(ctx, db, d, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		if err := apply(ctx, db, d, m); err != nil {
			return err
		}
	}

	return nil
}

func loadMigrations(d Dialect) ([]migration, error) {
	entries, err := migrationsFS.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", d.dir, err)
	}

	var ms []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		v, err := parseVersion(e.Name()) // e.g. 0001_init.sql -> 1
		if err != nil {
			return nil, err
		}
		b, err := migrationsFS.ReadFile(path.Join(d.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		ms = append(ms, migration{version: v, name: e.Name(), sql: string(b)})
	}

	sort.Slice(ms, func(i, j int) bool { return ms[i].version < ms[j].version })
	return ms, nil
}

func apply(ctx context.Context, db *sql.DB, d Dialect, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply migration %s: %w", m.name, err)
	}

	record := fmt.Sprintf(
		"INSERT INTO schema_migrations(version, applied_at_ms) VALUES(%s, %s);",
		d.bind(1), d.bind(2),
	)
	if _, err := tx.ExecContext(ctx, record, m.version, time.Now().UTC().UnixMilli()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %s: %w", m.name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", m.name, err)
	}
	return nil
}

func isApplied(ctx context.Context, db *sql.DB, d Dialect, version int) (bool, error) {
	var v int
	q := fmt.Sprintf("SELECT version FROM schema_migrations WHERE version = %s;", d.bind(1))
	err := db.QueryRowContext(ctx, q, version).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check migration %d: %w", version, err)
	}
	return true, nil
}

func parseVersion(filename string) (int, error) {
	prefix, _, ok := strings.Cut(filename, "_")
	if !ok {
		return 0, fmt.Errorf("bad migration filename: %s", filename)
	}
	s := strings.TrimLeft(prefix, "0")
	if s == "" {
		s = "0"
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("bad migration version %s: %w", filename, err)
	}
	return v, nil
}
