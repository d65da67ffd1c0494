package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	dbpkg "github.com/IsThatLegal/summit-os-sub000/internal/db"
	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store"
)

type AccessLogStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewAccessLogStore(db *sql.DB, writer *dbpkg.Worker) *AccessLogStore {
	return &AccessLogStore{db: db, writer: writer}
}

func (s *AccessLogStore) Append(ctx context.Context, e store.AccessLogEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var tenantID any
	if e.TenantID != nil {
		tenantID = *e.TenantID
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO access_logs(log_id, tenant_id, action, channel, reason, logged_at_ms)
VALUES (?, ?, ?, ?, ?, ?);
`,
			e.ID, tenantID, string(e.Action), string(e.Channel), e.Reason,
			e.Timestamp.UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("Append insert: %w", err)
		}
		return nil
	})
}

func (s *AccessLogStore) List(ctx context.Context, q store.AccessLogQuery) ([]store.AccessLogEntry, error) {
	var (
		where []string
		args  []any
	)
	if q.TenantID != "" {
		where = append(where, "tenant_id = ?")
		args = append(args, q.TenantID)
	}
	if q.Action != "" {
		where = append(where, "action = ?")
		args = append(args, string(q.Action))
	}
	if !q.Since.IsZero() {
		where = append(where, "logged_at_ms >= ?")
		args = append(args, q.Since.UTC().UnixMilli())
	}

	query := `SELECT log_id, tenant_id, action, channel, reason, logged_at_ms FROM access_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	// rowid breaks ties between entries logged in the same millisecond.
	query += " ORDER BY logged_at_ms DESC, rowid DESC LIMIT ?;"
	args = append(args, q.NormalizedLimit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List query: %w", err)
	}
	defer rows.Close()

	var out []store.AccessLogEntry
	for rows.Next() {
		var (
			e        store.AccessLogEntry
			tenantID sql.NullString
			action   string
			channel  string
			loggedMs int64
		)
		if err := rows.Scan(&e.ID, &tenantID, &action, &channel, &e.Reason, &loggedMs); err != nil {
			return nil, fmt.Errorf("List scan: %w", err)
		}
		if tenantID.Valid {
			id := tenantID.String
			e.TenantID = &id
		}
		e.Action = store.AccessAction(action)
		e.Channel = store.CredentialKind(channel)
		e.Timestamp = time.UnixMilli(loggedMs).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List rows: %w", err)
	}
	return out, nil
}

func (s *AccessLogStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM access_logs WHERE logged_at_ms < ?;`, cutoff.UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("PruneOlderThan delete: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
