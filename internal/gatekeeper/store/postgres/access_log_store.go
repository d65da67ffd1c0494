package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store"
)

type AccessLogStore struct {
	db *sql.DB
}

func NewAccessLogStore(db *sql.DB) *AccessLogStore {
	return &AccessLogStore{db: db}
}

func (s *AccessLogStore) Append(ctx context.Context, e store.AccessLogEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var tenantID any
	if e.TenantID != nil {
		tenantID = *e.TenantID
	}

	if _, err := s.db.ExecContext(ctx, `
INSERT INTO access_logs(log_id, tenant_id, action, channel, reason, logged_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, tenantID, string(e.Action), string(e.Channel), e.Reason, e.Timestamp.UTC(),
	); err != nil {
		return fmt.Errorf("Append insert: %w", err)
	}
	return nil
}

func (s *AccessLogStore) List(ctx context.Context, q store.AccessLogQuery) ([]store.AccessLogEntry, error) {
	if q.TenantID != "" && !validID(q.TenantID) {
		return []store.AccessLogEntry{}, nil
	}
	var (
		where []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if q.TenantID != "" {
		where = append(where, "tenant_id = "+next(q.TenantID))
	}
	if q.Action != "" {
		where = append(where, "action = "+next(string(q.Action)))
	}
	if !q.Since.IsZero() {
		where = append(where, "logged_at >= "+next(q.Since.UTC()))
	}

	query := `SELECT log_id, tenant_id, action, channel, reason, logged_at FROM access_logs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY logged_at DESC LIMIT " + next(q.NormalizedLimit())

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
		)
		if err := rows.Scan(&e.ID, &tenantID, &action, &channel, &e.Reason, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("List scan: %w", err)
		}
		if tenantID.Valid {
			id := tenantID.String
			e.TenantID = &id
		}
		e.Action = store.AccessAction(action)
		e.Channel = store.CredentialKind(channel)
		e.Timestamp = e.Timestamp.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List rows: %w", err)
	}
	return out, nil
}

func (s *AccessLogStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM access_logs WHERE logged_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("PruneOlderThan delete: %w", err)
	}
	return res.RowsAffected()
}
