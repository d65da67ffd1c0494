// Package postgres implements the gatekeeper stores on Postgres through
// lib/pq.  Unlike the SQLite stores there is no single-writer worker; Postgres
// handles concurrent writers itself.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store"
)

const tenantColumns = `tenant_id, first_name, last_name, email, gate_access_code, license_plate,
       current_balance, is_locked_out, created_at, updated_at`

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation pq.ErrorCode = "23505"

type TenantStore struct {
	db *sql.DB
}

func NewTenantStore(db *sql.DB) *TenantStore {
	return &TenantStore{db: db}
}

func (s *TenantStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *TenantStore) FindByCredential(ctx context.Context, kind store.CredentialKind, credential string) (store.TenantRecord, error) {
	var column string
	switch kind {
	case store.CredentialGateCode:
		column = "gate_access_code"
	case store.CredentialLicensePlate:
		column = "license_plate"
	default:
		return store.TenantRecord{}, fmt.Errorf("FindByCredential: unsupported kind %q", kind)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE `+column+` = $1`, credential)
	t, err := scanTenant(row)
	if err != nil {
		return store.TenantRecord{}, wrapFind("FindByCredential", err)
	}
	return t, nil
}

// tenant_id is a uuid column; anything else would fail the cast (22P02)
// instead of matching no row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *TenantStore) FindByID(ctx context.Context, id string) (store.TenantRecord, error) {
	if !validID(id) {
		return store.TenantRecord{}, store.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE tenant_id = $1`, id)
	t, err := scanTenant(row)
	if err != nil {
		return store.TenantRecord{}, wrapFind("FindByID", err)
	}
	return t, nil
}

func (s *TenantStore) Create(ctx context.Context, rec store.TenantRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO tenants(
  tenant_id, first_name, last_name, email, gate_access_code, license_plate,
  current_balance, is_locked_out, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.ID, rec.FirstName, rec.LastName, rec.Email,
		nullIfEmpty(rec.GateAccessCode), nullIfEmpty(rec.LicensePlate),
		rec.CurrentBalance, rec.IsLockedOut, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return store.ErrConflict
		}
		return fmt.Errorf("Create insert: %w", err)
	}
	return nil
}

func (s *TenantStore) SetLockedOut(ctx context.Context, id string, locked bool, at time.Time) (store.TenantRecord, error) {
	if !validID(id) {
		return store.TenantRecord{}, store.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
UPDATE tenants
SET is_locked_out = $1,
    updated_at    = $2
WHERE tenant_id = $3
RETURNING `+tenantColumns, locked, at.UTC(), id)
	t, err := scanTenant(row)
	if err != nil {
		return store.TenantRecord{}, wrapFind("SetLockedOut", err)
	}
	return t, nil
}

// AdjustBalance relies on SET expressions seeing the pre-update row, so the
// lock CASE recomputes the new balance from current_balance + delta.
func (s *TenantStore) AdjustBalance(ctx context.Context, id string, delta int64, rule store.LockRule, at time.Time) (store.TenantRecord, error) {
	if !validID(id) {
		return store.TenantRecord{}, store.ErrNotFound
	}
	lockExpr := "is_locked_out"
	switch rule {
	case store.LockWhenOwing:
		lockExpr = "(current_balance + $1) > 0"
	case store.UnlockWhenClear:
		lockExpr = "CASE WHEN current_balance + $1 <= 0 THEN FALSE ELSE is_locked_out END"
	}

	row := s.db.QueryRowContext(ctx, `
UPDATE tenants
SET current_balance = current_balance + $1,
    is_locked_out   = `+lockExpr+`,
    updated_at      = $2
WHERE tenant_id = $3
RETURNING `+tenantColumns, delta, at.UTC(), id)
	t, err := scanTenant(row)
	if err != nil {
		return store.TenantRecord{}, wrapFind("AdjustBalance", err)
	}
	return t, nil
}

func scanTenant(row *sql.Row) (store.TenantRecord, error) {
	var (
		t     store.TenantRecord
		code  sql.NullString
		plate sql.NullString
	)
	if err := row.Scan(
		&t.ID, &t.FirstName, &t.LastName, &t.Email, &code, &plate,
		&t.CurrentBalance, &t.IsLockedOut, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return store.TenantRecord{}, err
	}
	t.GateAccessCode = code.String
	t.LicensePlate = plate.String
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func wrapFind(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("%s query: %w", op, err)
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
