package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/IsThatLegal/summit-os-sub000/internal/db"
	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store"
)

const tenantColumns = `tenant_id, first_name, last_name, email, gate_access_code, license_plate,
       current_balance, is_locked_out, created_at_ms, updated_at_ms`

type TenantStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewTenantStore(db *sql.DB, writer *dbpkg.Worker) *TenantStore {
	return &TenantStore{db: db, writer: writer}
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
		`SELECT `+tenantColumns+` FROM tenants WHERE `+column+` = ?;`, credential)
	t, err := scanTenant(row)
	if err != nil {
		return store.TenantRecord{}, wrapFind("FindByCredential", err)
	}
	return t, nil
}

func (s *TenantStore) FindByID(ctx context.Context, id string) (store.TenantRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE tenant_id = ?;`, id)
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

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO tenants(
  tenant_id, first_name, last_name, email, gate_access_code, license_plate,
  current_balance, is_locked_out, created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.ID, rec.FirstName, rec.LastName, rec.Email,
			nullIfEmpty(rec.GateAccessCode), nullIfEmpty(rec.LicensePlate),
			rec.CurrentBalance, boolToInt(rec.IsLockedOut),
			rec.CreatedAt.UTC().UnixMilli(), rec.UpdatedAt.UTC().UnixMilli(),
		); err != nil {
			if mapped := mapConstraint(err); errors.Is(mapped, store.ErrConflict) {
				return mapped
			}
			return fmt.Errorf("Create insert: %w", err)
		}
		return nil
	})
}

func (s *TenantStore) SetLockedOut(ctx context.Context, id string, locked bool, at time.Time) (store.TenantRecord, error) {
	return s.update(ctx, "SetLockedOut", id, `
UPDATE tenants
SET is_locked_out = ?,
    updated_at_ms = ?
WHERE tenant_id = ?;
`, boolToInt(locked), at.UTC().UnixMilli(), id)
}

// AdjustBalance rewrites balance and lock flag in one UPDATE.  SQLite
// evaluates every SET expression against the old row, so the CASE sees the
// pre-update balance and adds delta itself.
func (s *TenantStore) AdjustBalance(ctx context.Context, id string, delta int64, rule store.LockRule, at time.Time) (store.TenantRecord, error) {
	var lockExpr string
	var args []any
	switch rule {
	case store.LockWhenOwing:
		lockExpr = "CASE WHEN current_balance + ? > 0 THEN 1 ELSE 0 END"
		args = append(args, delta)
	case store.UnlockWhenClear:
		lockExpr = "CASE WHEN current_balance + ? <= 0 THEN 0 ELSE is_locked_out END"
		args = append(args, delta)
	default:
		lockExpr = "is_locked_out"
	}

	q := `
UPDATE tenants
SET current_balance = current_balance + ?,
    is_locked_out   = ` + lockExpr + `,
    updated_at_ms   = ?
WHERE tenant_id = ?;
`
	all := append([]any{delta}, args...)
	all = append(all, at.UTC().UnixMilli(), id)
	return s.update(ctx, "AdjustBalance", id, q, all...)
}

// update runs q on the writer and re-reads the row inside the same
// transaction so the caller gets the state it produced.
func (s *TenantStore) update(ctx context.Context, op, id, q string, args ...any) (store.TenantRecord, error) {
	var out store.TenantRecord
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("%s update: %w", op, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("%s rows affected: %w", op, err)
		}
		if n == 0 {
			return store.ErrNotFound
		}

		row := tx.QueryRowContext(ctx,
			`SELECT `+tenantColumns+` FROM tenants WHERE tenant_id = ?;`, id)
		out, err = scanTenant(row)
		if err != nil {
			return fmt.Errorf("%s reload: %w", op, err)
		}
		return nil
	})
	if err != nil {
		return store.TenantRecord{}, err
	}
	return out, nil
}

func scanTenant(row *sql.Row) (store.TenantRecord, error) {
	var (
		t         store.TenantRecord
		code      sql.NullString
		plate     sql.NullString
		locked    int
		createdMs int64
		updatedMs int64
	)
	if err := row.Scan(
		&t.ID, &t.FirstName, &t.LastName, &t.Email, &code, &plate,
		&t.CurrentBalance, &locked, &createdMs, &updatedMs,
	); err != nil {
		return store.TenantRecord{}, err
	}
	t.GateAccessCode = code.String
	t.LicensePlate = plate.String
	t.IsLockedOut = locked == 1
	t.CreatedAt = time.UnixMilli(createdMs).UTC()
	t.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return t, nil
}

func wrapFind(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("%s query: %w", op, err)
}
