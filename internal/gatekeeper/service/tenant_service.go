package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store"
)

var (
	ErrInvalidTenant = errors.New("invalid tenant")
	ErrInvalidAmount = errors.New("amount_cents must be positive")
)

// NewTenant is the input to TenantService.Create.
type NewTenant struct {
	FirstName      string
	LastName       string
	Email          string
	GateAccessCode string
	LicensePlate   string
	OpeningBalance int64
	LockedOut      bool
}

// TenantService holds the billing and admin actions that change a tenant's
// balance or lock flag.  The access decision only ever reads that state.
type TenantService struct {
	tenants store.TenantStore
	logger  *zap.Logger
	now     func() time.Time
}

func NewTenantService(tenants store.TenantStore, logger *zap.Logger) *TenantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TenantService{
		tenants: tenants,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create provisions a tenant.  An account opened with money owed starts
// locked out.
func (s *TenantService) Create(ctx context.Context, in NewTenant) (store.TenantRecord, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.GateAccessCode = strings.TrimSpace(in.GateAccessCode)
	in.LicensePlate = strings.TrimSpace(in.LicensePlate)

	if in.FirstName == "" {
		return store.TenantRecord{}, fmt.Errorf("%w: first_name is required", ErrInvalidTenant)
	}
	if in.GateAccessCode == "" && in.LicensePlate == "" {
		return store.TenantRecord{}, fmt.Errorf("%w: gate_access_code or license_plate is required", ErrInvalidTenant)
	}
	for name, v := range map[string]string{"gate_access_code": in.GateAccessCode, "license_plate": in.LicensePlate} {
		if utf8.RuneCountInString(v) > MaxCredentialLength {
			return store.TenantRecord{}, fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidTenant, name, MaxCredentialLength)
		}
	}

	now := s.now()
	rec := store.TenantRecord{
		ID:             uuid.NewString(),
		FirstName:      in.FirstName,
		LastName:       strings.TrimSpace(in.LastName),
		Email:          strings.TrimSpace(in.Email),
		GateAccessCode: in.GateAccessCode,
		LicensePlate:   in.LicensePlate,
		CurrentBalance: in.OpeningBalance,
		IsLockedOut:    in.LockedOut || in.OpeningBalance > 0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.tenants.Create(ctx, rec); err != nil {
		return store.TenantRecord{}, err
	}

	s.logger.Info("tenant created", zap.String("tenant_id", rec.ID), zap.Bool("locked_out", rec.IsLockedOut))
	return rec, nil
}

// checkID rejects ids that cannot name a tenant.  Ids are UUIDs, and a
// malformed one is reported as not found rather than reaching the store.
func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return store.ErrNotFound
	}
	return nil
}

func (s *TenantService) Get(ctx context.Context, id string) (store.TenantRecord, error) {
	if err := checkID(id); err != nil {
		return store.TenantRecord{}, err
	}
	return s.tenants.FindByID(ctx, id)
}

func (s *TenantService) Lock(ctx context.Context, id string) (store.TenantRecord, error) {
	return s.setLocked(ctx, id, true)
}

func (s *TenantService) Unlock(ctx context.Context, id string) (store.TenantRecord, error) {
	return s.setLocked(ctx, id, false)
}

func (s *TenantService) setLocked(ctx context.Context, id string, locked bool) (store.TenantRecord, error) {
	if err := checkID(id); err != nil {
		return store.TenantRecord{}, err
	}
	t, err := s.tenants.SetLockedOut(ctx, id, locked, s.now())
	if err != nil {
		return store.TenantRecord{}, err
	}
	s.logger.Info("tenant lock changed", zap.String("tenant_id", id), zap.Bool("locked_out", locked))
	return t, nil
}

// Charge adds amountCents to the balance.  The lock flag follows the new
// balance: owing locks, clear unlocks.
func (s *TenantService) Charge(ctx context.Context, id string, amountCents int64) (store.TenantRecord, error) {
	if err := checkID(id); err != nil {
		return store.TenantRecord{}, err
	}
	if amountCents <= 0 {
		return store.TenantRecord{}, ErrInvalidAmount
	}
	t, err := s.tenants.AdjustBalance(ctx, id, amountCents, store.LockWhenOwing, s.now())
	if err != nil {
		return store.TenantRecord{}, err
	}
	s.logger.Info("tenant charged",
		zap.String("tenant_id", id),
		zap.Int64("amount_cents", amountCents),
		zap.Int64("balance_cents", t.CurrentBalance),
		zap.Bool("locked_out", t.IsLockedOut),
	)
	return t, nil
}

// RecordPayment subtracts amountCents from the balance and unlocks the
// account once nothing is owed.  A payment that leaves a balance does not
// touch the lock flag.
func (s *TenantService) RecordPayment(ctx context.Context, id string, amountCents int64) (store.TenantRecord, error) {
	if err := checkID(id); err != nil {
		return store.TenantRecord{}, err
	}
	if amountCents <= 0 {
		return store.TenantRecord{}, ErrInvalidAmount
	}
	t, err := s.tenants.AdjustBalance(ctx, id, -amountCents, store.UnlockWhenClear, s.now())
	if err != nil {
		return store.TenantRecord{}, err
	}
	s.logger.Info("tenant payment recorded",
		zap.String("tenant_id", id),
		zap.Int64("amount_cents", amountCents),
		zap.Int64("balance_cents", t.CurrentBalance),
		zap.Bool("locked_out", t.IsLockedOut),
	)
	return t, nil
}
