package store

import (
	"context"
	"time"
)

// CredentialKind selects which tenant field a credential is matched against.
type CredentialKind string

const (
	CredentialGateCode     CredentialKind = "gate_code"
	CredentialLicensePlate CredentialKind = "license_plate"
)

func (k CredentialKind) Valid() bool {
	return k == CredentialGateCode || k == CredentialLicensePlate
}

// TenantRecord is the subset of tenant state the gate cares about.  Balance
// and lock flag are always read from the same row so a decision never sees a
// torn account.
type TenantRecord struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	GateAccessCode string
	LicensePlate   string
	CurrentBalance int64 // cents; positive means money owed
	IsLockedOut    bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LockRule controls how AdjustBalance rewrites the lock flag.
type LockRule int

const (
	// LockUnchanged leaves is_locked_out alone.
	LockUnchanged LockRule = iota
	// LockWhenOwing sets is_locked_out = (new balance > 0).
	LockWhenOwing
	// UnlockWhenClear clears is_locked_out when the new balance is <= 0 and
	// otherwise leaves it alone.
	UnlockWhenClear
)

// Apply returns the lock flag that results from moving to newBalance.
func (r LockRule) Apply(newBalance int64, locked bool) bool {
	switch r {
	case LockWhenOwing:
		return newBalance > 0
	case UnlockWhenClear:
		if newBalance <= 0 {
			return false
		}
	}
	return locked
}

type TenantStore interface {
	FindByCredential(ctx context.Context, kind CredentialKind, credential string) (TenantRecord, error)
	FindByID(ctx context.Context, id string) (TenantRecord, error)
	Create(ctx context.Context, rec TenantRecord) error
	SetLockedOut(ctx context.Context, id string, locked bool, at time.Time) (TenantRecord, error)
	// AdjustBalance adds delta to the balance and applies rule to the lock
	// flag in one atomic step.
	AdjustBalance(ctx context.Context, id string, delta int64, rule LockRule, at time.Time) (TenantRecord, error)
}
