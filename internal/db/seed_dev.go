package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store"
)

// DevTenants are the fixed accounts created by SeedDev: one in good standing,
// one owing $75.00 and one locked with a zero balance.
func DevTenants(now time.Time) []store.TenantRecord {
	return []store.TenantRecord{
		{
			ID:             "7d1c2a9e-5b0f-4f43-9a51-0c8f7f4d1a01",
			FirstName:      "Dana",
			LastName:       "Paid",
			GateAccessCode: "ABC123",
			LicensePlate:   "PAID001",
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		{
			ID:             "7d1c2a9e-5b0f-4f43-9a51-0c8f7f4d1a02",
			FirstName:      "Owen",
			LastName:       "Owing",
			GateAccessCode: "XYZ999",
			LicensePlate:   "OWE7500",
			CurrentBalance: 7500,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		{
			ID:             "7d1c2a9e-5b0f-4f43-9a51-0c8f7f4d1a03",
			FirstName:      "Lee",
			LastName:       "Locked",
			GateAccessCode: "LOCKED1",
			LicensePlate:   "LOCK001",
			IsLockedOut:    true,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}
}

// SeedDev inserts DevTenants through ts.  Already-present tenants are left as
// they are, so it can run on every dev start.
func SeedDev(ctx context.Context, ts store.TenantStore) error {
	for _, t := range DevTenants(time.Now().UTC()) {
		if err := ts.Create(ctx, t); err != nil && !errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("seed tenant %s: %w", t.GateAccessCode, err)
		}
	}
	return nil
}
