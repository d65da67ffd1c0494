package memory

import (
	"context"
	"sync"
	"time"

	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store"
)

// TenantStore keeps tenants in a map keyed by id.  Credential lookups scan
// the map; it is meant for tests and dev runs, not large tenant counts.
type TenantStore struct {
	mu      sync.RWMutex
	tenants map[string]store.TenantRecord
}

func NewTenantStore(seed ...store.TenantRecord) *TenantStore {
	s := &TenantStore{tenants: make(map[string]store.TenantRecord, len(seed))}
	for _, t := range seed {
		s.tenants[t.ID] = t
	}
	return s
}

func (s *TenantStore) FindByCredential(_ context.Context, kind store.CredentialKind, credential string) (store.TenantRecord, error) {
	if credential == "" {
		return store.TenantRecord{}, store.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tenants {
		if credentialOf(t, kind) == credential {
			return t, nil
		}
	}
	return store.TenantRecord{}, store.ErrNotFound
}

func (s *TenantStore) FindByID(_ context.Context, id string) (store.TenantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return store.TenantRecord{}, store.ErrNotFound
	}
	return t, nil
}

func (s *TenantStore) Create(_ context.Context, rec store.TenantRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[rec.ID]; ok {
		return store.ErrConflict
	}
	for _, t := range s.tenants {
		if rec.GateAccessCode != "" && t.GateAccessCode == rec.GateAccessCode {
			return store.ErrConflict
		}
		if rec.LicensePlate != "" && t.LicensePlate == rec.LicensePlate {
			return store.ErrConflict
		}
	}
	s.tenants[rec.ID] = rec
	return nil
}

func (s *TenantStore) SetLockedOut(_ context.Context, id string, locked bool, at time.Time) (store.TenantRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return store.TenantRecord{}, store.ErrNotFound
	}
	t.IsLockedOut = locked
	t.UpdatedAt = at
	s.tenants[id] = t
	return t, nil
}

func (s *TenantStore) AdjustBalance(_ context.Context, id string, delta int64, rule store.LockRule, at time.Time) (store.TenantRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return store.TenantRecord{}, store.ErrNotFound
	}
	t.CurrentBalance += delta
	t.IsLockedOut = rule.Apply(t.CurrentBalance, t.IsLockedOut)
	t.UpdatedAt = at
	s.tenants[id] = t
	return t, nil
}

func credentialOf(t store.TenantRecord, kind store.CredentialKind) string {
	switch kind {
	case store.CredentialGateCode:
		return t.GateAccessCode
	case store.CredentialLicensePlate:
		return t.LicensePlate
	default:
		return ""
	}
}
