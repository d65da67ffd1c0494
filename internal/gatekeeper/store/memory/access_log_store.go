package memory

import (
	"context"
	"sync"
	"time"

	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store"
)

// AccessLogStore is an in-memory append-only log of gate decisions.
// It is intended for use in tests and dev environments.
type AccessLogStore struct {
	mu      sync.Mutex
	entries []store.AccessLogEntry
}

func NewAccessLogStore() *AccessLogStore {
	return &AccessLogStore{}
}

func (s *AccessLogStore) Append(_ context.Context, e store.AccessLogEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *AccessLogStore) List(_ context.Context, q store.AccessLogQuery) ([]store.AccessLogEntry, error) {
	limit := q.NormalizedLimit()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.AccessLogEntry, 0, min(limit, len(s.entries)))
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.entries[i]
		if q.TenantID != "" && (e.TenantID == nil || *e.TenantID != q.TenantID) {
			continue
		}
		if q.Action != "" && e.Action != q.Action {
			continue
		}
		if !q.Since.IsZero() && e.Timestamp.Before(q.Since) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *AccessLogStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	var deleted int64
	for _, e := range s.entries {
		if e.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return deleted, nil
}

// Entries returns a copy of all recorded entries in append order.  Test-only helper.
func (s *AccessLogStore) Entries() []store.AccessLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.AccessLogEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
