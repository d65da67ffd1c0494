package store

import (
	"context"
	"time"
)

type AccessAction string

const (
	ActionEntryGranted AccessAction = "entry_granted"
	ActionEntryDenied  AccessAction = "entry_denied"
)

func (a AccessAction) Valid() bool {
	return a == ActionEntryGranted || a == ActionEntryDenied
}

// AccessLogEntry records a single gate decision.  TenantID is nil when the
// credential matched no tenant.
type AccessLogEntry struct {
	ID        string
	TenantID  *string
	Action    AccessAction
	Channel   CredentialKind
	Reason    string
	Timestamp time.Time
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// AccessLogQuery filters List.  Zero values mean "no filter".
type AccessLogQuery struct {
	TenantID string
	Action   AccessAction
	Since    time.Time
	Limit    int
}

// NormalizedLimit clamps Limit into [1, MaxListLimit].
func (q AccessLogQuery) NormalizedLimit() int {
	switch {
	case q.Limit <= 0:
		return DefaultListLimit
	case q.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return q.Limit
	}
}

// AccessLogStore persists gate decisions as an append-only log.
type AccessLogStore interface {
	Append(ctx context.Context, e AccessLogEntry) error
	// List returns matching entries, newest first.
	List(ctx context.Context, q AccessLogQuery) ([]AccessLogEntry, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pinger is implemented by stores backed by a database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}
