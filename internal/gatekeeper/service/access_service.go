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
	"github.com/IsThatLegal/summit-os-sub000/internal/metrics"
)

// MaxCredentialLength is the longest gate code or plate accepted, in characters.
const MaxCredentialLength = 50

const defaultLogWriteTimeout = 2 * time.Second

var (
	ErrInvalidCredential         = errors.New("credential is required")
	ErrCredentialTooLong         = fmt.Errorf("credential exceeds %d characters", MaxCredentialLength)
	ErrUnsupportedCredentialKind = errors.New("unsupported credential kind")
	// ErrLookupFailed means the tenant store could not answer.  It is never
	// reported as an unknown credential.
	ErrLookupFailed = errors.New("tenant lookup failed")
)

type AccessConfig struct {
	// LogWriteTimeout bounds the access-log write.  Defaults to 2s.
	LogWriteTimeout time.Duration
	Logger          *zap.Logger
	Metrics         *metrics.Metrics
	Now             func() time.Time
	NewID           func() string
}

// AccessService decides gate access for a presented credential and appends
// one access-log entry per decision.  It never modifies tenant state.
type AccessService struct {
	tenants    store.TenantStore
	logs       store.AccessLogStore
	logTimeout time.Duration
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	newID      func() string
}

func NewAccessService(tenants store.TenantStore, logs store.AccessLogStore, cfg AccessConfig) *AccessService {
	s := &AccessService{
		tenants:    tenants,
		logs:       logs,
		logTimeout: cfg.LogWriteTimeout,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		now:        cfg.Now,
		newID:      cfg.NewID,
	}
	if s.logTimeout <= 0 {
		s.logTimeout = defaultLogWriteTimeout
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s
}

// Decide resolves credential against the tenant field selected by kind and
// applies the access rules.  Validation errors and lookup failures return an
// error; every other path returns a verdict and writes exactly one log entry.
func (s *AccessService) Decide(ctx context.Context, kind store.CredentialKind, credential string) (Verdict, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveDecideLatency(time.Since(start)) }()

	if !kind.Valid() {
		return Verdict{}, ErrUnsupportedCredentialKind
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return Verdict{}, ErrInvalidCredential
	}
	if utf8.RuneCountInString(credential) > MaxCredentialLength {
		return Verdict{}, ErrCredentialTooLong
	}

	tenant, err := s.tenants.FindByCredential(ctx, kind, credential)
	switch {
	case errors.Is(err, store.ErrNotFound):
		v := Verdict{
			Outcome:   OutcomeNotFound,
			Reason:    ReasonUnknownCredential,
			Channel:   kind,
			DecidedAt: s.now(),
		}
		s.record(ctx, v)
		return v, nil
	case err != nil:
		s.metrics.IncrementLookupFailure()
		s.logger.Error("tenant lookup failed",
			zap.String("channel", string(kind)),
			zap.Error(err),
		)
		return Verdict{}, fmt.Errorf("%w: %w", ErrLookupFailed, err)
	}

	outcome, reason := evaluate(tenant)
	v := Verdict{
		Outcome:    outcome,
		Reason:     reason,
		TenantID:   tenant.ID,
		TenantName: tenant.FirstName,
		Channel:    kind,
		DecidedAt:  s.now(),
	}
	if reason == ReasonOutstandingBalance {
		v.Balance = tenant.CurrentBalance
	}

	s.record(ctx, v)
	return v, nil
}

// record appends the log entry for v.  Failures are logged and counted but
// never reach the caller; the verdict stands either way.
func (s *AccessService) record(ctx context.Context, v Verdict) {
	s.metrics.IncrementDecision(string(v.Channel), string(v.Outcome), string(v.Reason))

	entry := store.AccessLogEntry{
		ID:        s.newID(),
		Action:    store.ActionEntryDenied,
		Channel:   v.Channel,
		Reason:    string(v.Reason),
		Timestamp: v.DecidedAt,
	}
	if v.Granted() {
		entry.Action = store.ActionEntryGranted
	}
	if v.TenantID != "" {
		id := v.TenantID
		entry.TenantID = &id
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.logTimeout)
	defer cancel()

	if err := s.logs.Append(writeCtx, entry); err != nil {
		s.metrics.IncrementLogWriteFailure()
		s.logger.Warn("access log write failed",
			zap.String("log_id", entry.ID),
			zap.String("action", string(entry.Action)),
			zap.String("channel", string(entry.Channel)),
			zap.Stringp("tenant_id", entry.TenantID),
			zap.Error(err),
		)
	}
}
