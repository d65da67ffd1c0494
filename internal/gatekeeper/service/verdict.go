package service

import (
	"fmt"
	"time"

	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store"
)

type Outcome string

const (
	OutcomeGranted  Outcome = "granted"
	OutcomeDenied   Outcome = "denied"
	OutcomeNotFound Outcome = "not_found"
)

// ReasonCode explains a non-granted outcome.  Locked and balance denials need
// different remediation, so they are never collapsed into one code.
type ReasonCode string

const (
	ReasonNone               ReasonCode = ""
	ReasonAccountLocked      ReasonCode = "ACCOUNT_LOCKED"
	ReasonOutstandingBalance ReasonCode = "OUTSTANDING_BALANCE"
	ReasonUnknownCredential  ReasonCode = "UNKNOWN_CREDENTIAL"
)

// Verdict is the result of one gate decision.
type Verdict struct {
	Outcome Outcome
	Reason  ReasonCode
	// Balance is the amount owed in cents; set only for OUTSTANDING_BALANCE.
	Balance    int64
	TenantID   string
	TenantName string
	Channel    store.CredentialKind
	DecidedAt  time.Time
}

func (v Verdict) Granted() bool { return v.Outcome == OutcomeGranted }

// Message is the tenant-facing text for the verdict.
func (v Verdict) Message() string {
	switch v.Reason {
	case ReasonAccountLocked:
		return "Account locked. Please contact management."
	case ReasonOutstandingBalance:
		return fmt.Sprintf("Access denied due to outstanding balance of %s.", FormatCents(v.Balance))
	case ReasonUnknownCredential:
		if v.Channel == store.CredentialLicensePlate {
			return "License plate not recognized."
		}
		return "Invalid access code."
	}
	if v.Granted() {
		return "Access granted."
	}
	return "Access denied."
}

// FormatCents renders an amount in cents as dollars, e.g. 7500 -> "$75.00".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

// evaluate applies the decision table to a tenant snapshot.  Lock-out is
// checked first so a locked tenant always gets the lock reason.
func evaluate(t store.TenantRecord) (Outcome, ReasonCode) {
	if t.IsLockedOut {
		return OutcomeDenied, ReasonAccountLocked
	}
	if t.CurrentBalance > 0 {
		return OutcomeDenied, ReasonOutstandingBalance
	}
	return OutcomeGranted, ReasonNone
}
