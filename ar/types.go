/*
Package ar implements the accounts-receivable engine for the childcare
center network.

PURPOSE:
  Derives a student's (or a center's) outstanding-balance and payment-aging
  position from enrollment date, tuition rate, and an append-only log of
  discrete payments. Nothing here is stored: every result is recomputed
  fresh against an explicit as-of date, which keeps the engine deterministic
  and trivially testable.

KEY CONCEPTS IN THIS FILE (types.go):
  - Student: enrollment attributes feeding the accrual model
  - PaymentEvent: one immutable entry in the payment ledger
  - Center: capacity + identity for per-center aggregation
  - Setting: string-keyed mutable configuration record

DESIGN PRINCIPLES:
  1. Purity: accrual, position, and aging are pure functions of their
     inputs plus an as-of Date
  2. Precision: decimal.Decimal for all money; rounding happens only at
     the presentation boundary
  3. Append-only: payments are recorded once and never updated or deleted

SEE ALSO:
  - accrual.go:  elapsed-period and expected-total computation
  - position.go: per-student outstanding balance and aging bucket
  - aging.go:    population-level aging report
  - ledger.go:   read interface + append-only payment recording
*/
package ar

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StudentID string
type CenterID string

// CenterAll is the sentinel filter value meaning "no center filter".
const CenterAll CenterID = ""

// =============================================================================
// STUDENT
// =============================================================================

type StudentStatus string

const (
	StatusActive   StudentStatus = "active"
	StatusInactive StudentStatus = "inactive"
)

// Student carries the enrollment attributes the AR engine needs plus the
// administrative fields the REST surface manages.
//
// Invariants: Tuition >= 0; EnrollmentDate <= the as-of date of any
// computation it participates in.
type Student struct {
	ID             StudentID
	FirstName      string
	LastName       string
	Age            int
	Gender         string
	Parent         string
	Contact        string
	Email          string
	CenterID       CenterID
	Tuition        decimal.Decimal // monthly rate
	EnrollmentDate Date
	Status         StudentStatus
}

// Name returns the student's display name.
func (s Student) Name() string {
	return s.FirstName + " " + s.LastName
}

// =============================================================================
// PAYMENT EVENT - One immutable ledger entry
// =============================================================================

type PaymentType string

const (
	PaymentTuition       PaymentType = "tuition"
	PaymentMiscellaneous PaymentType = "miscellaneous"
)

// PaymentEvent records a single payment against a student. Immutable once
// recorded; corrections would be additional events, never edits.
type PaymentEvent struct {
	ID          string
	StudentID   StudentID
	Type        PaymentType
	Amount      decimal.Decimal // always positive
	PaymentDate Date
	MonthFor    string // billing-period label, YYYY-MM of PaymentDate
	Note        string
}

// SumPayments totals payment amounts. All-time cumulative: no date
// filtering, so future-dated payments count too. Order-independent.
func SumPayments(payments []PaymentEvent) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// =============================================================================
// CENTER
// =============================================================================

type Center struct {
	ID       CenterID
	Name     string
	Address  string
	Capacity int
}

// =============================================================================
// SETTING - String-keyed mutable configuration
// =============================================================================

type Setting struct {
	Key         string
	Value       string
	Description string
}
