/*
accrual.go - Tuition accrual model

PURPOSE:
  Answers "how much should this student have paid by now?" from just the
  enrollment date, the monthly tuition rate, and an as-of date.

THE 30-DAY PERIOD:
  A billing period is a fixed 30 days, NOT a calendar month. A student
  enrolled 95 days ago has floor(95/30) = 3 elapsed periods. The enrollment
  period itself is always billable, so expected payments = elapsed + 1.
  This drifts against calendar-month billing over long enrollments; it is
  kept deliberately because payment aging is the product requirement here,
  not calendar-accurate invoicing.

EXAMPLE:
  Enrolled 95 days before asOf at $200/month:
    elapsedPeriods   = 3
    expectedPayments = 4
    expectedTotal    = $800
*/
package ar

import (
	"github.com/shopspring/decimal"
)

// PeriodDays is the length of one billing period.
const PeriodDays = 30

// Accrual is the expected-payment position of a single enrollment.
// Derived, never stored.
type Accrual struct {
	ElapsedPeriods   int64
	ExpectedPayments int64
	ExpectedTotal    decimal.Decimal
}

// ComputeAccrual derives the accrual position for an enrollment.
//
// Preconditions: enrolled <= asOf (else ErrInvalidTemporalRange) and
// tuition >= 0 (else ErrInvalidReference). Zero tuition yields a zero
// expected total regardless of elapsed time.
//
// Pure and deterministic: same inputs, same output, no side effects.
func ComputeAccrual(enrolled Date, tuition decimal.Decimal, asOf Date) (Accrual, error) {
	if enrolled.After(asOf) {
		return Accrual{}, &TemporalRangeError{EnrollmentDate: enrolled, AsOf: asOf}
	}
	if tuition.IsNegative() {
		return Accrual{}, &ReferenceError{Field: "tuition", Value: tuition.String()}
	}

	elapsed := int64(DaysBetween(enrolled, asOf) / PeriodDays)
	expectedPayments := elapsed + 1 // the enrollment period is always billable

	return Accrual{
		ElapsedPeriods:   elapsed,
		ExpectedPayments: expectedPayments,
		ExpectedTotal:    tuition.Mul(decimal.NewFromInt(expectedPayments)),
	}, nil
}
