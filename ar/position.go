/*
position.go - Per-student AR position and aging bucket

PURPOSE:
  Combines the accrual model with the actual payment ledger to produce one
  student's outstanding balance and its aging classification.

BUCKETS:
  The full outstanding amount lands in exactly one bucket, keyed by how many
  whole tuition-months are unpaid:

    monthsUnpaid 0   -> current
    monthsUnpaid 1   -> days30
    monthsUnpaid 2   -> days60
    monthsUnpaid >=3 -> days90plus

  A fully paid (or overpaid) student has no bucket at all and is excluded
  from aging reports downstream.

ROUNDING:
  All arithmetic here is unrounded decimal. Rounding to 2 places happens
  once, at the API boundary, so aggregation never compounds rounding error.
*/
package ar

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AGING BUCKET
// =============================================================================

type Bucket string

const (
	BucketNone      Bucket = ""
	BucketCurrent   Bucket = "current"
	BucketDays30    Bucket = "days30"
	BucketDays60    Bucket = "days60"
	BucketDays90Pls Bucket = "days90plus"
)

// BucketFor maps months-unpaid to its aging bucket. Total partition:
// every non-negative monthsUnpaid maps to exactly one bucket.
func BucketFor(monthsUnpaid int64) Bucket {
	switch {
	case monthsUnpaid <= 0:
		return BucketCurrent
	case monthsUnpaid == 1:
		return BucketDays30
	case monthsUnpaid == 2:
		return BucketDays60
	default:
		return BucketDays90Pls
	}
}

// =============================================================================
// AR POSITION
// =============================================================================

// Position is one student's accounts-receivable state at an as-of date.
// Derived fresh on every query, never stored.
type Position struct {
	StudentID   StudentID
	StudentName string
	CenterID    CenterID
	Tuition     decimal.Decimal

	Accrual      Accrual
	TotalPaid    decimal.Decimal
	Outstanding  decimal.Decimal // max(0, expected - paid), never negative
	MonthsUnpaid int64
	Bucket       Bucket // BucketNone when Outstanding is zero
}

// ComputePosition derives a student's AR position from their payment history.
//
// totalPaid counts every payment ever recorded for the student, including
// future-dated ones. Overpayment floors outstanding at zero. Zero tuition
// means nothing is ever owed, whatever the ledger says.
func ComputePosition(student Student, payments []PaymentEvent, asOf Date) (Position, error) {
	accrual, err := ComputeAccrual(student.EnrollmentDate, student.Tuition, asOf)
	if err != nil {
		return Position{}, err
	}

	totalPaid := SumPayments(payments)

	outstanding := accrual.ExpectedTotal.Sub(totalPaid)
	if outstanding.IsNegative() {
		outstanding = decimal.Zero
	}

	var monthsUnpaid int64
	if student.Tuition.IsPositive() {
		monthsUnpaid = outstanding.Div(student.Tuition).Floor().IntPart()
	}

	bucket := BucketNone
	if outstanding.IsPositive() {
		bucket = BucketFor(monthsUnpaid)
	}

	return Position{
		StudentID:    student.ID,
		StudentName:  student.Name(),
		CenterID:     student.CenterID,
		Tuition:      student.Tuition,
		Accrual:      accrual,
		TotalPaid:    totalPaid,
		Outstanding:  outstanding,
		MonthsUnpaid: monthsUnpaid,
		Bucket:       bucket,
	}, nil
}
