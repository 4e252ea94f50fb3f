/*
aging.go - Population-level aging report

PURPOSE:
  Runs the per-student AR position over a population and aggregates into
  the aging report the back office works from: one row per student with a
  balance, sorted worst-first, plus per-bucket totals.

SHAPE:
  - Population filtered to active students, optionally one center
  - Zero-outstanding rows discarded (nothing owed, nothing to chase)
  - Descending by outstanding so the highest-risk accounts surface first;
    ties keep input order (stable sort)
  - Totals are exact element-wise sums of the retained rows

FAILURE MODE:
  Batch-or-nothing. A single student failing computation aborts the whole
  report; partial totals would present a misleading snapshot.
*/
package ar

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REPORT TYPES
// =============================================================================

// AgingRow is one indebted student in the aging report. The outstanding
// amount appears in full in exactly one of the four bucket columns.
type AgingRow struct {
	StudentID   StudentID
	StudentName string
	CenterID    CenterID

	Outstanding decimal.Decimal
	Current     decimal.Decimal
	Days30      decimal.Decimal
	Days60      decimal.Decimal
	Days90Plus  decimal.Decimal
}

// AgingTotals is the element-wise sum across all retained rows.
type AgingTotals struct {
	Outstanding decimal.Decimal
	Current     decimal.Decimal
	Days30      decimal.Decimal
	Days60      decimal.Decimal
	Days90Plus  decimal.Decimal
}

type AgingReport struct {
	Rows   []AgingRow
	Totals AgingTotals
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// BuildAgingReport computes the aging report for a student population.
//
// paymentsByStudent must hold the full payment history for every student in
// the population (a missing key simply means no payments). centerFilter of
// CenterAll disables center filtering.
func BuildAgingReport(students []Student, paymentsByStudent map[StudentID][]PaymentEvent, asOf Date, centerFilter CenterID) (AgingReport, error) {
	report := AgingReport{
		Totals: AgingTotals{
			Outstanding: decimal.Zero,
			Current:     decimal.Zero,
			Days30:      decimal.Zero,
			Days60:      decimal.Zero,
			Days90Plus:  decimal.Zero,
		},
	}

	for _, student := range students {
		if student.Status != StatusActive {
			continue
		}
		if centerFilter != CenterAll && student.CenterID != centerFilter {
			continue
		}

		pos, err := ComputePosition(student, paymentsByStudent[student.ID], asOf)
		if err != nil {
			// Batch-or-nothing: one bad student invalidates the snapshot.
			return AgingReport{}, fmt.Errorf("student %s: %w", student.ID, err)
		}
		if !pos.Outstanding.IsPositive() {
			continue
		}

		report.Rows = append(report.Rows, rowFromPosition(pos))
	}

	// Worst-first; stable keeps input order on ties.
	sort.SliceStable(report.Rows, func(i, j int) bool {
		return report.Rows[i].Outstanding.GreaterThan(report.Rows[j].Outstanding)
	})

	for _, row := range report.Rows {
		report.Totals.Outstanding = report.Totals.Outstanding.Add(row.Outstanding)
		report.Totals.Current = report.Totals.Current.Add(row.Current)
		report.Totals.Days30 = report.Totals.Days30.Add(row.Days30)
		report.Totals.Days60 = report.Totals.Days60.Add(row.Days60)
		report.Totals.Days90Plus = report.Totals.Days90Plus.Add(row.Days90Plus)
	}

	return report, nil
}

// rowFromPosition spreads the outstanding amount into its single bucket
// column. Positions with no bucket never reach here.
func rowFromPosition(pos Position) AgingRow {
	row := AgingRow{
		StudentID:   pos.StudentID,
		StudentName: pos.StudentName,
		CenterID:    pos.CenterID,
		Outstanding: pos.Outstanding,
		Current:     decimal.Zero,
		Days30:      decimal.Zero,
		Days60:      decimal.Zero,
		Days90Plus:  decimal.Zero,
	}

	switch pos.Bucket {
	case BucketCurrent:
		row.Current = pos.Outstanding
	case BucketDays30:
		row.Days30 = pos.Outstanding
	case BucketDays60:
		row.Days60 = pos.Outstanding
	case BucketDays90Pls:
		row.Days90Plus = pos.Outstanding
	}

	return row
}
