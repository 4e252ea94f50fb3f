/*
ledger.go - Ledger reader and append-only payment recording

PURPOSE:
  LedgerReader is the read interface the AR computations consume: enrollment
  attributes plus the payment events recorded against a student. It is
  deliberately narrow so report code cannot accidentally mutate anything.

  PaymentLedger is the single write path. It validates the event, derives
  the billing-period label, and appends. There is no update and no delete;
  the sum of a student's payments only ever grows.

WHY APPEND-ONLY?
  - The AR position is a pure function of the ledger; replaying it always
    explains the current balance
  - Tuition disputes need the full, untouched payment history
  - Aggregates stay monotonic: recording a payment can only reduce
    outstanding, never raise it
*/
package ar

import "context"

// =============================================================================
// LEDGER READER - Read-only view for AR computation
// =============================================================================

// LedgerReader is what the AR engine needs from the backing store: entity
// records and payment history, nothing else.
type LedgerReader interface {
	// GetStudent returns a student or ErrStudentNotFound.
	GetStudent(ctx context.Context, id StudentID) (Student, error)

	// ListActiveStudents returns active students, optionally one center's.
	ListActiveStudents(ctx context.Context, centerFilter CenterID) ([]Student, error)

	// PaymentsForStudent returns the student's full payment history.
	PaymentsForStudent(ctx context.Context, id StudentID) ([]PaymentEvent, error)
}

// Reader adapts a Store to the LedgerReader interface.
type Reader struct {
	Store Store
}

func NewReader(store Store) *Reader {
	return &Reader{Store: store}
}

func (r *Reader) GetStudent(ctx context.Context, id StudentID) (Student, error) {
	return r.Store.GetStudent(ctx, id)
}

func (r *Reader) ListActiveStudents(ctx context.Context, centerFilter CenterID) ([]Student, error) {
	return r.Store.ListStudents(ctx, StudentFilter{CenterID: centerFilter, Status: StatusActive})
}

func (r *Reader) PaymentsForStudent(ctx context.Context, id StudentID) ([]PaymentEvent, error) {
	return r.Store.PaymentsForStudent(ctx, id)
}

// =============================================================================
// PAYMENT LEDGER - The one write path
// =============================================================================

// PaymentLedger appends validated payment events to a PaymentStore.
type PaymentLedger struct {
	Store PaymentStore
}

func NewPaymentLedger(store PaymentStore) *PaymentLedger {
	return &PaymentLedger{Store: store}
}

// Record validates and appends a payment event. The billing-period label is
// always derived from the payment date, overwriting whatever the caller set.
func (l *PaymentLedger) Record(ctx context.Context, p PaymentEvent) (PaymentEvent, error) {
	if p.StudentID == "" {
		return PaymentEvent{}, &ReferenceError{Field: "student_id", Value: ""}
	}
	if p.Type != PaymentTuition && p.Type != PaymentMiscellaneous {
		return PaymentEvent{}, &ReferenceError{Field: "type", Value: string(p.Type)}
	}
	if !p.Amount.IsPositive() {
		return PaymentEvent{}, &ReferenceError{Field: "amount", Value: p.Amount.String()}
	}
	if p.PaymentDate.IsZero() {
		return PaymentEvent{}, &ReferenceError{Field: "payment_date", Value: ""}
	}

	p.MonthFor = p.PaymentDate.MonthLabel()

	if err := l.Store.AppendPayment(ctx, p); err != nil {
		return PaymentEvent{}, err
	}
	return p, nil
}
