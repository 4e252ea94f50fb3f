/*
Package billing is the domain service over the AR engine.

PURPOSE:
  One struct, Service, owns every operation the transport layer exposes:
  per-student AR position, the network-wide aging report, center statistics,
  payment recording and listing, student/center administration, and the
  settings table. Handlers stay thin; all validation and cross-store
  orchestration lives here.

ARCHITECTURE:
  Service sits on ar.Store. AR reads go through ar.Reader (the read-only
  ledger view) and payment writes through ar.PaymentLedger (the single
  append path), so the compute core never sees a writable store.

ERROR MAPPING:
  The service returns ar errors untouched; the API layer classifies them
  with ar.IsNotFound / ar.IsClientError.

SEE ALSO:
  - ar/position.go, ar/aging.go: the computations this service drives
  - api/handlers.go: the HTTP surface over this service
*/
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/tuition-engine/ar"
)

// Service exposes the AR engine and entity administration to transports.
type Service struct {
	store  ar.Store
	reader *ar.Reader
	ledger *ar.PaymentLedger
	log    *logrus.Entry
}

func NewService(store ar.Store) *Service {
	return &Service{
		store:  store,
		reader: ar.NewReader(store),
		ledger: ar.NewPaymentLedger(store),
		log:    logrus.WithField("component", "billing"),
	}
}

// =============================================================================
// AR OPERATIONS
// =============================================================================

// StudentAR computes one student's AR position as of the given date.
// A zero asOf means today.
func (s *Service) StudentAR(ctx context.Context, id ar.StudentID, asOf ar.Date) (ar.Position, error) {
	if asOf.IsZero() {
		asOf = ar.Today()
	}

	student, err := s.reader.GetStudent(ctx, id)
	if err != nil {
		return ar.Position{}, err
	}
	payments, err := s.reader.PaymentsForStudent(ctx, id)
	if err != nil {
		return ar.Position{}, fmt.Errorf("loading payments for %s: %w", id, err)
	}

	return ar.ComputePosition(student, payments, asOf)
}

// AgingReport computes the aging report over all active students, optionally
// restricted to one center. Batch-or-nothing: any per-student failure aborts.
func (s *Service) AgingReport(ctx context.Context, centerFilter ar.CenterID, asOf ar.Date) (ar.AgingReport, error) {
	if asOf.IsZero() {
		asOf = ar.Today()
	}

	students, err := s.reader.ListActiveStudents(ctx, centerFilter)
	if err != nil {
		return ar.AgingReport{}, fmt.Errorf("listing students: %w", err)
	}

	paymentsByStudent := make(map[ar.StudentID][]ar.PaymentEvent, len(students))
	for _, student := range students {
		payments, err := s.reader.PaymentsForStudent(ctx, student.ID)
		if err != nil {
			return ar.AgingReport{}, fmt.Errorf("loading payments for %s: %w", student.ID, err)
		}
		paymentsByStudent[student.ID] = payments
	}

	report, err := ar.BuildAgingReport(students, paymentsByStudent, asOf, centerFilter)
	if err != nil {
		return ar.AgingReport{}, err
	}

	s.log.WithFields(logrus.Fields{
		"center": string(centerFilter),
		"as_of":  asOf.String(),
		"rows":   len(report.Rows),
	}).Debug("aging report computed")

	return report, nil
}

// CenterStats is a center's enrollment and AR summary.
type CenterStats struct {
	Center          ar.Center
	Enrollment      int
	CapacityPercent decimal.Decimal
	AROutstanding   decimal.Decimal
	ARPercent       decimal.Decimal
}

// CenterStatsFor computes enrollment and AR statistics for one center.
// Expected revenue comes from the accrual model over the center's active
// students; arPercent is outstanding over expected (0 when expected is 0).
func (s *Service) CenterStatsFor(ctx context.Context, id ar.CenterID, asOf ar.Date) (CenterStats, error) {
	if asOf.IsZero() {
		asOf = ar.Today()
	}

	center, err := s.store.GetCenter(ctx, id)
	if err != nil {
		return CenterStats{}, err
	}

	students, err := s.reader.ListActiveStudents(ctx, id)
	if err != nil {
		return CenterStats{}, fmt.Errorf("listing students for center %s: %w", id, err)
	}

	expectedRevenue := decimal.Zero
	outstanding := decimal.Zero
	for _, student := range students {
		payments, err := s.reader.PaymentsForStudent(ctx, student.ID)
		if err != nil {
			return CenterStats{}, fmt.Errorf("loading payments for %s: %w", student.ID, err)
		}
		pos, err := ar.ComputePosition(student, payments, asOf)
		if err != nil {
			return CenterStats{}, fmt.Errorf("student %s: %w", student.ID, err)
		}
		expectedRevenue = expectedRevenue.Add(pos.Accrual.ExpectedTotal)
		outstanding = outstanding.Add(pos.Outstanding)
	}

	hundred := decimal.NewFromInt(100)

	capacityPercent := decimal.Zero
	if center.Capacity > 0 {
		capacityPercent = decimal.NewFromInt(int64(len(students))).
			Div(decimal.NewFromInt(int64(center.Capacity))).Mul(hundred)
	}

	arPercent := decimal.Zero
	if expectedRevenue.IsPositive() {
		arPercent = outstanding.Div(expectedRevenue).Mul(hundred)
	}

	return CenterStats{
		Center:          center,
		Enrollment:      len(students),
		CapacityPercent: capacityPercent,
		AROutstanding:   outstanding,
		ARPercent:       arPercent,
	}, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

// RecordPaymentInput is the validated payload for recording a payment.
type RecordPaymentInput struct {
	StudentID   ar.StudentID
	Type        ar.PaymentType
	Amount      decimal.Decimal
	PaymentDate ar.Date
	Note        string
}

// RecordPayment appends a payment event to the ledger. The student must
// exist (ErrInvalidReference otherwise); the billing-period label is
// derived from the payment date.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput) (ar.PaymentEvent, error) {
	if _, err := s.store.GetStudent(ctx, in.StudentID); err != nil {
		if ar.IsNotFound(err) {
			return ar.PaymentEvent{}, &ar.ReferenceError{Field: "student_id", Value: string(in.StudentID)}
		}
		return ar.PaymentEvent{}, err
	}

	event := ar.PaymentEvent{
		ID:          fmt.Sprintf("pay-%d", time.Now().UnixNano()),
		StudentID:   in.StudentID,
		Type:        in.Type,
		Amount:      in.Amount,
		PaymentDate: in.PaymentDate,
		Note:        in.Note,
	}

	recorded, err := s.ledger.Record(ctx, event)
	if err != nil {
		return ar.PaymentEvent{}, err
	}

	s.log.WithFields(logrus.Fields{
		"student": string(in.StudentID),
		"amount":  in.Amount.String(),
		"month":   recorded.MonthFor,
	}).Info("payment recorded")

	return recorded, nil
}

// ListPayments returns payment events matching the filter, newest first.
func (s *Service) ListPayments(ctx context.Context, f ar.PaymentFilter) ([]ar.PaymentEvent, error) {
	return s.store.ListPayments(ctx, f)
}

// PaymentStats summarizes collection activity.
type PaymentStats struct {
	PayingStudents int
	TotalPayments  int
	TotalCollected decimal.Decimal
	AvgPayment     decimal.Decimal
}

// PaymentStatsFor aggregates payments, optionally per center and/or
// billing-period label (YYYY-MM).
func (s *Service) PaymentStatsFor(ctx context.Context, centerFilter ar.CenterID, month string) (PaymentStats, error) {
	payments, err := s.store.ListPayments(ctx, ar.PaymentFilter{CenterID: centerFilter})
	if err != nil {
		return PaymentStats{}, err
	}

	stats := PaymentStats{TotalCollected: decimal.Zero, AvgPayment: decimal.Zero}
	seen := make(map[ar.StudentID]bool)
	for _, p := range payments {
		if month != "" && p.MonthFor != month {
			continue
		}
		stats.TotalPayments++
		stats.TotalCollected = stats.TotalCollected.Add(p.Amount)
		if !seen[p.StudentID] {
			seen[p.StudentID] = true
			stats.PayingStudents++
		}
	}
	if stats.TotalPayments > 0 {
		stats.AvgPayment = stats.TotalCollected.Div(decimal.NewFromInt(int64(stats.TotalPayments)))
	}
	return stats, nil
}

// =============================================================================
// STUDENT ADMINISTRATION
// =============================================================================

// CreateStudent validates and inserts a new student. The referenced center
// must exist. A zero enrollment date defaults to today.
func (s *Service) CreateStudent(ctx context.Context, student ar.Student) (ar.Student, error) {
	if err := s.validateStudent(ctx, &student); err != nil {
		return ar.Student{}, err
	}
	if student.ID == "" {
		student.ID = ar.StudentID(fmt.Sprintf("stu-%d", time.Now().UnixNano()))
	}
	if err := s.store.SaveStudent(ctx, student); err != nil {
		return ar.Student{}, err
	}
	return student, nil
}

// UpdateStudent validates and replaces an existing student.
func (s *Service) UpdateStudent(ctx context.Context, student ar.Student) (ar.Student, error) {
	if err := s.validateStudent(ctx, &student); err != nil {
		return ar.Student{}, err
	}
	if err := s.store.UpdateStudent(ctx, student); err != nil {
		return ar.Student{}, err
	}
	return student, nil
}

// DeactivateStudent soft-deletes: the student drops out of the active
// population (and thus the aging report) but keeps their payment history.
func (s *Service) DeactivateStudent(ctx context.Context, id ar.StudentID) (ar.Student, error) {
	if err := s.store.DeactivateStudent(ctx, id); err != nil {
		return ar.Student{}, err
	}
	return s.store.GetStudent(ctx, id)
}

func (s *Service) GetStudent(ctx context.Context, id ar.StudentID) (ar.Student, error) {
	return s.store.GetStudent(ctx, id)
}

func (s *Service) ListStudents(ctx context.Context, f ar.StudentFilter) ([]ar.Student, error) {
	return s.store.ListStudents(ctx, f)
}

func (s *Service) validateStudent(ctx context.Context, student *ar.Student) error {
	if student.FirstName == "" || student.LastName == "" {
		return &ar.ReferenceError{Field: "name", Value: student.Name()}
	}
	if student.Tuition.IsNegative() {
		return &ar.ReferenceError{Field: "tuition", Value: student.Tuition.String()}
	}
	if student.CenterID == ar.CenterAll {
		return &ar.ReferenceError{Field: "center_id", Value: ""}
	}
	if _, err := s.store.GetCenter(ctx, student.CenterID); err != nil {
		if ar.IsNotFound(err) {
			return &ar.ReferenceError{Field: "center_id", Value: string(student.CenterID)}
		}
		return err
	}
	if student.EnrollmentDate.IsZero() {
		student.EnrollmentDate = ar.Today()
	}
	if student.Status == "" {
		student.Status = ar.StatusActive
	}
	return nil
}

// =============================================================================
// CENTERS AND SETTINGS - Plain pass-throughs
// =============================================================================

func (s *Service) GetCenter(ctx context.Context, id ar.CenterID) (ar.Center, error) {
	return s.store.GetCenter(ctx, id)
}

func (s *Service) ListCenters(ctx context.Context) ([]ar.Center, error) {
	return s.store.ListCenters(ctx)
}

func (s *Service) GetSetting(ctx context.Context, key string) (ar.Setting, error) {
	return s.store.GetSetting(ctx, key)
}

func (s *Service) ListSettings(ctx context.Context) ([]ar.Setting, error) {
	return s.store.ListSettings(ctx)
}

func (s *Service) PutSetting(ctx context.Context, key, value string) (ar.Setting, error) {
	if err := s.store.PutSetting(ctx, key, value); err != nil {
		return ar.Setting{}, err
	}
	return s.store.GetSetting(ctx, key)
}
