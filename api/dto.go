/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the REST surface, decoupled from the domain model.
  Monetary fields leave the system here as float64 rounded to 2 decimal
  places (half-up); everything upstream computes on unrounded decimals.
  Dates cross as YYYY-MM-DD strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Structural validation (parse dates, parse amounts) happens in handlers;
  business validation (center exists, amount positive) in billing.Service.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/tuition-engine/ar"
	"github.com/warp/tuition-engine/billing"
)

// money rounds a decimal to the 2-place boundary representation.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// =============================================================================
// ERROR
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CENTERS
// =============================================================================

type CenterDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Capacity int    `json:"capacity"`
}

func centerDTO(c ar.Center) CenterDTO {
	return CenterDTO{ID: string(c.ID), Name: c.Name, Address: c.Address, Capacity: c.Capacity}
}

type CenterStatsDTO struct {
	CenterDTO
	Enrollment      int     `json:"enrollment"`
	CapacityPercent float64 `json:"capacity_percent"`
	AROutstanding   float64 `json:"ar_outstanding"`
	ARPercent       float64 `json:"ar_percent"`
}

func centerStatsDTO(stats billing.CenterStats) CenterStatsDTO {
	return CenterStatsDTO{
		CenterDTO:       centerDTO(stats.Center),
		Enrollment:      stats.Enrollment,
		CapacityPercent: money(stats.CapacityPercent),
		AROutstanding:   money(stats.AROutstanding),
		ARPercent:       money(stats.ARPercent),
	}
}

// =============================================================================
// STUDENTS
// =============================================================================

type StudentDTO struct {
	ID             string  `json:"id"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Age            int     `json:"age,omitempty"`
	Gender         string  `json:"gender,omitempty"`
	Parent         string  `json:"parent,omitempty"`
	Contact        string  `json:"contact,omitempty"`
	Email          string  `json:"email,omitempty"`
	CenterID       string  `json:"center_id"`
	Tuition        float64 `json:"tuition"`
	EnrollmentDate string  `json:"enrollment_date"`
	Status         string  `json:"status"`
}

func studentDTO(s ar.Student) StudentDTO {
	return StudentDTO{
		ID:             string(s.ID),
		FirstName:      s.FirstName,
		LastName:       s.LastName,
		Age:            s.Age,
		Gender:         s.Gender,
		Parent:         s.Parent,
		Contact:        s.Contact,
		Email:          s.Email,
		CenterID:       string(s.CenterID),
		Tuition:        money(s.Tuition),
		EnrollmentDate: s.EnrollmentDate.String(),
		Status:         string(s.Status),
	}
}

// StudentRequest creates or replaces a student.
type StudentRequest struct {
	ID             string  `json:"id,omitempty"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Age            int     `json:"age"`
	Gender         string  `json:"gender"`
	Parent         string  `json:"parent"`
	Contact        string  `json:"contact"`
	Email          string  `json:"email,omitempty"`
	CenterID       string  `json:"center_id"`
	Tuition        float64 `json:"tuition"`
	EnrollmentDate string  `json:"enrollment_date,omitempty"`
}

// =============================================================================
// AR POSITION
// =============================================================================

type ARPositionDTO struct {
	StudentID        string  `json:"student_id"`
	StudentName      string  `json:"student_name"`
	Tuition          float64 `json:"tuition"`
	ElapsedPeriods   int64   `json:"months_since_enrollment"`
	ExpectedPayments int64   `json:"expected_payments"`
	ExpectedTotal    float64 `json:"expected_total"`
	TotalPaid        float64 `json:"total_paid"`
	Outstanding      float64 `json:"outstanding"`
	MonthsUnpaid     int64   `json:"months_unpaid"`
	Bucket           string  `json:"bucket,omitempty"`
	AsOf             string  `json:"as_of"`
}

func positionDTO(pos ar.Position, asOf ar.Date) ARPositionDTO {
	return ARPositionDTO{
		StudentID:        string(pos.StudentID),
		StudentName:      pos.StudentName,
		Tuition:          money(pos.Tuition),
		ElapsedPeriods:   pos.Accrual.ElapsedPeriods,
		ExpectedPayments: pos.Accrual.ExpectedPayments,
		ExpectedTotal:    money(pos.Accrual.ExpectedTotal),
		TotalPaid:        money(pos.TotalPaid),
		Outstanding:      money(pos.Outstanding),
		MonthsUnpaid:     pos.MonthsUnpaid,
		Bucket:           string(pos.Bucket),
		AsOf:             asOf.String(),
	}
}

// =============================================================================
// PAYMENTS
// =============================================================================

type PaymentDTO struct {
	ID          string  `json:"id"`
	StudentID   string  `json:"student_id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	PaymentDate string  `json:"payment_date"`
	MonthFor    string  `json:"month_for"`
	Note        string  `json:"note,omitempty"`
}

func paymentDTO(p ar.PaymentEvent) PaymentDTO {
	return PaymentDTO{
		ID:          p.ID,
		StudentID:   string(p.StudentID),
		Type:        string(p.Type),
		Amount:      money(p.Amount),
		PaymentDate: p.PaymentDate.String(),
		MonthFor:    p.MonthFor,
		Note:        p.Note,
	}
}

// RecordPaymentRequest records one payment.
type RecordPaymentRequest struct {
	StudentID   string  `json:"student_id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	PaymentDate string  `json:"payment_date"`
	Note        string  `json:"note,omitempty"`
}

type PaymentStatsDTO struct {
	PayingStudents int     `json:"paying_students"`
	TotalPayments  int     `json:"total_payments"`
	TotalCollected float64 `json:"total_collected"`
	AvgPayment     float64 `json:"avg_payment"`
}

func paymentStatsDTO(stats billing.PaymentStats) PaymentStatsDTO {
	return PaymentStatsDTO{
		PayingStudents: stats.PayingStudents,
		TotalPayments:  stats.TotalPayments,
		TotalCollected: money(stats.TotalCollected),
		AvgPayment:     money(stats.AvgPayment),
	}
}

// =============================================================================
// AGING REPORT
// =============================================================================

type AgingRowDTO struct {
	StudentID        string  `json:"student_id"`
	StudentName      string  `json:"student_name"`
	CenterID         string  `json:"center_id"`
	TotalOutstanding float64 `json:"total_outstanding"`
	Current          float64 `json:"current"`
	Days30           float64 `json:"days30"`
	Days60           float64 `json:"days60"`
	Days90Plus       float64 `json:"days90_plus"`
}

type AgingTotalsDTO struct {
	TotalOutstanding float64 `json:"total_outstanding"`
	Current          float64 `json:"current"`
	Days30           float64 `json:"days30"`
	Days60           float64 `json:"days60"`
	Days90Plus       float64 `json:"days90_plus"`
}

type AgingReportDTO struct {
	Count  int            `json:"count"`
	Rows   []AgingRowDTO  `json:"rows"`
	Totals AgingTotalsDTO `json:"totals"`
	AsOf   string         `json:"as_of"`
}

func agingReportDTO(report ar.AgingReport, asOf ar.Date) AgingReportDTO {
	rows := make([]AgingRowDTO, len(report.Rows))
	for i, r := range report.Rows {
		rows[i] = AgingRowDTO{
			StudentID:        string(r.StudentID),
			StudentName:      r.StudentName,
			CenterID:         string(r.CenterID),
			TotalOutstanding: money(r.Outstanding),
			Current:          money(r.Current),
			Days30:           money(r.Days30),
			Days60:           money(r.Days60),
			Days90Plus:       money(r.Days90Plus),
		}
	}
	return AgingReportDTO{
		Count: len(rows),
		Rows:  rows,
		Totals: AgingTotalsDTO{
			TotalOutstanding: money(report.Totals.Outstanding),
			Current:          money(report.Totals.Current),
			Days30:           money(report.Totals.Days30),
			Days60:           money(report.Totals.Days60),
			Days90Plus:       money(report.Totals.Days90Plus),
		},
		AsOf: asOf.String(),
	}
}

// =============================================================================
// SETTINGS
// =============================================================================

type SettingDTO struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

func settingDTO(s ar.Setting) SettingDTO {
	return SettingDTO{Key: s.Key, Value: s.Value, Description: s.Description}
}

// PutSettingRequest updates one setting's value.
type PutSettingRequest struct {
	Value *string `json:"value"`
}
