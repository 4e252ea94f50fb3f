package ar_test

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/warp/tuition-engine/ar"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func testStudent(id string, tuition string, enrolledDays int) ar.Student {
	return ar.Student{
		ID:             ar.StudentID(id),
		FirstName:      "Test",
		LastName:       "Student",
		CenterID:       "center-1",
		Tuition:        d(tuition),
		EnrollmentDate: enrolledDaysAgo(enrolledDays),
		Status:         ar.StatusActive,
	}
}

func payment(studentID string, amount string) ar.PaymentEvent {
	return ar.PaymentEvent{
		StudentID:   ar.StudentID(studentID),
		Type:        ar.PaymentTuition,
		Amount:      d(amount),
		PaymentDate: asOf(),
		MonthFor:    asOf().MonthLabel(),
	}
}

// =============================================================================
// AR POSITION TESTS
// =============================================================================

func TestComputePosition_PartiallyPaid(t *testing.T) {
	// GIVEN: $200/month tuition, enrolled 95 days ago ($800 expected), $150 paid
	// WHEN: Computing the AR position
	// THEN: Outstanding $650, 3 whole tuition-months unpaid, days90plus bucket

	student := testStudent("stu-1", "200", 95)
	payments := []ar.PaymentEvent{payment("stu-1", "150")}

	pos, err := ar.ComputePosition(student, payments, asOf())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !pos.TotalPaid.Equal(d("150")) {
		t.Errorf("expected total paid 150, got %v", pos.TotalPaid)
	}
	if !pos.Outstanding.Equal(d("650")) {
		t.Errorf("expected outstanding 650, got %v", pos.Outstanding)
	}
	if pos.MonthsUnpaid != 3 {
		t.Errorf("expected 3 months unpaid, got %d", pos.MonthsUnpaid)
	}
	if pos.Bucket != ar.BucketDays90Pls {
		t.Errorf("expected days90plus bucket, got %q", pos.Bucket)
	}
}

func TestComputePosition_FullyPaid_NoBucket(t *testing.T) {
	// GIVEN: A student whose payments exactly cover the expected total
	// WHEN: Computing the AR position
	// THEN: Zero outstanding and no aging bucket

	student := testStudent("stu-1", "200", 95) // expected: 800
	payments := []ar.PaymentEvent{
		payment("stu-1", "200"),
		payment("stu-1", "200"),
		payment("stu-1", "400"),
	}

	pos, err := ar.ComputePosition(student, payments, asOf())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !pos.Outstanding.IsZero() {
		t.Errorf("expected zero outstanding, got %v", pos.Outstanding)
	}
	if pos.Bucket != ar.BucketNone {
		t.Errorf("expected no bucket, got %q", pos.Bucket)
	}
	if pos.MonthsUnpaid != 0 {
		t.Errorf("expected 0 months unpaid, got %d", pos.MonthsUnpaid)
	}
}

func TestComputePosition_Overpayment_FlooredAtZero(t *testing.T) {
	// GIVEN: Payments exceeding the expected total (prepaid family)
	// WHEN: Computing the AR position
	// THEN: Outstanding floors at zero; no credit balance surfaces

	student := testStudent("stu-1", "200", 95) // expected: 800
	payments := []ar.PaymentEvent{payment("stu-1", "1200")}

	pos, err := ar.ComputePosition(student, payments, asOf())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !pos.Outstanding.IsZero() {
		t.Errorf("expected zero outstanding, got %v", pos.Outstanding)
	}
	if pos.Bucket != ar.BucketNone {
		t.Errorf("expected no bucket, got %q", pos.Bucket)
	}
}

func TestComputePosition_FutureDatedPaymentsCount(t *testing.T) {
	// GIVEN: A payment dated after the as-of date
	// WHEN: Computing the AR position
	// THEN: The payment still reduces outstanding (all-time ledger sum)

	student := testStudent("stu-1", "200", 95) // expected: 800
	future := payment("stu-1", "800")
	future.PaymentDate = asOf().AddDays(45)
	future.MonthFor = future.PaymentDate.MonthLabel()

	pos, err := ar.ComputePosition(student, []ar.PaymentEvent{future}, asOf())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !pos.Outstanding.IsZero() {
		t.Errorf("expected zero outstanding, got %v", pos.Outstanding)
	}
}

func TestComputePosition_ZeroTuition_NeverOwes(t *testing.T) {
	// GIVEN: Zero tuition and a payment on record anyway
	// WHEN: Computing the AR position
	// THEN: Nothing owed, months unpaid stays zero

	student := testStudent("stu-1", "0", 500)
	payments := []ar.PaymentEvent{payment("stu-1", "50")}

	pos, err := ar.ComputePosition(student, payments, asOf())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !pos.Outstanding.IsZero() {
		t.Errorf("expected zero outstanding, got %v", pos.Outstanding)
	}
	if pos.MonthsUnpaid != 0 {
		t.Errorf("expected 0 months unpaid, got %d", pos.MonthsUnpaid)
	}
	if pos.Bucket != ar.BucketNone {
		t.Errorf("expected no bucket, got %q", pos.Bucket)
	}
}

func TestComputePosition_PaymentOrderIrrelevant(t *testing.T) {
	// GIVEN: The same set of payments in shuffled orders
	// WHEN: Computing the AR position for each ordering
	// THEN: Outstanding is identical every time

	student := testStudent("stu-1", "333.33", 200)
	payments := []ar.PaymentEvent{
		payment("stu-1", "100.10"),
		payment("stu-1", "250"),
		payment("stu-1", "0.57"),
		payment("stu-1", "499.99"),
		payment("stu-1", "33.33"),
	}

	base, err := ar.ComputePosition(student, payments, asOf())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]ar.PaymentEvent(nil), payments...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		pos, err := ar.ComputePosition(student, shuffled, asOf())
		if err != nil {
			t.Fatalf("shuffle %d: unexpected error: %v", i, err)
		}
		if !pos.Outstanding.Equal(base.Outstanding) {
			t.Fatalf("shuffle %d: outstanding %v differs from base %v",
				i, pos.Outstanding, base.Outstanding)
		}
	}
}

func TestBucketFor_TotalPartition(t *testing.T) {
	cases := []struct {
		monthsUnpaid int64
		want         ar.Bucket
	}{
		{0, ar.BucketCurrent},
		{1, ar.BucketDays30},
		{2, ar.BucketDays60},
		{3, ar.BucketDays90Pls},
		{4, ar.BucketDays90Pls},
		{12, ar.BucketDays90Pls},
	}

	for _, tc := range cases {
		if got := ar.BucketFor(tc.monthsUnpaid); got != tc.want {
			t.Errorf("BucketFor(%d): expected %q, got %q", tc.monthsUnpaid, tc.want, got)
		}
	}
}

func TestSumPayments_Empty(t *testing.T) {
	if sum := ar.SumPayments(nil); !sum.Equal(decimal.Zero) {
		t.Errorf("expected zero sum for empty ledger, got %v", sum)
	}
}
