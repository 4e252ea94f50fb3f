package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/tuition-engine/api"
	"github.com/warp/tuition-engine/ar"
	"github.com/warp/tuition-engine/ar/store"
	"github.com/warp/tuition-engine/billing"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

const testAsOf = "2025-06-30"

// newTestServer wires a router over a seeded memory store: two centers, two
// active students at center-1 and one inactive at center-2.
func newTestServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()

	mem := store.NewMemory()
	ctx := context.Background()
	asOf := ar.NewDate(2025, time.June, 30)

	require.NoError(t, mem.SaveCenter(ctx, ar.Center{ID: "center-1", Name: "Sunrise Main", Capacity: 40}))
	require.NoError(t, mem.SaveCenter(ctx, ar.Center{ID: "center-2", Name: "Sunrise Annex", Capacity: 20}))

	require.NoError(t, mem.SaveStudent(ctx, ar.Student{
		ID: "stu-1", FirstName: "Amara", LastName: "Diallo",
		CenterID: "center-1", Tuition: decimal.NewFromInt(200),
		EnrollmentDate: asOf.AddDays(-95), Status: ar.StatusActive,
	}))
	require.NoError(t, mem.SaveStudent(ctx, ar.Student{
		ID: "stu-2", FirstName: "Kofi", LastName: "Mensah",
		CenterID: "center-1", Tuition: decimal.NewFromInt(300),
		EnrollmentDate: asOf.AddDays(-10), Status: ar.StatusActive,
	}))
	require.NoError(t, mem.SaveStudent(ctx, ar.Student{
		ID: "stu-3", FirstName: "Lena", LastName: "Weber",
		CenterID: "center-2", Tuition: decimal.NewFromInt(250),
		EnrollmentDate: asOf.AddDays(-200), Status: ar.StatusInactive,
	}))

	mem.SeedSetting(ar.Setting{Key: "billing_day", Value: "1", Description: "Day of month tuition is due"})

	server := httptest.NewServer(api.NewRouter(api.NewHandler(billing.NewService(mem))))
	t.Cleanup(server.Close)
	return server, mem
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
}

// =============================================================================
// AR POSITION
// =============================================================================

func TestGetStudentAR(t *testing.T) {
	// GIVEN: stu-1 with $800 expected and a $150 payment
	// WHEN: GET /api/students/stu-1/ar?as_of=2025-06-30
	// THEN: $650 outstanding, days90plus, as_of echoed back

	server, mem := newTestServer(t)
	require.NoError(t, mem.AppendPayment(context.Background(), ar.PaymentEvent{
		ID: "pay-seed", StudentID: "stu-1", Type: ar.PaymentTuition,
		Amount:      decimal.NewFromInt(150),
		PaymentDate: ar.NewDate(2025, time.April, 1), MonthFor: "2025-04",
	}))

	resp, err := http.Get(fmt.Sprintf("%s/api/students/stu-1/ar?as_of=%s", server.URL, testAsOf))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body api.ARPositionDTO
	decode(t, resp, &body)
	assert.Equal(t, "stu-1", body.StudentID)
	assert.Equal(t, int64(4), body.ExpectedPayments)
	assert.Equal(t, 800.0, body.ExpectedTotal)
	assert.Equal(t, 650.0, body.Outstanding)
	assert.Equal(t, int64(3), body.MonthsUnpaid)
	assert.Equal(t, "days90plus", body.Bucket)
	assert.Equal(t, testAsOf, body.AsOf)
}

func TestGetStudentAR_NotFound(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/students/stu-ghost/ar")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetStudentAR_BadAsOf(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/students/stu-1/ar?as_of=junk")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestRecordPayment(t *testing.T) {
	// GIVEN: A valid payment request for stu-1
	// WHEN: POST /api/billing
	// THEN: 201 with the derived month_for label

	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/billing", api.RecordPaymentRequest{
		StudentID:   "stu-1",
		Type:        "tuition",
		Amount:      200,
		PaymentDate: "2025-03-15",
		Note:        "march tuition",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body api.PaymentDTO
	decode(t, resp, &body)
	assert.NotEmpty(t, body.ID)
	assert.Equal(t, "2025-03", body.MonthFor)
	assert.Equal(t, 200.0, body.Amount)
}

func TestRecordPayment_Invalid(t *testing.T) {
	server, _ := newTestServer(t)

	cases := []struct {
		name string
		req  api.RecordPaymentRequest
		want int
	}{
		{"unknown student", api.RecordPaymentRequest{
			StudentID: "stu-ghost", Type: "tuition", Amount: 100, PaymentDate: "2025-03-15",
		}, http.StatusBadRequest},
		{"non-positive amount", api.RecordPaymentRequest{
			StudentID: "stu-1", Type: "tuition", Amount: 0, PaymentDate: "2025-03-15",
		}, http.StatusBadRequest},
		{"bad date", api.RecordPaymentRequest{
			StudentID: "stu-1", Type: "tuition", Amount: 100, PaymentDate: "15/03/2025",
		}, http.StatusBadRequest},
		{"bad type", api.RecordPaymentRequest{
			StudentID: "stu-1", Type: "refund", Amount: 100, PaymentDate: "2025-03-15",
		}, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, server.URL+"/api/billing", tc.req)
			defer resp.Body.Close()
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestListPayments_FilterByStudent(t *testing.T) {
	server, _ := newTestServer(t)

	for _, req := range []api.RecordPaymentRequest{
		{StudentID: "stu-1", Type: "tuition", Amount: 200, PaymentDate: "2025-03-15"},
		{StudentID: "stu-2", Type: "tuition", Amount: 300, PaymentDate: "2025-04-01"},
	} {
		resp := doJSON(t, http.MethodPost, server.URL+"/api/billing", req)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()
	}

	resp, err := http.Get(server.URL + "/api/billing?student_id=stu-1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count int              `json:"count"`
		Data  []api.PaymentDTO `json:"data"`
	}
	decode(t, resp, &body)
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "stu-1", body.Data[0].StudentID)
}

// =============================================================================
// AGING REPORT
// =============================================================================

func TestGetAgingReport(t *testing.T) {
	// GIVEN: stu-1 owing $650, stu-2 owing $300, one inactive student
	// WHEN: GET /api/billing/aging-report?as_of=2025-06-30
	// THEN: Two rows worst-first, totals $950, inactive student absent

	server, mem := newTestServer(t)
	require.NoError(t, mem.AppendPayment(context.Background(), ar.PaymentEvent{
		ID: "pay-seed", StudentID: "stu-1", Type: ar.PaymentTuition,
		Amount:      decimal.NewFromInt(150),
		PaymentDate: ar.NewDate(2025, time.April, 1), MonthFor: "2025-04",
	}))

	resp, err := http.Get(fmt.Sprintf("%s/api/billing/aging-report?as_of=%s", server.URL, testAsOf))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body api.AgingReportDTO
	decode(t, resp, &body)

	require.Equal(t, 2, body.Count)
	assert.Equal(t, "stu-1", body.Rows[0].StudentID)
	assert.Equal(t, 650.0, body.Rows[0].TotalOutstanding)
	assert.Equal(t, 650.0, body.Rows[0].Days90Plus)
	assert.Equal(t, "stu-2", body.Rows[1].StudentID)
	assert.Equal(t, 300.0, body.Rows[1].TotalOutstanding)
	assert.Equal(t, 300.0, body.Rows[1].Current)
	assert.Equal(t, 950.0, body.Totals.TotalOutstanding)
	assert.Equal(t, testAsOf, body.AsOf)
}

func TestGetAgingReport_CenterFilter(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(fmt.Sprintf("%s/api/billing/aging-report?as_of=%s&center_id=center-2", server.URL, testAsOf))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// center-2's only student is inactive.
	var body api.AgingReportDTO
	decode(t, resp, &body)
	assert.Equal(t, 0, body.Count)
	assert.Equal(t, 0.0, body.Totals.TotalOutstanding)
}

// =============================================================================
// CENTERS
// =============================================================================

func TestGetCenterStats(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(fmt.Sprintf("%s/api/centers/center-1/stats?as_of=%s", server.URL, testAsOf))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body api.CenterStatsDTO
	decode(t, resp, &body)
	assert.Equal(t, "center-1", body.ID)
	assert.Equal(t, 2, body.Enrollment)
	assert.Equal(t, 5.0, body.CapacityPercent)
	assert.Equal(t, 1100.0, body.AROutstanding)
	assert.Equal(t, 100.0, body.ARPercent)
}

func TestGetCenter_NotFound(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/centers/center-ghost")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// STUDENTS
// =============================================================================

func TestCreateStudent(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/students", api.StudentRequest{
		FirstName: "Nia", LastName: "Okafor",
		CenterID: "center-1", Tuition: 250, EnrollmentDate: "2025-06-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body api.StudentDTO
	decode(t, resp, &body)
	assert.NotEmpty(t, body.ID)
	assert.Equal(t, "active", body.Status)
	assert.Equal(t, "2025-06-01", body.EnrollmentDate)
}

func TestCreateStudent_UnknownCenter(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/api/students", api.StudentRequest{
		FirstName: "Nia", LastName: "Okafor",
		CenterID: "center-ghost", Tuition: 250,
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteStudent_SoftDelete(t *testing.T) {
	// GIVEN: An active student
	// WHEN: DELETE /api/students/stu-1
	// THEN: 200 with status inactive; the default roster no longer lists them

	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodDelete, server.URL+"/api/students/stu-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body api.StudentDTO
	decode(t, resp, &body)
	assert.Equal(t, "inactive", body.Status)

	listResp, err := http.Get(server.URL + "/api/students")
	require.NoError(t, err)
	var roster []api.StudentDTO
	decode(t, listResp, &roster)
	for _, s := range roster {
		assert.NotEqual(t, "stu-1", s.ID)
	}
}

func TestListStudents_StatusAll(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/students?status=all")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var roster []api.StudentDTO
	decode(t, resp, &roster)
	assert.Len(t, roster, 3)
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestPutSetting(t *testing.T) {
	server, _ := newTestServer(t)

	value := "5"
	resp := doJSON(t, http.MethodPut, server.URL+"/api/settings/billing_day", api.PutSettingRequest{Value: &value})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body api.SettingDTO
	decode(t, resp, &body)
	assert.Equal(t, "5", body.Value)
}

func TestPutSetting_MissingValue(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPut, server.URL+"/api/settings/billing_day", map[string]any{})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPutSetting_UnknownKey(t *testing.T) {
	server, _ := newTestServer(t)

	value := "x"
	resp := doJSON(t, http.MethodPut, server.URL+"/api/settings/no_such_key", api.PutSettingRequest{Value: &value})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
