/*
handlers.go - HTTP handlers for the childcare billing API

PURPOSE:
  Thin HTTP layer over billing.Service: parse request, call the service,
  serialize the response. No business logic lives here.

ENDPOINTS:
  Centers:
    GET    /api/centers                List centers
    GET    /api/centers/{id}           Get one center
    GET    /api/centers/{id}/stats     Enrollment + AR statistics

  Students:
    GET    /api/students               List (center/status/search filters)
    POST   /api/students               Create
    GET    /api/students/{id}          Get one
    PUT    /api/students/{id}          Update
    DELETE /api/students/{id}          Soft-delete (status -> inactive)
    GET    /api/students/{id}/ar       AR position

  Billing:
    GET    /api/billing                List payments (filters)
    POST   /api/billing                Record payment
    GET    /api/billing/aging-report   Aging report
    GET    /api/billing/stats          Collection statistics

  Settings:
    GET    /api/settings               List
    GET    /api/settings/{key}         Get one
    PUT    /api/settings/{key}         Update value

ERROR HANDLING:
  Service errors map by classification:
    ar.IsNotFound    -> 404
    ar.IsClientError -> 400
    anything else    -> 500 (logged)

AS-OF DATES:
  AR endpoints accept ?as_of=YYYY-MM-DD; missing means today. Parameterized
  so reports are reproducible and testable.

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: router and middleware
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/tuition-engine/ar"
	"github.com/warp/tuition-engine/billing"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *billing.Service
	log     *logrus.Entry
}

// NewHandler creates a handler over the given service.
func NewHandler(service *billing.Service) *Handler {
	return &Handler{
		Service: service,
		log:     logrus.WithField("component", "api"),
	}
}

// =============================================================================
// CENTER HANDLERS
// =============================================================================

// ListCenters returns all centers.
func (h *Handler) ListCenters(w http.ResponseWriter, r *http.Request) {
	centers, err := h.Service.ListCenters(r.Context())
	if err != nil {
		h.respondError(w, "Failed to list centers", err)
		return
	}

	dtos := make([]CenterDTO, len(centers))
	for i, c := range centers {
		dtos[i] = centerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCenter returns a single center.
func (h *Handler) GetCenter(w http.ResponseWriter, r *http.Request) {
	id := ar.CenterID(chi.URLParam(r, "id"))

	center, err := h.Service.GetCenter(r.Context(), id)
	if err != nil {
		h.respondError(w, "Failed to get center", err)
		return
	}
	writeJSON(w, http.StatusOK, centerDTO(center))
}

// GetCenterStats returns enrollment and AR statistics for a center.
func (h *Handler) GetCenterStats(w http.ResponseWriter, r *http.Request) {
	id := ar.CenterID(chi.URLParam(r, "id"))

	asOf, ok := h.parseAsOf(w, r)
	if !ok {
		return
	}

	stats, err := h.Service.CenterStatsFor(r.Context(), id, asOf)
	if err != nil {
		h.respondError(w, "Failed to compute center stats", err)
		return
	}
	writeJSON(w, http.StatusOK, centerStatsDTO(stats))
}

// =============================================================================
// STUDENT HANDLERS
// =============================================================================

// ListStudents returns students matching the query filters.
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	filter := ar.StudentFilter{
		CenterID: centerFilterParam(r),
		Search:   r.URL.Query().Get("search"),
	}
	// Default to active, matching the admin UI's main roster view.
	// "all" disables the status filter.
	switch status := r.URL.Query().Get("status"); status {
	case "":
		filter.Status = ar.StatusActive
	case "all":
	default:
		filter.Status = ar.StudentStatus(status)
	}

	students, err := h.Service.ListStudents(r.Context(), filter)
	if err != nil {
		h.respondError(w, "Failed to list students", err)
		return
	}

	dtos := make([]StudentDTO, len(students))
	for i, s := range students {
		dtos[i] = studentDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetStudent returns a single student.
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id := ar.StudentID(chi.URLParam(r, "id"))

	student, err := h.Service.GetStudent(r.Context(), id)
	if err != nil {
		h.respondError(w, "Failed to get student", err)
		return
	}
	writeJSON(w, http.StatusOK, studentDTO(student))
}

// CreateStudent creates a new student.
func (h *Handler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	student, ok := h.decodeStudent(w, r, "")
	if !ok {
		return
	}

	created, err := h.Service.CreateStudent(r.Context(), student)
	if err != nil {
		h.respondError(w, "Failed to create student", err)
		return
	}
	writeJSON(w, http.StatusCreated, studentDTO(created))
}

// UpdateStudent replaces an existing student.
func (h *Handler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	student, ok := h.decodeStudent(w, r, id)
	if !ok {
		return
	}

	updated, err := h.Service.UpdateStudent(r.Context(), student)
	if err != nil {
		h.respondError(w, "Failed to update student", err)
		return
	}
	writeJSON(w, http.StatusOK, studentDTO(updated))
}

// DeleteStudent soft-deletes a student (status -> inactive).
func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id := ar.StudentID(chi.URLParam(r, "id"))

	student, err := h.Service.DeactivateStudent(r.Context(), id)
	if err != nil {
		h.respondError(w, "Failed to delete student", err)
		return
	}
	writeJSON(w, http.StatusOK, studentDTO(student))
}

// GetStudentAR returns a student's AR position.
func (h *Handler) GetStudentAR(w http.ResponseWriter, r *http.Request) {
	id := ar.StudentID(chi.URLParam(r, "id"))

	asOf, ok := h.parseAsOf(w, r)
	if !ok {
		return
	}

	pos, err := h.Service.StudentAR(r.Context(), id, asOf)
	if err != nil {
		h.respondError(w, "Failed to compute AR position", err)
		return
	}
	writeJSON(w, http.StatusOK, positionDTO(pos, asOf))
}

func (h *Handler) decodeStudent(w http.ResponseWriter, r *http.Request, id string) (ar.Student, bool) {
	var req StudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return ar.Student{}, false
	}
	if id == "" {
		id = req.ID
	}

	var enrollment ar.Date
	if req.EnrollmentDate != "" {
		var err error
		if enrollment, err = ar.ParseDate(req.EnrollmentDate); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid enrollment_date (use YYYY-MM-DD)", err)
			return ar.Student{}, false
		}
	}

	return ar.Student{
		ID:             ar.StudentID(id),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Age:            req.Age,
		Gender:         req.Gender,
		Parent:         req.Parent,
		Contact:        req.Contact,
		Email:          req.Email,
		CenterID:       ar.CenterID(req.CenterID),
		Tuition:        decimal.NewFromFloat(req.Tuition),
		EnrollmentDate: enrollment,
		Status:         ar.StatusActive,
	}, true
}

// =============================================================================
// BILLING HANDLERS
// =============================================================================

// ListPayments returns payments matching the query filters.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	filter := ar.PaymentFilter{
		StudentID: ar.StudentID(r.URL.Query().Get("student_id")),
		CenterID:  centerFilterParam(r),
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		from, err := ar.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
			return
		}
		filter.From = from
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		to, err := ar.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
			return
		}
		filter.To = to
	}

	payments, err := h.Service.ListPayments(r.Context(), filter)
	if err != nil {
		h.respondError(w, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = paymentDTO(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(dtos), "data": dtos})
}

// RecordPayment appends a payment to the ledger.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	paymentDate, err := ar.ParseDate(req.PaymentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment_date (use YYYY-MM-DD)", err)
		return
	}

	event, err := h.Service.RecordPayment(r.Context(), billing.RecordPaymentInput{
		StudentID:   ar.StudentID(req.StudentID),
		Type:        ar.PaymentType(req.Type),
		Amount:      decimal.NewFromFloat(req.Amount),
		PaymentDate: paymentDate,
		Note:        req.Note,
	})
	if err != nil {
		h.respondError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentDTO(event))
}

// GetAgingReport returns the aging report, optionally for one center.
func (h *Handler) GetAgingReport(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.parseAsOf(w, r)
	if !ok {
		return
	}

	report, err := h.Service.AgingReport(r.Context(), centerFilterParam(r), asOf)
	if err != nil {
		h.respondError(w, "Failed to build aging report", err)
		return
	}
	writeJSON(w, http.StatusOK, agingReportDTO(report, asOf))
}

// GetPaymentStats returns collection statistics.
func (h *Handler) GetPaymentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.PaymentStatsFor(r.Context(), centerFilterParam(r), r.URL.Query().Get("month"))
	if err != nil {
		h.respondError(w, "Failed to compute payment stats", err)
		return
	}
	writeJSON(w, http.StatusOK, paymentStatsDTO(stats))
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// ListSettings returns all settings.
func (h *Handler) ListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Service.ListSettings(r.Context())
	if err != nil {
		h.respondError(w, "Failed to list settings", err)
		return
	}

	dtos := make([]SettingDTO, len(settings))
	for i, s := range settings {
		dtos[i] = settingDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetSetting returns a single setting.
func (h *Handler) GetSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := h.Service.GetSetting(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		h.respondError(w, "Failed to get setting", err)
		return
	}
	writeJSON(w, http.StatusOK, settingDTO(setting))
}

// PutSetting updates a setting's value.
func (h *Handler) PutSetting(w http.ResponseWriter, r *http.Request) {
	var req PutSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, "Value is required", nil)
		return
	}

	setting, err := h.Service.PutSetting(r.Context(), chi.URLParam(r, "key"), *req.Value)
	if err != nil {
		h.respondError(w, "Failed to update setting", err)
		return
	}
	writeJSON(w, http.StatusOK, settingDTO(setting))
}

// =============================================================================
// HELPERS
// =============================================================================

// parseAsOf reads the optional as_of query parameter; missing means today.
// Returns ok=false after writing a 400 when the parameter is malformed.
func (h *Handler) parseAsOf(w http.ResponseWriter, r *http.Request) (ar.Date, bool) {
	s := r.URL.Query().Get("as_of")
	if s == "" {
		return ar.Today(), true
	}
	asOf, err := ar.ParseDate(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of (use YYYY-MM-DD)", err)
		return ar.Date{}, false
	}
	return asOf, true
}

// centerFilterParam reads the optional center_id query parameter.
// "all" and "" both mean no filter.
func centerFilterParam(r *http.Request) ar.CenterID {
	id := r.URL.Query().Get("center_id")
	if id == "all" {
		return ar.CenterAll
	}
	return ar.CenterID(id)
}

// respondError classifies a service error into an HTTP status.
func (h *Handler) respondError(w http.ResponseWriter, message string, err error) {
	switch {
	case ar.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case ar.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.log.WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
