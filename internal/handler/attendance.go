package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"attendance-engine/internal/i18n"
	"attendance-engine/internal/model"
	"attendance-engine/internal/service"
)

type AttendanceHandler struct {
	svc *service.AttendanceService
}

func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{svc: svc}
}

// CheckRequest is the check-in/check-out request body. Location and device
// are optional evidence; a missing location just means no geofence check.
type CheckRequest struct {
	EmployeeID   string          `json:"employee_id"`
	EmployeeName string          `json:"employee_name,omitempty"`
	Department   string          `json:"department,omitempty"`
	ManagerID    string          `json:"manager_id,omitempty"`
	At           time.Time       `json:"at,omitempty"`
	Location     *model.GeoPoint `json:"location,omitempty"`
	Platform     string          `json:"platform,omitempty"`
}

// ActivityRequest is one activity signal from the client, with an optional
// position sample piggybacked on it.
type ActivityRequest struct {
	EmployeeID string          `json:"employee_id"`
	At         time.Time       `json:"at,omitempty"`
	Location   *model.GeoPoint `json:"location,omitempty"`
}

// DecisionRequest is the approval/rejection body.
type DecisionRequest struct {
	RecordID   string `json:"record_id"`
	ApproverID string `json:"approver_id"`
	Notes      string `json:"notes,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleCheckIn creates the day's record and starts idle tracking.
func (h *AttendanceHandler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.EmployeeID == "" {
		writeError(w, r, http.StatusBadRequest, errors.New("employee_id is required"))
		return
	}

	record, err := h.svc.CheckIn(r.Context(), service.CheckInput{
		EmployeeID:   req.EmployeeID,
		EmployeeName: req.EmployeeName,
		Department:   req.Department,
		ManagerID:    req.ManagerID,
		At:           req.At,
		Location:     req.Location,
		Device:       deviceFrom(r, req.Platform),
	})
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, record)
}

// HandleCheckOut closes the day's record.
func (h *AttendanceHandler) HandleCheckOut(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.EmployeeID == "" {
		writeError(w, r, http.StatusBadRequest, errors.New("employee_id is required"))
		return
	}

	record, err := h.svc.CheckOut(r.Context(), service.CheckInput{
		EmployeeID: req.EmployeeID,
		At:         req.At,
		Location:   req.Location,
		Device:     deviceFrom(r, req.Platform),
	})
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, record)
}

// HandleActivity feeds an activity signal into the tracking session.
func (h *AttendanceHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	var req ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.EmployeeID == "" {
		writeError(w, r, http.StatusBadRequest, errors.New("employee_id is required"))
		return
	}

	if err := h.svc.Activity(r.Context(), req.EmployeeID, req.At, req.Location); err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleApprove moves a pending record to approved.
func (h *AttendanceHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, h.svc.Approve)
}

// HandleReject moves a pending record to rejected.
func (h *AttendanceHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.handleDecision(w, r, h.svc.Reject)
}

func (h *AttendanceHandler) handleDecision(w http.ResponseWriter, r *http.Request, decide func(ctx context.Context, recordID, approverID, notes string) (*model.AttendanceRecord, error)) {
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.RecordID == "" || req.ApproverID == "" {
		writeError(w, r, http.StatusBadRequest, errors.New("record_id and approver_id are required"))
		return
	}

	record, err := decide(r.Context(), req.RecordID, req.ApproverID, req.Notes)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, record)
}

// HandleRecords lists records for ?from=...&to=...[&employee_id=...].
func (h *AttendanceHandler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		writeError(w, r, http.StatusBadRequest, errors.New("from and to query params are required (YYYY-MM-DD)"))
		return
	}
	records, err := h.svc.Records(r.Context(), from, to, q.Get("employee_id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, records)
}

// HandlePending lists records awaiting review for [?manager_id=...].
func (h *AttendanceHandler) HandlePending(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.Pending(r.Context(), r.URL.Query().Get("manager_id"))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []*model.AttendanceRecord{}
	}
	writeJSON(w, records)
}

// RegisterRoutes registers all attendance routes on the given mux.
func (h *AttendanceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/attendance/records", h.HandleRecords)
	mux.HandleFunc("GET /api/attendance/pending", h.HandlePending)
	mux.HandleFunc("POST /api/attendance/checkin", h.HandleCheckIn)
	mux.HandleFunc("POST /api/attendance/checkout", h.HandleCheckOut)
	mux.HandleFunc("POST /api/attendance/activity", h.HandleActivity)
	mux.HandleFunc("POST /api/attendance/approve", h.HandleApprove)
	mux.HandleFunc("POST /api/attendance/reject", h.HandleReject)
}

// deviceFrom builds the device fingerprint from the request headers plus the
// client-reported platform.
func deviceFrom(r *http.Request, platform string) *model.DeviceInfo {
	ua := r.UserAgent()
	if ua == "" && platform == "" {
		return nil
	}
	return &model.DeviceInfo{UserAgent: ua, Platform: platform}
}

// statusFor maps service errors to HTTP statuses: state errors conflict,
// lookups 404, everything else is a server-side failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrAlreadyCheckedIn),
		errors.Is(err, service.ErrAlreadyCheckedOut),
		errors.Is(err, service.ErrNotCheckedIn),
		errors.Is(err, service.ErrSessionActive),
		errors.Is(err, service.ErrNotPending):
		return http.StatusConflict
	case errors.Is(err, service.ErrRecordNotFound), errors.Is(err, service.ErrNoActiveSession):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	w.WriteHeader(status)
	writeJSONBody(w, errorResponse{Error: errorMessage(r.Context(), err)})
}

// errorMessage localizes the well-known state errors using the request
// locale; anything else passes through untranslated.
func errorMessage(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, service.ErrAlreadyCheckedIn):
		return i18n.T(ctx, "err.already_checked_in")
	case errors.Is(err, service.ErrAlreadyCheckedOut):
		return i18n.T(ctx, "err.already_checked_out")
	case errors.Is(err, service.ErrNotCheckedIn):
		return i18n.T(ctx, "err.not_checked_in")
	case errors.Is(err, service.ErrNoActiveSession):
		return i18n.T(ctx, "err.no_active_session")
	case errors.Is(err, service.ErrSessionActive):
		return i18n.T(ctx, "err.session_active")
	case errors.Is(err, service.ErrRecordNotFound):
		return i18n.T(ctx, "err.record_not_found")
	case errors.Is(err, service.ErrNotPending):
		return i18n.T(ctx, "err.not_pending")
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	writeJSONBody(w, v)
}

func writeJSONBody(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR encoding response: %v", err)
	}
}

// LocaleMiddleware copies the Accept-Language hint into the notification
// locale context.
func LocaleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lang := r.Header.Get("Accept-Language"); lang != "" {
			r = r.WithContext(i18n.WithLocale(r.Context(), lang))
		}
		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware logs one line per request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
