package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"attendance-engine/internal/model"
	"attendance-engine/internal/service"
)

type ReportHandler struct {
	svc *service.ReportService
}

func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// HandleStats returns aggregate stats for ?from=...&to=...[&employee_id=...].
func (h *ReportHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.Stats(r.Context(), from, to, r.URL.Query().Get("employee_id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, stats)
}

// HandleTrends returns the bucketed trend series. ?bucket=day|week|month,
// defaulting to day.
func (h *ReportHandler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}
	bucket := model.TrendBucket(r.URL.Query().Get("bucket"))
	if bucket == "" {
		bucket = model.BucketDay
	}
	points, err := h.svc.Trends(r.Context(), from, to, bucket)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, points)
}

// HandleDepartments returns per-department breakdowns.
func (h *ReportHandler) HandleDepartments(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.ByDepartment(r.Context(), from, to)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, stats)
}

// HandleEmployees returns per-employee breakdowns.
func (h *ReportHandler) HandleEmployees(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.ByEmployee(r.Context(), from, to)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, stats)
}

// HandleExport streams the flattened CSV export.
func (h *ReportHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=attendance_%s_%s.csv", from, to))
	if err := h.svc.ExportCSV(r.Context(), w, from, to, r.URL.Query().Get("employee_id")); err != nil {
		// headers are gone at this point; log-and-abort is all we have
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RegisterRoutes registers all report routes on the given mux.
func (h *ReportHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/reports/stats", h.HandleStats)
	mux.HandleFunc("GET /api/reports/trends", h.HandleTrends)
	mux.HandleFunc("GET /api/reports/departments", h.HandleDepartments)
	mux.HandleFunc("GET /api/reports/employees", h.HandleEmployees)
	mux.HandleFunc("GET /api/reports/export", h.HandleExport)
}

// dateRange pulls and validates the mandatory from/to query params.
func dateRange(w http.ResponseWriter, r *http.Request) (from, to string, ok bool) {
	q := r.URL.Query()
	from, to = q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		writeError(w, r, http.StatusBadRequest, errors.New("from and to query params are required (YYYY-MM-DD)"))
		return "", "", false
	}
	for _, d := range []string{from, to} {
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid date %q", d))
			return "", "", false
		}
	}
	return from, to, true
}
