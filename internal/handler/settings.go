package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"attendance-engine/internal/model"
	"attendance-engine/internal/service"
)

// SettingsHandler exposes the attendance policy and geofence administration.
type SettingsHandler struct {
	svc *service.SettingsService
}

func NewSettingsHandler(svc *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// HandleGetSettings returns the current policy snapshot.
func (h *SettingsHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.Settings(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, settings)
}

// HandlePutSettings replaces the policy. The whole document is replaced,
// not patched, so clients send the full settings back.
func (h *SettingsHandler) HandlePutSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.AttendanceSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if err := h.svc.UpdateSettings(r.Context(), settings); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, settings)
}

// HandleListOffices returns the geofence table.
func (h *SettingsHandler) HandleListOffices(w http.ResponseWriter, r *http.Request) {
	offices, err := h.svc.Offices(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if offices == nil {
		offices = []model.OfficeLocation{}
	}
	writeJSON(w, offices)
}

// HandleCreateOffice registers a new office geofence.
func (h *SettingsHandler) HandleCreateOffice(w http.ResponseWriter, r *http.Request) {
	var loc model.OfficeLocation
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if loc.Name == "" {
		writeError(w, r, http.StatusBadRequest, errors.New("name is required"))
		return
	}
	if err := h.svc.AddOffice(r.Context(), &loc); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSONBody(w, loc)
}

// RegisterRoutes registers the settings routes on the given mux.
func (h *SettingsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/settings", h.HandleGetSettings)
	mux.HandleFunc("PUT /api/settings", h.HandlePutSettings)
	mux.HandleFunc("GET /api/settings/offices", h.HandleListOffices)
	mux.HandleFunc("POST /api/settings/offices", h.HandleCreateOffice)
}
