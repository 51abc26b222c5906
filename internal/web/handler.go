// Package web exposes the city simulation over a JSON HTTP API with a
// websocket channel for state-change notifications.
package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/louisbranch/metropole/internal/city/catalog"
	"github.com/louisbranch/metropole/internal/city/domain"
	"github.com/louisbranch/metropole/internal/city/service"
	"github.com/louisbranch/metropole/internal/web/metrics"
)

// Handler wires city endpoints to the city service.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler constructs a city handler with its dependencies.
func NewHandler(svc *service.Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: svc, logger: logger, metrics: m}
}

// Register mounts city endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/city", h.handleGetCity)
	r.Post("/city/buildings", h.handleBuild)
	r.Put("/city/tax", h.handleSetTaxRate)
	r.Post("/city/advance-year", h.handleAdvanceYear)
	r.Get("/city/statistics/{metric}", h.handleStatistics)

	r.Get("/city/districts", h.handleListDistricts)
	r.Post("/city/districts", h.handleCreateDistrict)
	r.Post("/city/districts/{id}/upgrade", h.handleUpgradeDistrict)
	r.Put("/city/districts/{id}/specialization", h.handleSetSpecialization)

	r.Get("/events", h.handleEventHistory)
	r.Post("/events/{id}/trigger", h.handleTriggerEvent)

	r.Get("/saves", h.handleListSaves)
	r.Post("/saves", h.handleSave)
	r.Post("/saves/{id}/load", h.handleLoad)
	r.Delete("/saves/{id}", h.handleDeleteSave)
}

func (h *Handler) observe(route string, r *http.Request, start time.Time) {
	h.metrics.ObserveRequest(route, r.Method, time.Since(start))
}

func (h *Handler) handleGetCity(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/city", r, time.Now())

	state, err := h.service.State(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type buildRequest struct {
	BuildingType string `json:"buildingType"`
	DistrictID   string `json:"districtId,omitempty"`
}

func (h *Handler) handleBuild(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/city/buildings", r, time.Now())

	req, ok := decodeJSON[buildRequest](w, r)
	if !ok {
		return
	}

	result, err := h.service.Build(r.Context(), catalog.BuildingType(req.BuildingType), req.DistrictID)
	if err != nil {
		h.metrics.IncrementCommand("build", "error")
		writeError(w, err)
		return
	}
	h.metrics.IncrementCommand("build", "ok")
	writeJSON(w, http.StatusCreated, result)
}

type taxRequest struct {
	Rate float64 `json:"rate"`
}

func (h *Handler) handleSetTaxRate(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/city/tax", r, time.Now())

	req, ok := decodeJSON[taxRequest](w, r)
	if !ok {
		return
	}

	change, err := h.service.SetTaxRate(r.Context(), req.Rate)
	if err != nil {
		h.metrics.IncrementCommand("set_tax_rate", "error")
		writeError(w, err)
		return
	}
	h.metrics.IncrementCommand("set_tax_rate", "ok")
	writeJSON(w, http.StatusOK, change)
}

func (h *Handler) handleAdvanceYear(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/city/advance-year", r, time.Now())

	report, err := h.service.AdvanceYear(r.Context())
	if err != nil {
		h.metrics.IncrementCommand("advance_year", "error")
		writeError(w, err)
		return
	}
	h.metrics.IncrementCommand("advance_year", "ok")
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/city/statistics", r, time.Now())

	metric := domain.StatMetric(chi.URLParam(r, "metric"))
	valid := false
	for _, known := range domain.StatMetrics {
		if metric == known {
			valid = true
			break
		}
	}
	if !valid {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "INVALID_REQUEST",
			Message: "unknown statistics metric " + string(metric),
		}})
		return
	}

	series, err := h.service.Statistics(r.Context(), metric)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Metric string             `json:"metric"`
		Series []domain.StatPoint `json:"series"`
	}{Metric: string(metric), Series: series})
}

func (h *Handler) handleListDistricts(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/city/districts", r, time.Now())

	districts, err := h.service.Districts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, districts)
}

type createDistrictRequest struct {
	Type     string           `json:"type"`
	Name     string           `json:"name,omitempty"`
	Position *domain.Position `json:"position,omitempty"`
}

func (h *Handler) handleCreateDistrict(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/city/districts", r, time.Now())

	req, ok := decodeJSON[createDistrictRequest](w, r)
	if !ok {
		return
	}

	view, err := h.service.CreateDistrict(r.Context(), catalog.DistrictType(req.Type), req.Name, req.Position)
	if err != nil {
		h.metrics.IncrementCommand("create_district", "error")
		writeError(w, err)
		return
	}
	h.metrics.IncrementCommand("create_district", "ok")
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleUpgradeDistrict(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/city/districts/upgrade", r, time.Now())

	result, err := h.service.UpgradeDistrict(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.metrics.IncrementCommand("upgrade_district", "error")
		writeError(w, err)
		return
	}
	h.metrics.IncrementCommand("upgrade_district", "ok")
	writeJSON(w, http.StatusOK, result)
}

type specializationRequest struct {
	Specialization string `json:"specialization"`
}

func (h *Handler) handleSetSpecialization(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/city/districts/specialization", r, time.Now())

	req, ok := decodeJSON[specializationRequest](w, r)
	if !ok {
		return
	}

	view, err := h.service.SetDistrictSpecialization(r.Context(), chi.URLParam(r, "id"), req.Specialization)
	if err != nil {
		h.metrics.IncrementCommand("set_specialization", "error")
		writeError(w, err)
		return
	}
	h.metrics.IncrementCommand("set_specialization", "ok")
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleEventHistory(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/events", r, time.Now())

	history, err := h.service.EventHistory(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) handleTriggerEvent(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/events/trigger", r, time.Now())

	record, err := h.service.TriggerEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.metrics.IncrementCommand("trigger_event", "error")
		writeError(w, err)
		return
	}
	h.metrics.IncrementCommand("trigger_event", "ok")
	h.metrics.IncrementEvent(string(record.Category))
	writeJSON(w, http.StatusOK, record)
}

type saveView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Year      int       `json:"year"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (h *Handler) handleListSaves(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/saves", r, time.Now())

	saves, err := h.service.ListSaves(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]saveView, 0, len(saves))
	for _, save := range saves {
		views = append(views, saveView{
			ID:        save.ID,
			Name:      save.Name,
			Year:      save.Snapshot.Year,
			CreatedAt: save.CreatedAt,
			UpdatedAt: save.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/saves", r, time.Now())

	if err := h.service.Save(r.Context()); err != nil {
		h.metrics.IncrementCommand("save", "error")
		writeError(w, err)
		return
	}
	h.metrics.IncrementCommand("save", "ok")
	writeJSON(w, http.StatusOK, struct {
		SaveID string `json:"saveId"`
	}{SaveID: h.service.SaveID()})
}

func (h *Handler) handleLoad(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/saves/load", r, time.Now())

	if err := h.service.Load(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.metrics.IncrementCommand("load", "error")
		writeError(w, err)
		return
	}
	h.metrics.IncrementCommand("load", "ok")

	state, err := h.service.State(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) handleDeleteSave(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/saves", r, time.Now())

	if err := h.service.DeleteSave(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
