package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/booking"
	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/model"
	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/schedule"
)

type AppointmentHandler struct {
	svc    *booking.Service
	cfg    schedule.Config
	logger *slog.Logger
}

func NewAppointmentHandler(svc *booking.Service, cfg schedule.Config, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, cfg: cfg, logger: logger}
}

type createAppointmentRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	UserID      string `json:"user_id"`
}

type updateAppointmentRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	UserID      *string `json:"user_id"`
}

type appointmentItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	UserID      string `json:"user_id"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type slotItem struct {
	Date      string `json:"date"`
	TimeStart string `json:"time_start"`
	TimeEnd   string `json:"time_end"`
	Available int    `json:"available"`
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid json body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "title is required")
		return
	}
	if uuid.Validate(strings.TrimSpace(req.UserID)) != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "user_id must be a valid id")
		return
	}
	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid start_time")
		return
	}
	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid end_time")
		return
	}

	appt, err := h.svc.Create(r.Context(), booking.CreateParams{
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		StartTime:   startTime,
		EndTime:     endTime,
		UserID:      strings.TrimSpace(req.UserID),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentItem(appt))
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if uuid.Validate(id) != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid appointment id")
		return
	}
	appt, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentItem(appt))
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	appts, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	items := make([]appointmentItem, 0, len(appts))
	for _, appt := range appts {
		items = append(items, toAppointmentItem(appt))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if uuid.Validate(id) != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid appointment id")
		return
	}

	var req updateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid json body")
		return
	}

	params := booking.UpdateParams{
		Title:       req.Title,
		Description: req.Description,
		UserID:      req.UserID,
	}
	if req.StartTime != nil {
		t, err := time.Parse(time.RFC3339, *req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid start_time")
			return
		}
		params.StartTime = &t
	}
	if req.EndTime != nil {
		t, err := time.Parse(time.RFC3339, *req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid end_time")
			return
		}
		params.EndTime = &t
	}
	if req.UserID != nil && uuid.Validate(*req.UserID) != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "user_id must be a valid id")
		return
	}

	appt, err := h.svc.Update(r.Context(), id, params)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentItem(appt))
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if uuid.Validate(id) != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid appointment id")
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AppointmentHandler) Slots(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if uuid.Validate(userID) != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "user_id must be a valid id")
		return
	}
	fromDate, err := schedule.ParseDate(strings.TrimSpace(r.URL.Query().Get("start_date")), h.cfg.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid start_date (want YYYY-MM-DD)")
		return
	}
	toDate, err := schedule.ParseDate(strings.TrimSpace(r.URL.Query().Get("end_date")), h.cfg.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid end_date (want YYYY-MM-DD)")
		return
	}
	if fromDate.After(toDate) {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "start_date must not be after end_date")
		return
	}

	slots, err := h.svc.AvailableSlots(r.Context(), userID, fromDate, toDate)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		item := slotItem{
			Date:      s.Date(),
			TimeStart: s.Start.Format("15:04"),
			TimeEnd:   s.End.Format("15:04"),
		}
		if s.Available {
			item.Available = 1
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

func toAppointmentItem(appt model.Appointment) appointmentItem {
	return appointmentItem{
		ID:          appt.ID,
		Title:       appt.Title,
		Description: appt.Description,
		StartTime:   appt.StartTime.UTC().Format(time.RFC3339),
		EndTime:     appt.EndTime.UTC().Format(time.RFC3339),
		UserID:      appt.UserID,
		CreatedAt:   appt.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   appt.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
