package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/booking"
	"github.com/nayeem-hasan/apptbook/services/appointment-service/internal/schedule"
)

// Error codes outside the validator's own taxonomy. Every error kind maps to
// one stable code so clients can branch (a storage_failure is retry-safe, a
// slot_conflict is not).
const (
	codeInvalidInput   = "invalid_input"
	codeUnknownUser    = "unknown_user"
	codeNotFound       = "not_found"
	codeStorageFailure = "storage_failure"
)

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, errorResponse{Code: code, Error: detail})
}

// writeServiceError maps orchestrator errors to status codes and stable
// error codes. Unrecognized errors are collaborator failures, surfaced as
// storage_failure and logged with detail server-side.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var rej *schedule.RejectionError
	switch {
	case errors.As(err, &rej):
		status := http.StatusUnprocessableEntity
		if rej.Code == schedule.RejectSlotConflict {
			status = http.StatusConflict
		}
		writeError(w, status, string(rej.Code), rej.Detail)
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "appointment not found")
	case errors.Is(err, booking.ErrUserNotFound):
		writeError(w, http.StatusUnprocessableEntity, codeUnknownUser, "referenced user does not exist")
	default:
		logger.Error("storage failure", "err", err)
		writeError(w, http.StatusServiceUnavailable, codeStorageFailure, "storage unavailable")
	}
}
