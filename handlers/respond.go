package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/logging"
	"github.com/NofilShah708/Task-Management-System-for-MRP-Elite/models"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeError maps domain errors onto the HTTP taxonomy: validation → 400,
// not-found → 404, access → 403, bad credentials → 401, anything else 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrTaskNotFound),
		errors.Is(err, models.ErrSubtaskNotFound),
		errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrAdminNotFound),
		errors.Is(err, models.ErrDepartmentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrAccessDenied),
		errors.Is(err, models.ErrNotAssigned):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrInvalidStatus),
		errors.Is(err, models.ErrMissingFields),
		errors.Is(err, models.ErrEmptyComment),
		errors.Is(err, models.ErrNotPendingApproval),
		errors.Is(err, models.ErrDuplicateUserID),
		errors.Is(err, models.ErrDuplicateDepartment):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: %v", err)
	}
	writeJSON(w, status, map[string]string{"message": err.Error()})
}

// parseDate accepts RFC3339 timestamps or plain dates.
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
	})
}

func clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
