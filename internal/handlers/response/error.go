package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"gitlab.com/fcv-2025.net/assessment/internal/static/errs"
)

type ErrorMessage struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func WriteError(w http.ResponseWriter, err ErrorMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	_ = json.NewEncoder(w).Encode(err)
}

func WriteSuccess(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// FromError writes the status that err maps to
func FromError(w http.ResponseWriter, err error) {
	WriteError(w, ErrorMessage{Message: err.Error(), StatusCode: StatusFor(err)})
}

// StatusFor maps service errors to HTTP status codes
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errs.IsNetwork(err):
		return http.StatusBadGateway
	case errors.Is(err, errs.ErrAttemptExpired):
		return http.StatusGone
	case errors.Is(err, errs.ErrAttemptLimitReached),
		errors.Is(err, errs.ShouldUseFPTEmail):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrAttemptNotFound),
		errors.Is(err, errs.ErrCorruptLocalState),
		errors.Is(err, errs.ErrActivityNotFound),
		errors.Is(err, errs.ErrItemNotFound),
		errors.Is(err, errs.ErrTestCaseNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrUnsupportedLanguage),
		errors.Is(err, errs.ErrNoDeadline),
		errors.Is(err, errs.EmailRequired):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrAlreadyFinalized),
		errors.Is(err, errs.ErrNotExpired),
		errors.Is(err, errs.ErrAttemptInProgress),
		errors.Is(err, errs.ErrRunInProgress),
		errors.Is(err, errs.ErrNoRunInProgress),
		errors.Is(err, errs.ErrRunKilled):
		return http.StatusConflict
	case errors.Is(err, errs.InvalidCredentials),
		errors.Is(err, errs.InvalidToken),
		errors.Is(err, errs.MissingToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
