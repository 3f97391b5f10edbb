package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hackgods/clinic-appointment-scheduling/internal/apperrors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps a service error kind to its HTTP status. Internal
// details never leave the process.
func writeServiceError(w http.ResponseWriter, err error) {
	kind := apperrors.KindOf(err)
	code := strings.ToLower(string(kind))

	switch kind {
	case apperrors.KindValidation:
		writeError(w, http.StatusBadRequest, code, apperrors.MessageOf(err))
	case apperrors.KindForbidden:
		writeError(w, http.StatusForbidden, code, apperrors.MessageOf(err))
	case apperrors.KindNotFound:
		writeError(w, http.StatusNotFound, code, apperrors.MessageOf(err))
	case apperrors.KindConflict:
		writeError(w, http.StatusConflict, code, apperrors.MessageOf(err))
	case apperrors.KindPreconditionFailed:
		writeError(w, http.StatusUnprocessableEntity, code, apperrors.MessageOf(err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}
