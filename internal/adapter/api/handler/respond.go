package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/V4T54L/vsd-gateway/internal/domain"
)

// Error bodies shared by several handlers.
const (
	msgInvalidJSON    = "Invalid JSON body"
	msgInternal       = "Internal server error"
	msgNotFound       = "Not found"
	msgPayloadTooBig  = "Payload too large"
	msgStatusConflict = "Conflict"
)

// RespondWithJSON writes payload as a JSON response with the given status code.
func RespondWithJSON(w http.ResponseWriter, logger *slog.Logger, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("failed to marshal JSON response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// RespondError writes {"error": msg}.
func RespondError(w http.ResponseWriter, logger *slog.Logger, code int, msg string) {
	RespondWithJSON(w, logger, code, map[string]string{"error": msg})
}

// decodeJSON decodes the request body into v. It reports whether the body was
// too large so callers can answer 413 instead of 400.
func decodeJSON(r *http.Request, v any) (tooLarge bool, err error) {
	err = json.NewDecoder(r.Body).Decode(v)
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr), err
}

// respondDomainError maps use case errors onto the HTTP error taxonomy.
func respondDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		RespondError(w, logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		RespondError(w, logger, http.StatusNotFound, msgNotFound)
	case errors.Is(err, domain.ErrConflict):
		RespondError(w, logger, http.StatusConflict, msgStatusConflict)
	default:
		logger.Error("request failed", "error", err)
		RespondError(w, logger, http.StatusInternalServerError, msgInternal)
	}
}
