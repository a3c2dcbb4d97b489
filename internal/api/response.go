package api

import (
	"encoding/json"
	"net/http"

	"slotbook/internal/domain"

	"github.com/rs/zerolog"
)

type errorBody struct {
	Code      string `json:"code"`
	ErrorCode int    `json:"error_code,omitempty"`
	Message   string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorBody{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
}

// writeServiceError renders business rejections with their code; anything else
// is logged and hidden behind a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	if appErr, ok := domain.AsAppError(err); ok {
		writeJSON(w, appErr.Status, errorBody{
			Code:      appErr.Code,
			ErrorCode: appErr.Number,
			Message:   appErr.Message,
		})
		return
	}

	logger.Error().
		Err(err).
		Str("request_id", RequestID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("request failed")
	writeInternal(w)
}
