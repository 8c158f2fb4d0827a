// Package treasuryhttp exposes the treasury service over HTTP/JSON. Callers
// authenticate with bearer identity tokens; the subject becomes the actor
// for every operation.
package treasuryhttp

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apperrors "github.com/hearthvault/hearthvault/internal/platform/errors"
)

// errorBody is the wire shape of every error response.
type errorBody struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := apperrors.HTTPStatus(err)
	code := apperrors.GetCode(err)
	message := "internal error"
	if code != apperrors.CodeUnknown && code != apperrors.CodeInternal {
		message = err.Error()
	}
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed", "code", string(code), "error", err)
	}
	writeJSON(w, status, errorBody{
		Code:     string(code),
		Message:  message,
		Metadata: apperrors.GetMetadata(err),
	})
}
