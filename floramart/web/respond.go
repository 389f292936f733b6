package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/floramart/floramart/floramart/errs"
)

type errorResponse struct {
	Error string    `json:"error"`
	Code  errs.Code `json:"code"`
}

// codeUnauthorized marks missing or invalid credentials on 401 responses,
// distinct from the forbidden code used for denied access.
const codeUnauthorized errs.Code = "unauthorized"

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response",
			slog.String("type", "http"),
			slog.Any("error", err))
	}
}

// respondError maps the business error taxonomy onto HTTP statuses. Internal
// errors are logged with their cause but never leaked to the client.
func respondError(w http.ResponseWriter, err error) {
	code := errs.CodeOf(err)

	var status int
	switch code {
	case errs.CodeNotFound:
		status = http.StatusNotFound
	case errs.CodeForbidden:
		status = http.StatusForbidden
	case errs.CodeInvalidState:
		status = http.StatusConflict
	case errs.CodeInvalidArgument:
		status = http.StatusUnprocessableEntity
	case errs.CodeConflict:
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("Request failed",
			slog.String("type", "http"),
			slog.Any("error", err))
		message = "internal server error"
	}

	var appErr *errs.Error
	if errors.As(err, &appErr) && status != http.StatusInternalServerError {
		message = appErr.Message
	}

	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
