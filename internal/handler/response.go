package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"go-auth-service/internal/model"
	"go-auth-service/pkg/apierror"
)

const maxBodyBytes = 1 << 16

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError renders expected failures with their code and message. Anything
// else becomes a generic 500 and is only described in the server log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) && apiErr.Kind != apierror.KindInternal {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrEmailAlreadyExists) {
		status = http.StatusBadRequest
		body.Code = "EMAIL_ALREADY_EXISTS"
		body.Message = "User already exists"
	} else if errors.Is(err, model.ErrUserNotFound) {
		status = http.StatusNotFound
		body.Code = "USER_NOT_FOUND"
		body.Message = "User not found"
	} else {
		slog.Error("unhandled error", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	}

	writeJSON(w, status, model.APIResponse{
		Success: false,
		Error:   body,
	})
}

// decodeJSON reads one JSON object and answers 400 when it cannot.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !decodeJSONQuiet(w, r, dst) {
		writeError(w, r, apierror.Validation("BAD_REQUEST", "Invalid JSON body", ""))
		return false
	}
	return true
}

// decodeJSONQuiet leaves the response untouched on failure. Unknown fields
// are ignored.
func decodeJSONQuiet(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst) == nil
}
