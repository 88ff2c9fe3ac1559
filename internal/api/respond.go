package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"iot-ingest-backend/internal/apperr"
)

const maxBodyBytes = 4 << 20

func respond(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{StatusCode: status, Message: message, Data: data})
}

// fail maps an error kind onto a status code. Anything without a kind is a
// 500 whose detail only reaches the log.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperr.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		status = http.StatusUnauthorized
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
		)
		respond(w, status, "Internal server error", nil)
		return
	}
	message := apperr.Message(err)
	if message == "" {
		message = http.StatusText(status)
	}
	respond(w, status, message, nil)
}

func invalid(msg string) error {
	return apperr.New(apperr.ErrInvalidArgument, msg)
}

func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return invalid("request body is required")
	}
	return invalid(fmt.Sprintf("invalid request body: %v", err))
}
