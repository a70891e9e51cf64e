// internal/transport/http/handler/envelopes.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	apierrors "journal-notifier/internal/common/errors"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// CountEnvelope wraps endpoints whose payload is a single counter.
type CountEnvelope struct {
	Unread int `json:"unread"`
}

// EventEnvelope wraps the ingest response.
type EventEnvelope struct {
	EventID      string `json:"event_id,omitempty"`
	Deduplicated bool   `json:"deduplicated"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps service errors to HTTP statuses by their error code.
func httpError(w http.ResponseWriter, err error) {
	code := apierrors.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case apierrors.ErrCodeValidationFailed, apierrors.ErrCodeInvalidCursor:
		status = http.StatusBadRequest
	case apierrors.ErrCodeUnauthorized:
		status = http.StatusUnauthorized
	case apierrors.ErrCodeNotificationNotFound:
		status = http.StatusNotFound
	}
	msg := err.Error()
	var std *apierrors.StandardError
	if errors.As(err, &std) {
		msg = std.Message
	}
	writeJSON(w, status, MessageEnvelope{Error: msg, Code: string(code)})
}
