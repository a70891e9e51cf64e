// Package errors provides standardized error handling for the notification
// dispatch pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeDuplicateEvent         ErrorCode = "DUPLICATE_EVENT"
	ErrCodeEventMissingAfterClaim ErrorCode = "EVENT_MISSING_AFTER_CLAIM"
	ErrCodeEventStoreFailed       ErrorCode = "EVENT_STORE_FAILED"
	ErrCodeFanOutFailed           ErrorCode = "FANOUT_FAILED"
	ErrCodeInvalidCursor          ErrorCode = "INVALID_CURSOR"
	ErrCodeNotificationNotFound   ErrorCode = "NOTIFICATION_NOT_FOUND"
	ErrCodeStreamPushFailed       ErrorCode = "STREAM_PUSH_FAILED"
	ErrCodeLockUnavailable        ErrorCode = "LOCK_UNAVAILABLE"
	ErrCodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	ErrCodeUnauthorized           ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is lets call sites match StandardErrors by code with errors.Is.
func (e *StandardError) Is(target error) bool {
	var std *StandardError
	if errors.As(target, &std) {
		return e.Code == std.Code
	}
	return false
}

// CodeOf extracts the error code, defaulting to INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	var std *StandardError
	if errors.As(err, &std) {
		return std.Code
	}
	return ErrCodeInternal
}

// ==========================
// Error Constructors
// ==========================

// NewDuplicateEventError marks a creation attempt that lost the dedup race.
// Never surfaced to callers; logged at debug level.
func NewDuplicateEventError(contentID string, version int) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateEvent,
		Message:   "event already exists for content version",
		Details:   fmt.Sprintf("content=%s version=%d", contentID, version),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEventMissingAfterClaimError covers a re-read failure after a successful
// claim. Indicates an invariant violation worth alerting on.
func NewEventMissingAfterClaimError(eventID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEventMissingAfterClaim,
		Message:   "claimed event missing on re-read",
		Details:   fmt.Sprintf("event=%s", eventID),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEventStoreError wraps a transient store failure on the dispatch path.
func NewEventStoreError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEventStoreFailed,
		Message:   "event store operation failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewFanOutError wraps a failed fan-out insert.
func NewFanOutError(eventID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFanOutFailed,
		Message:   "fan-out insert failed",
		Details:   fmt.Sprintf("event=%s: %s", eventID, details),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLockUnavailableError wraps a scan-lock acquisition failure. The tick is
// skipped and the next one retries, so it is retryable by construction.
func NewLockUnavailableError(key, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLockUnavailable,
		Message:   "scan lock unavailable",
		Details:   fmt.Sprintf("key=%s: %s", key, details),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStreamPushFailedError marks a live push that could not be delivered to a
// connected client. Pushes are best effort; the feed remains the source of
// truth.
func NewStreamPushFailedError(userID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStreamPushFailed,
		Message:   "stream push dropped",
		Details:   fmt.Sprintf("user=%s", userID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidCursorError is surfaced to feed callers as a client error.
func NewInvalidCursorError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidCursor,
		Message:   "invalid pagination cursor",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationNotFoundError is surfaced on mark-read for a row the caller
// does not own or that does not exist.
func NewNotificationNotFoundError(id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationNotFound,
		Message:   "notification not found",
		Details:   fmt.Sprintf("notification=%s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError rejects a malformed request body.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedError rejects an unauthenticated request.
func NewUnauthorizedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "unauthorized",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
