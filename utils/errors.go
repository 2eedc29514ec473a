package utils

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ValidationError reports malformed or missing required input. Surfaced
// to the caller as a 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// ConflictError reports a violated at-most-one invariant (active campaign
// per lead, pending response per lead) or a stale-state action.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// NotFoundError reports an absent referenced entity.
type NotFoundError struct {
	Entity string
	ID     interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// TransientCollaboratorError wraps a collaborator failure that is safe to
// retry on a later tick: timeouts, connection failures, 5xx responses.
// State must be left unchanged when one of these is returned.
type TransientCollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *TransientCollaboratorError) Error() string {
	return fmt.Sprintf("%s temporarily unavailable: %v", e.Collaborator, e.Err)
}

func (e *TransientCollaboratorError) Unwrap() error { return e.Err }

// PermanentCollaboratorError wraps a collaborator failure that must not be
// retried: hard bounces, explicit rejections. The affected step or draft
// is marked failed/skipped.
type PermanentCollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *PermanentCollaboratorError) Error() string {
	return fmt.Sprintf("%s rejected request: %v", e.Collaborator, e.Err)
}

func (e *PermanentCollaboratorError) Unwrap() error { return e.Err }

// HTTPStatus maps a core error to its response status. Anything outside
// the taxonomy is a 500.
func HTTPStatus(err error) int {
	var ve *ValidationError
	var ce *ConflictError
	var nfe *NotFoundError
	var tce *TransientCollaboratorError
	switch {
	case errors.As(err, &ve):
		return fiber.StatusBadRequest
	case errors.As(err, &ce):
		return fiber.StatusConflict
	case errors.As(err, &nfe):
		return fiber.StatusNotFound
	case errors.As(err, &tce):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// IsTransient reports whether the error is retryable on a later tick.
func IsTransient(err error) bool {
	var tce *TransientCollaboratorError
	return errors.As(err, &tce)
}

// IsPermanent reports whether the error must not be retried.
func IsPermanent(err error) bool {
	var pce *PermanentCollaboratorError
	return errors.As(err, &pce)
}
