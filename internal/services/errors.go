package services

import (
	"context"
	"errors"
	"fmt"

	"staffpulse/internal/assistant"
	"staffpulse/internal/authz"
	apperrors "staffpulse/internal/errors"
	"staffpulse/internal/extraction"
	"staffpulse/internal/pipeline"
	"staffpulse/internal/store"
)

// storeError maps store failures onto the AppError taxonomy.
func storeError(err error, resource string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NewNotFoundError(resource)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.NewStorageError(fmt.Sprintf("failed to access %s", resource), err)
}

// pipelineError maps a failed pipeline run onto the AppError taxonomy.
// Validation failures carry the validator's own AppError; extraction
// failures become parsing errors; persistence failures become storage
// errors; cancellations pass through so the transport can report a
// timeout instead of a server fault.
func pipelineError(err error) error {
	switch pipeline.GetErrorType(err) {
	case pipeline.ErrorTypeValidation:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		return apperrors.NewAppValidationError(err.Error())

	case pipeline.ErrorTypeCancelled:
		return err

	default:
		var parseErr *extraction.ParseError
		if errors.As(err, &parseErr) {
			return apperrors.NewParsingError("workbook could not be decoded", err)
		}
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) && stageErr.Stage == pipeline.StageIDPersist {
			return apperrors.NewStorageError("failed to persist report", err)
		}
		return apperrors.NewAppError(apperrors.ErrTypeInternal, "report processing failed", err)
	}
}

// authzError maps authorization directory failures. Identity problems are
// permission errors; a broken directory backend is an upstream fault.
func authzError(err error) error {
	if errors.Is(err, authz.ErrUnknownPrincipal) || errors.Is(err, authz.ErrInvalidToken) {
		return apperrors.NewPermissionError("principal is not provisioned")
	}
	return apperrors.NewExternalError("authorization directory unavailable", err)
}

// assistantError maps assistant failures. Throttling keeps its retry hint
// so clients can back off instead of hammering the upstream.
func assistantError(err error) error {
	var rateErr *assistant.RateLimitError
	if errors.As(err, &rateErr) {
		mapped := apperrors.NewRateLimitError("assistant is rate limited, try again later")
		if rateErr.RetryAfter > 0 {
			mapped = mapped.WithContext("retry_after_seconds", int(rateErr.RetryAfter.Seconds()))
		}
		return mapped
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.NewExternalError("assistant request failed", err)
}
