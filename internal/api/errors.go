package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/novelly/novelly-server/internal/errors"
	"github.com/novelly/novelly-server/internal/llm"
	"github.com/novelly/novelly-server/internal/store"
)

// APIError is the coded error body every failed request produces.
// EnvelopeTransformer wraps it with the envelope version.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

func (e *APIError) Error() string { return e.Message }

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int { return e.status }

// ContentType implements huma.ContentTypeFilter.
func (e *APIError) ContentType(string) string { return "application/json" }

// sentinelErrors maps errors that reach a handler unwrapped onto a status.
var sentinelErrors = []struct {
	err    error
	status int
	code   domainerrors.Code
}{
	{store.ErrNotFound, http.StatusNotFound, domainerrors.CodeNotFound},
	{store.ErrAlreadyExists, http.StatusConflict, domainerrors.CodeConflict},
	{store.ErrInvalidInput, http.StatusBadRequest, domainerrors.CodeValidation},
	{llm.ErrNoAPIKey, http.StatusServiceUnavailable, domainerrors.CodeUnavailable},
	{llm.ErrRateLimited, http.StatusServiceUnavailable, domainerrors.CodeUnavailable},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, domainerrors.CodeUpstream},
}

// toAPIError converts err when it carries a known code, otherwise nil.
func toAPIError(err error) *APIError {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return &APIError{
			status:  domainErr.HTTPStatus(),
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
			Details: domainErr.Details,
		}
	}
	for _, s := range sentinelErrors {
		if errors.Is(err, s.err) {
			return &APIError{status: s.status, Code: string(s.code), Message: err.Error()}
		}
	}
	return nil
}

// RegisterErrorHandler replaces huma.NewError so that handler errors and
// huma's own request validation share one body shape. Call it before any
// route is registered.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		var details []string
		for _, err := range errs {
			if err == nil {
				continue
			}
			if apiErr := toAPIError(err); apiErr != nil {
				return apiErr
			}
			var detail *huma.ErrorDetail
			if errors.As(err, &detail) {
				details = append(details, detail.Error())
			}
		}

		apiErr := &APIError{status: status, Code: statusToCode(status), Message: message}
		if len(details) > 0 {
			apiErr.Details = details
		}
		return apiErr
	}
}

func statusToCode(status int) string {
	var code domainerrors.Code
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		code = domainerrors.CodeValidation
	case status == http.StatusUnauthorized:
		code = domainerrors.CodeUnauthorized
	case status == http.StatusForbidden:
		code = domainerrors.CodeForbidden
	case status == http.StatusNotFound:
		code = domainerrors.CodeNotFound
	case status == http.StatusConflict:
		code = domainerrors.CodeConflict
	case status == http.StatusBadGateway || status == http.StatusGatewayTimeout:
		code = domainerrors.CodeUpstream
	case status == http.StatusServiceUnavailable:
		code = domainerrors.CodeUnavailable
	default:
		code = domainerrors.CodeInternal
	}
	return string(code)
}
