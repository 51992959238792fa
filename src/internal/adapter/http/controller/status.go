package controller

import (
	"errors"
	"net/http"

	"github.com/PersonalHub360/gateway-sub002/src/internal/domain"
)

// statusFromError maps domain failures onto HTTP status codes. Anything a
// handler does not recognise stays a 500 so callers never mistake an
// internal fault for a business rejection.
func statusFromError(err error) int {
	var validationErr *domain.ValidationError
	var limitErr *domain.LimitExceededError
	var transitionErr *domain.InvalidTransitionError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorizedActor):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.As(err, &transitionErr),
		errors.Is(err, domain.ErrRefundAlreadyIssued),
		errors.Is(err, domain.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.As(err, &limitErr),
		errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPolicyUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
