package service

import (
	"errors"

	"github.com/salesflow/salesflow-api/internal/domain"
)

// Common service errors
var (
	// ErrUserContextRequired is returned when a call needs an authenticated user
	ErrUserContextRequired = errors.New("user context required")

	// ErrForbidden is returned when a user doesn't have permission for an action
	ErrForbidden = errors.New("insufficient permissions")

	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidState is returned when an entity is not in a state that allows the action
	ErrInvalidState = errors.New("invalid state for this action")

	// ErrLossReasonRequired is returned when closing an opportunity as lost without a reason
	ErrLossReasonRequired = domain.ErrLossReasonRequired
)
