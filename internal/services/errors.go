package services

import (
	"errors"
	"fmt"

	"github.com/sjperalta/coachpay-api/internal/repository"
)

// Common service errors
var (
	ErrNotFound           = repository.ErrNotFound
	ErrDuplicate          = repository.ErrDuplicate
	ErrInvalidState       = errors.New("invalid state transition")
	ErrValidation         = errors.New("validation failed")
	ErrConfiguration      = errors.New("configuration error")
	ErrAlreadySplit       = errors.New("enrollment already split")
	ErrAlreadyScheduled   = errors.New("installments already scheduled")
	ErrPayeeNotConfigured = errors.New("payee not configured for payouts")
	ErrRailUnavailable    = errors.New("payment rail not configured")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func configurationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
