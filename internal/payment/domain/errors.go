package domain

import "errors"

var (
	ErrDuplicateSubmission   = errors.New("payment already in flight")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrInvalidPlayer         = errors.New("invalid player id")
	ErrInvalidDetail         = errors.New("invalid payment detail")
	ErrInvalidAmount         = errors.New("invalid payment amount")
	ErrInvalidTelco          = errors.New("unknown telco")
	ErrInvalidDenomination   = errors.New("unknown card denomination")
	ErrCancelUnsupported     = errors.New("provider does not support cancellation")
	ErrProviderNotConfigured = errors.New("provider credentials not configured")
	ErrProviderNotFound      = errors.New("no adapter for payment kind")

	ErrMissingAPIKey  = errors.New("missing webhook api key")
	ErrInvalidAPIKey  = errors.New("invalid webhook api key")
	ErrInvalidPayload = errors.New("invalid webhook payload")
)
