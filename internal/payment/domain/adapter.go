package domain

import "context"

// SubmitResult is the provider's answer to an initial submission.
type SubmitResult struct {
	Status  Status
	Message string
}

// PollResult is the provider's answer to a status check. Amount is the
// confirmed amount and is only meaningful for success statuses.
type PollResult struct {
	Status  Status
	Amount  int64
	Message string
}

// Adapter is a payment provider integration. Submit starts a payment,
// Poll checks its status, and Cancel withdraws it where the provider
// supports that (otherwise it returns ErrCancelUnsupported).
type Adapter interface {
	Provider() string
	Kind() Kind
	Submit(ctx context.Context, p *Payment) (SubmitResult, error)
	Poll(ctx context.Context, p *Payment) (PollResult, error)
	Cancel(ctx context.Context, p *Payment) error
}
