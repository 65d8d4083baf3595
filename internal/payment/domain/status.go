package domain

// Status is the canonical payment status. Every provider-specific code maps
// to exactly one of these; unrecognized codes map to StatusFailed.
type Status string

const (
	StatusCreated Status = "CREATED"
	StatusPending Status = "PENDING"

	StatusSuccess            Status = "SUCCESS"
	StatusSuccessWrongAmount Status = "SUCCESS_WRONG_AMOUNT"
	StatusFailed             Status = "FAILED"
	StatusInvalid            Status = "INVALID"
	StatusExpired            Status = "EXPIRED"
	StatusExists             Status = "EXISTS"
	StatusCancelled          Status = "CANCELLED"
)

// IsTerminal reports whether the status ends a payment's lifecycle.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusSuccessWrongAmount, StatusFailed,
		StatusInvalid, StatusExpired, StatusExists, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsSuccess reports whether the status leads to a confirmed credit.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess || s == StatusSuccessWrongAmount
}
