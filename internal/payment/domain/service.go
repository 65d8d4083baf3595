package domain

import "context"

// CreateCardInput starts a card top-up.
type CreateCardInput struct {
	PlayerID string
	Telco    string
	Serial   string
	Pin      string
	Price    int64
}

// CreateBankInput starts a bank transfer intent.
type CreateBankInput struct {
	PlayerID string
	Amount   int64
}

// Service is the payment state machine. Finalize is the single funnel for
// terminal transitions; whoever claims a payment from the in-flight registry
// calls it exactly once.
type Service interface {
	CreateCard(ctx context.Context, in CreateCardInput) (*Payment, error)
	CreateBank(ctx context.Context, in CreateBankInput) (*Payment, error)
	CancelBank(ctx context.Context, playerID string) error
	Get(ctx context.Context, id string) (*Payment, error)
	History(ctx context.Context, playerID string, limit int) ([]PaymentRecord, error)
	Finalize(ctx context.Context, id string, status Status, confirmedAmount int64, message string) error
}
