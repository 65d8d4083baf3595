package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the two payment flows.
type Kind string

const (
	KindCard    Kind = "CARD"
	KindBanking Kind = "BANKING"
)

// Telcos accepted for card top-ups.
var Telcos = map[string]bool{
	"VIETTEL":      true,
	"MOBIFONE":     true,
	"VINAPHONE":    true,
	"VIETNAMOBILE": true,
	"GARENA":       true,
	"ZING":         true,
	"VCOIN":        true,
	"GATE":         true,
}

// Denominations are the card face values the provider accepts, in VND.
var Denominations = map[int64]bool{
	10000:   true,
	20000:   true,
	30000:   true,
	50000:   true,
	100000:  true,
	200000:  true,
	300000:  true,
	500000:  true,
	1000000: true,
}

// CardDetail carries the card-specific fields of a payment.
// Price is the declared face value; the provider reports the real one.
type CardDetail struct {
	Telco  string
	Serial string
	Pin    string
	Price  int64
}

func (c CardDetail) Validate() error {
	if c.Serial == "" || c.Pin == "" {
		return ErrInvalidDetail
	}
	if !Telcos[c.Telco] {
		return ErrInvalidTelco
	}
	if !Denominations[c.Price] {
		return ErrInvalidDenomination
	}
	return nil
}

// BankDetail carries the transfer-specific fields of a payment.
type BankDetail struct {
	Amount        int64
	ReferenceCode string
	QRString      string
}

// Payment is the in-flight payment tracked by the registry. A payment is
// identified by a stable ID so that retries of the same card collapse into
// one submission.
type Payment struct {
	ID              string
	PlayerID        string
	Kind            Kind
	Amount          int64
	ConfirmedAmount int64
	Status          Status
	Message         string

	Card *CardDetail
	Bank *BankDetail

	CreatedAt time.Time
}

// NewCardPaymentID derives the payment ID from the card serial so that the
// same physical card always maps to the same in-flight payment.
func NewCardPaymentID(serial string) string {
	sum := sha256.Sum256([]byte(serial))
	return hex.EncodeToString(sum[:])
}

// NewBankPaymentID returns a fresh ID for a bank transfer intent.
func NewBankPaymentID() string {
	return uuid.NewString()
}

// PaymentRecord is the persisted terminal outcome of a payment.
type PaymentRecord struct {
	ID              string `gorm:"primaryKey;size:64"`
	PlayerID        string `gorm:"size:64;index"`
	Kind            string `gorm:"size:16"`
	Provider        string `gorm:"size:32"`
	DeclaredAmount  int64
	ConfirmedAmount int64
	Status          string `gorm:"size:32"`
	Message         string `gorm:"size:255"`
	CreatedAt       time.Time
	FinalizedAt     time.Time
}

func (PaymentRecord) TableName() string {
	return "payments"
}
