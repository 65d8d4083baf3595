package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository persists terminal payment outcomes.
type Repository interface {
	// Insert writes the record if no record with the same ID exists.
	// It reports whether a row was written.
	Insert(ctx context.Context, db *gorm.DB, rec *PaymentRecord) (bool, error)
	Find(ctx context.Context, db *gorm.DB, id string) (*PaymentRecord, error)
	History(ctx context.Context, db *gorm.DB, playerID string, limit int) ([]PaymentRecord, error)
}
