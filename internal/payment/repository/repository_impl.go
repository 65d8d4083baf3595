package repository

import (
	"context"

	"github.com/simpmc/simppay/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rec *domain.PaymentRecord) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, player_id, kind, provider, declared_amount, confirmed_amount,
			status, message, created_at, finalized_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID,
		rec.PlayerID,
		rec.Kind,
		rec.Provider,
		rec.DeclaredAmount,
		rec.ConfirmedAmount,
		rec.Status,
		rec.Message,
		rec.CreatedAt,
		rec.FinalizedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, id string) (*domain.PaymentRecord, error) {
	var item domain.PaymentRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, player_id, kind, provider, declared_amount, confirmed_amount,
			status, message, created_at, finalized_at
		 FROM payments
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == "" {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) History(ctx context.Context, db *gorm.DB, playerID string, limit int) ([]domain.PaymentRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var items []domain.PaymentRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, player_id, kind, provider, declared_amount, confirmed_amount,
			status, message, created_at, finalized_at
		 FROM payments
		 WHERE player_id = ?
		 ORDER BY finalized_at DESC
		 LIMIT ?`,
		playerID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
