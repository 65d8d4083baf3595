package repository

import (
	"context"

	"github.com/simpmc/simppay/internal/milestone/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) MarkCompleted(ctx context.Context, db *gorm.DB, c *domain.Completion) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO milestone_completions (
			id, milestone_id, subject, window_kind, window_start, completed_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (milestone_id, subject, window_start) DO NOTHING`,
		c.ID,
		c.MilestoneID,
		c.Subject,
		c.Window,
		c.WindowStart,
		c.CompletedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ResetWindow(ctx context.Context, db *gorm.DB, window string) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM milestone_completions WHERE window_kind = ?`,
		window,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
