package postgres

import (
	"context"
	"slices"

	"github.com/kmit-fdms/fdms/internal/models"
	"gorm.io/gorm"
)

type ChatLogRepository interface {
	Insert(ctx context.Context, logs ...*models.ChatLog) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ChatLog, error)
}

type chatLogRepo struct {
	db *gorm.DB
}

func NewChatLogRepo(db *gorm.DB) ChatLogRepository {
	return &chatLogRepo{db: db}
}

func (r *chatLogRepo) Insert(ctx context.Context, logs ...*models.ChatLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(logs).Error
}

func (r *chatLogRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.ChatLog, error) {
	if limit <= 0 {
		limit = 50
	}

	// newest turns first, returned oldest first
	var rows []models.ChatLog
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	slices.Reverse(rows)
	return rows, nil
}
