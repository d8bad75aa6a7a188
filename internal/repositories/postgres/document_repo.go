package postgres

import (
	"context"

	"github.com/kmit-fdms/fdms/internal/models"
	"gorm.io/gorm"
)

type DocumentRepository interface {
	InsertMany(ctx context.Context, docs []models.ProfileDocument) error
	ListByProfile(ctx context.Context, profileID string) ([]models.ProfileDocument, error)
}

type documentRepo struct {
	db *gorm.DB
}

func NewDocumentRepo(db *gorm.DB) DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) InsertMany(ctx context.Context, docs []models.ProfileDocument) error {
	if len(docs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&docs).Error
}

func (r *documentRepo) ListByProfile(ctx context.Context, profileID string) ([]models.ProfileDocument, error) {
	rows := []models.ProfileDocument{}
	err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("upload_at DESC").
		Find(&rows).Error
	return rows, err
}
