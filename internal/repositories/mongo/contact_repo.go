package mongo

import (
	"context"

	"github.com/kmit-fdms/fdms/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ContactRepository interface {
	Insert(ctx context.Context, m *models.ContactMessage) error
}

type contactRepo struct {
	col *mongo.Collection
}

func NewContactRepo(db *mongo.Database) ContactRepository {
	return &contactRepo{col: db.Collection("contact_messages")}
}

func (r *contactRepo) Insert(ctx context.Context, m *models.ContactMessage) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, m)
	return err
}
