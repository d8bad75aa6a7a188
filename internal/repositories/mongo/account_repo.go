package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/kmit-fdms/fdms/internal/models"
	"github.com/kmit-fdms/fdms/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// login history kept per account
const maxLoginHistory = 20

type AccountRepository interface {
	Insert(ctx context.Context, a *models.Account) error
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	RecordLogin(ctx context.Context, id primitive.ObjectID, ev models.LoginEvent) error
	List(ctx context.Context) ([]models.Account, error)
}

type accountRepo struct {
	col *mongo.Collection
}

func NewAccountRepo(db *mongo.Database) AccountRepository {
	return &accountRepo{col: db.Collection("accounts")}
}

func (r *accountRepo) Insert(ctx context.Context, a *models.Account) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	res, err := r.col.InsertOne(ctx, a)
	if mongo.IsDuplicateKeyError(err) {
		return utils.ErrDuplicate
	}
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		a.ID = id
	}
	return nil
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepo) RecordLogin(ctx context.Context, id primitive.ObjectID, ev models.LoginEvent) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set": bson.M{"last_login": ev.Timestamp},
			"$inc": bson.M{"login_count": 1},
			"$push": bson.M{"login_history": bson.M{
				"$each":  []models.LoginEvent{ev},
				"$slice": -maxLoginHistory,
			}},
		},
	)
	return err
}

func (r *accountRepo) List(ctx context.Context) ([]models.Account, error) {
	cur, err := r.col.Find(ctx, bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: 1}}).
			SetProjection(bson.M{"password": 0, "login_history": 0}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Account{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
