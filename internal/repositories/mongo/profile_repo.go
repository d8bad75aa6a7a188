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

type ProfileRepository interface {
	Insert(ctx context.Context, p *models.Profile) error
	List(ctx context.Context) ([]models.Profile, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Profile, error)
	FindByName(ctx context.Context, name string) (*models.Profile, error)
	// EmailTaken reports whether another profile than except uses email.
	EmailTaken(ctx context.Context, email string, except primitive.ObjectID) (bool, error)
	Update(ctx context.Context, id primitive.ObjectID, patch models.ProfilePatch, updatedAt time.Time) (*models.Profile, error)
	SetDocuments(ctx context.Context, id primitive.ObjectID, paths map[models.DocumentKind]string, updatedAt time.Time) (*models.Profile, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type profileRepo struct {
	col *mongo.Collection
}

func NewProfileRepo(db *mongo.Database) ProfileRepository {
	return &profileRepo{col: db.Collection("profiles")}
}

func (r *profileRepo) Insert(ctx context.Context, p *models.Profile) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return utils.ErrDuplicate
	}
	return err
}

func (r *profileRepo) List(ctx context.Context) ([]models.Profile, error) {
	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Profile{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *profileRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Profile, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *profileRepo) FindByName(ctx context.Context, name string) (*models.Profile, error) {
	return r.findOne(ctx, bson.M{"personal_details.name": name})
}

func (r *profileRepo) EmailTaken(ctx context.Context, email string, except primitive.ObjectID) (bool, error) {
	filter := bson.M{"personal_details.email": email}
	if !except.IsZero() {
		filter["_id"] = bson.M{"$ne": except}
	}
	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *profileRepo) findOne(ctx context.Context, filter bson.M) (*models.Profile, error) {
	var p models.Profile
	err := r.col.FindOne(ctx, filter).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update sets each top-level section present in patch; sections are replaced,
// never merged field by field.
func (r *profileRepo) Update(ctx context.Context, id primitive.ObjectID, patch models.ProfilePatch, updatedAt time.Time) (*models.Profile, error) {
	set := bson.M{"updated_at": updatedAt}
	if patch.PersonalDetails != nil {
		set["personal_details"] = patch.PersonalDetails
	}
	if patch.Education != nil {
		set["education"] = *patch.Education
	}
	if patch.ProfessionalExperience != nil {
		set["professional_experience"] = *patch.ProfessionalExperience
	}
	if patch.Certificates != nil {
		set["certificates"] = patch.Certificates
	}
	return r.findOneAndSet(ctx, id, set)
}

func (r *profileRepo) SetDocuments(ctx context.Context, id primitive.ObjectID, paths map[models.DocumentKind]string, updatedAt time.Time) (*models.Profile, error) {
	set := bson.M{"updated_at": updatedAt}
	for kind, path := range paths {
		set[kind.BSONField()] = path
	}
	return r.findOneAndSet(ctx, id, set)
}

func (r *profileRepo) findOneAndSet(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Profile, error) {
	var p models.Profile
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return nil, utils.ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}
