package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureMongoIndexes creates the indexes that back the unique email rules for
// accounts and profiles. Existing duplicate emails make it fail.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// accounts: email is the login identity
	_, err := db.Collection("accounts").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("uniq_email").
			SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("accounts index uniq_email: %w", err)
	}

	// profiles: name lookup for findByName and the chat assistant
	_, err = db.Collection("profiles").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "personal_details.name", Value: 1}},
			Options: options.Index().SetName("by_name"),
		},
		{
			// unique among profiles that carry an email
			Keys: bson.D{{Key: "personal_details.email", Value: 1}},
			Options: options.Index().
				SetName("uniq_profile_email").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"personal_details.email": bson.M{"$gt": ""}}),
		},
	})
	if err != nil {
		return fmt.Errorf("profiles indexes: %w", err)
	}

	_, err = db.Collection("contact_messages").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "date", Value: -1}},
		Options: options.Index().SetName("by_date"),
	})
	return err
}
