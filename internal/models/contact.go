package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContactMessage struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName string             `bson:"full_name" json:"fullName"`
	Email    string             `bson:"email" json:"email"`
	Phone    string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Feedback string             `bson:"feedback" json:"feedback"`
	Date     time.Time          `bson:"date" json:"date"`
}
