package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID          primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name        string               `json:"name" bson:"name"`
	UserID      string               `json:"userid" bson:"userid"`
	Email       string               `json:"email,omitempty" bson:"email,omitempty"`
	Password    string               `json:"-" bson:"password"`
	Role        string               `json:"role" bson:"role"`
	Departments []primitive.ObjectID `json:"departments" bson:"departments"`
	CreatedAt   time.Time            `json:"createdAt" bson:"createdAt"`
}
