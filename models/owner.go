package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Owner holds the structure for the owners collection in mongo
type Owner struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	CreatedAt primitive.DateTime `bson:"createdAt" json:"createdAt"`
}
