package models

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmergencyContact holds the structure for the contacts collection in mongo.
// Each contact belongs to exactly one vehicle.
type EmergencyContact struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	VehicleID primitive.ObjectID `bson:"vehicleId" json:"vehicleId"`
	Name      string             `bson:"name" json:"name"`
	Phone     string             `bson:"phone" json:"phone"`
	Email     string             `bson:"email" json:"email"`
	CreatedAt primitive.DateTime `bson:"createdAt" json:"createdAt"`
}

var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

// ValidE164 reports whether phone is a well-formed E.164 number
func ValidE164(phone string) bool {
	return e164Pattern.MatchString(phone)
}
