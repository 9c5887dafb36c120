package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Vehicle holds the structure for the vehicles collection in mongo.
// QRToken is the opaque capability printed as a QR code; it is minted once at
// creation and never changes for the life of the vehicle.
type Vehicle struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	OwnerID   primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	Plate     string             `bson:"plate" json:"plate"`
	Model     string             `bson:"model" json:"model"`
	Color     string             `bson:"color" json:"color"`
	QRToken   string             `bson:"qrToken" json:"qrToken"`
	CreatedAt primitive.DateTime `bson:"createdAt" json:"createdAt"`
}

// VehiclePublic is the QR-scan landing view of a vehicle. It deliberately
// carries no owner or contact details.
type VehiclePublic struct {
	Plate string `json:"plate"`
	Model string `json:"model"`
	Color string `json:"color"`
}

// Public strips a vehicle down to what a bystander may see
func (v Vehicle) Public() VehiclePublic {
	return VehiclePublic{Plate: v.Plate, Model: v.Model, Color: v.Color}
}
