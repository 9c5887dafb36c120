package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Report channels, recorded on each accident report so follow-up knows how it
// arrived.
const (
	ReportChannelWeb      = "web"
	ReportChannelSync     = "sync"
	ReportChannelCellular = "cellular"
	ReportChannelSMS      = "sms"
)

// AccidentReport holds the structure for the reports collection in mongo.
// Reports are immutable after insertion; image URLs are attached at creation
// time only, in insertion order.
type AccidentReport struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	VehicleID      primitive.ObjectID `bson:"vehicleId" json:"vehicleId"`
	Latitude       *float64           `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude      *float64           `bson:"longitude,omitempty" json:"longitude,omitempty"`
	ManualLocation string             `bson:"manualLocation,omitempty" json:"manualLocation,omitempty"`
	HelperNote     string             `bson:"helperNote,omitempty" json:"helperNote,omitempty"`
	Images         []string           `bson:"images,omitempty" json:"images,omitempty"`
	Channel        string             `bson:"channel" json:"channel"`
	CreatedAt      primitive.DateTime `bson:"createdAt" json:"createdAt"`
}

// HasCoordinates reports whether both latitude and longitude were supplied
func (r AccidentReport) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// ReportCreatedResponse is returned to programmatic callers (the sync agent,
// the SMS gateway) once a report is persisted
type ReportCreatedResponse struct {
	ReportID         string `json:"reportId"`
	ContactsNotified int    `json:"contactsNotified"`
	Message          string `json:"message,omitempty"`
}
