package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harshach55/AssistQR/api"
	"github.com/harshach55/AssistQR/config"
	"github.com/harshach55/AssistQR/databases"
	"github.com/harshach55/AssistQR/models"
)

// Contact exported for testing purposes
type Contact struct {
	DB  databases.ContactDatabase
	VDB databases.VehicleDatabase
}

type contactCreateRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// AddContactHandler attaches an emergency contact to one of the owner's
// vehicles. Phone numbers must be E.164 so the SMS providers can route them.
func (c Contact) AddContactHandler(w http.ResponseWriter, r *http.Request) {
	vehicle, ok := c.ownedVehicle(w, r)
	if !ok {
		return
	}

	var req contactCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Name == "" {
		config.ErrorStatus("missing name", http.StatusBadRequest, w, fmt.Errorf("name is required"))
		return
	}
	if req.Phone == "" && req.Email == "" {
		config.ErrorStatus("contact needs a channel", http.StatusBadRequest, w,
			fmt.Errorf("at least one of phone or email is required"))
		return
	}
	if req.Phone != "" && !models.ValidE164(req.Phone) {
		config.ErrorStatus("invalid phone number", http.StatusBadRequest, w,
			fmt.Errorf("phone must be E.164, e.g. +919876543210"))
		return
	}

	contact := models.EmergencyContact{
		ID:        primitive.NewObjectID(),
		VehicleID: vehicle.ID,
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		CreatedAt: primitive.NewDateTimeFromTime(time.Now().UTC()),
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	if _, err := c.DB.InsertOne(ctx, contact); err != nil {
		config.ErrorStatus("failed to create contact", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Contact added successfully",
		"id":      contact.ID.Hex(),
	})
}

// ContactsByVehicleHandler lists the emergency contacts of one of the
// owner's vehicles
func (c Contact) ContactsByVehicleHandler(w http.ResponseWriter, r *http.Request) {
	vehicle, ok := c.ownedVehicle(w, r)
	if !ok {
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	dbResp, err := c.DB.Find(ctx, bson.M{"vehicleId": vehicle.ID})
	if err != nil {
		config.ErrorStatus("failed to get contacts", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.EmergencyContact{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DeleteContactHandler removes a contact from one of the owner's vehicles
func (c Contact) DeleteContactHandler(w http.ResponseWriter, r *http.Request) {
	vehicle, ok := c.ownedVehicle(w, r)
	if !ok {
		return
	}

	contactID := mux.Vars(r)["contact_id"]
	cID, err := primitive.ObjectIDFromHex(contactID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	if err := c.DB.DeleteOne(ctx, bson.M{"_id": cID, "vehicleId": vehicle.ID}); err != nil {
		config.ErrorStatus("failed to delete contact", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Contact deleted successfully",
	})
}

// ownedVehicle resolves the {vehicle_id} path variable and verifies it
// belongs to the authenticated owner; it writes the error response itself
func (c Contact) ownedVehicle(w http.ResponseWriter, r *http.Request) (*models.Vehicle, bool) {
	ownerID, err := authenticatedOwnerObjectID(r)
	if err != nil {
		config.ErrorStatus("failed to resolve owner", http.StatusUnauthorized, w, err)
		return nil, false
	}

	vID, err := primitive.ObjectIDFromHex(mux.Vars(r)["vehicle_id"])
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return nil, false
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	vehicle, err := c.VDB.FindOne(ctx, bson.M{"_id": vID, "ownerId": ownerID})
	if err != nil {
		config.ErrorStatus("vehicle not found", http.StatusNotFound, w, err)
		return nil, false
	}
	return vehicle, true
}
