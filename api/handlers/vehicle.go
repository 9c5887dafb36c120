package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harshach55/AssistQR/api"
	"github.com/harshach55/AssistQR/config"
	"github.com/harshach55/AssistQR/databases"
	"github.com/harshach55/AssistQR/models"
)

// Vehicle exported for testing purposes
type Vehicle struct {
	DB  databases.VehicleDatabase
	CDB databases.ContactDatabase
	RDB databases.ReportDatabase
}

// vehicleCreateRequest is the owner-facing creation payload; the qrToken is
// minted server-side and never accepted from the client
type vehicleCreateRequest struct {
	Plate string `json:"plate"`
	Model string `json:"model"`
	Color string `json:"color"`
}

// CreateVehicleHandler registers a vehicle under the authenticated owner and
// mints its immutable QR token
func (v Vehicle) CreateVehicleHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := authenticatedOwnerObjectID(r)
	if err != nil {
		config.ErrorStatus("failed to resolve owner", http.StatusUnauthorized, w, err)
		return
	}

	var req vehicleCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if req.Plate == "" {
		config.ErrorStatus("missing plate", http.StatusBadRequest, w, fmt.Errorf("plate is required"))
		return
	}

	vehicle := models.Vehicle{
		ID:        primitive.NewObjectID(),
		OwnerID:   ownerID,
		Plate:     req.Plate,
		Model:     req.Model,
		Color:     req.Color,
		QRToken:   uuid.New().String(),
		CreatedAt: primitive.NewDateTimeFromTime(time.Now().UTC()),
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	if _, err := v.DB.InsertOne(ctx, vehicle); err != nil {
		config.ErrorStatus("failed to create vehicle", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Vehicle created successfully",
		"id":      vehicle.ID.Hex(),
		"qrToken": vehicle.QRToken,
	})
}

// VehiclesByOwnerHandler returns every vehicle registered by the
// authenticated owner
func (v Vehicle) VehiclesByOwnerHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := authenticatedOwnerObjectID(r)
	if err != nil {
		config.ErrorStatus("failed to resolve owner", http.StatusUnauthorized, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	dbResp, err := v.DB.Find(ctx, bson.M{"ownerId": ownerID})
	if err != nil {
		config.ErrorStatus("failed to get vehicles", http.StatusNotFound, w, err)
		return
	}
	if len(dbResp) == 0 {
		dbResp = []models.Vehicle{}
	}
	b, err := json.Marshal(dbResp)
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// DeleteVehicleHandler deletes one of the owner's vehicles along with its
// contacts and reports. The QR token dies with the vehicle.
func (v Vehicle) DeleteVehicleHandler(w http.ResponseWriter, r *http.Request) {
	ownerID, err := authenticatedOwnerObjectID(r)
	if err != nil {
		config.ErrorStatus("failed to resolve owner", http.StatusUnauthorized, w, err)
		return
	}

	vehicleID := mux.Vars(r)["vehicle_id"]
	vID, err := primitive.ObjectIDFromHex(vehicleID)
	if err != nil {
		config.ErrorStatus("failed to get objectID from Hex", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	// ownership check doubles as existence check
	if _, err := v.DB.FindOne(ctx, bson.M{"_id": vID, "ownerId": ownerID}); err != nil {
		config.ErrorStatus("vehicle not found", http.StatusNotFound, w, err)
		return
	}

	if err := v.DB.DeleteOne(ctx, bson.M{"_id": vID}); err != nil {
		config.ErrorStatus("failed to delete vehicle", http.StatusInternalServerError, w, err)
		return
	}
	if err := v.CDB.DeleteMany(ctx, bson.M{"vehicleId": vID}); err != nil {
		zap.S().Errorw("failed to cascade contact delete", "vehicleId", vehicleID, "error", err)
	}
	if err := v.RDB.DeleteMany(ctx, bson.M{"vehicleId": vID}); err != nil {
		zap.S().Errorw("failed to cascade report delete", "vehicleId", vehicleID, "error", err)
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Vehicle deleted successfully",
	})
}

// ScanHandler is the public QR-scan landing. It resolves a token to the
// vehicle's public identity only; owner and contact details stay hidden.
func (v Vehicle) ScanHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		config.ErrorStatus("missing token", http.StatusBadRequest, w, fmt.Errorf("token query parameter is required"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()
	vehicle, err := v.DB.FindByToken(ctx, token)
	if err != nil {
		config.ErrorStatus("no vehicle registered for token", http.StatusNotFound, w, err)
		return
	}

	b, err := json.Marshal(vehicle.Public())
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// authenticatedOwnerObjectID resolves the session's owner id to an ObjectID
func authenticatedOwnerObjectID(r *http.Request) (primitive.ObjectID, error) {
	id, err := api.AuthenticatedOwnerID(r)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return primitive.ObjectIDFromHex(id)
}
