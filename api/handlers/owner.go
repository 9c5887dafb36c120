package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/harshach55/AssistQR/api"
	"github.com/harshach55/AssistQR/config"
	"github.com/harshach55/AssistQR/databases"
	"github.com/harshach55/AssistQR/models"
)

// Owner exported for testing purposes
type Owner struct {
	DB databases.OwnerDatabase
}

type ownerCreateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// OwnerCreateHandler registers a vehicle owner account
func (o Owner) OwnerCreateHandler(w http.ResponseWriter, r *http.Request) {
	var req ownerCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		config.ErrorStatus("invalid email", http.StatusBadRequest, w, fmt.Errorf("a valid email is required"))
		return
	}
	if len(req.Password) < 8 {
		config.ErrorStatus("password too short", http.StatusBadRequest, w,
			fmt.Errorf("password must be at least 8 characters"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	if existing, err := o.DB.FindByEmail(ctx, req.Email); err == nil && existing != nil {
		config.ErrorStatus("email already registered", http.StatusConflict, w,
			fmt.Errorf("an account already exists for %s", req.Email))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}

	owner := models.Owner{
		ID:        primitive.NewObjectID(),
		Name:      req.Name,
		Email:     req.Email,
		Password:  string(hash),
		CreatedAt: primitive.NewDateTimeFromTime(time.Now().UTC()),
	}
	if _, err := o.DB.InsertOne(ctx, owner); err != nil {
		config.ErrorStatus("failed to create owner", http.StatusInternalServerError, w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Owner created successfully",
		"id":      owner.ID.Hex(),
	})
}

// OwnerCheckEmailHandler reports whether an email already has an account, so
// the signup form can validate before submitting
func (o Owner) OwnerCheckEmailHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	exists := false
	if owner, err := o.DB.FindByEmail(ctx, req.Email); err == nil && owner != nil {
		exists = true
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"exists": exists})
}
