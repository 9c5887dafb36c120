package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/harshach55/AssistQR/api"
	"github.com/harshach55/AssistQR/api/handlers"
	"github.com/harshach55/AssistQR/databases/mocks"
	"github.com/harshach55/AssistQR/models"
)

// sessionFor installs a go-guardian session backed by a mocked owner store
// and returns the owner whose basic-auth credentials the tests can use
func sessionFor(t *testing.T) *models.Owner {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	owner := &models.Owner{
		ID:       primitive.NewObjectID(),
		Name:     "Harsha",
		Email:    "owner@example.com",
		Password: string(hash),
	}

	odb := &mocks.OwnerDatabase{}
	odb.On("FindByEmail", mock.Anything, "owner@example.com").Return(owner, nil)

	m := api.MiddlewareDB{DB: odb}
	m.SetupGoGuardian()
	return owner
}

func TestVehicle_ScanHandlerReturnsPublicViewOnly(t *testing.T) {
	vehicle := reportTestVehicle()

	vdb := &mocks.VehicleDatabase{}
	vdb.On("FindByToken", mock.Anything, "tok123").Return(vehicle, nil)

	v := handlers.Vehicle{DB: vdb}

	req := httptest.NewRequest("GET", "/api/v1/scan?token=tok123", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(v.ScanHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "KA01AB1234", resp["plate"])
	assert.Equal(t, "Swift", resp["model"])
	assert.Equal(t, "Red", resp["color"])
	// nothing but the public identity leaves the server
	assert.NotContains(t, rr.Body.String(), "ownerId")
	assert.NotContains(t, rr.Body.String(), "qrToken")
}

func TestVehicle_ScanHandlerUnknownToken(t *testing.T) {
	vdb := &mocks.VehicleDatabase{}
	vdb.On("FindByToken", mock.Anything, "nope").Return(nil, assert.AnError)

	v := handlers.Vehicle{DB: vdb}

	req := httptest.NewRequest("GET", "/api/v1/scan?token=nope", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(v.ScanHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestVehicle_ScanHandlerMissingToken(t *testing.T) {
	v := handlers.Vehicle{DB: &mocks.VehicleDatabase{}}

	req := httptest.NewRequest("GET", "/api/v1/scan", nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(v.ScanHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVehicle_CreateVehicleHandlerMintsToken(t *testing.T) {
	owner := sessionFor(t)

	vdb := &mocks.VehicleDatabase{}
	var inserted models.Vehicle
	vdb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.Vehicle")).
		Run(func(args mock.Arguments) {
			inserted = args.Get(1).(models.Vehicle)
		}).
		Return(nil, nil)

	v := handlers.Vehicle{DB: vdb}

	body := `{"plate": "KA01AB1234", "model": "Swift", "color": "Red"}`
	req := httptest.NewRequest("POST", "/api/v1/vehicle", strings.NewReader(body))
	req.SetBasicAuth(owner.Email, "hunter2hunter2")
	rr := httptest.NewRecorder()
	http.HandlerFunc(v.CreateVehicleHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, owner.ID, inserted.OwnerID)
	assert.NotEmpty(t, inserted.QRToken)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, inserted.QRToken, resp["qrToken"])
}

func TestVehicle_CreateVehicleHandlerRequiresPlate(t *testing.T) {
	owner := sessionFor(t)

	vdb := &mocks.VehicleDatabase{}
	v := handlers.Vehicle{DB: vdb}

	req := httptest.NewRequest("POST", "/api/v1/vehicle", strings.NewReader(`{"model": "Swift"}`))
	req.SetBasicAuth(owner.Email, "hunter2hunter2")
	rr := httptest.NewRecorder()
	http.HandlerFunc(v.CreateVehicleHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	vdb.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestVehicle_DeleteVehicleHandlerCascades(t *testing.T) {
	owner := sessionFor(t)
	vehicle := reportTestVehicle()
	vehicle.OwnerID = owner.ID

	vdb := &mocks.VehicleDatabase{}
	cdb := &mocks.ContactDatabase{}
	rdb := &mocks.ReportDatabase{}

	vdb.On("FindOne", mock.Anything, mock.Anything).Return(vehicle, nil)
	vdb.On("DeleteOne", mock.Anything, mock.Anything).Return(nil)
	cdb.On("DeleteMany", mock.Anything, mock.Anything).Return(nil)
	rdb.On("DeleteMany", mock.Anything, mock.Anything).Return(nil)

	v := handlers.Vehicle{DB: vdb, CDB: cdb, RDB: rdb}

	req := httptest.NewRequest("DELETE", "/api/v1/vehicle/"+vehicle.ID.Hex(), nil)
	req = mux.SetURLVars(req, map[string]string{"vehicle_id": vehicle.ID.Hex()})
	req.SetBasicAuth(owner.Email, "hunter2hunter2")
	rr := httptest.NewRecorder()
	http.HandlerFunc(v.DeleteVehicleHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	vdb.AssertCalled(t, "DeleteOne", mock.Anything, mock.Anything)
	cdb.AssertCalled(t, "DeleteMany", mock.Anything, mock.Anything)
	rdb.AssertCalled(t, "DeleteMany", mock.Anything, mock.Anything)
}

func TestVehicle_DeleteVehicleHandlerRejectsForeignVehicle(t *testing.T) {
	owner := sessionFor(t)

	vdb := &mocks.VehicleDatabase{}
	// ownership filter finds nothing for someone else's vehicle
	vdb.On("FindOne", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	v := handlers.Vehicle{DB: vdb}

	id := primitive.NewObjectID().Hex()
	req := httptest.NewRequest("DELETE", "/api/v1/vehicle/"+id, nil)
	req = mux.SetURLVars(req, map[string]string{"vehicle_id": id})
	req.SetBasicAuth(owner.Email, "hunter2hunter2")
	rr := httptest.NewRecorder()
	http.HandlerFunc(v.DeleteVehicleHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	vdb.AssertNotCalled(t, "DeleteOne", mock.Anything, mock.Anything)
}
