package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/harshach55/AssistQR/api/handlers"
	"github.com/harshach55/AssistQR/databases/mocks"
	"github.com/harshach55/AssistQR/models"
)

func TestContact_AddContactHandler(t *testing.T) {
	owner := sessionFor(t)
	vehicle := reportTestVehicle()
	vehicle.OwnerID = owner.ID

	vdb := &mocks.VehicleDatabase{}
	cdb := &mocks.ContactDatabase{}
	vdb.On("FindOne", mock.Anything, mock.Anything).Return(vehicle, nil)

	var inserted models.EmergencyContact
	cdb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.EmergencyContact")).
		Run(func(args mock.Arguments) {
			inserted = args.Get(1).(models.EmergencyContact)
		}).
		Return(nil, nil)

	c := handlers.Contact{DB: cdb, VDB: vdb}

	body := `{"name": "Priya", "phone": "+919812345678", "email": "priya@example.com"}`
	req := httptest.NewRequest("POST", "/api/v1/vehicle/"+vehicle.ID.Hex()+"/contacts", strings.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"vehicle_id": vehicle.ID.Hex()})
	req.SetBasicAuth(owner.Email, "hunter2hunter2")
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.AddContactHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, vehicle.ID, inserted.VehicleID)
	assert.Equal(t, "+919812345678", inserted.Phone)
}

func TestContact_AddContactHandlerRejectsBadPhone(t *testing.T) {
	owner := sessionFor(t)
	vehicle := reportTestVehicle()
	vehicle.OwnerID = owner.ID

	vdb := &mocks.VehicleDatabase{}
	cdb := &mocks.ContactDatabase{}
	vdb.On("FindOne", mock.Anything, mock.Anything).Return(vehicle, nil)

	c := handlers.Contact{DB: cdb, VDB: vdb}

	for _, phone := range []string{"9812345678", "+0123", "98-123-45678", "+91 9812345678"} {
		body := `{"name": "Priya", "phone": "` + phone + `"}`
		req := httptest.NewRequest("POST", "/api/v1/vehicle/"+vehicle.ID.Hex()+"/contacts", strings.NewReader(body))
		req = mux.SetURLVars(req, map[string]string{"vehicle_id": vehicle.ID.Hex()})
		req.SetBasicAuth(owner.Email, "hunter2hunter2")
		rr := httptest.NewRecorder()
		http.HandlerFunc(c.AddContactHandler).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code, "phone %q should be rejected", phone)
	}
	cdb.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestContact_AddContactHandlerNeedsAChannel(t *testing.T) {
	owner := sessionFor(t)
	vehicle := reportTestVehicle()
	vehicle.OwnerID = owner.ID

	vdb := &mocks.VehicleDatabase{}
	cdb := &mocks.ContactDatabase{}
	vdb.On("FindOne", mock.Anything, mock.Anything).Return(vehicle, nil)

	c := handlers.Contact{DB: cdb, VDB: vdb}

	req := httptest.NewRequest("POST", "/api/v1/vehicle/"+vehicle.ID.Hex()+"/contacts", strings.NewReader(`{"name": "Priya"}`))
	req = mux.SetURLVars(req, map[string]string{"vehicle_id": vehicle.ID.Hex()})
	req.SetBasicAuth(owner.Email, "hunter2hunter2")
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.AddContactHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestContact_ContactsByVehicleHandler(t *testing.T) {
	owner := sessionFor(t)
	vehicle := reportTestVehicle()
	vehicle.OwnerID = owner.ID

	vdb := &mocks.VehicleDatabase{}
	cdb := &mocks.ContactDatabase{}
	vdb.On("FindOne", mock.Anything, mock.Anything).Return(vehicle, nil)
	cdb.On("Find", mock.Anything, mock.Anything).Return([]models.EmergencyContact{
		{VehicleID: vehicle.ID, Name: "Priya", Phone: "+919812345678"},
	}, nil)

	c := handlers.Contact{DB: cdb, VDB: vdb}

	req := httptest.NewRequest("GET", "/api/v1/vehicle/"+vehicle.ID.Hex()+"/contacts", nil)
	req = mux.SetURLVars(req, map[string]string{"vehicle_id": vehicle.ID.Hex()})
	req.SetBasicAuth(owner.Email, "hunter2hunter2")
	rr := httptest.NewRecorder()
	http.HandlerFunc(c.ContactsByVehicleHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Priya")
}
