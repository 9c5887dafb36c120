package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harshach55/AssistQR/api/handlers"
	"github.com/harshach55/AssistQR/databases/mocks"
	"github.com/harshach55/AssistQR/models"
	"github.com/harshach55/AssistQR/notify"
)

// emptyNotifier has no providers configured, so every attempt fails fast
// without touching the network
func emptyNotifier() *notify.Notifier {
	return &notify.Notifier{
		Email: notify.NewEmailChain(),
		SMS:   notify.NewSMSDispatcher(nil, nil),
	}
}

// stubImageHost records uploads and hands back deterministic URLs
type stubImageHost struct {
	uploaded []string
	err      error
}

func (s *stubImageHost) Upload(ctx context.Context, file io.Reader, filename string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.uploaded = append(s.uploaded, filename)
	return "https://img.example/" + filename, nil
}

type filePart struct {
	field       string
	filename    string
	contentType string
	body        []byte
}

func multipartRequest(t *testing.T, url string, fields map[string]string, files []filePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	for _, f := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.filename))
		header.Set("Content-Type", f.contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(f.body)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", url, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func reportTestVehicle() *models.Vehicle {
	return &models.Vehicle{
		ID:      primitive.NewObjectID(),
		OwnerID: primitive.NewObjectID(),
		Plate:   "KA01AB1234",
		Model:   "Swift",
		Color:   "Red",
		QRToken: "tok123",
	}
}

func TestReport_CreateReportHandler_NoLocationAccepted(t *testing.T) {
	vehicle := reportTestVehicle()

	vdb := &mocks.VehicleDatabase{}
	cdb := &mocks.ContactDatabase{}
	rdb := &mocks.ReportDatabase{}

	vdb.On("FindByToken", mock.Anything, "tok123").Return(vehicle, nil)
	cdb.On("Find", mock.Anything, mock.Anything).Return([]models.EmergencyContact{}, nil)

	var inserted models.AccidentReport
	rdb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.AccidentReport")).
		Run(func(args mock.Arguments) {
			inserted = args.Get(1).(models.AccidentReport)
		}).
		Return(nil, nil)

	rep := handlers.Report{VDB: vdb, CDB: cdb, RDB: rdb, Notifier: emptyNotifier()}

	req := multipartRequest(t, "/api/v1/report?sync=true", map[string]string{
		"qrToken":    "tok123",
		"helperNote": "minor scrape, car parked",
	}, nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(rep.CreateReportHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp models.ReportCreatedResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, inserted.ID.Hex(), resp.ReportID)
	assert.Equal(t, 0, resp.ContactsNotified)

	assert.Nil(t, inserted.Latitude)
	assert.Nil(t, inserted.Longitude)
	assert.Equal(t, "minor scrape, car parked", inserted.HelperNote)
	assert.Equal(t, models.ReportChannelWeb, inserted.Channel)
	assert.Equal(t, vehicle.ID, inserted.VehicleID)
}

func TestReport_CreateReportHandler_LatitudeOutOfRangeRejected(t *testing.T) {
	vdb := &mocks.VehicleDatabase{}
	rdb := &mocks.ReportDatabase{}
	vdb.On("FindByToken", mock.Anything, "tok123").Return(reportTestVehicle(), nil)

	rep := handlers.Report{VDB: vdb, RDB: rdb, Notifier: emptyNotifier()}

	req := multipartRequest(t, "/api/v1/report", map[string]string{
		"qrToken":   "tok123",
		"latitude":  "91",
		"longitude": "77.59",
	}, nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(rep.CreateReportHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rdb.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestReport_CreateReportHandler_LoneLongitudeRejected(t *testing.T) {
	vdb := &mocks.VehicleDatabase{}
	rdb := &mocks.ReportDatabase{}
	vdb.On("FindByToken", mock.Anything, "tok123").Return(reportTestVehicle(), nil)

	rep := handlers.Report{VDB: vdb, RDB: rdb, Notifier: emptyNotifier()}

	req := multipartRequest(t, "/api/v1/report", map[string]string{
		"qrToken":   "tok123",
		"longitude": "77.59",
	}, nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(rep.CreateReportHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rdb.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestReport_CreateReportHandler_UnknownToken(t *testing.T) {
	vdb := &mocks.VehicleDatabase{}
	vdb.On("FindByToken", mock.Anything, "nope").Return(nil, errors.New("mongo: no documents in result"))

	rep := handlers.Report{VDB: vdb, Notifier: emptyNotifier()}

	req := multipartRequest(t, "/api/v1/report", map[string]string{"qrToken": "nope"}, nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(rep.CreateReportHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReport_CreateReportHandler_TooManyFiles(t *testing.T) {
	vdb := &mocks.VehicleDatabase{}
	rdb := &mocks.ReportDatabase{}
	vdb.On("FindByToken", mock.Anything, "tok123").Return(reportTestVehicle(), nil)

	host := &stubImageHost{}
	rep := handlers.Report{VDB: vdb, RDB: rdb, Images: host, Notifier: emptyNotifier()}

	var files []filePart
	for i := 0; i < 11; i++ {
		files = append(files, filePart{
			field:       "images",
			filename:    fmt.Sprintf("crash-%d.jpg", i),
			contentType: "image/jpeg",
			body:        []byte("jpegbytes"),
		})
	}
	req := multipartRequest(t, "/api/v1/report", map[string]string{"qrToken": "tok123"}, files)
	rr := httptest.NewRecorder()
	http.HandlerFunc(rep.CreateReportHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "too-many-files")
	assert.Empty(t, host.uploaded)
	rdb.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestReport_CreateReportHandler_RejectsNonImageUpload(t *testing.T) {
	vdb := &mocks.VehicleDatabase{}
	rdb := &mocks.ReportDatabase{}
	vdb.On("FindByToken", mock.Anything, "tok123").Return(reportTestVehicle(), nil)

	rep := handlers.Report{VDB: vdb, RDB: rdb, Images: &stubImageHost{}, Notifier: emptyNotifier()}

	req := multipartRequest(t, "/api/v1/report", map[string]string{"qrToken": "tok123"}, []filePart{
		{field: "images", filename: "doc.pdf", contentType: "application/pdf", body: []byte("%PDF-1.4")},
	})
	rr := httptest.NewRecorder()
	http.HandlerFunc(rep.CreateReportHandler).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rdb.AssertNotCalled(t, "InsertOne", mock.Anything, mock.Anything)
}

func TestReport_CreateReportHandler_ImagesHostedInOrder(t *testing.T) {
	vehicle := reportTestVehicle()

	vdb := &mocks.VehicleDatabase{}
	cdb := &mocks.ContactDatabase{}
	rdb := &mocks.ReportDatabase{}
	vdb.On("FindByToken", mock.Anything, "tok123").Return(vehicle, nil)
	cdb.On("Find", mock.Anything, mock.Anything).Return([]models.EmergencyContact{}, nil)

	var inserted models.AccidentReport
	rdb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.AccidentReport")).
		Run(func(args mock.Arguments) {
			inserted = args.Get(1).(models.AccidentReport)
		}).
		Return(nil, nil)

	host := &stubImageHost{}
	rep := handlers.Report{VDB: vdb, CDB: cdb, RDB: rdb, Images: host, Notifier: emptyNotifier()}

	req := multipartRequest(t, "/api/v1/report", map[string]string{
		"qrToken":  "tok123",
		"latitude": "12.97",
		// strconv keeps the full precision round-trip
		"longitude": "77.59",
	}, []filePart{
		{field: "images", filename: "a.jpg", contentType: "image/jpeg", body: []byte("one")},
		{field: "images", filename: "b.png", contentType: "image/png", body: []byte("two")},
		{field: "images", filename: "c.jpg", contentType: "image/jpeg", body: []byte("three")},
	})
	rr := httptest.NewRecorder()
	http.HandlerFunc(rep.CreateReportHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, []string{"a.jpg", "b.png", "c.jpg"}, host.uploaded)
	assert.Equal(t, []string{
		"https://img.example/a.jpg",
		"https://img.example/b.png",
		"https://img.example/c.jpg",
	}, inserted.Images)
	if assert.NotNil(t, inserted.Latitude) {
		assert.Equal(t, 12.97, *inserted.Latitude)
	}
}

func TestReport_CreateReportHandler_InteractiveResponseShape(t *testing.T) {
	vdb := &mocks.VehicleDatabase{}
	cdb := &mocks.ContactDatabase{}
	rdb := &mocks.ReportDatabase{}
	vdb.On("FindByToken", mock.Anything, "tok123").Return(reportTestVehicle(), nil)
	cdb.On("Find", mock.Anything, mock.Anything).Return([]models.EmergencyContact{}, nil)
	rdb.On("InsertOne", mock.Anything, mock.Anything).Return(nil, nil)

	rep := handlers.Report{VDB: vdb, CDB: cdb, RDB: rdb, Notifier: emptyNotifier()}

	// no sync=true and no Accept header: browser form post
	req := multipartRequest(t, "/api/v1/report", map[string]string{"qrToken": "tok123"}, nil)
	rr := httptest.NewRecorder()
	http.HandlerFunc(rep.CreateReportHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp, "message")
	assert.Contains(t, resp, "id")
}

func TestReport_CreateCellularReportHandler_ChannelRecorded(t *testing.T) {
	vdb := &mocks.VehicleDatabase{}
	cdb := &mocks.ContactDatabase{}
	rdb := &mocks.ReportDatabase{}
	vdb.On("FindByToken", mock.Anything, "tok123").Return(reportTestVehicle(), nil)
	cdb.On("Find", mock.Anything, mock.Anything).Return([]models.EmergencyContact{}, nil)

	var inserted models.AccidentReport
	rdb.On("InsertOne", mock.Anything, mock.AnythingOfType("models.AccidentReport")).
		Run(func(args mock.Arguments) {
			inserted = args.Get(1).(models.AccidentReport)
		}).
		Return(nil, nil)

	rep := handlers.Report{VDB: vdb, CDB: cdb, RDB: rdb, Notifier: emptyNotifier()}

	req := multipartRequest(t, "/api/v1/report/cellular", map[string]string{"qrToken": "tok123"}, nil)
	req.Header.Set("Accept", "application/json")
	rr := httptest.NewRecorder()
	http.HandlerFunc(rep.CreateCellularReportHandler).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, models.ReportChannelCellular, inserted.Channel)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json"))
}
