package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harshach55/AssistQR/api"
	"github.com/harshach55/AssistQR/config"
	"github.com/harshach55/AssistQR/databases"
	"github.com/harshach55/AssistQR/models"
	"github.com/harshach55/AssistQR/notify"
)

// Ingestion limits. A request breaching one of these gets a 400 with a
// machine-readable reason code so the sync agent can park the entry instead
// of retrying it.
const (
	maxImageFiles     = 10
	maxImageBytes     = 100 << 20
	maxManualLocation = 500
	maxHelperNote     = 1000

	reasonFileTooLarge = "file-too-large"
	reasonTooManyFiles = "too-many-files"
)

// multipartMemory caps how much of the form stays in memory before spilling
// to temp files
const multipartMemory = 32 << 20

// Report exported for testing purposes
type Report struct {
	VDB      databases.VehicleDatabase
	CDB      databases.ContactDatabase
	RDB      databases.ReportDatabase
	Images   ImageHost
	Notifier *notify.Notifier
}

// CreateReportHandler ingests a multipart accident report submitted against a
// vehicle's QR token, hosts its images, persists the report and fans alerts
// out to the vehicle's emergency contacts before responding
func (rep Report) CreateReportHandler(w http.ResponseWriter, r *http.Request) {
	rep.createReport(w, r, notify.ModeAll, models.ReportChannelWeb)
}

// CreateCellularReportHandler behaves like CreateReportHandler but alerts
// over SMS only, for reporters on a cellular data path where the server
// cannot rely on contacts having email reachability
func (rep Report) CreateCellularReportHandler(w http.ResponseWriter, r *http.Request) {
	rep.createReport(w, r, notify.ModeSMSOnly, models.ReportChannelCellular)
}

func (rep Report) createReport(w http.ResponseWriter, r *http.Request, mode notify.Mode, channel string) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		config.ErrorStatus("failed to parse multipart form", http.StatusBadRequest, w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	qrToken := r.FormValue("qrToken")
	if qrToken == "" {
		config.ErrorStatus("missing qrToken", http.StatusBadRequest, w, fmt.Errorf("qrToken is required"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	vehicle, err := rep.VDB.FindByToken(ctx, qrToken)
	if err != nil {
		config.ErrorStatus("no vehicle registered for token", http.StatusNotFound, w, err)
		return
	}

	report := models.AccidentReport{
		ID:        primitive.NewObjectID(),
		VehicleID: vehicle.ID,
		Channel:   channel,
		CreatedAt: primitive.NewDateTimeFromTime(time.Now().UTC()),
	}

	lat, lng, err := parseCoordinates(r.FormValue("latitude"), r.FormValue("longitude"))
	if err != nil {
		config.ErrorStatus("invalid coordinates", http.StatusBadRequest, w, err)
		return
	}
	report.Latitude = lat
	report.Longitude = lng

	report.ManualLocation = strings.TrimSpace(r.FormValue("manualLocation"))
	if len(report.ManualLocation) > maxManualLocation {
		config.ErrorStatus("manualLocation too long", http.StatusBadRequest, w,
			fmt.Errorf("manualLocation exceeds %d characters", maxManualLocation))
		return
	}
	report.HelperNote = strings.TrimSpace(r.FormValue("helperNote"))
	if len(report.HelperNote) > maxHelperNote {
		config.ErrorStatus("helperNote too long", http.StatusBadRequest, w,
			fmt.Errorf("helperNote exceeds %d characters", maxHelperNote))
		return
	}

	urls, err := rep.hostImages(r)
	if err != nil {
		switch e := err.(type) {
		case *ingestionError:
			config.ErrorStatusReason(e.message, e.reason, http.StatusBadRequest, w, e)
		default:
			config.ErrorStatus("failed to host report images", http.StatusInternalServerError, w, err)
		}
		return
	}
	report.Images = urls

	// report and image URLs land in a single insert so a crash cannot leave
	// a half-written report behind
	if _, err := rep.RDB.InsertOne(ctx, report); err != nil {
		config.ErrorStatus("failed to persist report", http.StatusInternalServerError, w, err)
		return
	}

	contacts, err := rep.CDB.Find(ctx, bson.M{"vehicleId": vehicle.ID})
	if err != nil {
		// the report is saved; respond with what we have rather than failing
		zap.S().Errorw("failed to load emergency contacts for fan-out",
			"vehicleId", vehicle.ID.Hex(),
			"reportId", report.ID.Hex(),
			"error", err,
		)
		contacts = nil
	}

	notified := rep.Notifier.Dispatch(r.Context(), *vehicle, report, contacts, mode)

	writeReportCreated(w, r, report, notified)
}

// hostImages validates and uploads every image part in submission order,
// returning the hosted URLs in the same order
func (rep Report) hostImages(r *http.Request) ([]string, error) {
	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > maxImageFiles {
		return nil, &ingestionError{
			reason:  reasonTooManyFiles,
			message: fmt.Sprintf("at most %d images per report", maxImageFiles),
		}
	}
	if rep.Images == nil {
		return nil, fmt.Errorf("image hosting is not configured")
	}

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		if fh.Size > maxImageBytes {
			return nil, &ingestionError{
				reason:  reasonFileTooLarge,
				message: fmt.Sprintf("%s exceeds the %dMB image limit", fh.Filename, maxImageBytes>>20),
			}
		}
		contentType := fh.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			return nil, &ingestionError{
				reason:  "invalid-image-type",
				message: fmt.Sprintf("%s is not an image (%s)", fh.Filename, contentType),
			}
		}

		file, err := fh.Open()
		if err != nil {
			return nil, err
		}
		url, err := rep.Images.Upload(r.Context(), file, fh.Filename)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", fh.Filename, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// ingestionError is a validation failure with a machine-readable reason code
type ingestionError struct {
	reason  string
	message string
}

func (e *ingestionError) Error() string { return e.message }

// parseCoordinates validates the optional latitude/longitude pair. Both or
// neither must be present; ranges are checked only when supplied.
func parseCoordinates(latStr, lngStr string) (*float64, *float64, error) {
	if latStr == "" && lngStr == "" {
		return nil, nil, nil
	}
	if latStr == "" || lngStr == "" {
		return nil, nil, fmt.Errorf("latitude and longitude must be supplied together")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("latitude is not a number: %v", err)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("longitude is not a number: %v", err)
	}
	if lat < -90 || lat > 90 {
		return nil, nil, fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if lng < -180 || lng > 180 {
		return nil, nil, fmt.Errorf("longitude %v out of range [-180, 180]", lng)
	}
	return &lat, &lng, nil
}

// writeReportCreated picks the response shape: programmatic callers (the
// sync agent's ?sync=true, or an Accept: application/json client) get the
// flat JSON contract; interactive browsers get a message envelope
func writeReportCreated(w http.ResponseWriter, r *http.Request, report models.AccidentReport, notified int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	programmatic := r.URL.Query().Get("sync") == "true" ||
		strings.Contains(r.Header.Get("Accept"), "application/json")
	if programmatic {
		json.NewEncoder(w).Encode(models.ReportCreatedResponse{
			ReportID:         report.ID.Hex(),
			ContactsNotified: notified,
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":          "Report submitted. Emergency contacts are being notified.",
		"id":               report.ID.Hex(),
		"contactsNotified": notified,
	})
}
