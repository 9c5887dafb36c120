package handlers

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
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
	"github.com/harshach55/AssistQR/sms"
)

// SMSWebhook receives inbound text messages from SMS gateway providers and
// turns REPORT commands into accident reports
type SMSWebhook struct {
	VDB      databases.VehicleDatabase
	CDB      databases.ContactDatabase
	RDB      databases.ReportDatabase
	Notifier *notify.Notifier
}

// InboundSMSHandler handles a gateway callback. The gateway is always
// acknowledged with a 200; anything else makes carriers retry or disable the
// webhook, which loses messages. Errors surface to the sender as a reply
// text instead.
func (h SMSWebhook) InboundSMSHandler(w http.ResponseWriter, r *http.Request) {
	fields, err := webhookFields(r)
	if err != nil {
		config.ErrorStatus("failed to read webhook payload", http.StatusBadRequest, w, err)
		return
	}

	msg := sms.DecodeInbound(fields)
	if msg.Body == "" {
		writeWebhookReply(w, msg.Shape, "Could not read your message. Text: REPORT <code on the sticker>")
		return
	}

	cmd, err := sms.ParseCommand(msg.Body)
	if err != nil {
		zap.S().Infow("unparseable inbound sms",
			"from", msg.From,
			"shape", string(msg.Shape),
			"error", err,
		)
		writeWebhookReply(w, msg.Shape, "Could not understand that. Text: REPORT <code> [lat lng] [LOCATION place] [NOTE details]")
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	vehicle, err := h.VDB.FindByToken(ctx, cmd.Token)
	if err != nil {
		writeWebhookReply(w, msg.Shape, fmt.Sprintf("No vehicle is registered for code %s. Check the sticker and try again.", cmd.Token))
		return
	}

	report := models.AccidentReport{
		ID:             primitive.NewObjectID(),
		VehicleID:      vehicle.ID,
		Latitude:       cmd.Latitude,
		Longitude:      cmd.Longitude,
		ManualLocation: cmd.ManualLocation,
		HelperNote:     cmd.HelperNote,
		Channel:        models.ReportChannelSMS,
		CreatedAt:      primitive.NewDateTimeFromTime(time.Now().UTC()),
	}
	if _, err := h.RDB.InsertOne(ctx, report); err != nil {
		config.ErrorStatus("failed to persist report", http.StatusInternalServerError, w, err)
		return
	}

	contacts, err := h.CDB.Find(ctx, bson.M{"vehicleId": vehicle.ID})
	if err != nil {
		zap.S().Errorw("failed to load emergency contacts for sms report",
			"vehicleId", vehicle.ID.Hex(),
			"reportId", report.ID.Hex(),
			"error", err,
		)
		contacts = nil
	}

	// sender is on a plain phone, so contacts get SMS only
	notified := h.Notifier.Dispatch(r.Context(), *vehicle, report, contacts, notify.ModeSMSOnly)

	writeWebhookReply(w, msg.Shape, fmt.Sprintf("Report received for %s %s. %d contact(s) notified. Thank you for helping.",
		vehicle.Color, vehicle.Model, notified))
}

// webhookFields flattens the inbound payload, JSON or form-encoded, into a
// single string map for shape detection
func webhookFields(r *http.Request) (map[string]string, error) {
	fields := map[string]string{}
	contentType := r.Header.Get("Content-Type")

	if strings.Contains(contentType, "application/json") {
		var raw map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, err
		}
		for k, v := range raw {
			switch val := v.(type) {
			case string:
				fields[k] = val
			case float64:
				fields[k] = fmt.Sprintf("%v", val)
			case bool:
				fields[k] = fmt.Sprintf("%v", val)
			}
		}
		return fields, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	for k, vs := range r.PostForm {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}
	return fields, nil
}

// twimlResponse is the reply envelope Twilio-style gateways expect
type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

// writeWebhookReply acknowledges the gateway in the envelope its payload
// shape calls for: TwiML for Twilio, JSON for everything else
func writeWebhookReply(w http.ResponseWriter, shape sms.PayloadShape, message string) {
	if shape == sms.ShapeTwilio {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(xml.Header))
		xml.NewEncoder(w).Encode(twimlResponse{Message: message})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"message": message,
	})
}
