// Package notify dispatches accident alerts to a vehicle's emergency
// contacts over email and SMS, tolerating individual provider and contact
// failures. The report is already persisted by the time dispatch runs, so
// nothing here ever fails the surrounding request.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/harshach55/AssistQR/config"
	"github.com/harshach55/AssistQR/models"
)

// providerTimeout bounds every individual provider call so one slow provider
// cannot block the whole fan-out
const providerTimeout = 30 * time.Second

// Mode selects which channels a dispatch uses
type Mode int

const (
	// ModeAll sends email and SMS to every contact
	ModeAll Mode = iota
	// ModeEmailOnly sends email only
	ModeEmailOnly
	// ModeSMSOnly sends SMS only; used by the cellular and SMS-webhook paths
	ModeSMSOnly
)

// Attempt records a single contact/channel outcome. Attempts are logged and
// aggregated; they are never persisted.
type Attempt struct {
	Channel  string
	Contact  string
	Provider string
	Success  bool
	Err      error
}

// Notifier fans an alert out to every emergency contact
type Notifier struct {
	Email *EmailChain
	SMS   *SMSDispatcher
}

// New wires a notifier from config
func New(conf *config.Config) *Notifier {
	return &Notifier{
		Email: NewEmailChainFromConfig(conf),
		SMS:   NewSMSDispatcherFromConfig(conf),
	}
}

// Dispatch attempts delivery to every contact concurrently and waits for all
// attempts to settle. It returns the number of contacts reached on at least
// one of the requested channels. Zero contacts is a valid outcome, not an
// error; per-contact failures never propagate.
func (n *Notifier) Dispatch(ctx context.Context, vehicle models.Vehicle, report models.AccidentReport, contacts []models.EmergencyContact, mode Mode) int {
	if len(contacts) == 0 {
		zap.S().Infow("no emergency contacts to notify",
			"vehicleId", vehicle.ID.Hex(),
			"reportId", report.ID.Hex(),
		)
		return 0
	}

	results := make([]bool, len(contacts))
	var wg sync.WaitGroup
	for i, contact := range contacts {
		wg.Add(1)
		go func(i int, contact models.EmergencyContact) {
			defer wg.Done()
			results[i] = n.dispatchContact(ctx, vehicle, report, contact, mode)
		}(i, contact)
	}
	wg.Wait()

	notified := 0
	for _, ok := range results {
		if ok {
			notified++
		}
	}
	zap.S().Infow("notification fan-out settled",
		"reportId", report.ID.Hex(),
		"contacts", len(contacts),
		"notified", notified,
	)
	return notified
}

// dispatchContact runs the email and SMS attempts for one contact in
// parallel and reports whether at least one requested channel succeeded
func (n *Notifier) dispatchContact(ctx context.Context, vehicle models.Vehicle, report models.AccidentReport, contact models.EmergencyContact, mode Mode) bool {
	var wg sync.WaitGroup
	var emailAttempt, smsAttempt *Attempt

	if mode != ModeSMSOnly && contact.Email != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			emailAttempt = n.attemptEmail(ctx, vehicle, report, contact)
		}()
	}
	if mode != ModeEmailOnly && contact.Phone != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			smsAttempt = n.attemptSMS(ctx, vehicle, report, contact)
		}()
	}
	wg.Wait()

	succeeded := false
	for _, attempt := range []*Attempt{emailAttempt, smsAttempt} {
		if attempt == nil {
			continue
		}
		logAttempt(*attempt, report)
		if attempt.Success {
			succeeded = true
		}
	}
	return succeeded
}

func (n *Notifier) attemptEmail(ctx context.Context, vehicle models.Vehicle, report models.AccidentReport, contact models.EmergencyContact) *Attempt {
	plain, htmlBody := BuildEmailBodies(vehicle, report, contact.Name)
	provider, err := n.Email.Send(ctx, EmailMessage{
		ToName:    contact.Name,
		ToEmail:   contact.Email,
		Subject:   EmailSubject(vehicle),
		PlainBody: plain,
		HTMLBody:  htmlBody,
	})
	return &Attempt{
		Channel:  "email",
		Contact:  contact.Email,
		Provider: provider,
		Success:  err == nil,
		Err:      err,
	}
}

func (n *Notifier) attemptSMS(ctx context.Context, vehicle models.Vehicle, report models.AccidentReport, contact models.EmergencyContact) *Attempt {
	body := BuildSMSBody(vehicle, report)
	provider, err := n.SMS.Send(ctx, contact.Phone, body)
	return &Attempt{
		Channel:  "sms",
		Contact:  contact.Phone,
		Provider: provider,
		Success:  err == nil,
		Err:      err,
	}
}

func logAttempt(attempt Attempt, report models.AccidentReport) {
	if attempt.Success {
		zap.S().Infow("notification delivered",
			"channel", attempt.Channel,
			"contact", attempt.Contact,
			"provider", attempt.Provider,
			"reportId", report.ID.Hex(),
		)
		return
	}
	zap.S().Errorw("notification failed on all providers",
		"channel", attempt.Channel,
		"contact", attempt.Contact,
		"reportId", report.ID.Hex(),
		"error", attempt.Err,
	)
}
