package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harshach55/AssistQR/models"
	"github.com/harshach55/AssistQR/notify"
)

type stubEmailProvider struct {
	name string
	err  error

	mu    sync.Mutex
	calls int
}

func (s *stubEmailProvider) Name() string { return s.name }

func (s *stubEmailProvider) Send(ctx context.Context, msg notify.EmailMessage) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.err
}

func (s *stubEmailProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubSMSProvider struct {
	name string
	err  error

	mu    sync.Mutex
	calls int
}

func (s *stubSMSProvider) Name() string { return s.name }

func (s *stubSMSProvider) Send(ctx context.Context, to, body string) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.err
}

func (s *stubSMSProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testVehicle() models.Vehicle {
	return models.Vehicle{
		ID:    primitive.NewObjectID(),
		Plate: "KA01AB1234",
		Model: "Swift",
		Color: "Red",
	}
}

func testReport() models.AccidentReport {
	return models.AccidentReport{
		ID:        primitive.NewObjectID(),
		CreatedAt: primitive.NewDateTimeFromTime(time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)),
	}
}

func TestDispatch_NoContacts(t *testing.T) {
	n := &notify.Notifier{
		Email: notify.NewEmailChain(&stubEmailProvider{name: "primary"}),
		SMS:   notify.NewSMSDispatcher(nil, &stubSMSProvider{name: "intl"}),
	}

	count := n.Dispatch(context.Background(), testVehicle(), testReport(), nil, notify.ModeAll)
	assert.Equal(t, 0, count)
}

func TestDispatch_PartialFailure(t *testing.T) {
	// C1's address is rejected by every provider, C2 succeeds on the second
	// provider in the chain. The fan-out counts C2 and does not raise.
	primary := &stubEmailProvider{name: "primary", err: errors.New("rejected")}
	var mu sync.Mutex
	var secondaryCalls int
	secondary := &stubEmailFunc{name: "secondary", fn: func(msg notify.EmailMessage) error {
		mu.Lock()
		secondaryCalls++
		mu.Unlock()
		if msg.ToEmail == "c1@example.com" {
			return errors.New("rejected")
		}
		return nil
	}}

	n := &notify.Notifier{
		Email: notify.NewEmailChain(primary, secondary),
		SMS:   notify.NewSMSDispatcher(nil, nil),
	}

	contacts := []models.EmergencyContact{
		{Name: "C1", Email: "c1@example.com"},
		{Name: "C2", Email: "c2@example.com"},
	}

	count := n.Dispatch(context.Background(), testVehicle(), testReport(), contacts, notify.ModeEmailOnly)
	assert.Equal(t, 1, count)
	assert.Equal(t, 2, primary.callCount())
	assert.Equal(t, 2, secondaryCalls)
}

type stubEmailFunc struct {
	name string
	fn   func(msg notify.EmailMessage) error
}

func (s *stubEmailFunc) Name() string { return s.name }

func (s *stubEmailFunc) Send(ctx context.Context, msg notify.EmailMessage) error {
	return s.fn(msg)
}

func TestDispatch_SMSOnlySkipsEmail(t *testing.T) {
	email := &stubEmailProvider{name: "primary"}
	intl := &stubSMSProvider{name: "intl"}
	n := &notify.Notifier{
		Email: notify.NewEmailChain(email),
		SMS:   notify.NewSMSDispatcher(nil, intl),
	}

	contacts := []models.EmergencyContact{
		{Name: "C1", Email: "c1@example.com", Phone: "+15550001111"},
	}

	count := n.Dispatch(context.Background(), testVehicle(), testReport(), contacts, notify.ModeSMSOnly)
	assert.Equal(t, 1, count)
	assert.Equal(t, 0, email.callCount())
	assert.Equal(t, 1, intl.callCount())
}

func TestSMSDispatcher_RegionalFastPath(t *testing.T) {
	regional := &stubSMSProvider{name: "regional"}
	intl := &stubSMSProvider{name: "intl"}
	d := notify.NewSMSDispatcher(regional, intl)

	provider, err := d.Send(context.Background(), "+919876543210", "hello")
	assert.NoError(t, err)
	assert.Equal(t, "regional", provider)
	assert.Equal(t, 1, regional.callCount())
	assert.Equal(t, 0, intl.callCount())
}

func TestSMSDispatcher_RegionalFallsBackToInternational(t *testing.T) {
	regional := &stubSMSProvider{name: "regional", err: errors.New("gateway down")}
	intl := &stubSMSProvider{name: "intl"}
	d := notify.NewSMSDispatcher(regional, intl)

	provider, err := d.Send(context.Background(), "+919876543210", "hello")
	assert.NoError(t, err)
	assert.Equal(t, "intl", provider)
	assert.Equal(t, 1, regional.callCount())
	assert.Equal(t, 1, intl.callCount())
}

func TestSMSDispatcher_NonRegionalNumberUsesInternational(t *testing.T) {
	regional := &stubSMSProvider{name: "regional"}
	intl := &stubSMSProvider{name: "intl"}
	d := notify.NewSMSDispatcher(regional, intl)

	provider, err := d.Send(context.Background(), "+15550001111", "hello")
	assert.NoError(t, err)
	assert.Equal(t, "intl", provider)
	assert.Equal(t, 0, regional.callCount())
}

func TestEmailChain_AllProvidersFail(t *testing.T) {
	p1 := &stubEmailProvider{name: "p1", err: errors.New("boom1")}
	p2 := &stubEmailProvider{name: "p2", err: errors.New("boom2")}
	chain := notify.NewEmailChain(p1, p2)

	_, err := chain.Send(context.Background(), notify.EmailMessage{ToEmail: "x@example.com"})
	assert.Error(t, err)
	assert.Equal(t, 1, p1.callCount())
	assert.Equal(t, 1, p2.callCount())
}
