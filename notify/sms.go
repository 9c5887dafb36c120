package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/harshach55/AssistQR/config"
)

// SMSProvider sends one text message
type SMSProvider interface {
	Name() string
	Send(ctx context.Context, to, body string) error
}

// indianNumber matches E.164 numbers the regional provider can deliver to
var indianNumber = regexp.MustCompile(`^\+91\d{10}$`)

// SMSDispatcher selects a provider by phone number: the regional fast path
// for numbers it can serve, the international provider for everything else.
// A regional failure falls back to the international provider when one is
// configured.
type SMSDispatcher struct {
	Regional      SMSProvider
	International SMSProvider
	regionMatch   *regexp.Regexp
}

// NewSMSDispatcher builds a dispatcher over the given providers; either may be nil
func NewSMSDispatcher(regional, international SMSProvider) *SMSDispatcher {
	return &SMSDispatcher{
		Regional:      regional,
		International: international,
		regionMatch:   indianNumber,
	}
}

// NewSMSDispatcherFromConfig wires the production providers; ones without
// credentials are left out.
func NewSMSDispatcherFromConfig(conf *config.Config) *SMSDispatcher {
	var regional, international SMSProvider
	if conf.RegionalSMSAPIKey != "" {
		regional = NewRegionalProvider(conf)
	}
	if conf.TwilioAccountSID != "" {
		international = NewTwilioProvider(conf)
	}
	return NewSMSDispatcher(regional, international)
}

// Send delivers one SMS, returning the name of the provider that accepted it
func (d *SMSDispatcher) Send(ctx context.Context, to, body string) (string, error) {
	if d.Regional != nil && d.regionMatch.MatchString(to) {
		callCtx, cancel := context.WithTimeout(ctx, providerTimeout)
		err := d.Regional.Send(callCtx, to, body)
		cancel()
		if err == nil {
			return d.Regional.Name(), nil
		}
		zap.S().Warnw("regional sms provider failed",
			"provider", d.Regional.Name(),
			"to", to,
			"error", err,
		)
		if d.International == nil {
			return "", err
		}
	}
	if d.International == nil {
		return "", fmt.Errorf("no sms provider available for %s", to)
	}

	callCtx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()
	if err := d.International.Send(callCtx, to, body); err != nil {
		return "", err
	}
	return d.International.Name(), nil
}

// regionalProvider calls a bulk-SMS HTTP API that only delivers to Indian
// numbers but is fast and cheap for them
type regionalProvider struct {
	baseURL  string
	apiKey   string
	senderID string
	client   *http.Client
}

const regionalSMSBaseURL = "https://www.fast2sms.com/dev/bulkV2"

// NewRegionalProvider builds the regional fast-path provider from config
func NewRegionalProvider(conf *config.Config) SMSProvider {
	return &regionalProvider{
		baseURL:  regionalSMSBaseURL,
		apiKey:   conf.RegionalSMSAPIKey,
		senderID: conf.RegionalSMSSenderID,
		client:   &http.Client{Timeout: providerTimeout},
	}
}

func (p *regionalProvider) Name() string { return "fast2sms" }

func (p *regionalProvider) Send(ctx context.Context, to, body string) error {
	// the API takes bare 10-digit numbers, not E.164
	number := strings.TrimPrefix(to, "+91")

	form := url.Values{}
	form.Set("route", "q")
	form.Set("sender_id", p.senderID)
	form.Set("message", body)
	form.Set("numbers", number)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("authorization", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("regional sms api returned status %d", resp.StatusCode)
	}

	var result struct {
		Return bool `json:"return"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	if !result.Return {
		return fmt.Errorf("regional sms api rejected the message")
	}
	return nil
}

// twilioProvider calls the Twilio Messages REST endpoint and covers all
// international numbers
type twilioProvider struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	client     *http.Client
}

const twilioAPIBaseURL = "https://api.twilio.com"

// NewTwilioProvider builds the international provider from config
func NewTwilioProvider(conf *config.Config) SMSProvider {
	return &twilioProvider{
		baseURL:    twilioAPIBaseURL,
		accountSID: conf.TwilioAccountSID,
		authToken:  conf.TwilioAuthToken,
		from:       conf.TwilioFromNumber,
		client:     &http.Client{Timeout: providerTimeout},
	}
}

func (p *twilioProvider) Name() string { return "twilio" }

func (p *twilioProvider) Send(ctx context.Context, to, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", p.baseURL, p.accountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", p.from)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.accountSID, p.authToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("twilio returned status %d", resp.StatusCode)
	}
	return nil
}
