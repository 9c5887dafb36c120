package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/harshach55/AssistQR/config"
)

// EmailMessage is the provider-independent shape of an outbound alert email
type EmailMessage struct {
	ToName    string
	ToEmail   string
	Subject   string
	PlainBody string
	HTMLBody  string
}

// EmailProvider sends one email. Implementations are tried in chain order
// until one confirms acceptance.
type EmailProvider interface {
	Name() string
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailChain tries each provider in order; the first acceptance wins. Every
// provider failure is logged and the chain proceeds to the next.
type EmailChain struct {
	providers []EmailProvider
}

// NewEmailChain builds a chain from the given providers, skipping nils
func NewEmailChain(providers ...EmailProvider) *EmailChain {
	chain := &EmailChain{}
	for _, p := range providers {
		if p != nil {
			chain.providers = append(chain.providers, p)
		}
	}
	return chain
}

// NewEmailChainFromConfig wires the production order: SendGrid, then the HTTP
// relay, then SMTP as last resort. Providers without credentials are left out.
func NewEmailChainFromConfig(conf *config.Config) *EmailChain {
	var providers []EmailProvider
	if conf.SendGridAPIKey != "" {
		providers = append(providers, NewSendGridProvider(conf))
	}
	if conf.MailRelayURL != "" {
		providers = append(providers, NewMailRelayProvider(conf))
	}
	if conf.SMTPHost != "" {
		providers = append(providers, NewSMTPProvider(conf))
	}
	return NewEmailChain(providers...)
}

// Send attempts the chain. Returns the name of the provider that accepted the
// message, or the last error when every provider failed.
func (c *EmailChain) Send(ctx context.Context, msg EmailMessage) (string, error) {
	if len(c.providers) == 0 {
		return "", fmt.Errorf("no email providers configured")
	}
	var lastErr error
	for _, p := range c.providers {
		callCtx, cancel := context.WithTimeout(ctx, providerTimeout)
		err := p.Send(callCtx, msg)
		cancel()
		if err == nil {
			return p.Name(), nil
		}
		lastErr = err
		zap.S().Warnw("email provider failed, trying next in chain",
			"provider", p.Name(),
			"to", msg.ToEmail,
			"error", err,
		)
	}
	return "", lastErr
}

// sendGridProvider is the primary transactional-API provider
type sendGridProvider struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
}

// NewSendGridProvider builds the SendGrid provider from config
func NewSendGridProvider(conf *config.Config) EmailProvider {
	return &sendGridProvider{
		client:    sendgrid.NewSendClient(conf.SendGridAPIKey),
		fromName:  conf.SendGridFromName,
		fromEmail: conf.SendGridFromEmail,
	}
}

func (p *sendGridProvider) Name() string { return "sendgrid" }

func (p *sendGridProvider) Send(ctx context.Context, msg EmailMessage) error {
	from := mail.NewEmail(p.fromName, p.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.PlainBody, msg.HTMLBody)

	response, err := p.client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

// mailRelayProvider posts to a generic transactional-mail HTTP API, used as
// the secondary provider when SendGrid rejects or is down
type mailRelayProvider struct {
	url       string
	apiKey    string
	fromName  string
	fromEmail string
	client    *http.Client
}

// NewMailRelayProvider builds the secondary HTTP API provider from config
func NewMailRelayProvider(conf *config.Config) EmailProvider {
	return &mailRelayProvider{
		url:       conf.MailRelayURL,
		apiKey:    conf.MailRelayAPIKey,
		fromName:  conf.SendGridFromName,
		fromEmail: conf.SendGridFromEmail,
		client:    &http.Client{Timeout: providerTimeout},
	}
}

func (p *mailRelayProvider) Name() string { return "mail-relay" }

func (p *mailRelayProvider) Send(ctx context.Context, msg EmailMessage) error {
	payload, err := json.Marshal(map[string]string{
		"from_name":  p.fromName,
		"from_email": p.fromEmail,
		"to_name":    msg.ToName,
		"to_email":   msg.ToEmail,
		"subject":    msg.Subject,
		"text":       msg.PlainBody,
		"html":       msg.HTMLBody,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail relay returned status %d", resp.StatusCode)
	}
	return nil
}

// smtpProvider is the last-resort SMTP relay
type smtpProvider struct {
	host      string
	port      string
	user      string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPProvider builds the SMTP relay provider from config
func NewSMTPProvider(conf *config.Config) EmailProvider {
	return &smtpProvider{
		host:      conf.SMTPHost,
		port:      conf.SMTPPort,
		user:      conf.SMTPUser,
		password:  conf.SMTPPassword,
		fromName:  conf.SendGridFromName,
		fromEmail: conf.SendGridFromEmail,
	}
}

func (p *smtpProvider) Name() string { return "smtp" }

func (p *smtpProvider) Send(ctx context.Context, msg EmailMessage) error {
	boundary := fmt.Sprintf("assistqr-%d", time.Now().UnixNano())

	var body bytes.Buffer
	fmt.Fprintf(&body, "From: %s <%s>\r\n", p.fromName, p.fromEmail)
	fmt.Fprintf(&body, "To: %s <%s>\r\n", msg.ToName, msg.ToEmail)
	fmt.Fprintf(&body, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&body, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&body, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)
	fmt.Fprintf(&body, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", boundary, msg.PlainBody)
	fmt.Fprintf(&body, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", boundary, msg.HTMLBody)
	fmt.Fprintf(&body, "--%s--\r\n", boundary)

	auth := smtp.PlainAuth("", p.user, p.password, p.host)
	addr := p.host + ":" + p.port

	// smtp.SendMail has no context support; run it in a goroutine so the
	// provider timeout still applies
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, p.fromEmail, []string{msg.ToEmail}, body.Bytes())
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
