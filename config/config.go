package config

import (
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds the project config values
type Config struct {
	URL          string
	DatabaseName string
	BaseURL      string
	Port         string

	SendGridAPIKey    string
	SendGridFromName  string
	SendGridFromEmail string
	MailRelayURL      string
	MailRelayAPIKey   string
	SMTPHost          string
	SMTPPort          string
	SMTPUser          string
	SMTPPassword      string

	RegionalSMSAPIKey   string
	RegionalSMSSenderID string
	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioFromNumber    string

	CloudinaryURL string
}

// New sets up all config related services
func New() *Config {

	// .env is optional, envs may come from the platform directly
	_ = godotenv.Load()

	//setup zap logger and replace default logger
	logger := zap.NewExample()
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:          os.Getenv("DB_URI"),
		DatabaseName: os.Getenv("DB_NAME"),
		BaseURL:      os.Getenv("BASE_URL"),
		Port:         os.Getenv("PORT"),

		SendGridAPIKey:    os.Getenv("SENDGRID_API_KEY"),
		SendGridFromName:  os.Getenv("SENDGRID_FROM_NAME"),
		SendGridFromEmail: os.Getenv("SENDGRID_FROM_EMAIL"),
		MailRelayURL:      os.Getenv("MAIL_RELAY_URL"),
		MailRelayAPIKey:   os.Getenv("MAIL_RELAY_API_KEY"),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          os.Getenv("SMTP_PORT"),
		SMTPUser:          os.Getenv("SMTP_USER"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),

		RegionalSMSAPIKey:   os.Getenv("REGIONAL_SMS_API_KEY"),
		RegionalSMSSenderID: os.Getenv("REGIONAL_SMS_SENDER_ID"),
		TwilioAccountSID:    os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:     os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:    os.Getenv("TWILIO_FROM_NUMBER"),

		CloudinaryURL: os.Getenv("CLOUDINARY_URL"),
	}

}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	w.WriteHeader(httpStatusCode)
	w.Write([]byte(fmt.Sprintf(`{"response": "%s, %v"}`, message, err)))
	return
}

// ErrorStatusReason behaves like ErrorStatus but includes a machine-readable
// reason code so programmatic callers can tell validation failures apart
func ErrorStatusReason(message, reason string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Errorw(message, "reason", reason)
	w.WriteHeader(httpStatusCode)
	w.Write([]byte(fmt.Sprintf(`{"response": "%s, %v", "reason": "%s"}`, message, err, reason)))
	return
}
