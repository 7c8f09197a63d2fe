package email

import (
	"time"

	"github.com/oveliahealth/ovelia_backend/config"
)

// Config carries the SMTP settings the client needs. It mirrors the email
// section of the central config so the package stays usable on its own.
type Config struct {
	Enabled bool
	From    string

	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
	SMTPUseTLS         bool
	SMTPTimeoutSeconds int
}

// SMTPTimeout converts the configured timeout to a duration, with a floor
// so a zero value never produces an instant deadline.
func (c Config) SMTPTimeout() time.Duration {
	if c.SMTPTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.SMTPTimeoutSeconds) * time.Second
}

// FromCentralConfig maps config.EmailConfig onto the package Config.
func FromCentralConfig(c config.EmailConfig) Config {
	s := c.SMTP
	return Config{
		Enabled:            c.Enabled,
		From:               c.From,
		SMTPHost:           s.Host,
		SMTPPort:           s.Port,
		SMTPUsername:       s.Username,
		SMTPPassword:       s.Password,
		SMTPUseTLS:         s.UseTLS,
		SMTPTimeoutSeconds: s.TimeoutSeconds,
	}
}
