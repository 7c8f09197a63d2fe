package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/arsmn/go-smsir/smsir"

	"github.com/oveliahealth/ovelia_backend/config"
)

// Client sends transactional texts through the sms.ir verification API.
// The only traffic today is login codes; everything else reaches users by
// email. A client built from a disabled config section swallows sends, which
// is how development and test environments run.
type Client struct {
	api        *smsir.Client
	templateID string
	enabled    bool
}

// NewFromConfig builds a Client from the SMS section of the central config.
func NewFromConfig(cfg config.SMSConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{}, nil
	}
	if cfg.SMSIR.APIKey == "" {
		return nil, errors.New("sms: enabled without an API key")
	}
	if cfg.SMSIR.TemplateID == "" {
		return nil, errors.New("sms: enabled without a verification template")
	}

	api := smsir.NewClient().WithAuthentication(cfg.SMSIR.APIKey, cfg.SMSIR.SecretKey)
	return &Client{
		api:        api,
		templateID: cfg.SMSIR.TemplateID,
		enabled:    true,
	}, nil
}

// SendOTP delivers a login code to phone through the provider's fast-send
// channel. The configured template must declare a "code" parameter. Disabled
// clients return nil without touching the network.
func (c *Client) SendOTP(ctx context.Context, phone, code string) error {
	if !c.enabled {
		return nil
	}
	if phone == "" {
		return errors.New("sms: empty recipient")
	}
	if code == "" {
		return errors.New("sms: empty code")
	}

	req := &smsir.UltraFastSendRequest{
		Mobile:     phone,
		TemplateID: c.templateID,
		Parameters: []smsir.UltraFastParameter{
			{Key: "code", Value: code},
		},
	}
	if _, err := c.api.Verification.UltraFastSend(ctx, req); err != nil {
		return fmt.Errorf("sms: send to %s: %w", phone, err)
	}
	return nil
}

// IsEnabled reports whether sends reach the provider.
func (c *Client) IsEnabled() bool {
	return c.enabled
}
