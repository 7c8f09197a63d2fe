package sms

import (
	"context"
	"testing"

	"github.com/oveliahealth/ovelia_backend/config"
)

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.SMSConfig
		wantErr     bool
		wantEnabled bool
	}{
		{
			name:        "disabled section yields no-op client",
			cfg:         config.SMSConfig{Enabled: false},
			wantEnabled: false,
		},
		{
			name: "enabled without API key",
			cfg: config.SMSConfig{
				Enabled: true,
				SMSIR:   config.SMSIRConfig{TemplateID: "login-code"},
			},
			wantErr: true,
		},
		{
			name: "enabled without template",
			cfg: config.SMSConfig{
				Enabled: true,
				SMSIR:   config.SMSIRConfig{APIKey: "key"},
			},
			wantErr: true,
		},
		{
			name: "fully configured",
			cfg: config.SMSConfig{
				Enabled: true,
				SMSIR: config.SMSIRConfig{
					APIKey:     "key",
					SecretKey:  "secret",
					TemplateID: "login-code",
				},
			},
			wantEnabled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewFromConfig(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewFromConfig: %v", err)
			}
			if c.IsEnabled() != tt.wantEnabled {
				t.Errorf("IsEnabled() = %v, want %v", c.IsEnabled(), tt.wantEnabled)
			}
		})
	}
}

func TestSendOTPDisabled(t *testing.T) {
	c := &Client{}
	if err := c.SendOTP(context.Background(), "+15145550123", "482913"); err != nil {
		t.Errorf("disabled client should not error, got %v", err)
	}
}

func TestSendOTPValidation(t *testing.T) {
	c := &Client{enabled: true, templateID: "login-code"}

	tests := []struct {
		name  string
		phone string
		code  string
	}{
		{"missing recipient", "", "482913"},
		{"missing code", "+15145550123", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.SendOTP(context.Background(), tt.phone, tt.code); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
