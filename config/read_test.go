package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "zero value passes", mutate: func(*Config) {}},
		{
			name: "credentials with wildcard origin",
			mutate: func(c *Config) {
				c.Server.CORS.AllowCredentials = true
				c.Server.CORS.AllowOrigins = []string{"*"}
			},
			wantErr: "allow_credentials",
		},
		{
			name:    "rate limiter without a window",
			mutate:  func(c *Config) { c.Server.RateLimit.Requests = 20 },
			wantErr: "window_seconds",
		},
		{
			name:    "bad paseto mode",
			mutate:  func(c *Config) { c.Authentication.Paseto.Mode = "v2" },
			wantErr: "paseto.mode",
		},
		{
			name:    "short encryption key",
			mutate:  func(c *Config) { c.Authentication.EncryptionKey = "abcd" },
			wantErr: "encryption_key",
		},
		{
			name:    "email enabled without host",
			mutate:  func(c *Config) { c.Email.Enabled = true },
			wantErr: "smtp.host",
		},
		{
			name:    "sms enabled without key",
			mutate:  func(c *Config) { c.SMS.Enabled = true },
			wantErr: "api_key",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAcceptsFullAESKey(t *testing.T) {
	var cfg Config
	cfg.Authentication.EncryptionKey = strings.Repeat("ab", 32)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}
