package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	CasbinDatabase DatabaseConfig       `mapstructure:"casbin_database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Nats           NatsConfig           `mapstructure:"nats"`
	Authentication AuthenticationConfig `mapstructure:"authentication"`
	Authorization  AuthorizationConfig  `mapstructure:"authorization"`
	Password       PasswordConfig       `mapstructure:"password"`
	OTP            OTPConfig            `mapstructure:"otp"`
	Email          EmailConfig          `mapstructure:"email"`
	SMS            SMSConfig            `mapstructure:"sms"`
	S3             S3Config             `mapstructure:"s3"`
	Claims         ClaimsConfig         `mapstructure:"claims"`
	Observability  ObservabilityConfig  `mapstructure:"observability"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Environment    string `mapstructure:"environment"`
	Domain         string `mapstructure:"domain"`

	Databases []string              `mapstructure:"databases"`
	RateLimit RateLimitConfig       `mapstructure:"rate_limit"`
	CORS      CORSConfig            `mapstructure:"cors"`
	Headers   SecurityHeadersConfig `mapstructure:"headers"`
}

// RateLimitConfig caps requests per client IP over a sliding window.
// Requests <= 0 turns the limiter off.
type RateLimitConfig struct {
	Requests      int `mapstructure:"requests"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAgeSeconds    int      `mapstructure:"max_age_seconds"`
}

// SecurityHeadersConfig carries the response hardening headers, one
// field per header. Values land on the wire verbatim; set a field to
// the empty string to suppress that header.
type SecurityHeadersConfig struct {
	ContentTypeNosniff string `mapstructure:"content_type_nosniff"`
	XFrameOptions      string `mapstructure:"x_frame_options"`
	ReferrerPolicy     string `mapstructure:"referrer_policy"`

	CrossOriginEmbedderPolicy string `mapstructure:"cross_origin_embedder_policy"`
	CrossOriginOpenerPolicy   string `mapstructure:"cross_origin_opener_policy"`
	CrossOriginResourcePolicy string `mapstructure:"cross_origin_resource_policy"`
	OriginAgentCluster        string `mapstructure:"origin_agent_cluster"`

	XSSProtection         string `mapstructure:"xss_protection"`
	XDNSPrefetchControl   string `mapstructure:"x_dns_prefetch_control"`
	XDownloadOptions      string `mapstructure:"x_download_options"`
	XPermittedCrossDomain string `mapstructure:"x_permitted_cross_domain"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`

	Pool       DatabasePoolConfig      `mapstructure:"pool"`
	Migrations DatabaseMigrationConfig `mapstructure:"migrations"`
	Logging    DatabaseQueryLogConfig  `mapstructure:"logging"`
}

type DatabasePoolConfig struct {
	MaxOpenConns       int `mapstructure:"max_open_conns"`
	MaxIdleConns       int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int `mapstructure:"conn_max_lifetime_minutes"`
}

type DatabaseMigrationConfig struct {
	AutoMigrate bool `mapstructure:"auto_migrate"`
	SafeMode    bool `mapstructure:"safe_mode"`
}

// DatabaseQueryLogConfig controls statement logging on the ORM side.
type DatabaseQueryLogConfig struct {
	Enabled              bool `mapstructure:"enabled"`
	SlowQueryThresholdMs int  `mapstructure:"slow_query_threshold_ms"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`

	DialTimeoutSeconds  int `mapstructure:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds"`
}

type NatsConfig struct {
	URL string `mapstructure:"url"`
}

type AuthenticationConfig struct {
	DefaultPasswordLength int          `mapstructure:"default_password_length"`
	SessionTTLMinutes     int          `mapstructure:"session_ttl_minutes"`
	OTPTTLMinutes         int          `mapstructure:"otp_ttl_minutes"`
	Paseto                PasetoConfig `mapstructure:"paseto"`
	// EncryptionKey is a 32-byte hex string used for AES-256-GCM encryption
	// of sensitive fields such as payer file numbers and health card numbers.
	EncryptionKey string `mapstructure:"encryption_key"`
}

// PasetoConfig selects the token mode and carries the matching key
// material. Local mode reads local_key_hex; public mode reads the
// secret/public pair.
type PasetoConfig struct {
	Mode     string `mapstructure:"mode"`
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`

	LocalKeyHex  string `mapstructure:"local_key_hex"`
	SecretKeyHex string `mapstructure:"secret_key_hex"`
	PublicKeyHex string `mapstructure:"public_key_hex"`

	AccessTTLMinutes int `mapstructure:"access_ttl_minutes"`
	RefreshTTLDays   int `mapstructure:"refresh_ttl_days"`
}

type AuthorizationConfig struct {
	CasbinModelPath    string `mapstructure:"casbin_model_path"`
	SuperadminBypass   bool   `mapstructure:"superadmin_bypass"`
	PolicySyncEnabled  bool   `mapstructure:"policy_sync_enabled"`
	EnableAudit        bool   `mapstructure:"enable_audit"`
	HealthCheckEnabled bool   `mapstructure:"health_check_enabled"`
}

// PasswordConfig holds the argon2id cost parameters. Zero values fall
// back to the hard-coded production parameters.
type PasswordConfig struct {
	Algorithm     string `mapstructure:"algorithm"`
	Iterations    uint32 `mapstructure:"iterations"`
	MemoryKiB     uint32 `mapstructure:"memory_kib"`
	Parallelism   uint8  `mapstructure:"parallelism"`
	SaltLength    uint32 `mapstructure:"salt_length"`
	KeyLength     uint32 `mapstructure:"key_length"`
	LowMemoryMode bool   `mapstructure:"low_memory_mode"`
}

type OTPConfig struct {
	DefaultLength int `mapstructure:"default_length"`
}

type EmailConfig struct {
	Enabled bool       `mapstructure:"enabled"`
	From    string     `mapstructure:"from"`
	SMTP    SMTPConfig `mapstructure:"smtp"`
}

type SMTPConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	UseTLS         bool   `mapstructure:"use_tls"`
}

type SMSConfig struct {
	Enabled bool        `mapstructure:"enabled"`
	SMSIR   SMSIRConfig `mapstructure:"smsir"`
}

type SMSIRConfig struct {
	APIKey     string `mapstructure:"api_key"`
	SecretKey  string `mapstructure:"secret_key"`
	TemplateID string `mapstructure:"template_id"`
}

// S3Config points at the object storage endpoint holding clinical
// documents. Endpoint is required; the SDK only knows AWS regions.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PresignTTLSec   int    `mapstructure:"presign_ttl_sec"`
}

// ClaimsConfig configures the external payer claims portal client
// (reimbursement claim submission for IVAC / PAE programs).
type ClaimsConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	SubmitterID    string `mapstructure:"submitter_id"`
	APIKey         string `mapstructure:"api_key"`
	Sandbox        bool   `mapstructure:"sandbox"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type ObservabilityConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ServiceName    string        `mapstructure:"service_name"`
	ServiceVersion string        `mapstructure:"service_version"`
	Tracing        TracingConfig `mapstructure:"tracing"`
	Metrics        MetricsConfig `mapstructure:"metrics"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string          `mapstructure:"level"`  // debug, info, warn, error
	Format string          `mapstructure:"format"` // text, json
	Output LogOutputConfig `mapstructure:"output"`
}

// LogOutputConfig enables log sinks independently; any combination of
// stdout, rotated file and Loki push can be on at once.
type LogOutputConfig struct {
	Stdout bool          `mapstructure:"stdout"`
	File   FileLogConfig `mapstructure:"file"`
	Loki   LokiConfig    `mapstructure:"loki"`
}

type FileLogConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`

	// Rotation hands old files to lumberjack once the active file
	// passes max_size_mb.
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

type LokiConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"` // e.g. "http://localhost:3100"
	Username string `mapstructure:"username"` // Grafana Cloud basic auth
	Password string `mapstructure:"password"`
}

// Validate rejects configurations that would otherwise fail much later
// with a confusing runtime error.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	if cors := c.Server.CORS; cors.AllowCredentials && slices.Contains(cors.AllowOrigins, "*") {
		// The fiber CORS middleware panics on this pairing at startup.
		errs = append(errs, errors.New("server.cors: allow_credentials cannot be combined with a wildcard origin"))
	}

	if rl := c.Server.RateLimit; rl.Requests > 0 && rl.WindowSeconds <= 0 {
		errs = append(errs, errors.New("server.rate_limit.window_seconds must be positive when the limiter is on"))
	}

	switch strings.ToLower(c.Authentication.Paseto.Mode) {
	case "", "local", "public":
	default:
		errs = append(errs, fmt.Errorf("authentication.paseto.mode %q must be local or public", c.Authentication.Paseto.Mode))
	}

	if key := c.Authentication.EncryptionKey; key != "" {
		if raw, err := hex.DecodeString(key); err != nil || len(raw) != 32 {
			errs = append(errs, errors.New("authentication.encryption_key must be 64 hex characters (32 bytes)"))
		}
	}

	if c.Email.Enabled && c.Email.SMTP.Host == "" {
		errs = append(errs, errors.New("email.enabled is true but email.smtp.host is empty"))
	}
	if c.SMS.Enabled && c.SMS.SMSIR.APIKey == "" {
		errs = append(errs, errors.New("sms.enabled is true but sms.smsir.api_key is empty"))
	}

	if lvl := c.Logging.Level; lvl != "" {
		switch strings.ToLower(lvl) {
		case "debug", "info", "warn", "error":
		default:
			errs = append(errs, fmt.Errorf("logging.level %q unknown", lvl))
		}
	}

	return errors.Join(errs...)
}
