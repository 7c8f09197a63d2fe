package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigName is the base name of the config file (without extension).
	ConfigName = "config"

	// ConfigFormat is the config file format.
	ConfigFormat = "yaml"

	// EnvPrefix namespaces environment overrides, e.g.
	// OVELIA_DATABASE_HOST overrides database.host.
	EnvPrefix = "OVELIA"
)

func ReadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(ConfigName)
	v.SetConfigType(ConfigFormat)
	v.AddConfigPath(configPath)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		// Containerized deployments often run without a file and
		// configure everything through the environment.
		if os.Getenv(EnvPrefix+"_DATABASE_HOST") == "" {
			return nil, fmt.Errorf("no config file in %q and no %s_* environment overrides", configPath, EnvPrefix)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func MustReadConfig(path string) *Config {
	cfg, err := ReadConfig(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// setDefaults covers what a bare deployment can run with. Keys and
// credentials never get defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.rate_limit.requests", 20)
	v.SetDefault("server.rate_limit.window_seconds", 30)

	// Hardening headers default to the helmet baseline so an empty
	// config file still ships the full set.
	v.SetDefault("server.headers.content_type_nosniff", "nosniff")
	v.SetDefault("server.headers.x_frame_options", "SAMEORIGIN")
	v.SetDefault("server.headers.referrer_policy", "no-referrer")
	v.SetDefault("server.headers.cross_origin_embedder_policy", "require-corp")
	v.SetDefault("server.headers.cross_origin_opener_policy", "same-origin")
	v.SetDefault("server.headers.cross_origin_resource_policy", "same-origin")
	v.SetDefault("server.headers.origin_agent_cluster", "?1")
	v.SetDefault("server.headers.xss_protection", "0")
	v.SetDefault("server.headers.x_dns_prefetch_control", "off")
	v.SetDefault("server.headers.x_download_options", "noopen")
	v.SetDefault("server.headers.x_permitted_cross_domain", "none")

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.pool.max_open_conns", 20)
	v.SetDefault("database.pool.max_idle_conns", 5)
	v.SetDefault("database.pool.conn_max_lifetime_minutes", 30)
	// safe_mode keeps auto_migrate from touching a production schema.
	v.SetDefault("database.migrations.safe_mode", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("nats.url", "nats://localhost:4222")

	v.SetDefault("authentication.paseto.mode", "local")
	v.SetDefault("authentication.paseto.access_ttl_minutes", 15)
	v.SetDefault("authentication.paseto.refresh_ttl_days", 30)
	v.SetDefault("authentication.otp_ttl_minutes", 5)

	v.SetDefault("authorization.casbin_model_path", "deployments/casbin/model.conf")
	v.SetDefault("authorization.superadmin_bypass", true)
	v.SetDefault("authorization.policy_sync_enabled", true)
	v.SetDefault("authorization.health_check_enabled", true)

	v.SetDefault("otp.default_length", 6)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output.stdout", true)
}
