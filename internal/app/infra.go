package app

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/oveliahealth/ovelia_backend/config"
	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/pkg/authorize"
	"github.com/oveliahealth/ovelia_backend/pkg/claims"
	"github.com/oveliahealth/ovelia_backend/pkg/database"
	"github.com/oveliahealth/ovelia_backend/pkg/email"
	"github.com/oveliahealth/ovelia_backend/pkg/observability"
	redispkg "github.com/oveliahealth/ovelia_backend/pkg/redis"
	s3pkg "github.com/oveliahealth/ovelia_backend/pkg/s3"
	"github.com/oveliahealth/ovelia_backend/pkg/sms"
)

// InfraModule provides every external connection: Postgres, Redis, the
// Casbin enforcer, NATS, SMTP, SMS, object storage, the claims portal
// and the OTel provider.
var InfraModule = fx.Module("infra", fx.Provide(
	ProvideDatabase,
	ProvideGorm,
	ProvideRedis,
	ProvideAuthorization,
	ProvideEmailClient,
	ProvideSMSClient,
	ProvideOTel,
	ProvideS3Client,
	ProvideClaimsClient,
	ProvideNatsClient,
))

// stopWith registers a labelled shutdown hook, so every provider
// releases its connection through the same path.
func stopWith(lc fx.Lifecycle, label string, fn func(context.Context) error) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("shutting down " + label)
			return fn(ctx)
		},
	})
}

func ProvideDatabase(lc fx.Lifecycle, cfg *config.Config) (*database.DB, error) {
	db, err := database.New(database.FromCentralConfig(cfg.Database))
	if err != nil {
		return nil, err
	}
	stopWith(lc, "main database connection", func(context.Context) error { return db.Close() })
	return db, nil
}

// ProvideGorm hands out the ORM handle and, when auto_migrate is set,
// reconciles the schema at startup. safe_mode keeps boot migration out
// of production; there the migrate command is the only path.
func ProvideGorm(lc fx.Lifecycle, cfg *config.Config, db *database.DB) *gorm.DB {
	if m := cfg.Database.Migrations; m.AutoMigrate {
		if m.SafeMode && cfg.Server.Environment == "production" {
			slog.Warn("auto_migrate requested but blocked by safe_mode in production")
		} else {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					slog.Info("running schema auto-migration")
					return database.Migrate(ctx, db, model.All()...)
				},
			})
		}
	}
	return db.Gorm()
}

func ProvideRedis(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	rdb, err := redispkg.NewRedisFromCentral(cfg.Redis)
	if err != nil {
		return nil, err
	}
	stopWith(lc, "redis connection", func(context.Context) error { return rdb.Close() })
	return rdb, nil
}

func ProvideAuthorization(lc fx.Lifecycle, cfg *config.Config) (authorize.IAuthorization, error) {
	dsn := database.NewDSN(cfg.CasbinDatabase)
	enforcer, cleanup, err := authorize.NewEnforcer(cfg.Authorization.CasbinModelPath, dsn, cfg.Authorization.PolicySyncEnabled)
	if err != nil {
		return nil, err
	}
	auth, err := authorize.NewAuthorization(enforcer, cfg.Authorization.SuperadminBypass)
	if err != nil {
		cleanup(context.Background())
		return nil, err
	}
	if cfg.Authorization.EnableAudit {
		auth = authorize.NewAuditedAuthorization(auth, slog.Default())
	}
	stopWith(lc, "casbin enforcer", func(ctx context.Context) error {
		cleanup(ctx)
		return nil
	})
	return auth, nil
}

// The messaging clients degrade to no-ops when their config sections
// disable them, so both are provided unconditionally.
func ProvideEmailClient(cfg *config.Config) (*email.Client, error) {
	return email.NewFromCentral(cfg.Email)
}

func ProvideSMSClient(cfg *config.Config) (*sms.Client, error) {
	return sms.NewFromConfig(cfg.SMS)
}

// ProvideS3Client returns nil when object storage is not configured;
// document generation and chart uploads answer 503 in that case.
func ProvideS3Client(cfg *config.Config) (*s3pkg.Client, error) {
	if cfg.S3.Bucket == "" {
		slog.Warn("object storage not configured; document and file uploads disabled")
		return nil, nil
	}
	return s3pkg.New(cfg.S3)
}

// ProvideClaimsClient returns nil when no submitter is configured;
// claim submission reports the portal as unavailable.
func ProvideClaimsClient(cfg *config.Config) *claims.Client {
	if cfg.Claims.SubmitterID == "" {
		slog.Warn("claims portal not configured; claim submission disabled")
		return nil
	}
	return claims.New(cfg.Claims)
}

func ProvideNatsClient(lc fx.Lifecycle, cfg *config.Config) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.Nats.URL,
		nats.Name("ovelia-backend"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	// Drain lets in-flight notification deliveries finish before the
	// connection drops.
	stopWith(lc, "nats connection", func(context.Context) error { return nc.Drain() })
	return nc, nil
}

func ProvideOTel(lc fx.Lifecycle, cfg *config.Config) (*observability.Provider, error) {
	if !cfg.Observability.Enabled {
		return nil, nil
	}
	provider, err := observability.InitTelemetry(context.Background(), observability.FromCentralConfig(cfg))
	if err != nil {
		return nil, err
	}
	slog.Info("observability initialized",
		"tracing", cfg.Observability.Tracing.Enabled,
		"metrics", cfg.Observability.Metrics.Enabled,
	)
	stopWith(lc, "observability providers", provider.Shutdown)
	return provider, nil
}
