package http

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/logger"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/oveliahealth/ovelia_backend/config"
	"github.com/oveliahealth/ovelia_backend/internal/api/http/middleware"
	"github.com/oveliahealth/ovelia_backend/internal/api/http/router"
	"github.com/oveliahealth/ovelia_backend/pkg/observability"
)

// Module provides the HTTP server to the fx graph.
var Module = fx.Module("http", fx.Provide(NewServer))

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Cfg       *config.Config
	Redis     *redis.Client
	Router    *router.Router
	OTel      *observability.Provider `optional:"true"`
}

// NewServer builds the fiber app, mounts the global middleware stack and
// every route, and ties listen/shutdown to the fx lifecycle.
func NewServer(p Params) *fiber.App {
	app := fiber.New()

	// Tracing wraps everything else so downstream middleware lands inside
	// the request span.
	if p.OTel != nil && p.Cfg.Observability.Tracing.Enabled {
		app.Use(observability.FiberMiddleware())
	}

	mountGlobalMiddleware(app, p.Cfg, p.Redis)

	p.Router.Register(app)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			addr := fmt.Sprintf(":%d", p.Cfg.Server.Port)
			slog.Info("http server listening", "addr", addr)
			go func() {
				if err := app.Listen(addr); err != nil {
					slog.Error("http server stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: app.ShutdownWithContext,
	})
	return app
}

func mountGlobalMiddleware(app *fiber.App, cfg *config.Config, rdb *redis.Client) {
	app.Use(middleware.RequestID())
	app.Use(recoverer.New())

	// Hardening and the global rate limit are production-only.
	if cfg.Server.Environment == "production" {
		app.Use(helmet.New(hardeningHeaders(cfg.Server.Headers)))
		if cfg.Server.CORS.Enabled {
			app.Use(cors.New(corsOptions(cfg.Server.CORS)))
		}
		if rl := cfg.Server.RateLimit; rl.Requests > 0 {
			window := time.Duration(rl.WindowSeconds) * time.Second
			app.Use(middleware.NewLimiterWithRedis(rdb, rl.Requests, window))
		}
	}

	app.Use(logger.New(logger.Config{
		Format: "${ip} [${time}] req_id=${locals:request_id} ${method} ${url} ${status} ${latency}\n",
	}))
}

func hardeningHeaders(h config.SecurityHeadersConfig) helmet.Config {
	return helmet.Config{
		ContentTypeNosniff:        h.ContentTypeNosniff,
		XFrameOptions:             h.XFrameOptions,
		ReferrerPolicy:            h.ReferrerPolicy,
		CrossOriginEmbedderPolicy: h.CrossOriginEmbedderPolicy,
		CrossOriginOpenerPolicy:   h.CrossOriginOpenerPolicy,
		CrossOriginResourcePolicy: h.CrossOriginResourcePolicy,
		OriginAgentCluster:        h.OriginAgentCluster,
		XSSProtection:             h.XSSProtection,
		XDNSPrefetchControl:       h.XDNSPrefetchControl,
		XDownloadOptions:          h.XDownloadOptions,
		XPermittedCrossDomain:     h.XPermittedCrossDomain,
	}
}

func corsOptions(c config.CORSConfig) cors.Config {
	return cors.Config{
		AllowOrigins:     c.AllowOrigins,
		AllowMethods:     c.AllowMethods,
		AllowHeaders:     c.AllowHeaders,
		ExposeHeaders:    c.ExposeHeaders,
		AllowCredentials: c.AllowCredentials,
		MaxAge:           c.MaxAgeSeconds,
	}
}
