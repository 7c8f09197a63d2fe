package router

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/oveliahealth/ovelia_backend/config"
	"github.com/oveliahealth/ovelia_backend/internal/api/http/handler"
	"github.com/oveliahealth/ovelia_backend/internal/api/http/middleware"
	"github.com/oveliahealth/ovelia_backend/internal/service/appointment"
	"github.com/oveliahealth/ovelia_backend/internal/service/auth"
	"github.com/oveliahealth/ovelia_backend/internal/service/client"
	"github.com/oveliahealth/ovelia_backend/internal/service/clinic"
	"github.com/oveliahealth/ovelia_backend/internal/service/document"
	svcfile "github.com/oveliahealth/ovelia_backend/internal/service/file"
	"github.com/oveliahealth/ovelia_backend/internal/service/intake"
	"github.com/oveliahealth/ovelia_backend/internal/service/notification"
	"github.com/oveliahealth/ovelia_backend/internal/service/payer"
	"github.com/oveliahealth/ovelia_backend/internal/service/relation"
	"github.com/oveliahealth/ovelia_backend/internal/service/scheduling"
	"github.com/oveliahealth/ovelia_backend/internal/service/user"
	"github.com/oveliahealth/ovelia_backend/pkg/authorize"
	pasetotoken "github.com/oveliahealth/ovelia_backend/pkg/paseto"
)

// Module wires the Router into the fx graph.
var Module = fx.Module("router", fx.Provide(NewRouter))

type Params struct {
	fx.In

	Cfg             *config.Config
	Redis           *redis.Client
	Auth            authorize.IAuthorization
	DB              *gorm.DB
	AuthSvc         auth.Service
	UserSvc         user.Service
	ClinicSvc       clinic.Service
	ClientSvc       client.Service
	RelationSvc     relation.Service
	PayerSvc        payer.Service
	IntakeSvc       intake.Service
	SchedulingSvc   scheduling.Service
	AppointmentSvc  appointment.Service
	DocumentSvc     document.Service
	FileSvc         svcfile.Service
	NotificationSvc notification.Service
	PasetoMgr       *pasetotoken.Manager
}

type Router struct {
	p Params
}

func NewRouter(p Params) *Router {
	return &Router{p: p}
}

// guards bundles the route middleware every sub-router shares: token
// auth, the two clinic-scoping variants and the permission check.
type guards struct {
	auth         fiber.Handler
	clinicCtx    fiber.Handler
	clinicHeader fiber.Handler
	perm         func(authorize.Resource, authorize.Action) fiber.Handler
}

func (r *Router) Register(app *fiber.App) {
	r.registerSystemRoutes(app)

	g := guards{
		auth:         middleware.AuthRequired(r.p.PasetoMgr, r.p.Redis),
		clinicCtx:    middleware.ClinicContext(r.p.DB),
		clinicHeader: middleware.ClinicHeader(r.p.DB),
		perm: func(res authorize.Resource, act authorize.Action) fiber.Handler {
			return middleware.RequirePermission(r.p.Auth, res, act)
		},
	}

	// Handlers mounted under more than one prefix are built once here.
	intakeH := handler.NewIntakeHandler(r.p.IntakeSvc, r.p.ClinicSvc)
	scheduleH := handler.NewScheduleHandler(r.p.SchedulingSvc)
	payerH := handler.NewPayerHandler(r.p.PayerSvc)
	documentH := handler.NewDocumentHandler(r.p.DocumentSvc)
	fileH := handler.NewFileHandler(r.p.FileSvc)

	api := app.Group("/api/v1")

	r.registerPublicRoutes(api, intakeH, scheduleH)
	r.registerAuthRoutes(api, handler.NewAuthHandler(r.p.AuthSvc), g)
	r.registerUserRoutes(api, handler.NewUserHandler(r.p.UserSvc), g)
	r.registerClinicRoutes(api, handler.NewClinicHandler(r.p.ClinicSvc), g)
	r.registerClientRoutes(api, clientRouteDeps{
		client:   handler.NewClientHandler(r.p.ClientSvc),
		relation: handler.NewRelationHandler(r.p.RelationSvc),
		payer:    payerH,
		document: documentH,
		file:     fileH,
	}, g)
	r.registerPayerRoutes(api, payerH, g)
	r.registerIntakeRoutes(api, intakeH, g)
	r.registerScheduleRoutes(api, scheduleH, g)
	r.registerAppointmentRoutes(api, handler.NewAppointmentHandler(r.p.AppointmentSvc), g)
	r.registerDocumentRoutes(api, documentH, g)
	r.registerFileRoutes(api, fileH, g)
	r.registerNotificationRoutes(api, handler.NewNotificationHandler(r.p.NotificationSvc), g)
}

// registerPublicRoutes wires the unauthenticated surface: intake submission
// and the slot listing a prospective client sees before booking. The group
// gets a tighter rate limit than the authenticated API.
func (r *Router) registerPublicRoutes(api fiber.Router, ih *handler.IntakeHandler, sh *handler.ScheduleHandler) {
	public := api.Group("/public", middleware.NewLimiterWithRedis(r.p.Redis, 10, time.Minute))

	public.Post("/clinics/:slug/consultation-requests", ih.Submit)
	public.Get("/consultation-requests/:reference", ih.GetByReference)
	public.Get("/clinics/:id/available-slots", sh.ListAvailableSlots)
}

func (r *Router) registerSystemRoutes(app *fiber.App) {
	app.Get(healthcheck.LivenessEndpoint, healthcheck.New())

	// Readiness fails when the database is unreachable, and optionally
	// when policy sync broke, so the node stops taking traffic.
	app.Get(healthcheck.ReadinessEndpoint, healthcheck.New(healthcheck.Config{
		Probe: func(c fiber.Ctx) bool {
			if r.p.Cfg.Authorization.HealthCheckEnabled && !authorize.IsPolicyHealthy() {
				return false
			}
			sqlDB, err := r.p.DB.DB()
			if err != nil {
				return false
			}
			return sqlDB.PingContext(c.Context()) == nil
		},
	}))
	app.Get(healthcheck.StartupEndpoint, healthcheck.New())

	if obs := r.p.Cfg.Observability; obs.Enabled && obs.Metrics.Enabled {
		path := obs.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}
}
