package app

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/oveliahealth/ovelia_backend/config"
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
	"github.com/oveliahealth/ovelia_backend/pkg/claims"
	"github.com/oveliahealth/ovelia_backend/pkg/crypto"
	"github.com/oveliahealth/ovelia_backend/pkg/email"
	pasetotoken "github.com/oveliahealth/ovelia_backend/pkg/paseto"
	s3pkg "github.com/oveliahealth/ovelia_backend/pkg/s3"
	"github.com/oveliahealth/ovelia_backend/pkg/sms"
)

// ServiceModule provides all application service dependencies.
var ServiceModule = fx.Module("services",
	fx.Provide(
		ProvideCipherBox,
		ProvidePasetoManager,
		ProvideAuthService,
		ProvideUserService,
		ProvideClinicService,
		ProvideClientService,
		ProvideRelationService,
		ProvidePayerService,
		ProvideIntakeService,
		ProvideSchedulingService,
		ProvideAppointmentService,
		ProvideDocumentService,
		ProvideFileService,
		ProvideNotificationService,
	),
)

// ProvideCipherBox builds the AES-256-GCM box used to encrypt sensitive
// fields at rest (payer file numbers, health card numbers).
func ProvideCipherBox(cfg *config.Config) (*crypto.Box, error) {
	box, err := crypto.NewBoxFromHex(cfg.Authentication.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	return box, nil
}

func ProvidePasetoManager(cfg *config.Config) (*pasetotoken.Manager, error) {
	return pasetotoken.NewPasetoManager(cfg)
}

func ProvideAuthService(
	db *gorm.DB,
	rdb *redis.Client,
	emailCli *email.Client,
	smsCli *sms.Client,
	paseto *pasetotoken.Manager,
	authz authorize.IAuthorization,
	cfg *config.Config,
) auth.Service {
	return auth.New(db, rdb, emailCli, smsCli, paseto, authz, cfg)
}

func ProvideUserService(db *gorm.DB) user.Service {
	return user.New(db)
}

func ProvideClinicService(db *gorm.DB, authz authorize.IAuthorization) clinic.Service {
	return clinic.New(db, authz)
}

func ProvideClientService(db *gorm.DB, box *crypto.Box) client.Service {
	return client.New(db, box)
}

func ProvideRelationService(db *gorm.DB) relation.Service {
	return relation.New(db)
}

func ProvidePayerService(db *gorm.DB, box *crypto.Box, portal *claims.Client) payer.Service {
	return payer.New(db, box, portal)
}

func ProvideIntakeService(db *gorm.DB, clients client.Service, nc *nats.Conn) intake.Service {
	return intake.New(db, clients, nc)
}

func ProvideSchedulingService(db *gorm.DB) scheduling.Service {
	return scheduling.New(db)
}

func ProvideAppointmentService(db *gorm.DB, payers payer.Service, nc *nats.Conn) appointment.Service {
	return appointment.New(db, payers, nc)
}

func ProvideDocumentService(db *gorm.DB, store *s3pkg.Client, payers payer.Service, nc *nats.Conn) document.Service {
	return document.New(db, store, payers, nc)
}

func ProvideFileService(db *gorm.DB, store *s3pkg.Client) svcfile.Service {
	return svcfile.New(db, store)
}

func ProvideNotificationService(db *gorm.DB) notification.Service {
	return notification.New(db)
}
