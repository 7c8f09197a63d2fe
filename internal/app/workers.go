package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/samber/lo"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/internal/service/document"
	"github.com/oveliahealth/ovelia_backend/internal/service/notification"
	"github.com/oveliahealth/ovelia_backend/internal/service/payer"
	"github.com/oveliahealth/ovelia_backend/pkg/email"
)

// WorkerModule registers all NATS event workers.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc        fx.Lifecycle
	NC        *nats.Conn
	DB        *gorm.DB
	Email     *email.Client
	Notif     notification.Service
	Payers    payer.Service
	Documents document.Service
}

func RegisterWorkers(p WorkerParams) {
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := startIntakeWorker(p); err != nil {
				return err
			}
			if err := startBudgetWorker(p); err != nil {
				return err
			}
			return startDocumentWorker(p)
		},
		OnStop: func(ctx context.Context) error {
			// Subscriptions die with the connection; ProvideNatsClient drains it.
			return nil
		},
	})
}

// ---------------------------------------------------------------------------
// Intake worker
// ---------------------------------------------------------------------------

// startIntakeWorker fans a new consultation request out to the clinic: one
// notification row per triage-capable member, an acknowledgment email to the
// requester and an alert to the clinic inbox.
func startIntakeWorker(p WorkerParams) error {
	_, err := p.NC.Subscribe("ovelia.intake.created.*", func(msg *nats.Msg) {
		clinicID, requestID, ok := parseEventSubject(msg)
		if !ok {
			slog.Warn("intake worker: bad event", "subject", msg.Subject)
			return
		}
		ctx := context.Background()

		var req model.ConsultationRequest
		if err := p.DB.WithContext(ctx).
			First(&req, "id = ? AND clinic_id = ?", requestID, clinicID).Error; err != nil {
			slog.Warn("intake worker: load request", "request_id", requestID, "error", err)
			return
		}
		var clinic model.Clinic
		if err := p.DB.WithContext(ctx).First(&clinic, "id = ?", clinicID).Error; err != nil {
			slog.Warn("intake worker: load clinic", "clinic_id", clinicID, "error", err)
			return
		}

		for _, userID := range staffUserIDs(ctx, p.DB, clinicID,
			model.MemberRoleOwner, model.MemberRoleAdmin, model.MemberRoleAssistant) {
			_, err := p.Notif.Create(ctx, notification.CreateRequest{
				UserID:   userID,
				ClinicID: &clinicID,
				Kind:     model.NotificationIntakeReceived,
				Title:    "Nouvelle demande de consultation",
				Body:     fmt.Sprintf("%s %s, réf. %s", req.FirstName, req.LastName, req.ReferenceCode),
				Payload: map[string]any{
					"consultation_request_id": req.ID.String(),
					"reference_code":          req.ReferenceCode,
				},
			})
			if err != nil {
				slog.Warn("intake worker: create notification", "user_id", userID, "error", err)
			}
		}

		data := email.IntakeEmailData{
			FirstName:     req.FirstName,
			Email:         req.Email,
			ReferenceCode: req.ReferenceCode,
			ClinicName:    clinic.Name,
			Language:      req.PreferredLanguage,
		}
		if req.Email != "" {
			if err := p.Email.Send(ctx, email.BuildIntakeAcknowledgmentEmail(data)); err != nil {
				slog.Warn("intake worker: acknowledgment email", "reference_code", req.ReferenceCode, "error", err)
			}
		}
		if clinic.Email != "" {
			if err := p.Email.Send(ctx, email.BuildIntakeStaffAlertEmail([]string{clinic.Email}, data)); err != nil {
				slog.Warn("intake worker: staff alert email", "reference_code", req.ReferenceCode, "error", err)
			}
		}
	})
	return err
}

// ---------------------------------------------------------------------------
// Budget worker
// ---------------------------------------------------------------------------

// startBudgetWorker alerts billing-capable staff when an external payer
// budget crosses its warning threshold.
func startBudgetWorker(p WorkerParams) error {
	_, err := p.NC.Subscribe("ovelia.payer.budget_low.*", func(msg *nats.Msg) {
		clinicID, payerID, ok := parseEventSubject(msg)
		if !ok {
			slog.Warn("budget worker: bad event", "subject", msg.Subject)
			return
		}
		ctx := context.Background()

		pay, err := p.Payers.GetByID(ctx, clinicID, payerID)
		if err != nil {
			slog.Warn("budget worker: load payer", "payer_id", payerID, "error", err)
			return
		}
		status, err := p.Payers.BudgetStatus(ctx, clinicID, payerID)
		if err != nil {
			slog.Warn("budget worker: budget status", "payer_id", payerID, "error", err)
			return
		}
		var cl model.Client
		if err := p.DB.WithContext(ctx).First(&cl, "id = ?", pay.ClientID).Error; err != nil {
			slog.Warn("budget worker: load client", "client_id", pay.ClientID, "error", err)
			return
		}

		for _, userID := range staffUserIDs(ctx, p.DB, clinicID,
			model.MemberRoleOwner, model.MemberRoleAdmin, model.MemberRoleBilling) {
			_, err := p.Notif.Create(ctx, notification.CreateRequest{
				UserID:   userID,
				ClinicID: &clinicID,
				Kind:     model.NotificationPayerBudgetLow,
				Title:    "Budget du tiers payeur presque épuisé",
				Body:     fmt.Sprintf("%s : %d %% du budget %s utilisé", cl.FullName(), status.UsedPercent, programName(pay)),
				Payload: map[string]any{
					"payer_id":     pay.ID.String(),
					"client_id":    cl.ID.String(),
					"used_percent": status.UsedPercent,
				},
			})
			if err != nil {
				slog.Warn("budget worker: create notification", "user_id", userID, "error", err)
			}
		}

		var clinic model.Clinic
		if err := p.DB.WithContext(ctx).First(&clinic, "id = ?", clinicID).Error; err != nil || clinic.Email == "" {
			return
		}
		warn := email.BuildPayerBudgetWarningEmail([]string{clinic.Email}, email.PayerBudgetEmailData{
			ClientName:       cl.FullName(),
			ProgramName:      programName(pay),
			UsedPercent:      status.UsedPercent,
			AmountUsed:       formatCAD(status.AmountUsedCents),
			MaxAmount:        formatCAD(status.MaxAmountCents),
			AppointmentsUsed: status.AppointmentsUsed,
		})
		if err := p.Email.Send(ctx, warn); err != nil {
			slog.Warn("budget worker: warning email", "payer_id", payerID, "error", err)
		}
	})
	return err
}

// ---------------------------------------------------------------------------
// Document worker
// ---------------------------------------------------------------------------

// startDocumentWorker notifies the generating user and emails the client a
// download link once a document lands in object storage.
func startDocumentWorker(p WorkerParams) error {
	_, err := p.NC.Subscribe("ovelia.document.generated.*", func(msg *nats.Msg) {
		clinicID, docID, ok := parseEventSubject(msg)
		if !ok {
			slog.Warn("document worker: bad event", "subject", msg.Subject)
			return
		}
		ctx := context.Background()

		var doc model.GeneratedDocument
		if err := p.DB.WithContext(ctx).
			First(&doc, "id = ? AND clinic_id = ?", docID, clinicID).Error; err != nil {
			slog.Warn("document worker: load document", "document_id", docID, "error", err)
			return
		}

		if _, err := p.Notif.Create(ctx, notification.CreateRequest{
			UserID:   doc.GeneratedByID,
			ClinicID: &clinicID,
			Kind:     model.NotificationDocumentReady,
			Title:    "Document prêt",
			Body:     doc.Name,
			Payload:  map[string]any{"document_id": doc.ID.String()},
		}); err != nil {
			slog.Warn("document worker: create notification", "document_id", docID, "error", err)
		}

		var cl model.Client
		if err := p.DB.WithContext(ctx).First(&cl, "id = ?", doc.ClientID).Error; err != nil || cl.Email == "" {
			return
		}
		url, err := p.Documents.DownloadURL(ctx, clinicID, doc.ID)
		if err != nil {
			slog.Warn("document worker: presign", "document_id", docID, "error", err)
			return
		}
		var clinic model.Clinic
		_ = p.DB.WithContext(ctx).First(&clinic, "id = ?", clinicID).Error

		ready := email.BuildDocumentReadyEmail(email.DocumentEmailData{
			FirstName:    cl.FirstName,
			Email:        cl.Email,
			DocumentName: doc.Name,
			DownloadURL:  url,
			ClinicName:   clinic.Name,
		})
		if err := p.Email.Send(ctx, ready); err != nil {
			slog.Warn("document worker: ready email", "document_id", docID, "error", err)
		}
	})
	return err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// parseEventSubject pulls the clinic ID from the subject's last token and
// the entity ID from the payload. Events are <app>.<domain>.<action>.<clinic_id>.
func parseEventSubject(msg *nats.Msg) (clinicID, entityID uuid.UUID, ok bool) {
	parts := strings.Split(msg.Subject, ".")
	if len(parts) != 4 {
		return uuid.Nil, uuid.Nil, false
	}
	clinicID, err := uuid.Parse(parts[3])
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	entityID, err = uuid.Parse(strings.TrimSpace(string(msg.Data)))
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return clinicID, entityID, true
}

func staffUserIDs(ctx context.Context, db *gorm.DB, clinicID uuid.UUID, roles ...model.MemberRole) []uuid.UUID {
	var members []model.ClinicMember
	err := db.WithContext(ctx).
		Where("clinic_id = ? AND is_active = ? AND role IN ?", clinicID, true, roles).
		Find(&members).Error
	if err != nil {
		slog.Warn("load clinic staff", "clinic_id", clinicID, "error", err)
		return nil
	}
	return lo.Map(members, func(m model.ClinicMember, _ int) uuid.UUID { return m.UserID })
}

func programName(p *model.ExternalPayer) string {
	if p.Kind == model.PayerPAE && p.EmployerName != "" {
		return "PAE " + p.EmployerName
	}
	return strings.ToUpper(string(p.Kind))
}

// formatCAD renders cents in the French-Canadian money style, e.g. "450,00 $".
func formatCAD(cents int64) string {
	return strings.Replace(fmt.Sprintf("%.2f $", float64(cents)/100), ".", ",", 1)
}
