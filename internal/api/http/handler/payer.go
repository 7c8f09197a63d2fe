package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/oveliahealth/ovelia_backend/internal/coverage"
	"github.com/oveliahealth/ovelia_backend/internal/service/payer"
	"github.com/oveliahealth/ovelia_backend/pkg/claims"
)

type PayerHandler struct {
	svc payer.Service
}

func NewPayerHandler(svc payer.Service) *PayerHandler {
	return &PayerHandler{svc: svc}
}

// POST /payers/ivac
func (h *PayerHandler) CreateIVAC(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}

	var body struct {
		ClientID     string     `json:"client_id"`
		FileNumber   string     `json:"file_number"`
		IncidentDate *time.Time `json:"incident_date"`
		ExpiryDate   *time.Time `json:"expiry_date"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	clientID, err := uuid.Parse(body.ClientID)
	if err != nil {
		return badRequest(c, "invalid client_id")
	}

	p, err := h.svc.CreateIVAC(c.Context(), clinicID, payer.CreateIVACRequest{
		ClientID:     clientID,
		FileNumber:   body.FileNumber,
		IncidentDate: body.IncidentDate,
		ExpiryDate:   body.ExpiryDate,
	})
	if err != nil {
		return mapPayerError(c, err)
	}

	return created(c, p)
}

// POST /payers/pae
func (h *PayerHandler) CreatePAE(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}

	var body struct {
		ClientID             string          `json:"client_id"`
		FileNumber           string          `json:"file_number"`
		ProviderName         string          `json:"provider_name"`
		EmployerName         string          `json:"employer_name"`
		ReimbursementPercent int             `json:"reimbursement_percent"`
		MaxAmountCents       int64           `json:"max_amount_cents"`
		ExpiryDate           time.Time       `json:"expiry_date"`
		Rules                []coverage.Rule `json:"rules"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	clientID, err := uuid.Parse(body.ClientID)
	if err != nil {
		return badRequest(c, "invalid client_id")
	}

	p, err := h.svc.CreatePAE(c.Context(), clinicID, payer.CreatePAERequest{
		ClientID:             clientID,
		FileNumber:           body.FileNumber,
		ProviderName:         body.ProviderName,
		EmployerName:         body.EmployerName,
		ReimbursementPercent: body.ReimbursementPercent,
		MaxAmountCents:       body.MaxAmountCents,
		ExpiryDate:           body.ExpiryDate,
		Rules:                body.Rules,
	})
	if err != nil {
		return mapPayerError(c, err)
	}

	return created(c, p)
}

// GET /clients/:id/payers
func (h *PayerHandler) ListForClient(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	clientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid client id")
	}

	includeInactive := c.Query("include_inactive") == "true"
	payers, err := h.svc.ListForClient(c.Context(), clinicID, clientID, includeInactive)
	if err != nil {
		return mapPayerError(c, err)
	}
	return ok(c, payers)
}

// GET /payers/:id
func (h *PayerHandler) Get(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	payerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payer id")
	}

	p, err := h.svc.GetByID(c.Context(), clinicID, payerID)
	if err != nil {
		return mapPayerError(c, err)
	}
	return ok(c, p)
}

// PATCH /payers/:id
func (h *PayerHandler) Update(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	payerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payer id")
	}

	var body struct {
		FileNumber           *string    `json:"file_number"`
		IncidentDate         *time.Time `json:"incident_date"`
		ExpiryDate           *time.Time `json:"expiry_date"`
		ProviderName         *string    `json:"provider_name"`
		EmployerName         *string    `json:"employer_name"`
		ReimbursementPercent *int       `json:"reimbursement_percent"`
		MaxAmountCents       *int64     `json:"max_amount_cents"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	p, err := h.svc.Update(c.Context(), clinicID, payerID, payer.UpdatePayerRequest{
		FileNumber:           body.FileNumber,
		IncidentDate:         body.IncidentDate,
		ExpiryDate:           body.ExpiryDate,
		ProviderName:         body.ProviderName,
		EmployerName:         body.EmployerName,
		ReimbursementPercent: body.ReimbursementPercent,
		MaxAmountCents:       body.MaxAmountCents,
	})
	if err != nil {
		return mapPayerError(c, err)
	}

	return ok(c, p)
}

// PUT /payers/:id/rules
func (h *PayerHandler) ReplaceRules(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	payerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payer id")
	}

	var body struct {
		Rules []coverage.Rule `json:"rules"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	p, err := h.svc.ReplaceRules(c.Context(), clinicID, payerID, body.Rules)
	if err != nil {
		return mapPayerError(c, err)
	}
	return ok(c, p)
}

// POST /payers/:id/deactivate
func (h *PayerHandler) Deactivate(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	payerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payer id")
	}

	if err := h.svc.Deactivate(c.Context(), clinicID, payerID); err != nil {
		return mapPayerError(c, err)
	}
	return noContent(c)
}

// POST /payers/:id/reactivate
func (h *PayerHandler) Reactivate(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	payerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payer id")
	}

	if err := h.svc.Reactivate(c.Context(), clinicID, payerID); err != nil {
		return mapPayerError(c, err)
	}
	return noContent(c)
}

// DELETE /payers/:id
func (h *PayerHandler) Delete(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	payerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payer id")
	}

	if err := h.svc.Delete(c.Context(), clinicID, payerID); err != nil {
		return mapPayerError(c, err)
	}
	return noContent(c)
}

// ---------------------------------------------------------------------------
// Coverage
// ---------------------------------------------------------------------------

// POST /payers/:id/evaluate
func (h *PayerHandler) Evaluate(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	payerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payer id")
	}

	var body struct {
		Index       int    `json:"index"`
		ServiceName string `json:"service_name"`
		FeeCents    int64  `json:"fee_cents"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	eval, err := h.svc.EvaluateAppointment(c.Context(), clinicID, payerID, body.Index, body.ServiceName, body.FeeCents)
	if err != nil {
		return mapPayerError(c, err)
	}
	return ok(c, eval)
}

// GET /payers/:id/budget
func (h *PayerHandler) Budget(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	payerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payer id")
	}

	status, err := h.svc.BudgetStatus(c.Context(), clinicID, payerID)
	if err != nil {
		return mapPayerError(c, err)
	}
	return ok(c, status)
}

// GET /payers/:id/summary
func (h *PayerHandler) Summary(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	payerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payer id")
	}

	summary, err := h.svc.RuleChainSummary(c.Context(), clinicID, payerID)
	if err != nil {
		return mapPayerError(c, err)
	}
	return ok(c, fiber.Map{"summary": summary})
}

// GET /payers/:id/file-number
func (h *PayerHandler) RevealFileNumber(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	payerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payer id")
	}

	number, err := h.svc.RevealFileNumber(c.Context(), clinicID, payerID)
	if err != nil {
		return mapPayerError(c, err)
	}
	return ok(c, fiber.Map{"file_number": number})
}

// POST /payers/:id/claims
func (h *PayerHandler) SubmitClaim(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	payerID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid payer id")
	}

	var body struct {
		AmountCents int64     `json:"amount_cents"`
		ServiceDate time.Time `json:"service_date"`
		Description string    `json:"description"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	reference, err := h.svc.SubmitClaim(c.Context(), clinicID, payerID, payer.SubmitClaimRequest{
		AmountCents: body.AmountCents,
		ServiceDate: body.ServiceDate,
		Description: body.Description,
	})
	if err != nil {
		return mapPayerError(c, err)
	}
	return ok(c, fiber.Map{"reference": reference})
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func mapPayerError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, payer.ErrPayerNotFound),
		errors.Is(err, payer.ErrClientNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, payer.ErrActivePayerExists):
		return conflict(c, err.Error())
	case errors.Is(err, payer.ErrPayerInactive),
		errors.Is(err, payer.ErrPayerExpired),
		errors.Is(err, payer.ErrMissingFileNumber),
		errors.Is(err, payer.ErrMissingExpiry),
		errors.Is(err, payer.ErrInvalidPercent),
		errors.Is(err, payer.ErrInvalidAmount),
		errors.Is(err, payer.ErrInvalidRules),
		errors.Is(err, payer.ErrInvalidIndex),
		errors.Is(err, payer.ErrNotPAE),
		errors.Is(err, payer.ErrNotIVAC):
		return badRequest(c, err.Error())
	case errors.Is(err, payer.ErrClaimsUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, claims.ErrUnexpectedResponse):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	default:
		return internalError(c)
	}
}
