package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/oveliahealth/ovelia_backend/internal/api/http/middleware"
	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/internal/service/client"
)

type ClientHandler struct {
	svc client.Service
}

func NewClientHandler(svc client.Service) *ClientHandler {
	return &ClientHandler{svc: svc}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func clinicIDFromLocals(c fiber.Ctx) (uuid.UUID, bool) {
	s, hasKey := c.Locals(middleware.LocalsClinicID).(string)
	if !hasKey || s == "" {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(s)
	return id, err == nil
}

func memberIDFromLocals(c fiber.Ctx) (uuid.UUID, bool) {
	s, hasKey := c.Locals(middleware.LocalsMemberID).(string)
	if !hasKey || s == "" {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(s)
	return id, err == nil
}

func mapClientError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, client.ErrClientNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, client.ErrDuplicateFileNumber),
		errors.Is(err, client.ErrDuplicateHealthCard):
		return conflict(c, err.Error())
	case errors.Is(err, client.ErrInvalidHealthCard),
		errors.Is(err, client.ErrInvalidPhone),
		errors.Is(err, client.ErrInvalidLanguage),
		errors.Is(err, client.ErrMissingName):
		return badRequest(c, err.Error())
	default:
		return internalError(c)
	}
}

// ---------------------------------------------------------------------------
// Client CRUD
// ---------------------------------------------------------------------------

// GET /clients
func (h *ClientHandler) List(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}

	var q struct {
		Page    int    `query:"page"`
		PerPage int    `query:"per_page"`
		Status  string `query:"status"`
		Search  string `query:"search"`
		Order   string `query:"order"`
	}
	_ = c.Bind().Query(&q)

	req := client.ListClientsRequest{
		Page:    q.Page,
		PerPage: q.PerPage,
		Search:  q.Search,
		Order:   q.Order,
	}
	if q.Status != "" {
		st := model.ClientStatus(q.Status)
		req.Status = &st
	}

	result, err := h.svc.List(c.Context(), clinicID, req)
	if err != nil {
		return mapClientError(c, err)
	}

	return ok(c, fiber.Map{
		"clients":     result.Data,
		"total":       result.Total,
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total_pages": result.TotalPages,
	})
}

// POST /clients
func (h *ClientHandler) Create(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}

	var body struct {
		FileNumber       string     `json:"file_number"`
		FirstName        string     `json:"first_name"`
		LastName         string     `json:"last_name"`
		Email            string     `json:"email"`
		Phone            string     `json:"phone"`
		DateOfBirth      *time.Time `json:"date_of_birth"`
		Language         string     `json:"language"`
		Address          string     `json:"address"`
		City             string     `json:"city"`
		PostalCode       string     `json:"postal_code"`
		HealthCardNumber string     `json:"health_card_number"`
		ReferralSource   string     `json:"referral_source"`
		ChiefComplaint   string     `json:"chief_complaint"`
		Notes            string     `json:"notes"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	cl, err := h.svc.Create(c.Context(), clinicID, client.CreateClientRequest{
		FileNumber:       body.FileNumber,
		FirstName:        body.FirstName,
		LastName:         body.LastName,
		Email:            body.Email,
		Phone:            body.Phone,
		DateOfBirth:      body.DateOfBirth,
		Language:         body.Language,
		Address:          body.Address,
		City:             body.City,
		PostalCode:       body.PostalCode,
		HealthCardNumber: body.HealthCardNumber,
		ReferralSource:   body.ReferralSource,
		ChiefComplaint:   body.ChiefComplaint,
		Notes:            body.Notes,
	})
	if err != nil {
		return mapClientError(c, err)
	}

	return created(c, cl)
}

// GET /clients/:id
func (h *ClientHandler) Get(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	clientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid client id")
	}

	cl, err := h.svc.GetByID(c.Context(), clinicID, clientID)
	if err != nil {
		return mapClientError(c, err)
	}
	return ok(c, cl)
}

// GET /clients/by-file-number/:number
func (h *ClientHandler) GetByFileNumber(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}

	cl, err := h.svc.GetByFileNumber(c.Context(), clinicID, c.Params("number"))
	if err != nil {
		return mapClientError(c, err)
	}
	return ok(c, cl)
}

// PATCH /clients/:id
func (h *ClientHandler) Update(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	clientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid client id")
	}

	var body struct {
		FirstName      *string    `json:"first_name"`
		LastName       *string    `json:"last_name"`
		Email          *string    `json:"email"`
		Phone          *string    `json:"phone"`
		DateOfBirth    *time.Time `json:"date_of_birth"`
		Language       *string    `json:"language"`
		Address        *string    `json:"address"`
		City           *string    `json:"city"`
		PostalCode     *string    `json:"postal_code"`
		ReferralSource *string    `json:"referral_source"`
		ChiefComplaint *string    `json:"chief_complaint"`
		Notes          *string    `json:"notes"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	cl, err := h.svc.Update(c.Context(), clinicID, clientID, client.UpdateClientRequest{
		FirstName:      body.FirstName,
		LastName:       body.LastName,
		Email:          body.Email,
		Phone:          body.Phone,
		DateOfBirth:    body.DateOfBirth,
		Language:       body.Language,
		Address:        body.Address,
		City:           body.City,
		PostalCode:     body.PostalCode,
		ReferralSource: body.ReferralSource,
		ChiefComplaint: body.ChiefComplaint,
		Notes:          body.Notes,
	})
	if err != nil {
		return mapClientError(c, err)
	}

	return ok(c, cl)
}

// POST /clients/:id/archive
func (h *ClientHandler) Archive(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	clientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid client id")
	}

	if err := h.svc.Archive(c.Context(), clinicID, clientID); err != nil {
		return mapClientError(c, err)
	}
	return noContent(c)
}

// POST /clients/:id/restore
func (h *ClientHandler) Restore(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	clientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid client id")
	}

	if err := h.svc.Restore(c.Context(), clinicID, clientID); err != nil {
		return mapClientError(c, err)
	}
	return noContent(c)
}

// ---------------------------------------------------------------------------
// Health card
// ---------------------------------------------------------------------------

// PUT /clients/:id/health-card
func (h *ClientHandler) SetHealthCard(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	clientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid client id")
	}

	var body struct {
		Number string `json:"number"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Number == "" {
		return badRequest(c, "number is required")
	}

	if err := h.svc.SetHealthCard(c.Context(), clinicID, clientID, body.Number); err != nil {
		return mapClientError(c, err)
	}
	return noContent(c)
}

// GET /clients/:id/health-card
func (h *ClientHandler) RevealHealthCard(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	clientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid client id")
	}

	number, err := h.svc.RevealHealthCard(c.Context(), clinicID, clientID)
	if err != nil {
		return mapClientError(c, err)
	}
	return ok(c, fiber.Map{"number": number})
}

// GET /clients/by-health-card?number=...
func (h *ClientHandler) FindByHealthCard(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	number := c.Query("number")
	if number == "" {
		return badRequest(c, "number is required")
	}

	cl, err := h.svc.FindByHealthCard(c.Context(), clinicID, number)
	if err != nil {
		return mapClientError(c, err)
	}
	return ok(c, cl)
}
