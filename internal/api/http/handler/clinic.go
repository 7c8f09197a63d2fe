package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/internal/service/clinic"
	"github.com/oveliahealth/ovelia_backend/pkg/authorize"
)

// ClinicHandler serves clinic administration: the clinic record itself,
// its settings document and the membership roster.
type ClinicHandler struct {
	svc clinic.Service
}

func NewClinicHandler(svc clinic.Service) *ClinicHandler {
	return &ClinicHandler{svc: svc}
}

func clinicIDParam(c fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}

func mapClinicError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, clinic.ErrClinicNotFound),
		errors.Is(err, clinic.ErrMemberNotFound),
		errors.Is(err, clinic.ErrUserNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, clinic.ErrSlugAlreadyExists),
		errors.Is(err, clinic.ErrAlreadyMember):
		return conflict(c, err.Error())
	case errors.Is(err, clinic.ErrMissingName),
		errors.Is(err, clinic.ErrInvalidRole),
		errors.Is(err, clinic.ErrCannotRemoveOwner):
		return badRequest(c, err.Error())
	default:
		return internalError(c)
	}
}

// GET /clinics
func (h *ClinicHandler) List(c fiber.Ctx) error {
	var q struct {
		Page    int   `query:"page"`
		PerPage int   `query:"per_page"`
		Active  *bool `query:"active"`
	}
	_ = c.Bind().Query(&q)

	// Page bounds are normalized service-side.
	result, err := h.svc.ListClinics(c.Context(), clinic.ListClinicsRequest{
		Page:    q.Page,
		PerPage: q.PerPage,
		Active:  q.Active,
	})
	if err != nil {
		return internalError(c)
	}
	return ok(c, result)
}

// POST /clinics
func (h *ClinicHandler) Create(c fiber.Ctx) error {
	userID, authed := callerID(c)
	if !authed {
		return unauthorized(c)
	}

	var body struct {
		Name       string `json:"name"`
		Slug       string `json:"slug"`
		Email      string `json:"email"`
		Phone      string `json:"phone"`
		Address    string `json:"address"`
		City       string `json:"city"`
		Province   string `json:"province"`
		PostalCode string `json:"postal_code"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	cl, err := h.svc.CreateClinic(c.Context(), userID, clinic.CreateClinicRequest{
		Name:       body.Name,
		Slug:       body.Slug,
		Email:      body.Email,
		Phone:      body.Phone,
		Address:    body.Address,
		City:       body.City,
		Province:   body.Province,
		PostalCode: body.PostalCode,
	})
	if err != nil {
		return mapClinicError(c, err)
	}
	return created(c, cl)
}

// GET /clinics/slug/:slug
func (h *ClinicHandler) GetBySlug(c fiber.Ctx) error {
	cl, err := h.svc.GetBySlug(c.Context(), c.Params("slug"))
	if err != nil {
		return mapClinicError(c, err)
	}
	return ok(c, cl)
}

// GET /clinics/:id
func (h *ClinicHandler) Get(c fiber.Ctx) error {
	clinicID, err := clinicIDParam(c)
	if err != nil {
		return badRequest(c, "invalid clinic id")
	}

	cl, err := h.svc.GetClinic(c.Context(), clinicID)
	if err != nil {
		return mapClinicError(c, err)
	}
	return ok(c, cl)
}

// PATCH /clinics/:id
func (h *ClinicHandler) Update(c fiber.Ctx) error {
	clinicID, err := clinicIDParam(c)
	if err != nil {
		return badRequest(c, "invalid clinic id")
	}

	var body struct {
		Name       *string `json:"name"`
		Email      *string `json:"email"`
		Phone      *string `json:"phone"`
		Address    *string `json:"address"`
		City       *string `json:"city"`
		Province   *string `json:"province"`
		PostalCode *string `json:"postal_code"`
		IsActive   *bool   `json:"is_active"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	cl, err := h.svc.UpdateClinic(c.Context(), clinicID, clinic.UpdateClinicRequest{
		Name:       body.Name,
		Email:      body.Email,
		Phone:      body.Phone,
		Address:    body.Address,
		City:       body.City,
		Province:   body.Province,
		PostalCode: body.PostalCode,
		IsActive:   body.IsActive,
	})
	if err != nil {
		return mapClinicError(c, err)
	}
	return ok(c, cl)
}

// PATCH /clinics/:id/settings
func (h *ClinicHandler) UpdateSettings(c fiber.Ctx) error {
	clinicID, err := clinicIDParam(c)
	if err != nil {
		return badRequest(c, "invalid clinic id")
	}

	var body map[string]any
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(body) == 0 {
		return badRequest(c, "no settings given")
	}

	cl, err := h.svc.UpdateSettings(c.Context(), clinicID, body)
	if err != nil {
		return mapClinicError(c, err)
	}
	return ok(c, cl)
}

// GET /clinics/:id/members
func (h *ClinicHandler) ListMembers(c fiber.Ctx) error {
	clinicID, err := clinicIDParam(c)
	if err != nil {
		return badRequest(c, "invalid clinic id")
	}

	includeInactive := c.Query("include_inactive") == "true"
	members, err := h.svc.ListMembers(c.Context(), clinicID, includeInactive)
	if err != nil {
		return internalError(c)
	}

	// Dashboards are francophone; ship the role label with each member.
	type memberResponse struct {
		model.ClinicMember
		RoleDisplayFR string `json:"role_display_fr,omitempty"`
	}
	out := make([]memberResponse, len(members))
	for i, m := range members {
		out[i] = memberResponse{ClinicMember: m}
		if role, known := authorize.ClinicMemberRoleToRBACRole[string(m.Role)]; known {
			out[i].RoleDisplayFR = authorize.RoleDisplayNamesFR[role]
		}
	}
	return ok(c, out)
}

// GET /clinics/:id/clinicians
func (h *ClinicHandler) ListClinicians(c fiber.Ctx) error {
	clinicID, err := clinicIDParam(c)
	if err != nil {
		return badRequest(c, "invalid clinic id")
	}

	clinicians, err := h.svc.ListClinicians(c.Context(), clinicID)
	if err != nil {
		return internalError(c)
	}
	return ok(c, clinicians)
}

// POST /clinics/:id/members
func (h *ClinicHandler) AddMember(c fiber.Ctx) error {
	clinicID, err := clinicIDParam(c)
	if err != nil {
		return badRequest(c, "invalid clinic id")
	}

	var body struct {
		UserID uuid.UUID `json:"user_id"`
		Role   string    `json:"role"`
		Title  string    `json:"title"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.UserID == uuid.Nil {
		return badRequest(c, "user_id is required")
	}

	m, err := h.svc.AddMember(c.Context(), clinicID, clinic.AddMemberRequest{
		UserID: body.UserID,
		Role:   model.MemberRole(body.Role),
		Title:  body.Title,
	})
	if err != nil {
		return mapClinicError(c, err)
	}
	return created(c, m)
}

// PATCH /clinics/:id/members/:mid
func (h *ClinicHandler) UpdateMember(c fiber.Ctx) error {
	clinicID, err := clinicIDParam(c)
	if err != nil {
		return badRequest(c, "invalid clinic id")
	}
	memberID, err := uuid.Parse(c.Params("mid"))
	if err != nil {
		return badRequest(c, "invalid member id")
	}

	var body struct {
		Role     *string `json:"role"`
		Title    *string `json:"title"`
		IsActive *bool   `json:"is_active"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	req := clinic.UpdateMemberRequest{
		Title:    body.Title,
		IsActive: body.IsActive,
	}
	if body.Role != nil {
		role := model.MemberRole(*body.Role)
		req.Role = &role
	}

	m, err := h.svc.UpdateMember(c.Context(), clinicID, memberID, req)
	if err != nil {
		return mapClinicError(c, err)
	}
	return ok(c, m)
}

// DELETE /clinics/:id/members/:mid
func (h *ClinicHandler) RemoveMember(c fiber.Ctx) error {
	clinicID, err := clinicIDParam(c)
	if err != nil {
		return badRequest(c, "invalid clinic id")
	}
	memberID, err := uuid.Parse(c.Params("mid"))
	if err != nil {
		return badRequest(c, "invalid member id")
	}

	if err := h.svc.RemoveMember(c.Context(), clinicID, memberID); err != nil {
		return mapClinicError(c, err)
	}
	return noContent(c)
}
