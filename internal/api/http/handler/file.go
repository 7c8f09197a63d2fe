package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	svcfile "github.com/oveliahealth/ovelia_backend/internal/service/file"
)

// FileHandler serves client attachment uploads and downloads. Blobs live
// in object storage; only metadata crosses this API.
type FileHandler struct {
	svc svcfile.Service
}

func NewFileHandler(svc svcfile.Service) *FileHandler {
	return &FileHandler{svc: svc}
}

func mapFileError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, svcfile.ErrFileNotFound),
		errors.Is(err, svcfile.ErrClientNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, svcfile.ErrEmptyUpload):
		return badRequest(c, err.Error())
	case errors.Is(err, svcfile.ErrStorageUnavailable):
		return fail(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		return internalError(c)
	}
}

// POST /clients/:id/files
// Multipart upload; the optional category form field tags the attachment.
func (h *FileHandler) Upload(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	clientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid client id")
	}
	userID, authed := callerID(c)
	if !authed {
		return unauthorized(c)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file field is required")
	}

	cf, err := h.svc.Upload(c.Context(), clinicID, clientID, userID, fh, c.FormValue("category"))
	if err != nil {
		return mapFileError(c, err)
	}
	return created(c, cf)
}

// GET /clients/:id/files
func (h *FileHandler) ListForClient(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	clientID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid client id")
	}

	files, err := h.svc.ListForClient(c.Context(), clinicID, clientID, c.Query("category"))
	if err != nil {
		return mapFileError(c, err)
	}
	return ok(c, files)
}

// GET /files/:id
func (h *FileHandler) Get(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	fileID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid file id")
	}

	cf, err := h.svc.GetByID(c.Context(), clinicID, fileID)
	if err != nil {
		return mapFileError(c, err)
	}
	return ok(c, cf)
}

// GET /files/:id/download
// Redirects to a presigned download URL.
func (h *FileHandler) Download(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	fileID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid file id")
	}

	url, err := h.svc.DownloadURL(c.Context(), clinicID, fileID)
	if err != nil {
		return mapFileError(c, err)
	}
	return c.Redirect().To(url)
}

// DELETE /files/:id
func (h *FileHandler) Delete(c fiber.Ctx) error {
	clinicID, valid := clinicIDFromLocals(c)
	if !valid {
		return badRequest(c, "clinic context required")
	}
	fileID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid file id")
	}

	if err := h.svc.Delete(c.Context(), clinicID, fileID); err != nil {
		return mapFileError(c, err)
	}
	return noContent(c)
}
