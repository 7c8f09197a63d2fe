// Package document manages clinic letter templates and their rendered
// output. Template bodies are Go text templates over a fixed render
// context (clinic, client, payer and free-form extra fields). Rendered
// documents are written to object storage with a GeneratedDocument row
// per render; downloads go through presigned URLs.
package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"gorm.io/gorm"

	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/internal/service/payer"
	s3pkg "github.com/oveliahealth/ovelia_backend/pkg/s3"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateTemplateRequest struct {
	Name     string
	Category string
	Language string
	Body     string
}

type UpdateTemplateRequest struct {
	Name     *string
	Category *string
	Language *string
	Body     *string
	IsActive *bool
}

// GenerateRequest renders a template for one client. PayerID is optional;
// when set, the payer's fields (decrypted file number, coverage summary)
// are available to the template.
type GenerateRequest struct {
	TemplateID    uuid.UUID
	ClientID      uuid.UUID
	PayerID       *uuid.UUID
	GeneratedByID uuid.UUID
	Extra         map[string]string
}

// RenderContext is the data a template body executes against.
type RenderContext struct {
	Date   string
	Clinic ClinicFields
	Client ClientFields
	Payer  PayerFields
	Extra  map[string]string
}

type ClinicFields struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	City       string
	Province   string
	PostalCode string
}

type ClientFields struct {
	FirstName   string
	LastName    string
	FullName    string
	FileNumber  string
	Email       string
	Phone       string
	Address     string
	City        string
	PostalCode  string
	DateOfBirth string
}

type PayerFields struct {
	Kind         string
	FileNumber   string
	ProviderName string
	EmployerName string
	Coverage     string
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	CreateTemplate(ctx context.Context, clinicID uuid.UUID, req CreateTemplateRequest) (*model.DocumentTemplate, error)
	GetTemplate(ctx context.Context, clinicID, templateID uuid.UUID) (*model.DocumentTemplate, error)
	ListTemplates(ctx context.Context, clinicID uuid.UUID, category string, includeInactive bool) ([]model.DocumentTemplate, error)
	UpdateTemplate(ctx context.Context, clinicID, templateID uuid.UUID, req UpdateTemplateRequest) (*model.DocumentTemplate, error)
	DeleteTemplate(ctx context.Context, clinicID, templateID uuid.UUID) error

	// Preview renders without storing anything, for the edit screen.
	Preview(ctx context.Context, clinicID uuid.UUID, req GenerateRequest) (string, error)

	// Generate renders, stores the output in object storage and records a
	// GeneratedDocument row.
	Generate(ctx context.Context, clinicID uuid.UUID, req GenerateRequest) (*model.GeneratedDocument, error)

	ListGenerated(ctx context.Context, clinicID, clientID uuid.UUID) ([]model.GeneratedDocument, error)
	DownloadURL(ctx context.Context, clinicID, documentID uuid.UUID) (string, error)
	DeleteGenerated(ctx context.Context, clinicID, documentID uuid.UUID) error
}

type documentService struct {
	db     *gorm.DB
	store  *s3pkg.Client
	payers payer.Service
	nc     *nats.Conn
}

// New builds the document service. store may be nil when object storage
// is not configured; template CRUD and Preview still work, Generate and
// downloads return ErrStorageUnavailable.
func New(db *gorm.DB, store *s3pkg.Client, payers payer.Service, nc *nats.Conn) Service {
	return &documentService{db: db, store: store, payers: payers, nc: nc}
}

// ---------------------------------------------------------------------------
// Templates
// ---------------------------------------------------------------------------

func (s *documentService) CreateTemplate(ctx context.Context, clinicID uuid.UUID, req CreateTemplateRequest) (*model.DocumentTemplate, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrMissingName
	}
	if strings.TrimSpace(req.Body) == "" {
		return nil, ErrMissingBody
	}
	if err := checkBody(req.Body); err != nil {
		return nil, err
	}

	lang := req.Language
	if lang == "" {
		lang = "fr"
	}

	tpl := &model.DocumentTemplate{
		ClinicID: clinicID,
		Name:     req.Name,
		Category: req.Category,
		Language: lang,
		Body:     req.Body,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(tpl).Error; err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return tpl, nil
}

func (s *documentService) GetTemplate(ctx context.Context, clinicID, templateID uuid.UUID) (*model.DocumentTemplate, error) {
	var tpl model.DocumentTemplate
	err := s.db.WithContext(ctx).
		Where("clinic_id = ? AND id = ?", clinicID, templateID).
		First(&tpl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("get template: %w", err)
	}
	return &tpl, nil
}

func (s *documentService) ListTemplates(ctx context.Context, clinicID uuid.UUID, category string, includeInactive bool) ([]model.DocumentTemplate, error) {
	q := s.db.WithContext(ctx).Where("clinic_id = ?", clinicID)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}

	var tpls []model.DocumentTemplate
	if err := q.Order("name ASC").Find(&tpls).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return tpls, nil
}

func (s *documentService) UpdateTemplate(ctx context.Context, clinicID, templateID uuid.UUID, req UpdateTemplateRequest) (*model.DocumentTemplate, error) {
	tpl, err := s.GetTemplate(ctx, clinicID, templateID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, ErrMissingName
		}
		tpl.Name = *req.Name
	}
	if req.Category != nil {
		tpl.Category = *req.Category
	}
	if req.Language != nil {
		tpl.Language = *req.Language
	}
	if req.Body != nil {
		if strings.TrimSpace(*req.Body) == "" {
			return nil, ErrMissingBody
		}
		if err := checkBody(*req.Body); err != nil {
			return nil, err
		}
		tpl.Body = *req.Body
	}
	if req.IsActive != nil {
		tpl.IsActive = *req.IsActive
	}

	if err := s.db.WithContext(ctx).Save(tpl).Error; err != nil {
		return nil, fmt.Errorf("update template: %w", err)
	}
	return tpl, nil
}

func (s *documentService) DeleteTemplate(ctx context.Context, clinicID, templateID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("clinic_id = ? AND id = ?", clinicID, templateID).
		Delete(&model.DocumentTemplate{})
	if res.Error != nil {
		return fmt.Errorf("delete template: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

func (s *documentService) Preview(ctx context.Context, clinicID uuid.UUID, req GenerateRequest) (string, error) {
	_, _, text, err := s.render(ctx, clinicID, req)
	return text, err
}

func (s *documentService) Generate(ctx context.Context, clinicID uuid.UUID, req GenerateRequest) (*model.GeneratedDocument, error) {
	if s.store == nil {
		return nil, ErrStorageUnavailable
	}

	tpl, client, text, err := s.render(ctx, clinicID, req)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("documents/%s/%s.txt", clinicID, uuid.New())
	body := []byte(text)
	if err := s.store.Upload(ctx, key, "text/plain; charset=utf-8", bytes.NewReader(body), int64(len(body))); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	doc := &model.GeneratedDocument{
		ClinicID:      clinicID,
		ClientID:      client.ID,
		TemplateID:    tpl.ID,
		Name:          fmt.Sprintf("%s - %s", tpl.Name, client.FullName()),
		S3Key:         key,
		ContentType:   "text/plain; charset=utf-8",
		SizeBytes:     int64(len(body)),
		GeneratedByID: req.GeneratedByID,
	}
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, fmt.Errorf("record document: %w", err)
	}

	if s.nc != nil {
		// Publish NATS event
		subject := fmt.Sprintf("ovelia.document.generated.%s", clinicID.String())
		_ = s.nc.Publish(subject, []byte(doc.ID.String()))
	}

	return doc, nil
}

func (s *documentService) render(ctx context.Context, clinicID uuid.UUID, req GenerateRequest) (*model.DocumentTemplate, *model.Client, string, error) {
	tpl, err := s.GetTemplate(ctx, clinicID, req.TemplateID)
	if err != nil {
		return nil, nil, "", err
	}
	if !tpl.IsActive {
		return nil, nil, "", ErrTemplateInactive
	}

	var client model.Client
	err = s.db.WithContext(ctx).
		Where("clinic_id = ? AND id = ?", clinicID, req.ClientID).
		First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, "", ErrClientNotFound
		}
		return nil, nil, "", fmt.Errorf("load client: %w", err)
	}

	var clinic model.Clinic
	if err := s.db.WithContext(ctx).First(&clinic, "id = ?", clinicID).Error; err != nil {
		return nil, nil, "", fmt.Errorf("load clinic: %w", err)
	}

	data := RenderContext{
		Date: formatDate(time.Now(), tpl.Language),
		Clinic: ClinicFields{
			Name:       clinic.Name,
			Email:      clinic.Email,
			Phone:      clinic.Phone,
			Address:    clinic.Address,
			City:       clinic.City,
			Province:   clinic.Province,
			PostalCode: clinic.PostalCode,
		},
		Client: ClientFields{
			FirstName:  client.FirstName,
			LastName:   client.LastName,
			FullName:   client.FullName(),
			FileNumber: client.FileNumber,
			Email:      client.Email,
			Phone:      client.Phone,
			Address:    client.Address,
			City:       client.City,
			PostalCode: client.PostalCode,
		},
		Extra: req.Extra,
	}
	if client.DateOfBirth != nil {
		data.Client.DateOfBirth = formatDate(*client.DateOfBirth, tpl.Language)
	}

	if req.PayerID != nil {
		p, err := s.payers.GetByID(ctx, clinicID, *req.PayerID)
		if err != nil {
			return nil, nil, "", err
		}
		if p.ClientID != client.ID {
			return nil, nil, "", ErrPayerMismatch
		}

		fileNumber, err := s.payers.RevealFileNumber(ctx, clinicID, p.ID)
		if err != nil {
			return nil, nil, "", err
		}
		summary, err := s.payers.RuleChainSummary(ctx, clinicID, p.ID)
		if err != nil {
			return nil, nil, "", err
		}

		data.Payer = PayerFields{
			Kind:         strings.ToUpper(string(p.Kind)),
			FileNumber:   fileNumber,
			ProviderName: p.ProviderName,
			EmployerName: p.EmployerName,
			Coverage:     summary,
		}
	}

	parsed, err := template.New("document").Option("missingkey=zero").Parse(tpl.Body)
	if err != nil {
		return nil, nil, "", fmt.Errorf("%w: %v", ErrBadTemplate, err)
	}

	var out bytes.Buffer
	if err := parsed.Execute(&out, data); err != nil {
		return nil, nil, "", fmt.Errorf("render template: %w", err)
	}
	return tpl, &client, out.String(), nil
}

// checkBody parses the body once at save time so broken templates are
// caught in the editor, not at render time.
func checkBody(body string) error {
	if _, err := template.New("document").Parse(body); err != nil {
		return fmt.Errorf("%w: %v", ErrBadTemplate, err)
	}
	return nil
}

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

func formatDate(t time.Time, language string) string {
	if language == "en" {
		return t.Format("January 2, 2006")
	}
	return fmt.Sprintf("%d %s %d", t.Day(), frenchMonths[t.Month()-1], t.Year())
}

// ---------------------------------------------------------------------------
// Generated documents
// ---------------------------------------------------------------------------

func (s *documentService) ListGenerated(ctx context.Context, clinicID, clientID uuid.UUID) ([]model.GeneratedDocument, error) {
	var docs []model.GeneratedDocument
	err := s.db.WithContext(ctx).
		Where("clinic_id = ? AND client_id = ?", clinicID, clientID).
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

func (s *documentService) DownloadURL(ctx context.Context, clinicID, documentID uuid.UUID) (string, error) {
	if s.store == nil {
		return "", ErrStorageUnavailable
	}

	doc, err := s.getGenerated(ctx, clinicID, documentID)
	if err != nil {
		return "", err
	}

	url, err := s.store.PresignDownload(ctx, doc.S3Key)
	if err != nil {
		return "", fmt.Errorf("presign document: %w", err)
	}
	return url, nil
}

func (s *documentService) DeleteGenerated(ctx context.Context, clinicID, documentID uuid.UUID) error {
	doc, err := s.getGenerated(ctx, clinicID, documentID)
	if err != nil {
		return err
	}

	if s.store != nil {
		if err := s.store.Delete(ctx, doc.S3Key); err != nil {
			return fmt.Errorf("delete stored document: %w", err)
		}
	}
	if err := s.db.WithContext(ctx).Delete(doc).Error; err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (s *documentService) getGenerated(ctx context.Context, clinicID, documentID uuid.UUID) (*model.GeneratedDocument, error) {
	var doc model.GeneratedDocument
	err := s.db.WithContext(ctx).
		Where("clinic_id = ? AND id = ?", clinicID, documentID).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}
