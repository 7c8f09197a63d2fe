package document

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oveliahealth/ovelia_backend/config"
	"github.com/oveliahealth/ovelia_backend/internal/coverage"
	"github.com/oveliahealth/ovelia_backend/internal/model"
	"github.com/oveliahealth/ovelia_backend/internal/service/payer"
	"github.com/oveliahealth/ovelia_backend/pkg/crypto"
	s3pkg "github.com/oveliahealth/ovelia_backend/pkg/s3"
)

var testBox, _ = crypto.NewBox([]byte("0123456789abcdef0123456789abcdef"))

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(&model.Clinic{}, &model.Client{}, &model.ExternalPayer{},
		&model.DocumentTemplate{}, &model.GeneratedDocument{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedClinic(t *testing.T, db *gorm.DB) *model.Clinic {
	t.Helper()

	c := &model.Clinic{
		Name:       "Clinique Psychologique du Plateau",
		Slug:       "plateau-" + uuid.NewString()[:8],
		Email:      "info@plateau.example",
		Phone:      "+15145550199",
		Address:    "4530 rue Saint-Denis",
		City:       "Montréal",
		Province:   "QC",
		PostalCode: "H2J 2L4",
		IsActive:   true,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed clinic: %v", err)
	}
	return c
}

func seedClient(t *testing.T, db *gorm.DB, clinicID uuid.UUID) *model.Client {
	t.Helper()

	dob := time.Date(1988, 7, 14, 0, 0, 0, 0, time.UTC)
	c := &model.Client{
		ClinicID:    clinicID,
		FileNumber:  "D-00042",
		FirstName:   "Marie",
		LastName:    "Tremblay",
		Email:       "marie@example.com",
		Phone:       "+15145551234",
		DateOfBirth: &dob,
		Address:     "123 rue Principale",
		City:        "Montréal",
		PostalCode:  "H2X 1Y6",
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}

// objectStore is an httptest stand-in for the bucket; it records uploads
// by path and accepts deletes.
type objectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newObjectStore(t *testing.T) (*s3pkg.Client, *objectStore) {
	t.Helper()

	store := &objectStore{objects: map[string][]byte{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			store.mu.Lock()
			store.objects[r.URL.Path] = body
			store.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			store.mu.Lock()
			delete(store.objects, r.URL.Path)
			store.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)

	cli, err := s3pkg.New(config.S3Config{
		Endpoint:        srv.URL,
		Region:          "bhs",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Bucket:          "ovelia-test",
		PresignTTLSec:   300,
	})
	if err != nil {
		t.Fatalf("s3 client: %v", err)
	}
	return cli, store
}

func (o *objectStore) get(path string) ([]byte, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.objects[path]
	return b, ok
}

func (o *objectStore) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.objects)
}

func TestTemplateCRUD(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil, payer.New(db, testBox, nil), nil)
	ctx := context.Background()
	clinicID := uuid.New()

	tpl, err := svc.CreateTemplate(ctx, clinicID, CreateTemplateRequest{
		Name:     "Lettre de confirmation",
		Category: "letters",
		Body:     "Bonjour {{.Client.FirstName}},",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tpl.Language != "fr" {
		t.Errorf("language = %q, want fr default", tpl.Language)
	}
	if !tpl.IsActive {
		t.Error("new template should be active")
	}

	if _, err := svc.CreateTemplate(ctx, clinicID, CreateTemplateRequest{Name: "X"}); !errors.Is(err, ErrMissingBody) {
		t.Errorf("empty body: err = %v, want ErrMissingBody", err)
	}
	if _, err := svc.CreateTemplate(ctx, clinicID, CreateTemplateRequest{Name: "X", Body: "{{.Broken"}); !errors.Is(err, ErrBadTemplate) {
		t.Errorf("broken body: err = %v, want ErrBadTemplate", err)
	}

	newBody := "Bonjour {{.Client.FullName}},"
	inactive := false
	updated, err := svc.UpdateTemplate(ctx, clinicID, tpl.ID, UpdateTemplateRequest{
		Body:     &newBody,
		IsActive: &inactive,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Body != newBody || updated.IsActive {
		t.Errorf("update not applied: body %q active %v", updated.Body, updated.IsActive)
	}

	active, err := svc.ListTemplates(ctx, clinicID, "", false)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("active list = %d, want 0 after deactivation", len(active))
	}
	all, err := svc.ListTemplates(ctx, clinicID, "letters", true)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("all list = %d, want 1", len(all))
	}

	if err := svc.DeleteTemplate(ctx, clinicID, tpl.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteTemplate(ctx, clinicID, tpl.ID); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("second delete: err = %v, want ErrTemplateNotFound", err)
	}
}

func TestPreviewMergesFields(t *testing.T) {
	db := newTestDB(t)
	payers := payer.New(db, testBox, nil)
	svc := New(db, nil, payers, nil)
	ctx := context.Background()

	clinic := seedClinic(t, db)
	client := seedClient(t, db, clinic.ID)

	p, err := payers.CreatePAE(ctx, clinic.ID, payer.CreatePAERequest{
		ClientID:     client.ID,
		FileNumber:   "PAE-98765",
		ProviderName: "Telus Santé",
		EmployerName: "Hydro-Québec",
		ExpiryDate:   time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		Rules: []coverage.Rule{
			{Kind: coverage.RuleFreeAppointments, Order: 1, Count: 3},
			{Kind: coverage.RuleSharedCost, Order: 2, FromAppointment: 4, PAEPercent: 50},
		},
	})
	if err != nil {
		t.Fatalf("create pae: %v", err)
	}

	tpl, err := svc.CreateTemplate(ctx, clinic.ID, CreateTemplateRequest{
		Name: "Attestation de couverture",
		Body: "{{.Clinic.Name}}\n" +
			"Dossier {{.Client.FileNumber}} - {{.Client.FullName}}\n" +
			"Programme {{.Payer.Kind}} no {{.Payer.FileNumber}} ({{.Payer.EmployerName}})\n" +
			"Couverture : {{.Payer.Coverage}}\n" +
			"Motif : {{.Extra.motif}}",
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	text, err := svc.Preview(ctx, clinic.ID, GenerateRequest{
		TemplateID: tpl.ID,
		ClientID:   client.ID,
		PayerID:    &p.ID,
		Extra:      map[string]string{"motif": "suivi individuel"},
	})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}

	for _, want := range []string{
		"Clinique Psychologique du Plateau",
		"Dossier D-00042 - Marie Tremblay",
		"Programme PAE no PAE-98765 (Hydro-Québec)",
		"3 free appointments",
		"Motif : suivi individuel",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered text missing %q:\n%s", want, text)
		}
	}
}

func TestPreviewGuards(t *testing.T) {
	db := newTestDB(t)
	payers := payer.New(db, testBox, nil)
	svc := New(db, nil, payers, nil)
	ctx := context.Background()

	clinic := seedClinic(t, db)
	client := seedClient(t, db, clinic.ID)

	tpl, err := svc.CreateTemplate(ctx, clinic.ID, CreateTemplateRequest{
		Name: "Lettre", Body: "Bonjour {{.Client.FirstName}}",
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	_, err = svc.Preview(ctx, clinic.ID, GenerateRequest{TemplateID: tpl.ID, ClientID: uuid.New()})
	if !errors.Is(err, ErrClientNotFound) {
		t.Errorf("unknown client: err = %v, want ErrClientNotFound", err)
	}

	inactive := false
	if _, err := svc.UpdateTemplate(ctx, clinic.ID, tpl.ID, UpdateTemplateRequest{IsActive: &inactive}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err = svc.Preview(ctx, clinic.ID, GenerateRequest{TemplateID: tpl.ID, ClientID: client.ID})
	if !errors.Is(err, ErrTemplateInactive) {
		t.Errorf("inactive template: err = %v, want ErrTemplateInactive", err)
	}

	// A payer attached to some other client cannot leak into the letter.
	other := &model.Client{ClinicID: clinic.ID, FileNumber: "D-00043", FirstName: "Luc", LastName: "Gagnon"}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("seed other: %v", err)
	}
	p, err := payers.CreateIVAC(ctx, clinic.ID, payer.CreateIVACRequest{ClientID: other.ID, FileNumber: "IVAC-1"})
	if err != nil {
		t.Fatalf("create ivac: %v", err)
	}
	active := true
	if _, err := svc.UpdateTemplate(ctx, clinic.ID, tpl.ID, UpdateTemplateRequest{IsActive: &active}); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	_, err = svc.Preview(ctx, clinic.ID, GenerateRequest{TemplateID: tpl.ID, ClientID: client.ID, PayerID: &p.ID})
	if !errors.Is(err, ErrPayerMismatch) {
		t.Errorf("foreign payer: err = %v, want ErrPayerMismatch", err)
	}
}

func TestGenerateStoresDocument(t *testing.T) {
	db := newTestDB(t)
	payers := payer.New(db, testBox, nil)
	store, bucket := newObjectStore(t)
	svc := New(db, store, payers, nil)
	ctx := context.Background()

	clinic := seedClinic(t, db)
	client := seedClient(t, db, clinic.ID)
	staffID := uuid.New()

	tpl, err := svc.CreateTemplate(ctx, clinic.ID, CreateTemplateRequest{
		Name: "Reçu de consultation",
		Body: "Reçu pour {{.Client.FullName}}, dossier {{.Client.FileNumber}}.",
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	doc, err := svc.Generate(ctx, clinic.ID, GenerateRequest{
		TemplateID:    tpl.ID,
		ClientID:      client.ID,
		GeneratedByID: staffID,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if doc.Name != "Reçu de consultation - Marie Tremblay" {
		t.Errorf("name = %q", doc.Name)
	}
	if doc.TemplateID != tpl.ID || doc.ClientID != client.ID || doc.GeneratedByID != staffID {
		t.Error("document row links wrong")
	}
	if !strings.HasPrefix(doc.S3Key, "documents/"+clinic.ID.String()+"/") {
		t.Errorf("s3 key = %q", doc.S3Key)
	}

	stored, ok := bucket.get("/ovelia-test/" + doc.S3Key)
	if !ok {
		t.Fatalf("no object stored at %q", doc.S3Key)
	}
	if want := "Reçu pour Marie Tremblay, dossier D-00042."; string(stored) != want {
		t.Errorf("stored body = %q, want %q", stored, want)
	}
	if doc.SizeBytes != int64(len(stored)) {
		t.Errorf("size = %d, want %d", doc.SizeBytes, len(stored))
	}

	listed, err := svc.ListGenerated(ctx, clinic.ID, client.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("listed %d documents, want 1", len(listed))
	}

	url, err := svc.DownloadURL(ctx, clinic.ID, doc.ID)
	if err != nil {
		t.Fatalf("download url: %v", err)
	}
	if !strings.Contains(url, doc.S3Key) || !strings.Contains(url, "X-Amz-Signature") {
		t.Errorf("presigned url = %q", url)
	}

	if err := svc.DeleteGenerated(ctx, clinic.ID, doc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if bucket.count() != 0 {
		t.Errorf("bucket still holds %d objects", bucket.count())
	}
	if _, err := svc.DownloadURL(ctx, clinic.ID, doc.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("after delete: err = %v, want ErrDocumentNotFound", err)
	}
}

func TestGenerateWithoutStorage(t *testing.T) {
	db := newTestDB(t)
	svc := New(db, nil, payer.New(db, testBox, nil), nil)
	ctx := context.Background()

	clinic := seedClinic(t, db)
	client := seedClient(t, db, clinic.ID)

	tpl, err := svc.CreateTemplate(ctx, clinic.ID, CreateTemplateRequest{
		Name: "Lettre", Body: "Bonjour",
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	_, err = svc.Generate(ctx, clinic.ID, GenerateRequest{TemplateID: tpl.ID, ClientID: client.ID})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("err = %v, want ErrStorageUnavailable", err)
	}
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)

	if got := formatDate(d, "fr"); got != "3 août 2026" {
		t.Errorf("fr = %q", got)
	}
	if got := formatDate(d, "en"); got != "August 3, 2026" {
		t.Errorf("en = %q", got)
	}
}
