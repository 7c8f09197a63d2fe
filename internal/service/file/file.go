// Package file stores client attachments (referrals, consent forms,
// external reports) in object storage, one ClientFile row per upload.
package file

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oveliahealth/ovelia_backend/internal/model"
	s3pkg "github.com/oveliahealth/ovelia_backend/pkg/s3"
)

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	// Upload stores the attachment under a per-clinic key and records the
	// ClientFile row.
	Upload(ctx context.Context, clinicID, clientID, uploadedByID uuid.UUID, fh *multipart.FileHeader, category string) (*model.ClientFile, error)

	GetByID(ctx context.Context, clinicID, fileID uuid.UUID) (*model.ClientFile, error)
	ListForClient(ctx context.Context, clinicID, clientID uuid.UUID, category string) ([]model.ClientFile, error)
	DownloadURL(ctx context.Context, clinicID, fileID uuid.UUID) (string, error)
	Delete(ctx context.Context, clinicID, fileID uuid.UUID) error
}

type fileService struct {
	db    *gorm.DB
	store *s3pkg.Client
}

// New builds the file service. store may be nil when object storage is
// not configured; every operation that touches it returns
// ErrStorageUnavailable.
func New(db *gorm.DB, store *s3pkg.Client) Service {
	return &fileService{db: db, store: store}
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

func (s *fileService) Upload(ctx context.Context, clinicID, clientID, uploadedByID uuid.UUID, fh *multipart.FileHeader, category string) (*model.ClientFile, error) {
	if s.store == nil {
		return nil, ErrStorageUnavailable
	}
	if fh.Size == 0 {
		return nil, ErrEmptyUpload
	}
	if err := s.checkClient(ctx, clinicID, clientID); err != nil {
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	key := fmt.Sprintf("files/%s/%s%s", clinicID, uuid.New(), ext)

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.store.Upload(ctx, key, contentType, src, fh.Size); err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	f := &model.ClientFile{
		ClinicID:     clinicID,
		ClientID:     clientID,
		FileName:     fh.Filename,
		S3Key:        key,
		ContentType:  contentType,
		SizeBytes:    fh.Size,
		Category:     category,
		UploadedByID: uploadedByID,
	}
	if err := s.db.WithContext(ctx).Create(f).Error; err != nil {
		return nil, fmt.Errorf("record file: %w", err)
	}
	return f, nil
}

func (s *fileService) GetByID(ctx context.Context, clinicID, fileID uuid.UUID) (*model.ClientFile, error) {
	var f model.ClientFile
	err := s.db.WithContext(ctx).
		Where("clinic_id = ? AND id = ?", clinicID, fileID).
		First(&f).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("get file: %w", err)
	}
	return &f, nil
}

func (s *fileService) ListForClient(ctx context.Context, clinicID, clientID uuid.UUID, category string) ([]model.ClientFile, error) {
	q := s.db.WithContext(ctx).
		Where("clinic_id = ? AND client_id = ?", clinicID, clientID)
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var files []model.ClientFile
	if err := q.Order("created_at DESC").Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

func (s *fileService) DownloadURL(ctx context.Context, clinicID, fileID uuid.UUID) (string, error) {
	if s.store == nil {
		return "", ErrStorageUnavailable
	}

	f, err := s.GetByID(ctx, clinicID, fileID)
	if err != nil {
		return "", err
	}

	url, err := s.store.PresignDownload(ctx, f.S3Key)
	if err != nil {
		return "", fmt.Errorf("presign file: %w", err)
	}
	return url, nil
}

func (s *fileService) Delete(ctx context.Context, clinicID, fileID uuid.UUID) error {
	f, err := s.GetByID(ctx, clinicID, fileID)
	if err != nil {
		return err
	}

	if s.store != nil {
		if err := s.store.Delete(ctx, f.S3Key); err != nil {
			return fmt.Errorf("delete stored file: %w", err)
		}
	}
	if err := s.db.WithContext(ctx).Delete(f).Error; err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

func (s *fileService) checkClient(ctx context.Context, clinicID, clientID uuid.UUID) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Client{}).
		Where("clinic_id = ? AND id = ?", clinicID, clientID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check client: %w", err)
	}
	if count == 0 {
		return ErrClientNotFound
	}
	return nil
}
