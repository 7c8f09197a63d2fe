// Package relation manages family and guardianship links between clients.
//
// A relationship between two clients is stored as exactly one row: the
// participant IDs are put in canonical order and both perspectives of the
// relation are persisted, so there is never a second directional row to
// keep in sync or to leak after a partial delete.
package relation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oveliahealth/ovelia_backend/internal/model"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRelationRequest struct {
	ClientID        uuid.UUID
	RelatedClientID uuid.UUID

	// Type is what ClientID is to RelatedClientID (e.g. "parent" means
	// ClientID is the parent of RelatedClientID).
	Type  model.RelationKind
	Notes string
}

// RelationView is one entry of a client's relation list, already expanded
// to the queried client's perspective.
type RelationView struct {
	RelationID        uuid.UUID          `json:"relation_id"`
	RelatedClientID   uuid.UUID          `json:"related_client_id"`
	RelatedClientName string             `json:"related_client_name"`
	Type              model.RelationKind `json:"type"`
	Notes             string             `json:"notes,omitempty"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	// Create validates and stores a new relation between two clients of the
	// same clinic. The stored row is canonical: creating (X, Y) and (Y, X)
	// are the same relation and the second attempt fails as a duplicate.
	Create(ctx context.Context, clinicID uuid.UUID, req CreateRelationRequest) (*model.ClientRelation, error)

	// Delete removes the single canonical row, which makes the relation
	// disappear from both participants' lists at once.
	Delete(ctx context.Context, clinicID, relationID uuid.UUID) error

	// ListForClient returns every relation the client participates in, each
	// entry carrying the other party and the relation type as seen from the
	// queried client's side.
	ListForClient(ctx context.Context, clinicID, clientID uuid.UUID) ([]RelationView, error)
}

type relationService struct {
	db *gorm.DB
}

func New(db *gorm.DB) Service {
	return &relationService{db: db}
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

func (s *relationService) Create(ctx context.Context, clinicID uuid.UUID, req CreateRelationRequest) (*model.ClientRelation, error) {
	if req.ClientID == req.RelatedClientID {
		return nil, ErrSelfRelation
	}

	inverse, ok := model.InverseRelationKind(req.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRelationType, req.Type)
	}

	// Both participants must be clients of this clinic.
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Client{}).
		Where("clinic_id = ? AND id IN ?", clinicID, []uuid.UUID{req.ClientID, req.RelatedClientID}).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("check clients: %w", err)
	}
	if count != 2 {
		return nil, ErrClientNotFound
	}

	a, b, swapped := model.CanonicalPair(req.ClientID, req.RelatedClientID)

	typeAToB, typeBToA := req.Type, inverse
	if swapped {
		typeAToB, typeBToA = inverse, req.Type
	}

	var exists int64
	err = s.db.WithContext(ctx).Model(&model.ClientRelation{}).
		Where("clinic_id = ? AND client_a_id = ? AND client_b_id = ?", clinicID, a, b).
		Count(&exists).Error
	if err != nil {
		return nil, fmt.Errorf("check duplicate relation: %w", err)
	}
	if exists > 0 {
		return nil, ErrDuplicateRelation
	}

	rel := &model.ClientRelation{
		ClinicID:  clinicID,
		ClientAID: a,
		ClientBID: b,
		TypeAToB:  typeAToB,
		TypeBToA:  typeBToA,
		Notes:     req.Notes,
	}

	if err := s.db.WithContext(ctx).Create(rel).Error; err != nil {
		// The unique index on (clinic, a, b) backs the pre-check under
		// concurrent creates.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateRelation
		}
		return nil, fmt.Errorf("create relation: %w", err)
	}

	return rel, nil
}

func (s *relationService) Delete(ctx context.Context, clinicID, relationID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("clinic_id = ?", clinicID).
		Delete(&model.ClientRelation{}, "id = ?", relationID)
	if res.Error != nil {
		return fmt.Errorf("delete relation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRelationNotFound
	}
	return nil
}

func (s *relationService) ListForClient(ctx context.Context, clinicID, clientID uuid.UUID) ([]RelationView, error) {
	var exists int64
	err := s.db.WithContext(ctx).Model(&model.Client{}).
		Where("clinic_id = ? AND id = ?", clinicID, clientID).
		Count(&exists).Error
	if err != nil {
		return nil, fmt.Errorf("check client: %w", err)
	}
	if exists == 0 {
		return nil, ErrClientNotFound
	}

	var rels []model.ClientRelation
	err = s.db.WithContext(ctx).
		Where("clinic_id = ? AND (client_a_id = ? OR client_b_id = ?)", clinicID, clientID, clientID).
		Order("created_at ASC").
		Find(&rels).Error
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}

	if len(rels) == 0 {
		return []RelationView{}, nil
	}

	otherIDs := make([]uuid.UUID, 0, len(rels))
	for _, r := range rels {
		if other, ok := r.OtherParty(clientID); ok {
			otherIDs = append(otherIDs, other)
		}
	}

	var others []model.Client
	if err := s.db.WithContext(ctx).Where("id IN ?", otherIDs).Find(&others).Error; err != nil {
		return nil, fmt.Errorf("load related clients: %w", err)
	}
	names := make(map[uuid.UUID]string, len(others))
	for i := range others {
		names[others[i].ID] = others[i].FullName()
	}

	views := make([]RelationView, 0, len(rels))
	for _, r := range rels {
		other, _ := r.OtherParty(clientID)
		kind, _ := r.KindFor(clientID)
		views = append(views, RelationView{
			RelationID:        r.ID,
			RelatedClientID:   other,
			RelatedClientName: names[other],
			Type:              kind,
			Notes:             r.Notes,
		})
	}
	return views, nil
}
