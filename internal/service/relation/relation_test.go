package relation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oveliahealth/ovelia_backend/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(&model.Client{}, &model.ClientRelation{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedClient(t *testing.T, db *gorm.DB, clinicID uuid.UUID, first, last string) *model.Client {
	t.Helper()

	c := &model.Client{
		ClinicID:   clinicID,
		FileNumber: "F-" + uuid.NewString()[:8],
		FirstName:  first,
		LastName:   last,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed client %s %s: %v", first, last, err)
	}
	return c
}

func TestCreateVisibleFromBothPerspectives(t *testing.T) {
	db := newTestDB(t)
	svc := New(db)
	ctx := context.Background()

	clinicID := uuid.New()
	parent := seedClient(t, db, clinicID, "Marie", "Tremblay")
	child := seedClient(t, db, clinicID, "Léa", "Tremblay")

	_, err := svc.Create(ctx, clinicID, CreateRelationRequest{
		ClientID:        parent.ID,
		RelatedClientID: child.ID,
		Type:            model.RelationParent,
	})
	if err != nil {
		t.Fatalf("create relation: %v", err)
	}

	parentViews, err := svc.ListForClient(ctx, clinicID, parent.ID)
	if err != nil {
		t.Fatalf("list for parent: %v", err)
	}
	if len(parentViews) != 1 {
		t.Fatalf("parent views = %d, want 1", len(parentViews))
	}
	if parentViews[0].RelatedClientID != child.ID {
		t.Errorf("parent view related = %s, want %s", parentViews[0].RelatedClientID, child.ID)
	}
	if parentViews[0].Type != model.RelationParent {
		t.Errorf("parent view type = %q, want parent", parentViews[0].Type)
	}
	if parentViews[0].RelatedClientName != "Léa Tremblay" {
		t.Errorf("parent view name = %q, want Léa Tremblay", parentViews[0].RelatedClientName)
	}

	childViews, err := svc.ListForClient(ctx, clinicID, child.ID)
	if err != nil {
		t.Fatalf("list for child: %v", err)
	}
	if len(childViews) != 1 {
		t.Fatalf("child views = %d, want 1", len(childViews))
	}
	if childViews[0].RelatedClientID != parent.ID {
		t.Errorf("child view related = %s, want %s", childViews[0].RelatedClientID, parent.ID)
	}
	if childViews[0].Type != model.RelationChild {
		t.Errorf("child view type = %q, want child", childViews[0].Type)
	}
}

func TestCreateDuplicateRejectedBothOrders(t *testing.T) {
	db := newTestDB(t)
	svc := New(db)
	ctx := context.Background()

	clinicID := uuid.New()
	x := seedClient(t, db, clinicID, "Paul", "Gagnon")
	y := seedClient(t, db, clinicID, "Anne", "Gagnon")

	_, err := svc.Create(ctx, clinicID, CreateRelationRequest{
		ClientID:        x.ID,
		RelatedClientID: y.ID,
		Type:            model.RelationSpouse,
	})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	// Same order
	_, err = svc.Create(ctx, clinicID, CreateRelationRequest{
		ClientID:        x.ID,
		RelatedClientID: y.ID,
		Type:            model.RelationSpouse,
	})
	if !errors.Is(err, ErrDuplicateRelation) {
		t.Errorf("same-order duplicate: got %v, want ErrDuplicateRelation", err)
	}

	// Reversed order, different type: still the same pair
	_, err = svc.Create(ctx, clinicID, CreateRelationRequest{
		ClientID:        y.ID,
		RelatedClientID: x.ID,
		Type:            model.RelationSibling,
	})
	if !errors.Is(err, ErrDuplicateRelation) {
		t.Errorf("reversed-order duplicate: got %v, want ErrDuplicateRelation", err)
	}
}

func TestCreateValidation(t *testing.T) {
	db := newTestDB(t)
	svc := New(db)
	ctx := context.Background()

	clinicID := uuid.New()
	a := seedClient(t, db, clinicID, "Julie", "Roy")
	b := seedClient(t, db, clinicID, "Marc", "Roy")

	t.Run("self relation", func(t *testing.T) {
		_, err := svc.Create(ctx, clinicID, CreateRelationRequest{
			ClientID:        a.ID,
			RelatedClientID: a.ID,
			Type:            model.RelationSibling,
		})
		if !errors.Is(err, ErrSelfRelation) {
			t.Errorf("got %v, want ErrSelfRelation", err)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := svc.Create(ctx, clinicID, CreateRelationRequest{
			ClientID:        a.ID,
			RelatedClientID: b.ID,
			Type:            model.RelationKind("cousin"),
		})
		if !errors.Is(err, ErrUnknownRelationType) {
			t.Errorf("got %v, want ErrUnknownRelationType", err)
		}
	})

	t.Run("client from another clinic", func(t *testing.T) {
		stranger := seedClient(t, db, uuid.New(), "Eve", "Lavoie")
		_, err := svc.Create(ctx, clinicID, CreateRelationRequest{
			ClientID:        a.ID,
			RelatedClientID: stranger.ID,
			Type:            model.RelationSibling,
		})
		if !errors.Is(err, ErrClientNotFound) {
			t.Errorf("got %v, want ErrClientNotFound", err)
		}
	})

	t.Run("missing client", func(t *testing.T) {
		_, err := svc.Create(ctx, clinicID, CreateRelationRequest{
			ClientID:        a.ID,
			RelatedClientID: uuid.New(),
			Type:            model.RelationSibling,
		})
		if !errors.Is(err, ErrClientNotFound) {
			t.Errorf("got %v, want ErrClientNotFound", err)
		}
	})

	// Validation failures must not leave rows behind.
	var count int64
	if err := db.Model(&model.ClientRelation{}).Count(&count).Error; err != nil {
		t.Fatalf("count relations: %v", err)
	}
	if count != 0 {
		t.Errorf("relations stored after failed creates = %d, want 0", count)
	}
}

func TestGuardianWardInverse(t *testing.T) {
	db := newTestDB(t)
	svc := New(db)
	ctx := context.Background()

	clinicID := uuid.New()
	guardian := seedClient(t, db, clinicID, "Luc", "Bouchard")
	ward := seedClient(t, db, clinicID, "Noah", "Bouchard")

	// Create from the ward's side to exercise the swap path.
	_, err := svc.Create(ctx, clinicID, CreateRelationRequest{
		ClientID:        ward.ID,
		RelatedClientID: guardian.ID,
		Type:            model.RelationWard,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	guardianViews, err := svc.ListForClient(ctx, clinicID, guardian.ID)
	if err != nil {
		t.Fatalf("list for guardian: %v", err)
	}
	if len(guardianViews) != 1 || guardianViews[0].Type != model.RelationGuardian {
		t.Errorf("guardian view = %+v, want one guardian entry", guardianViews)
	}

	wardViews, err := svc.ListForClient(ctx, clinicID, ward.ID)
	if err != nil {
		t.Fatalf("list for ward: %v", err)
	}
	if len(wardViews) != 1 || wardViews[0].Type != model.RelationWard {
		t.Errorf("ward view = %+v, want one ward entry", wardViews)
	}
}

func TestDeleteRemovesBothSides(t *testing.T) {
	db := newTestDB(t)
	svc := New(db)
	ctx := context.Background()

	clinicID := uuid.New()
	x := seedClient(t, db, clinicID, "Sophie", "Côté")
	y := seedClient(t, db, clinicID, "Emma", "Côté")

	rel, err := svc.Create(ctx, clinicID, CreateRelationRequest{
		ClientID:        x.ID,
		RelatedClientID: y.ID,
		Type:            model.RelationSibling,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, clinicID, rel.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	for _, id := range []uuid.UUID{x.ID, y.ID} {
		views, err := svc.ListForClient(ctx, clinicID, id)
		if err != nil {
			t.Fatalf("list after delete: %v", err)
		}
		if len(views) != 0 {
			t.Errorf("views for %s after delete = %d, want 0", id, len(views))
		}
	}

	if err := svc.Delete(ctx, clinicID, rel.ID); !errors.Is(err, ErrRelationNotFound) {
		t.Errorf("second delete: got %v, want ErrRelationNotFound", err)
	}
}

func TestDeleteScopedToClinic(t *testing.T) {
	db := newTestDB(t)
	svc := New(db)
	ctx := context.Background()

	clinicID := uuid.New()
	x := seedClient(t, db, clinicID, "Hugo", "Morin")
	y := seedClient(t, db, clinicID, "Félix", "Morin")

	rel, err := svc.Create(ctx, clinicID, CreateRelationRequest{
		ClientID:        x.ID,
		RelatedClientID: y.ID,
		Type:            model.RelationSibling,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, uuid.New(), rel.ID); !errors.Is(err, ErrRelationNotFound) {
		t.Errorf("cross-clinic delete: got %v, want ErrRelationNotFound", err)
	}

	views, err := svc.ListForClient(ctx, clinicID, x.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 1 {
		t.Errorf("relation gone after cross-clinic delete attempt")
	}
}

func TestListForClientUnknownClient(t *testing.T) {
	db := newTestDB(t)
	svc := New(db)

	_, err := svc.ListForClient(context.Background(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrClientNotFound) {
		t.Errorf("got %v, want ErrClientNotFound", err)
	}
}

func TestListForClientMultipleRelations(t *testing.T) {
	db := newTestDB(t)
	svc := New(db)
	ctx := context.Background()

	clinicID := uuid.New()
	center := seedClient(t, db, clinicID, "Claire", "Fortin")
	spouse := seedClient(t, db, clinicID, "Denis", "Fortin")
	kid := seedClient(t, db, clinicID, "Jade", "Fortin")

	for _, req := range []CreateRelationRequest{
		{ClientID: center.ID, RelatedClientID: spouse.ID, Type: model.RelationSpouse},
		{ClientID: center.ID, RelatedClientID: kid.ID, Type: model.RelationParent},
	} {
		if _, err := svc.Create(ctx, clinicID, req); err != nil {
			t.Fatalf("create %v: %v", req.Type, err)
		}
	}

	views, err := svc.ListForClient(ctx, clinicID, center.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("views = %d, want 2", len(views))
	}

	byOther := make(map[uuid.UUID]model.RelationKind, len(views))
	for _, v := range views {
		byOther[v.RelatedClientID] = v.Type
	}
	if byOther[spouse.ID] != model.RelationSpouse {
		t.Errorf("spouse entry = %q, want spouse", byOther[spouse.ID])
	}
	if byOther[kid.ID] != model.RelationParent {
		t.Errorf("kid entry = %q, want parent", byOther[kid.ID])
	}
}
