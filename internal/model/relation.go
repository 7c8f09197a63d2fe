package model

import (
	"github.com/google/uuid"
)

// RelationKind is one side of a client-to-client relationship, always
// expressed from the perspective of one participant ("A is <kind> of B").
type RelationKind string

const (
	RelationParent   RelationKind = "parent"
	RelationChild    RelationKind = "child"
	RelationSpouse   RelationKind = "spouse"
	RelationSibling  RelationKind = "sibling"
	RelationGuardian RelationKind = "guardian"
	RelationWard     RelationKind = "ward"
	RelationOther    RelationKind = "other"
)

// relationInverses is the fixed inverse mapping. Every kind must appear as
// a key; symmetric kinds map to themselves.
var relationInverses = map[RelationKind]RelationKind{
	RelationParent:   RelationChild,
	RelationChild:    RelationParent,
	RelationSpouse:   RelationSpouse,
	RelationSibling:  RelationSibling,
	RelationGuardian: RelationWard,
	RelationWard:     RelationGuardian,
	RelationOther:    RelationOther,
}

// InverseRelationKind returns the inverse of k ("B is <inverse> of A").
// ok is false for kinds outside the fixed table.
func InverseRelationKind(k RelationKind) (RelationKind, bool) {
	inv, ok := relationInverses[k]
	return inv, ok
}

// KnownRelationKinds lists the accepted kinds in display order.
func KnownRelationKinds() []RelationKind {
	return []RelationKind{
		RelationParent,
		RelationChild,
		RelationSpouse,
		RelationSibling,
		RelationGuardian,
		RelationWard,
		RelationOther,
	}
}

// CanonicalPair orders two client IDs by the lexicographic order of their
// canonical UUID string form. swapped reports whether the arguments were
// reversed, i.e. the second argument became slot A.
func CanonicalPair(x, y uuid.UUID) (a, b uuid.UUID, swapped bool) {
	if x.String() <= y.String() {
		return x, y, false
	}
	return y, x, true
}

// ClientRelation stores one bidirectional relationship between two clients
// as a single canonical row: client_a_id is always the lexicographically
// smaller ID, and both perspectives of the relationship are kept so either
// participant's view is a plain column read.
type ClientRelation struct {
	Base

	ClinicID  uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_relation_pair" json:"clinic_id"`
	ClientAID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_relation_pair" json:"client_a_id"`
	ClientBID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_relation_pair" json:"client_b_id"`

	// TypeAToB is what A is to B; TypeBToA is the fixed-table inverse.
	TypeAToB RelationKind `gorm:"size:20;not null" json:"type_a_to_b"`
	TypeBToA RelationKind `gorm:"size:20;not null" json:"type_b_to_a"`

	Notes string `gorm:"type:text" json:"notes"`
}

// KindFor returns the relation kind as seen from clientID's perspective,
// i.e. what clientID is to the other participant. ok is false when the
// client is not part of this relation.
func (r *ClientRelation) KindFor(clientID uuid.UUID) (RelationKind, bool) {
	switch clientID {
	case r.ClientAID:
		return r.TypeAToB, true
	case r.ClientBID:
		return r.TypeBToA, true
	default:
		return "", false
	}
}

// OtherParty returns the ID of the participant opposite clientID.
func (r *ClientRelation) OtherParty(clientID uuid.UUID) (uuid.UUID, bool) {
	switch clientID {
	case r.ClientAID:
		return r.ClientBID, true
	case r.ClientBID:
		return r.ClientAID, true
	default:
		return uuid.Nil, false
	}
}
