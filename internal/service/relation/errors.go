package relation

import "errors"

var (
	ErrRelationNotFound    = errors.New("client relation not found")
	ErrDuplicateRelation   = errors.New("a relation between these two clients already exists")
	ErrSelfRelation        = errors.New("a client cannot have a relation with themselves")
	ErrUnknownRelationType = errors.New("unknown relation type")
	ErrClientNotFound      = errors.New("client not found in this clinic")
)
