package clinic

import "errors"

var (
	ErrClinicNotFound    = errors.New("clinic not found")
	ErrSlugAlreadyExists = errors.New("clinic slug already taken")
	ErrMissingName       = errors.New("clinic name is required")

	ErrMemberNotFound    = errors.New("clinic member not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrAlreadyMember     = errors.New("user is already a member of this clinic")
	ErrInvalidRole       = errors.New("invalid clinic member role")
	ErrCannotRemoveOwner = errors.New("cannot remove the clinic owner")
)
