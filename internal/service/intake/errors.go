package intake

import "errors"

var (
	ErrIntakeNotFound = errors.New("consultation request not found")
	ErrIntakeClosed   = errors.New("consultation request is already converted or declined")
	ErrMissingName    = errors.New("first and last name are required")
	ErrMissingContact = errors.New("an email address or phone number is required")
	ErrInvalidPhone   = errors.New("invalid phone number")
	ErrMissingReason  = errors.New("a decline reason is required")
)
