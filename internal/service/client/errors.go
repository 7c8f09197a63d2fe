package client

import "errors"

var (
	ErrClientNotFound      = errors.New("client not found")
	ErrDuplicateFileNumber = errors.New("file number already in use")
	ErrDuplicateHealthCard = errors.New("another client has this health card number")
	ErrInvalidHealthCard   = errors.New("invalid health card number")
	ErrInvalidPhone        = errors.New("invalid phone number")
	ErrInvalidLanguage     = errors.New("language must be fr or en")
	ErrMissingName         = errors.New("first and last name are required")
)
