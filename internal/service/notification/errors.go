package notification

import "errors"

var (
	ErrNotFound     = errors.New("notification not found")
	ErrMissingTitle = errors.New("notification title is required")
)
