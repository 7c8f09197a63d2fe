package file

import "errors"

var (
	ErrFileNotFound   = errors.New("client file not found")
	ErrClientNotFound = errors.New("client not found")
	ErrEmptyUpload    = errors.New("uploaded file is empty")

	ErrStorageUnavailable = errors.New("object storage is not configured")
)
