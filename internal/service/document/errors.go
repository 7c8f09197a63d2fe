package document

import "errors"

var (
	ErrTemplateNotFound = errors.New("document template not found")
	ErrDocumentNotFound = errors.New("generated document not found")
	ErrClientNotFound   = errors.New("client not found")
	ErrPayerMismatch    = errors.New("payer does not cover this client")

	ErrMissingName      = errors.New("template name is required")
	ErrMissingBody      = errors.New("template body is required")
	ErrTemplateInactive = errors.New("document template is inactive")
	ErrBadTemplate      = errors.New("template body does not parse")

	ErrStorageUnavailable = errors.New("object storage is not configured")
)
