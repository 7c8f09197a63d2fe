package payer

import "errors"

var (
	ErrPayerNotFound     = errors.New("external payer not found")
	ErrClientNotFound    = errors.New("client not found in this clinic")
	ErrActivePayerExists = errors.New("client already has an active payer of this kind")
	ErrPayerInactive     = errors.New("payer is deactivated")
	ErrPayerExpired      = errors.New("payer coverage has expired")

	ErrMissingFileNumber = errors.New("payer file number is required")
	ErrMissingExpiry     = errors.New("PAE coverage requires an expiry date")
	ErrInvalidPercent    = errors.New("reimbursement percent must be between 0 and 100")
	ErrInvalidAmount     = errors.New("amount must not be negative")
	ErrInvalidRules      = errors.New("invalid coverage rule chain")
	ErrInvalidIndex      = errors.New("appointment index must be at least 1")

	ErrNotPAE  = errors.New("operation applies to PAE payers only")
	ErrNotIVAC = errors.New("operation applies to IVAC payers only")

	ErrClaimsUnavailable = errors.New("claims portal is not configured")
)
