package appointment

import "errors"

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotNotFound        = errors.New("time slot not found")
	ErrSlotUnavailable     = errors.New("time slot is not available for booking")
	ErrNotScheduled        = errors.New("appointment is not in scheduled status")
	ErrInvalidTimeRange    = errors.New("end time must be after start time")
	ErrInvalidFee          = errors.New("fee must not be negative")
	ErrClientNotFound      = errors.New("client not found")
	ErrPayerMismatch       = errors.New("payer does not cover this client")
)
