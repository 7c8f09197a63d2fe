package scheduling

import "errors"

var (
	ErrSlotNotFound      = errors.New("time slot not found")
	ErrSlotAlreadyBooked = errors.New("time slot is already booked")
	ErrSlotNotBlocked    = errors.New("time slot is not blocked")
	ErrOverlappingSlot   = errors.New("time slot overlaps with an existing slot")
	ErrInvalidTimeRange  = errors.New("end_time must be after start_time")
	ErrInvalidDuration   = errors.New("slot duration must be at least 15 minutes")
)
