package auth

import "errors"

var (
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrInvalidCredentials = errors.New("email or password is incorrect")
	ErrAccountSuspended   = errors.New("account is suspended")
	ErrAccountLocked      = errors.New("account temporarily locked after repeated login failures")
	ErrOTPExpired         = errors.New("login code has expired or was never requested")
	ErrOTPInvalid         = errors.New("login code is incorrect")
	ErrOTPMaxAttempts     = errors.New("too many incorrect login code attempts")
	ErrSessionNotFound    = errors.New("session not found or expired")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
	ErrCodeDelivery       = errors.New("could not deliver login code")
)
