package otp

import "github.com/oveliahealth/ovelia_backend/config"

// LengthFromConfig resolves the configured code length, clamped to the
// range Generate accepts. Zero means "use the default".
func LengthFromConfig(c config.OTPConfig) int {
	n := c.DefaultLength
	switch {
	case n == 0:
		return DefaultLength
	case n < MinLength:
		return MinLength
	case n > MaxLength:
		return MaxLength
	}
	return n
}
