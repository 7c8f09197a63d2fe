package pasetotoken

import "fmt"

// ErrConfig reports unusable manager or key configuration.
type ErrConfig struct{ Msg string }

func (e ErrConfig) Error() string { return "paseto: " + e.Msg }

// ErrInvalidToken covers every parse and rule failure, so callers can treat
// all bad tokens alike.
type ErrInvalidToken struct{ Err error }

func (e ErrInvalidToken) Error() string { return fmt.Sprintf("paseto: invalid token: %v", e.Err) }
func (e ErrInvalidToken) Unwrap() error { return e.Err }
