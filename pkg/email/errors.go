package email

import "fmt"

// ErrDisabled is returned by Send when the mailer is turned off in config.
// Callers that treat email as best-effort can ignore it.
type ErrDisabled struct{}

func (ErrDisabled) Error() string { return "email: sending disabled" }

// ErrInvalidMessage rejects a message before it reaches the wire.
type ErrInvalidMessage struct{ Reason string }

func (e ErrInvalidMessage) Error() string { return "email: invalid message: " + e.Reason }

// ErrSend wraps an SMTP failure with the provider that produced it.
type ErrSend struct {
	Provider string
	Err      error
}

func (e ErrSend) Error() string { return fmt.Sprintf("email: %s: %v", e.Provider, e.Err) }
func (e ErrSend) Unwrap() error { return e.Err }
