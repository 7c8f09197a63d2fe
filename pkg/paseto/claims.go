package pasetotoken

import (
	"time"

	"github.com/google/uuid"
)

// TokenType discriminates the two tokens the backend issues. Access tokens
// authenticate API calls; refresh tokens are only good for the refresh
// endpoint.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the decoded payload of a verified token.
type Claims struct {
	Type      TokenType
	UserID    uuid.UUID
	SessionID *uuid.UUID

	Issuer    string
	Audience  string
	Subject   string
	TokenID   string
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time
}

// The getters below satisfy reqctx.AuthClaims.

func (c *Claims) GetUserID() uuid.UUID     { return c.UserID }
func (c *Claims) GetSessionID() *uuid.UUID { return c.SessionID }
func (c *Claims) GetTokenType() string     { return string(c.Type) }

func (c *Claims) IsExpired() bool { return time.Now().After(c.ExpiresAt) }
