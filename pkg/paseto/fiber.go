package pasetotoken

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/oveliahealth/ovelia_backend/config"
)

// CtxKeyClaims is the fiber locals key the auth middleware stores verified
// claims under.
const CtxKeyClaims = "auth.claims"

// ClaimsFromFiber reads the claims the auth middleware stashed on the
// request. The second return is false on unauthenticated routes.
func ClaimsFromFiber(c fiber.Ctx) (*Claims, bool) {
	cl, ok := c.Locals(CtxKeyClaims).(*Claims)
	return cl, ok
}

// NewPasetoManager builds the Manager from the authentication section of
// the central config.
func NewPasetoManager(cfg *config.Config) (*Manager, error) {
	p := cfg.Authentication.Paseto

	keys, err := LoadKeys(KeyStrings{
		Mode:      Mode(p.Mode),
		LocalHex:  p.LocalKeyHex,
		SecretHex: p.SecretKeyHex,
		PublicHex: p.PublicKeyHex,
	})
	if err != nil {
		return nil, err
	}

	return New(Config{
		Mode:       Mode(p.Mode),
		Issuer:     p.Issuer,
		Audience:   p.Audience,
		AccessTTL:  time.Duration(p.AccessTTLMinutes) * time.Minute,
		RefreshTTL: time.Duration(p.RefreshTTLDays) * 24 * time.Hour,
	}, keys)
}
