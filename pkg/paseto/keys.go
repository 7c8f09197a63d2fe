package pasetotoken

import (
	"strings"

	paseto "aidanwoods.dev/go-paseto"
)

// Mode selects the PASETO v4 purpose. Local tokens are encrypted under a
// symmetric key; public tokens are signed and any holder of the public half
// can verify them.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModePublic Mode = "public"
)

// Keys holds whichever key material the mode calls for.
type Keys struct {
	Mode Mode

	Symmetric *paseto.V4SymmetricKey

	Secret *paseto.V4AsymmetricSecretKey
	Public *paseto.V4AsymmetricPublicKey
}

// KeyStrings is the hex form keys arrive in from config. LocalHex feeds
// local mode, the other two feed public mode.
type KeyStrings struct {
	Mode Mode

	LocalHex  string
	SecretHex string
	PublicHex string
}

// LoadKeys decodes hex key material for the requested mode. In public mode
// a secret key alone suffices (the public half derives from it); a public
// key alone yields a verify-only setup.
func LoadKeys(in KeyStrings) (Keys, error) {
	switch in.Mode {
	case ModeLocal:
		return loadLocalKeys(strings.TrimSpace(in.LocalHex))
	case ModePublic:
		return loadPublicKeys(strings.TrimSpace(in.SecretHex), strings.TrimSpace(in.PublicHex))
	default:
		return Keys{}, ErrConfig{Msg: `mode must be "local" or "public"`}
	}
}

func loadLocalKeys(symHex string) (Keys, error) {
	if symHex == "" {
		return Keys{}, ErrConfig{Msg: "local mode needs a symmetric key"}
	}
	k, err := paseto.V4SymmetricKeyFromHex(symHex)
	if err != nil {
		return Keys{}, ErrConfig{Msg: "bad symmetric key hex: " + err.Error()}
	}
	return Keys{Mode: ModeLocal, Symmetric: &k}, nil
}

func loadPublicKeys(secretHex, publicHex string) (Keys, error) {
	out := Keys{Mode: ModePublic}

	if secretHex != "" {
		sk, err := paseto.NewV4AsymmetricSecretKeyFromHex(secretHex)
		if err != nil {
			return Keys{}, ErrConfig{Msg: "bad secret key hex: " + err.Error()}
		}
		pk := sk.Public()
		out.Secret, out.Public = &sk, &pk
	}
	if publicHex != "" {
		pk, err := paseto.NewV4AsymmetricPublicKeyFromHex(publicHex)
		if err != nil {
			return Keys{}, ErrConfig{Msg: "bad public key hex: " + err.Error()}
		}
		out.Public = &pk
	}
	if out.Secret == nil && out.Public == nil {
		return Keys{}, ErrConfig{Msg: "public mode needs a secret or a public key"}
	}
	return out, nil
}

// NewLocalKeys generates a fresh symmetric key, mainly for tests.
func NewLocalKeys() Keys {
	k := paseto.NewV4SymmetricKey()
	return Keys{Mode: ModeLocal, Symmetric: &k}
}

// NewPublicKeys generates a fresh signing pair.
func NewPublicKeys() Keys {
	sk := paseto.NewV4AsymmetricSecretKey()
	pk := sk.Public()
	return Keys{Mode: ModePublic, Secret: &sk, Public: &pk}
}
