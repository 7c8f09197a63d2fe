// Package phone validates and normalizes phone numbers to E.164 using
// libphonenumber metadata. Clinic contacts are Canadian by default, so
// numbers without a country code parse against the CA region.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var ErrInvalid = errors.New("invalid phone number")

// DefaultRegion is the region numbers are parsed against when they carry
// no country code.
const DefaultRegion = "CA"

// Normalize parses raw against region and returns the E.164 form
// (e.g. "+15145551234"). Empty input returns empty without error so
// optional fields pass through.
func Normalize(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if region == "" {
		region = DefaultRegion
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", ErrInvalid
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalid
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// NormalizeCA normalizes against the default Canadian region.
func NormalizeCA(raw string) (string, error) {
	return Normalize(raw, DefaultRegion)
}
