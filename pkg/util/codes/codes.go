package codes

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	referencePrefix = "OV-"
	referenceLength = 8

	// Uppercase alphanumerics minus the lookalikes (I, L, O, 0, 1), since
	// people read these codes back over the phone.
	referenceCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// GenerateReferenceCode creates the code a consultation request is quoted
// under, e.g. "OV-7K2M9PQA".
func GenerateReferenceCode() (string, error) {
	var b strings.Builder
	b.WriteString(referencePrefix)

	max := big.NewInt(int64(len(referenceCharset)))
	for i := 0; i < referenceLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("draw reference character: %w", err)
		}
		b.WriteByte(referenceCharset[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode maps hand-typed input onto the stored form: uppercase,
// no surrounding whitespace.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
