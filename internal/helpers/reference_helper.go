package helpers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const referencePrefix = "EVW"

// GenerateReference builds a payment reference from a millisecond timestamp
// and a random suffix, uppercased. Collisions are near-impossible but the
// store still enforces uniqueness; callers regenerate on a duplicate.
func GenerateReference() (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}

	reference := fmt.Sprintf("%s-%d-%s", referencePrefix, time.Now().UnixMilli(), hex.EncodeToString(suffix))
	return strings.ToUpper(reference), nil
}
