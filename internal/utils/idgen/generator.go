package idgen

import (
	"crypto/rand"
	"fmt"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateSecureID returns an identifier of the form "<prefix>_<random>",
// where the random part is `length` characters drawn from [0-9a-z] using
// crypto/rand. IDs carry no timing information.
func GenerateSecureID(prefix string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("idgen: length must be positive, got %d", length)
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("idgen: read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}

	return prefix + "_" + string(buf), nil
}

// MustGenerateSecureID is GenerateSecureID panicking on failure. The only
// failure mode is the platform entropy source being unavailable.
func MustGenerateSecureID(prefix string, length int) string {
	id, err := GenerateSecureID(prefix, length)
	if err != nil {
		panic(err)
	}
	return id
}

// RandomSuffix returns `length` characters from the id alphabet, for
// callers that compose identifiers with their own structure.
func RandomSuffix(length int) string {
	id := MustGenerateSecureID("x", length)
	return id[len("x_"):]
}
