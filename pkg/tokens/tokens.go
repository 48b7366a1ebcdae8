package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// RecipientTokenLength is the number of random bytes backing a signing token.
// 21 bytes encodes to a 28-character URL-safe string.
const RecipientTokenLength = 21

// NewRecipientToken generates an opaque, unguessable credential used in
// /sign/{token} links.
func NewRecipientToken() (string, error) {
	buf := make([]byte, RecipientTokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
