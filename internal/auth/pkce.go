package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
)

// Character set copied from the account portal's production JS bundle to
// mirror browser behavior.
const verifierCharset = "useandom-26T198340PX75pxJACKVERYMINDBUSHWOLF_GQZbfghjklqvwyzrict"

const verifierLength = 64

// GenerateCodeVerifier generates a random PKCE code verifier.
func GenerateCodeVerifier() (string, error) {
	max := big.NewInt(int64(len(verifierCharset)))
	buf := make([]byte, verifierLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate code verifier: %w", err)
		}
		buf[i] = verifierCharset[n.Int64()]
	}
	return string(buf), nil
}

// CodeChallenge creates an S256 PKCE code challenge from the verifier.
func CodeChallenge(verifier string) string {
	digest := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(digest[:])
}
