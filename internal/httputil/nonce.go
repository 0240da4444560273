package httputil

import (
	"context"
	"crypto/rand"
)

type nonceKey struct{}

// GenerateNonce returns a fresh CSP nonce: 128 random bits as 26 base32
// characters, which fits the CSP base64-value grammar.
func GenerateNonce() string {
	return rand.Text()
}

func ContextWithNonce(ctx context.Context, nonce string) context.Context {
	return context.WithValue(ctx, nonceKey{}, nonce)
}

// NonceFromContext returns "" when the security middleware did not run.
func NonceFromContext(ctx context.Context) string {
	nonce, _ := ctx.Value(nonceKey{}).(string)
	return nonce
}
