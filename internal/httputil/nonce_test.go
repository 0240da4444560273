package httputil

import (
	"context"
	"testing"
)

func TestGenerateNonce(t *testing.T) {
	seen := make(map[string]bool)
	for range 8 {
		n := GenerateNonce()
		if len(n) != 26 {
			t.Fatalf("nonce %q has length %d, want 26", n, len(n))
		}
		for _, r := range n {
			if (r < 'A' || r > 'Z') && (r < '2' || r > '7') {
				t.Fatalf("nonce %q has %q outside the base32 alphabet", n, r)
			}
		}
		if seen[n] {
			t.Fatalf("nonce %q generated twice", n)
		}
		seen[n] = true
	}
}

func TestNonceContext(t *testing.T) {
	if got := NonceFromContext(context.Background()); got != "" {
		t.Errorf("bare context nonce = %q, want empty", got)
	}
	ctx := ContextWithNonce(context.Background(), "K4ZVQ2")
	if got := NonceFromContext(ctx); got != "K4ZVQ2" {
		t.Errorf("NonceFromContext = %q, want %q", got, "K4ZVQ2")
	}
}
