package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signClaims(t *testing.T, method jwt.SigningMethod, key any, claims *Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestGenerateAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken("test-secret", "user-123", "coach@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := ValidateToken("test-secret", token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.TokenType != tokenTypeAccess || claims.Email != "coach@example.com" || claims.Subject != "user-123" {
		t.Errorf("unexpected claims %+v", claims)
	}
	if delta := time.Until(claims.ExpiresAt.Time) - AccessTokenDuration; delta.Abs() > 2*time.Second {
		t.Errorf("access token expiry off by %v", delta)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	now := time.Now()
	valid := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"wrong secret", func(t *testing.T) string {
			tok, _ := GenerateAccessToken("secret-one", "user-123", "")
			return tok
		}},
		{"expired beyond leeway", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodHS256, []byte("test-secret"), &Claims{
				UserID: "user-123",
				RegisteredClaims: jwt.RegisteredClaims{
					ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
				},
			})
		}},
		{"no expiry", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodHS256, []byte("test-secret"), &Claims{UserID: "user-123"})
		}},
		{"no user", func(t *testing.T) string {
			tok, _ := GenerateAccessToken("test-secret", "", "coach@example.com")
			return tok
		}},
		{"none algorithm", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, &Claims{UserID: "user-123", RegisteredClaims: valid})
		}},
		{"other HMAC size", func(t *testing.T) string {
			return signClaims(t, jwt.SigningMethodHS512, []byte("test-secret"), &Claims{UserID: "user-123", RegisteredClaims: valid})
		}},
		{"garbage", func(t *testing.T) string { return "not-a-valid-jwt" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateToken("test-secret", tt.token(t)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestValidateTokenAllowsClockSkew(t *testing.T) {
	token := signClaims(t, jwt.SigningMethodHS256, []byte("test-secret"), &Claims{
		UserID: "user-123",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-10 * time.Second)),
		},
	})
	if _, err := ValidateToken("test-secret", token); err != nil {
		t.Errorf("token expired within the skew window should pass: %v", err)
	}
}

func TestValidateTokenNoUserError(t *testing.T) {
	tok, _ := GenerateAccessToken("test-secret", "", "")
	if _, err := ValidateToken("test-secret", tok); !errors.Is(err, errNoUser) {
		t.Errorf("expected errNoUser, got %v", err)
	}
}
