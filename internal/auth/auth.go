package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sendrec/clipdeck/internal/database"
	"github.com/sendrec/clipdeck/internal/httputil"
)

type contextKey string

const userKey contextKey = "user"

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusInactive SubscriptionStatus = "inactive"
)

// Checker answers who is calling and whether they may use the clip tools.
type Checker interface {
	IsAuthenticated(r *http.Request) bool
	SubscriptionStatus(ctx context.Context, user User) (SubscriptionStatus, error)
}

var _ Checker = (*Handler)(nil)

type Handler struct {
	db        database.DBTX
	jwtSecret string
	allowed   map[string]bool
	now       func() time.Time
}

// NewHandler builds a checker backed by the subscriptions table. Emails in
// allowedUsers are always active.
func NewHandler(db database.DBTX, jwtSecret string, allowedUsers []string) *Handler {
	allowed := make(map[string]bool, len(allowedUsers))
	for _, email := range allowedUsers {
		allowed[strings.ToLower(email)] = true
	}
	return &Handler{db: db, jwtSecret: jwtSecret, allowed: allowed, now: time.Now}
}

// ParseAllowlist splits a comma-separated list of emails.
func ParseAllowlist(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if email := strings.TrimSpace(part); email != "" {
			out = append(out, email)
		}
	}
	return out
}

func (h *Handler) IsAuthenticated(r *http.Request) bool {
	_, err := h.authenticate(r)
	return err == nil
}

func (h *Handler) SubscriptionStatus(ctx context.Context, user User) (SubscriptionStatus, error) {
	if h.allowed[strings.ToLower(user.Email)] {
		return StatusActive, nil
	}
	if user.Email == "" {
		return StatusInactive, nil
	}

	var status string
	var expiresAt *time.Time
	err := h.db.QueryRow(ctx,
		"SELECT status, expires_at FROM subscriptions WHERE user_email = $1",
		strings.ToLower(user.Email),
	).Scan(&status, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return StatusInactive, nil
	}
	if err != nil {
		return StatusInactive, fmt.Errorf("query subscription: %w", err)
	}

	if status != string(StatusActive) {
		return StatusInactive, nil
	}
	if expiresAt != nil && h.now().After(*expiresAt) {
		return StatusInactive, nil
	}
	return StatusActive, nil
}

type authError string

func (e authError) Error() string { return string(e) }

const (
	errMissingHeader authError = "authorization header required"
	errHeaderFormat  authError = "invalid authorization header format"
	errInvalidToken  authError = "invalid token"
	errTokenType     authError = "invalid token type"
)

func (h *Handler) authenticate(r *http.Request) (User, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return User{}, errMissingHeader
	}

	tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found {
		return User{}, errHeaderFormat
	}

	claims, err := ValidateToken(h.jwtSecret, tokenStr)
	if err != nil {
		return User{}, errInvalidToken
	}
	if claims.TokenType != tokenTypeAccess {
		return User{}, errTokenType
	}
	return User{ID: claims.UserID, Email: claims.Email}, nil
}

func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := h.authenticate(r)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
	})
}

// RequireSubscription must run after Middleware.
func (h *Handler) RequireSubscription(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		status, err := h.SubscriptionStatus(r.Context(), user)
		if err != nil {
			slog.Error("auth: subscription check failed", "user_id", user.ID, "error", err)
			httputil.WriteError(w, http.StatusInternalServerError, "failed to check subscription")
			return
		}
		if status != StatusActive {
			httputil.WriteError(w, http.StatusPaymentRequired, "active subscription required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type meResponse struct {
	User
	Subscription SubscriptionStatus `json:"subscription"`
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	status, err := h.SubscriptionStatus(r.Context(), user)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to check subscription")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, meResponse{User: user, Subscription: status})
}

func ContextWithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func UserFromContext(ctx context.Context) User {
	user, _ := ctx.Value(userKey).(User)
	return user
}

func UserIDFromContext(ctx context.Context) string {
	return UserFromContext(ctx).ID
}
