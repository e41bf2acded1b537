package utils

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// context key
type ctxKey string

const CtxUserIDKey ctxKey = "user_id"

// UserIDFromContext returns the authenticated user's id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(CtxUserIDKey).(string)
	return id, ok && id != ""
}

// WithUserID stores an authenticated user's id in ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CtxUserIDKey, id)
}

// CustomClaims wraps jwt.RegisteredClaims with Email for convenience
type CustomClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

var ErrSecretNotConfigured = errors.New("secret not configured")

// Parses TTL such as "15m", "1h", "20s", "30" (minutes)
func ParseTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 15 * time.Minute, nil
	}

	if strings.HasSuffix(ttlStr, "m") ||
		strings.HasSuffix(ttlStr, "h") ||
		strings.HasSuffix(ttlStr, "s") {
		d, err := time.ParseDuration(ttlStr)
		if err != nil {
			return 0, err
		}
		if d <= 0 {
			return 0, errors.New("ttl must be positive")
		}
		return d, nil
	}

	// fallback: minutes
	min, err := strconv.Atoi(ttlStr)
	if err != nil {
		return 0, err
	}
	if min <= 0 {
		return 0, errors.New("ttl must be positive")
	}
	return time.Duration(min) * time.Minute, nil
}

// GenerateToken signs an HS256 token for userID and returns it with its expiry (unix seconds).
func GenerateToken(userID, email, secret, ttlStr string) (string, int64, error) {
	if secret == "" {
		return "", 0, ErrSecretNotConfigured
	}

	dur, err := ParseTTL(ttlStr)
	if err != nil {
		return "", 0, err
	}

	now := time.Now()
	expTime := now.Add(dur)

	claims := CustomClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expTime),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", 0, err
	}

	return signed, expTime.Unix(), nil
}

func VerifyToken(tokenStr, secret string) (*CustomClaims, error) {
	if secret == "" {
		return nil, ErrSecretNotConfigured
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
	)

	var claims CustomClaims

	_, err := parser.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return &claims, nil
}
