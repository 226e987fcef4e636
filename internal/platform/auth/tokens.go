package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification failures surfaced to callers.
var (
	ErrTokenInvalid = errors.New("auth: token invalid")
	ErrTokenExpired = errors.New("auth: token expired")
)

// Claims is the JWT payload issued for API sessions.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies signed session tokens.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	tokenTTL time.Duration
	clock    func() time.Time
}

// TokenIssuerOption customises the issuer.
type TokenIssuerOption func(*TokenIssuer)

// WithIssuerClock overrides the time source, primarily for tests.
func WithIssuerClock(clock func() time.Time) TokenIssuerOption {
	return func(t *TokenIssuer) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// NewTokenIssuer builds a TokenIssuer signing with HMAC-SHA256.
func NewTokenIssuer(secret string, tokenTTL time.Duration, opts ...TokenIssuerOption) (*TokenIssuer, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if tokenTTL <= 0 {
		return nil, errors.New("auth: token ttl must be positive")
	}

	issuer := &TokenIssuer{
		secret:   []byte(trimmed),
		issuer:   "urban-tuxedo-api",
		tokenTTL: tokenTTL,
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(issuer)
		}
	}
	return issuer, nil
}

// Issue signs a token for the supplied identity.
func (t *TokenIssuer) Issue(identity Identity) (string, time.Time, error) {
	userID := strings.TrimSpace(identity.UserID)
	if userID == "" {
		return "", time.Time{}, errors.New("auth: identity user id is required")
	}

	now := t.clock().UTC()
	expiresAt := now.Add(t.tokenTTL)
	claims := Claims{
		Email: strings.TrimSpace(identity.Email),
		Role:  strings.TrimSpace(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses a signed token and returns the identity it encodes.
func (t *TokenIssuer) Verify(tokenString string) (*Identity, error) {
	trimmed := strings.TrimSpace(tokenString)
	if trimmed == "" {
		return nil, ErrTokenInvalid
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return t.clock().UTC() }),
	)
	_, err := parser.ParseWithClaims(trimmed, claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return nil, ErrTokenInvalid
	}
	return &Identity{
		UserID: subject,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}
