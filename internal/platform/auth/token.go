package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	defaultSessionTTL = 24 * time.Hour
	defaultIssuer     = "trendhome-fenster"
	minSecretLength   = 16
)

var (
	// ErrTokenExpired signals that the session token is past its expiry.
	ErrTokenExpired = errors.New("auth: session token expired")
	// ErrTokenInvalid signals that the session token failed verification.
	ErrTokenInvalid = errors.New("auth: session token invalid")
	// ErrSecretTooShort is returned when the signing secret is unusable.
	ErrSecretTooShort = errors.New("auth: signing secret too short")
)

// SessionToken is an issued bearer credential.
type SessionToken struct {
	Value     string
	ExpiresAt time.Time
}

// SessionClaims are the JWT claims carried by session tokens.
type SessionClaims struct {
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier verifies bearer tokens and returns the identity they carry.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	clock  func() time.Time
	newID  func() string
}

// IssuerOption customises TokenIssuer behaviour.
type IssuerOption func(*TokenIssuer)

// WithSessionTTL overrides the validity window of issued tokens.
func WithSessionTTL(ttl time.Duration) IssuerOption {
	return func(i *TokenIssuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithIssuer overrides the iss claim.
func WithIssuer(issuer string) IssuerOption {
	return func(i *TokenIssuer) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			i.issuer = issuer
		}
	}
}

// WithClock injects a time source, primarily for tests.
func WithClock(clock func() time.Time) IssuerOption {
	return func(i *TokenIssuer) {
		if clock != nil {
			i.clock = clock
		}
	}
}

// NewTokenIssuer constructs an issuer using the shared HMAC secret.
func NewTokenIssuer(secret string, opts ...IssuerOption) (*TokenIssuer, error) {
	if len(strings.TrimSpace(secret)) < minSecretLength {
		return nil, ErrSecretTooShort
	}
	issuer := &TokenIssuer{
		secret: []byte(secret),
		ttl:    defaultSessionTTL,
		issuer: defaultIssuer,
		clock:  time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(issuer)
		}
	}
	return issuer, nil
}

// TTL reports the validity window of issued tokens.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token for the identity.
func (i *TokenIssuer) Issue(identity Identity) (SessionToken, error) {
	if strings.TrimSpace(identity.Subject) == "" {
		return SessionToken{}, fmt.Errorf("%w: subject is required", ErrTokenInvalid)
	}
	role := normaliseRole(identity.Role)
	if role == "" {
		return SessionToken{}, fmt.Errorf("%w: role is required", ErrTokenInvalid)
	}

	now := i.clock().UTC()
	expires := now.Add(i.ttl)
	claims := SessionClaims{
		Role:  role,
		Name:  identity.Name,
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        i.newID(),
			Subject:   identity.Subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return SessionToken{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return SessionToken{Value: signed, ExpiresAt: expires}, nil
}

// Verify parses the token, checks signature, issuer and expiry, and returns its identity.
func (i *TokenIssuer) Verify(_ context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenInvalid
	}

	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	now := i.clock().UTC()
	if !claims.VerifyExpiresAt(now, true) {
		return nil, ErrTokenExpired
	}
	if !claims.VerifyNotBefore(now, false) {
		return nil, ErrTokenInvalid
	}
	if !claims.VerifyIssuer(i.issuer, true) {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" || claims.Role == "" {
		return nil, ErrTokenInvalid
	}

	return &Identity{
		Subject: claims.Subject,
		Role:    normaliseRole(claims.Role),
		Name:    claims.Name,
		Email:   claims.Email,
		TokenID: claims.ID,
	}, nil
}
