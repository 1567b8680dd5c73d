// Package identity signs and verifies the bearer tokens that carry a caller
// identity into the rooms service.
package identity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/classroom.space/internal/platform/errors"
	"github.com/louisbranch/classroom.space/internal/platform/requestctx"
)

// MinSecretBytes is the shortest accepted HS256 secret.
const MinSecretBytes = 32

// Config defines how tokens are signed and verified.
type Config struct {
	Issuer   string
	Audience string
	Secret   []byte
	Now      func() time.Time
}

// callerClaims is the internal claims type used for JWT parsing.
type callerClaims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
}

// DecodeSecret parses a hex encoded signing secret.
func DecodeSecret(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errors.New("token secret is required")
	}
	secret, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode token secret: %w", err)
	}
	if len(secret) < MinSecretBytes {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretBytes)
	}
	return secret, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Issuer) == "" || strings.TrimSpace(c.Audience) == "" {
		return errors.New("token issuer and audience are required")
	}
	if len(c.Secret) < MinSecretBytes {
		return fmt.Errorf("token secret must be at least %d bytes", MinSecretBytes)
	}
	return nil
}

func (c Config) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}

// Verifier resolves caller identities from signed tokens.
type Verifier struct {
	cfg Config
}

// NewVerifier validates cfg and returns a verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Verifier{cfg: cfg}, nil
}

// Verify checks signature, issuer, audience and expiry, and returns the
// identity the token names. Failures are UNAUTHENTICATED.
func (v *Verifier) Verify(token string) (requestctx.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return requestctx.Identity{}, unauthenticated("bearer token is required", "token")
	}
	if v == nil {
		return requestctx.Identity{}, errors.New("token verifier is not configured")
	}

	var parsed callerClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return v.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return requestctx.Identity{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != v.cfg.Issuer {
		return requestctx.Identity{}, unauthenticated("token issuer mismatch", "issuer")
	}
	if !audienceContains(parsed.Audience, v.cfg.Audience) {
		return requestctx.Identity{}, unauthenticated("token audience mismatch", "audience")
	}
	if parsed.ExpiresAt == nil {
		return requestctx.Identity{}, unauthenticated("token exp is required", "exp")
	}
	now := v.cfg.now()
	if !parsed.ExpiresAt.Time.After(now) {
		return requestctx.Identity{}, unauthenticated("token is expired", "exp")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time) {
		return requestctx.Identity{}, unauthenticated("token not active yet", "nbf")
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return requestctx.Identity{}, unauthenticated("token sub is required", "sub")
	}
	if strings.TrimSpace(parsed.Role) == "" {
		return requestctx.Identity{}, unauthenticated("token role is required", "role")
	}
	return requestctx.Identity{
		UserID: strings.TrimSpace(parsed.Subject),
		Name:   strings.TrimSpace(parsed.Name),
		Role:   strings.ToLower(strings.TrimSpace(parsed.Role)),
	}, nil
}

// Issuer mints tokens for local tooling and tests.
type Issuer struct {
	cfg Config
}

// NewIssuer validates cfg and returns an issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Issuer{cfg: cfg}, nil
}

// Issue signs a token for identity that expires after ttl.
func (i *Issuer) Issue(identity requestctx.Identity, ttl time.Duration) (string, error) {
	if strings.TrimSpace(identity.UserID) == "" {
		return "", errors.New("user id is required")
	}
	if strings.TrimSpace(identity.Role) == "" {
		return "", errors.New("role is required")
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be greater than zero")
	}
	now := i.cfg.now()
	claims := callerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Subject:   identity.UserID,
			Audience:  jwt.ClaimStrings{i.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name: identity.Name,
		Role: identity.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return unauthenticated("token signature is invalid", "signature")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return unauthenticated("token alg is invalid", "alg")
	}
	return unauthenticated("token is invalid", "token")
}

func unauthenticated(message, field string) error {
	return apperrors.WithMetadata(apperrors.CodeUnauthenticated, message, map[string]string{"Field": field})
}

func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}
