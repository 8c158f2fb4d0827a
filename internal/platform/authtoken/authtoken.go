// Package authtoken mints and verifies EdDSA identity tokens. The treasury
// API attributes every request to the token subject; request payloads never
// carry the caller identity.
package authtoken

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/hearthvault/hearthvault/internal/platform/errors"
)

// verifierEnv holds raw env values before post-parse validation.
type verifierEnv struct {
	Issuer    string `env:"HEARTHVAULT_IDENTITY_ISSUER"`
	Audience  string `env:"HEARTHVAULT_IDENTITY_AUDIENCE"`
	PublicKey string `env:"HEARTHVAULT_IDENTITY_PUBLIC_KEY"`
}

// VerifierConfig defines how identity tokens are verified.
type VerifierConfig struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// Claims captures validated identity token claims.
type Claims struct {
	Identity  string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// identityClaims is the internal claims type used for JWT parsing.
type identityClaims struct {
	jwt.RegisteredClaims
}

// LoadVerifierConfigFromEnv reads identity token verification configuration.
func LoadVerifierConfigFromEnv(now func() time.Time) (VerifierConfig, error) {
	var raw verifierEnv
	if err := env.Parse(&raw); err != nil {
		return VerifierConfig{}, fmt.Errorf("parse identity token env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return VerifierConfig{}, fmt.Errorf("HEARTHVAULT_IDENTITY_ISSUER is required")
	}
	if audience == "" {
		return VerifierConfig{}, fmt.Errorf("HEARTHVAULT_IDENTITY_AUDIENCE is required")
	}
	if publicKey == "" {
		return VerifierConfig{}, fmt.Errorf("HEARTHVAULT_IDENTITY_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return VerifierConfig{}, fmt.Errorf("decode identity public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return VerifierConfig{}, fmt.Errorf("identity public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return VerifierConfig{
		Issuer:   issuer,
		Audience: audience,
		Key:      ed25519.PublicKey(keyBytes),
		Now:      now,
	}, nil
}

// Verify parses an identity token and validates issuer, audience, lifetime,
// and subject. The subject is the caller identity.
func Verify(token string, cfg VerifierConfig) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.New(apperrors.CodeUnauthenticated, "identity token is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.Key) != ed25519.PublicKeySize {
		return Claims{}, errors.New("identity token verifier is not configured")
	}

	var parsed identityClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, apperrors.Wrap(apperrors.CodeIdentityTokenInvalid, "parse identity token", err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeIdentityTokenMismatch,
			"identity token issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return Claims{}, apperrors.WithMetadata(
			apperrors.CodeIdentityTokenMismatch,
			"identity token audience mismatch",
			map[string]string{"Field": "audience"},
		)
	}

	now := cfg.Now().UTC()
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeIdentityTokenInvalid, "identity token expiry is required")
	}
	if !now.Before(parsed.ExpiresAt.Time) {
		return Claims{}, apperrors.New(apperrors.CodeIdentityTokenExpired, "identity token is expired")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time) {
		return Claims{}, apperrors.New(apperrors.CodeIdentityTokenInvalid, "identity token is not yet valid")
	}

	identity := strings.TrimSpace(parsed.Subject)
	if identity == "" {
		return Claims{}, apperrors.New(apperrors.CodeIdentityTokenInvalid, "identity token subject is required")
	}

	claims := Claims{
		Identity: identity,
		Issuer:   parsed.Issuer,
		Audience: parsed.Audience,
	}
	claims.ExpiresAt = parsed.ExpiresAt.Time
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	return claims, nil
}

// MintInput describes an identity token to sign.
type MintInput struct {
	Identity string
	Issuer   string
	Audience string
	TTL      time.Duration
	Now      func() time.Time
}

// Mint signs an identity token with the given ed25519 private key. It is
// used by the identity-token tool and by tests.
func Mint(input MintInput, key ed25519.PrivateKey) (string, error) {
	identity := strings.TrimSpace(input.Identity)
	if identity == "" {
		return "", errors.New("identity is required")
	}
	if strings.TrimSpace(input.Issuer) == "" {
		return "", errors.New("issuer is required")
	}
	if strings.TrimSpace(input.Audience) == "" {
		return "", errors.New("audience is required")
	}
	if input.TTL <= 0 {
		return "", errors.New("ttl must be positive")
	}
	if len(key) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("signing key must be %d bytes", ed25519.PrivateKeySize)
	}
	now := input.Now
	if now == nil {
		now = time.Now
	}

	issuedAt := now().UTC()
	claims := identityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    input.Issuer,
			Subject:   identity,
			Audience:  jwt.ClaimStrings{input.Audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(input.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign identity token: %w", err)
	}
	return signed, nil
}

func decodeBase64(value string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	return base64.RawStdEncoding.DecodeString(value)
}

func audienceContains(audience jwt.ClaimStrings, want string) bool {
	for _, value := range audience {
		if value == want {
			return true
		}
	}
	return false
}
