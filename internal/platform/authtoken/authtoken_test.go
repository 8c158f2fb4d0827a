package authtoken

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	apperrors "github.com/hearthvault/hearthvault/internal/platform/errors"
)

func testKeypair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return pub, priv
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestMintAndVerifyRoundTrip(t *testing.T) {
	pub, priv := testKeypair(t)
	issuedAt := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	token, err := Mint(MintInput{
		Identity: "alice",
		Issuer:   "hearthvault",
		Audience: "treasury",
		TTL:      time.Hour,
		Now:      fixedClock(issuedAt),
	}, priv)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	claims, err := Verify(token, VerifierConfig{
		Issuer:   "hearthvault",
		Audience: "treasury",
		Key:      pub,
		Now:      fixedClock(issuedAt.Add(time.Minute)),
	})
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.Identity != "alice" {
		t.Fatalf("expected identity alice, got %q", claims.Identity)
	}
	if !claims.ExpiresAt.Equal(issuedAt.Add(time.Hour)) {
		t.Fatalf("unexpected expiry %v", claims.ExpiresAt)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	pub, priv := testKeypair(t)
	issuedAt := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	token, err := Mint(MintInput{
		Identity: "alice",
		Issuer:   "hearthvault",
		Audience: "treasury",
		TTL:      time.Minute,
		Now:      fixedClock(issuedAt),
	}, priv)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	_, err = Verify(token, VerifierConfig{
		Issuer:   "hearthvault",
		Audience: "treasury",
		Key:      pub,
		Now:      fixedClock(issuedAt.Add(2 * time.Minute)),
	})
	if !apperrors.IsCode(err, apperrors.CodeIdentityTokenExpired) {
		t.Fatalf("expected IDENTITY_TOKEN_EXPIRED, got %v", err)
	}
}

func TestVerifyRejectsIssuerMismatch(t *testing.T) {
	pub, priv := testKeypair(t)
	now := fixedClock(time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC))

	token, err := Mint(MintInput{
		Identity: "alice",
		Issuer:   "someone-else",
		Audience: "treasury",
		TTL:      time.Hour,
		Now:      now,
	}, priv)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	_, err = Verify(token, VerifierConfig{
		Issuer:   "hearthvault",
		Audience: "treasury",
		Key:      pub,
		Now:      now,
	})
	if !apperrors.IsCode(err, apperrors.CodeIdentityTokenMismatch) {
		t.Fatalf("expected IDENTITY_TOKEN_MISMATCH, got %v", err)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	_, priv := testKeypair(t)
	otherPub, _ := testKeypair(t)
	now := fixedClock(time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC))

	token, err := Mint(MintInput{
		Identity: "alice",
		Issuer:   "hearthvault",
		Audience: "treasury",
		TTL:      time.Hour,
		Now:      now,
	}, priv)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	_, err = Verify(token, VerifierConfig{
		Issuer:   "hearthvault",
		Audience: "treasury",
		Key:      otherPub,
		Now:      now,
	})
	if !apperrors.IsCode(err, apperrors.CodeIdentityTokenInvalid) {
		t.Fatalf("expected IDENTITY_TOKEN_INVALID, got %v", err)
	}
}

func TestVerifyRejectsEmptyToken(t *testing.T) {
	pub, _ := testKeypair(t)
	_, err := Verify("  ", VerifierConfig{
		Issuer:   "hearthvault",
		Audience: "treasury",
		Key:      pub,
	})
	if !apperrors.IsCode(err, apperrors.CodeUnauthenticated) {
		t.Fatalf("expected UNAUTHENTICATED, got %v", err)
	}
}

func TestLoadVerifierConfigFromEnv(t *testing.T) {
	pub, _ := testKeypair(t)
	t.Setenv("HEARTHVAULT_IDENTITY_ISSUER", "hearthvault")
	t.Setenv("HEARTHVAULT_IDENTITY_AUDIENCE", "treasury")
	t.Setenv("HEARTHVAULT_IDENTITY_PUBLIC_KEY", base64.StdEncoding.EncodeToString(pub))

	cfg, err := LoadVerifierConfigFromEnv(nil)
	if err != nil {
		t.Fatalf("load verifier config: %v", err)
	}
	if cfg.Issuer != "hearthvault" || cfg.Audience != "treasury" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.Key) != ed25519.PublicKeySize {
		t.Fatalf("unexpected key size %d", len(cfg.Key))
	}
}

func TestLoadVerifierConfigRequiresIssuer(t *testing.T) {
	pub, _ := testKeypair(t)
	t.Setenv("HEARTHVAULT_IDENTITY_ISSUER", "")
	t.Setenv("HEARTHVAULT_IDENTITY_AUDIENCE", "treasury")
	t.Setenv("HEARTHVAULT_IDENTITY_PUBLIC_KEY", base64.StdEncoding.EncodeToString(pub))

	if _, err := LoadVerifierConfigFromEnv(nil); err == nil {
		t.Fatal("expected error for missing issuer")
	}
}
