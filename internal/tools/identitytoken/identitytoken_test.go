package identitytoken

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/hearthvault/hearthvault/internal/platform/authtoken"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("identity-token", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-identity", "mom"}, func(string) (string, bool) { return "", false })
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Identity != "mom" {
		t.Errorf("Identity = %q, want mom", cfg.Identity)
	}
	if cfg.Issuer != "hearthvault" {
		t.Errorf("Issuer = %q, want hearthvault", cfg.Issuer)
	}
	if cfg.Audience != "treasury" {
		t.Errorf("Audience = %q, want treasury", cfg.Audience)
	}
	if cfg.TTL != 24*time.Hour {
		t.Errorf("TTL = %v, want 24h", cfg.TTL)
	}
}

func TestRunRequiresOutput(t *testing.T) {
	if err := Run(nil, nil, Config{Identity: "mom"}); err == nil {
		t.Fatal("expected error when output is nil")
	}
}

func TestRunRequiresIdentity(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Run(buf, nil, Config{Issuer: "hearthvault", Audience: "treasury", TTL: time.Hour}); err == nil {
		t.Fatal("expected error when identity is empty")
	}
}

func TestRunGeneratesKeysAndToken(t *testing.T) {
	buf := &bytes.Buffer{}
	reader := bytes.NewReader(bytes.Repeat([]byte{1}, 64))
	cfg := Config{
		Identity: "mom",
		Issuer:   "hearthvault",
		Audience: "treasury",
		TTL:      time.Hour,
	}
	if err := Run(buf, reader, cfg); err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}

	private := strings.TrimPrefix(lines[0], "export HEARTHVAULT_IDENTITY_PRIVATE_KEY=")
	public := strings.TrimPrefix(lines[1], "export HEARTHVAULT_IDENTITY_PUBLIC_KEY=")
	token := strings.TrimPrefix(lines[2], "export HEARTHVAULT_IDENTITY_TOKEN=")
	if private == lines[0] || public == lines[1] || token == lines[2] {
		t.Fatalf("unexpected output format: %q", buf.String())
	}

	publicBytes, err := base64.RawStdEncoding.DecodeString(public)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(publicBytes) != ed25519.PublicKeySize {
		t.Fatalf("expected public key length %d, got %d", ed25519.PublicKeySize, len(publicBytes))
	}

	claims, err := authtoken.Verify(token, authtoken.VerifierConfig{
		Issuer:   "hearthvault",
		Audience: "treasury",
		Key:      ed25519.PublicKey(publicBytes),
	})
	if err != nil {
		t.Fatalf("verify minted token: %v", err)
	}
	if claims.Identity != "mom" {
		t.Errorf("Identity = %q, want mom", claims.Identity)
	}
}

func TestRunWithConfiguredKey(t *testing.T) {
	publicKey, privateKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	buf := &bytes.Buffer{}
	cfg := Config{
		Identity: "kiddo",
		Issuer:   "hearthvault",
		Audience: "treasury",
		TTL:      time.Hour,
		Key:      base64.RawStdEncoding.EncodeToString(privateKey),
	}
	if err := Run(buf, nil, cfg); err != nil {
		t.Fatalf("run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	token := strings.TrimPrefix(lines[0], "export HEARTHVAULT_IDENTITY_TOKEN=")
	if token == lines[0] {
		t.Fatalf("unexpected output format: %q", buf.String())
	}
	if _, err := authtoken.Verify(token, authtoken.VerifierConfig{
		Issuer:   "hearthvault",
		Audience: "treasury",
		Key:      publicKey,
	}); err != nil {
		t.Fatalf("verify minted token: %v", err)
	}
}

func TestRunRejectsShortKey(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := Config{
		Identity: "mom",
		Issuer:   "hearthvault",
		Audience: "treasury",
		TTL:      time.Hour,
		Key:      base64.RawStdEncoding.EncodeToString([]byte("too-short")),
	}
	if err := Run(buf, nil, cfg); err == nil {
		t.Fatal("expected error for short key")
	}
}
