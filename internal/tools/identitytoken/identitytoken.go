// Package identitytoken mints signed identity tokens for calling the
// treasury API, generating a fresh key pair when none is supplied.
package identitytoken

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hearthvault/hearthvault/internal/platform/authtoken"
)

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// Config holds token minting inputs.
type Config struct {
	Identity string
	Issuer   string
	Audience string
	TTL      time.Duration
	Key      string
}

// ParseConfig parses flags into a Config, with environment defaults.
func ParseConfig(fs *flag.FlagSet, args []string, lookup EnvLookup) (Config, error) {
	cfg := Config{
		Issuer:   envOrDefault(lookup, "HEARTHVAULT_IDENTITY_ISSUER", "hearthvault"),
		Audience: envOrDefault(lookup, "HEARTHVAULT_IDENTITY_AUDIENCE", "treasury"),
		Key:      envOrDefault(lookup, "HEARTHVAULT_IDENTITY_PRIVATE_KEY", ""),
	}

	fs.StringVar(&cfg.Identity, "identity", "", "The identity to mint a token for")
	fs.StringVar(&cfg.Issuer, "issuer", cfg.Issuer, "The token issuer")
	fs.StringVar(&cfg.Audience, "audience", cfg.Audience, "The token audience")
	fs.DurationVar(&cfg.TTL, "ttl", 24*time.Hour, "The token lifetime")
	fs.StringVar(&cfg.Key, "key", cfg.Key, "The base64 ed25519 private key; a new pair is generated when empty")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run mints an identity token and writes exports. When no private key is
// configured it generates a pair first and exports both halves so the
// server can be pointed at the matching public key.
func Run(out io.Writer, reader io.Reader, cfg Config) error {
	if out == nil {
		return errors.New("output is required")
	}
	if strings.TrimSpace(cfg.Identity) == "" {
		return errors.New("identity is required")
	}
	if reader == nil {
		reader = rand.Reader
	}

	var key ed25519.PrivateKey
	if strings.TrimSpace(cfg.Key) == "" {
		publicKey, privateKey, err := ed25519.GenerateKey(reader)
		if err != nil {
			return fmt.Errorf("generate identity key: %w", err)
		}
		key = privateKey
		if _, err := fmt.Fprintf(out, "export HEARTHVAULT_IDENTITY_PRIVATE_KEY=%s\n", base64.RawStdEncoding.EncodeToString(privateKey)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "export HEARTHVAULT_IDENTITY_PUBLIC_KEY=%s\n", base64.RawStdEncoding.EncodeToString(publicKey)); err != nil {
			return err
		}
	} else {
		decoded, err := decodeBase64(strings.TrimSpace(cfg.Key))
		if err != nil {
			return fmt.Errorf("decode identity private key: %w", err)
		}
		if len(decoded) != ed25519.PrivateKeySize {
			return fmt.Errorf("identity private key must be %d bytes", ed25519.PrivateKeySize)
		}
		key = ed25519.PrivateKey(decoded)
	}

	token, err := authtoken.Mint(authtoken.MintInput{
		Identity: cfg.Identity,
		Issuer:   cfg.Issuer,
		Audience: cfg.Audience,
		TTL:      cfg.TTL,
	}, key)
	if err != nil {
		return fmt.Errorf("mint identity token: %w", err)
	}
	if _, err := fmt.Fprintf(out, "export HEARTHVAULT_IDENTITY_TOKEN=%s\n", token); err != nil {
		return err
	}
	return nil
}

func decodeBase64(value string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(value); err == nil {
		return decoded, nil
	}
	return base64.RawStdEncoding.DecodeString(value)
}

func envOrDefault(lookup EnvLookup, key, fallback string) string {
	if lookup == nil {
		return fallback
	}
	if value, ok := lookup(key); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
