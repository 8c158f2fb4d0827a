// Package treasury wires flags and environment into the treasury server.
package treasury

import (
	"context"
	"flag"
	"fmt"
	"strings"

	platformcmd "github.com/hearthvault/hearthvault/internal/platform/cmd"
	"github.com/hearthvault/hearthvault/internal/treasury/app"
	"github.com/hearthvault/hearthvault/internal/treasury/service"
)

// Config holds treasury command configuration.
type Config struct {
	Addr           string
	DBPath         string
	WithdrawPolicy string
}

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// ParseConfig parses flags into a Config, with environment defaults.
func ParseConfig(fs *flag.FlagSet, args []string, lookup EnvLookup) (Config, error) {
	cfg := Config{
		Addr:           envOrDefault(lookup, "HEARTHVAULT_TREASURY_ADDR", ":8080"),
		DBPath:         envOrDefault(lookup, "HEARTHVAULT_TREASURY_DB", ""),
		WithdrawPolicy: envOrDefault(lookup, "HEARTHVAULT_WITHDRAW_POLICY", "after-transfer"),
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The treasury HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "The SQLite database path")
	fs.StringVar(&cfg.WithdrawPolicy, "withdraw-policy", cfg.WithdrawPolicy,
		"Claim ordering: after-transfer or before-transfer")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the treasury server with telemetry.
func Run(ctx context.Context, cfg Config) error {
	policy, err := parseWithdrawPolicy(cfg.WithdrawPolicy)
	if err != nil {
		return err
	}
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceTreasury, func(ctx context.Context) error {
		return app.Run(ctx, app.Config{
			Addr:           cfg.Addr,
			DBPath:         cfg.DBPath,
			WithdrawPolicy: policy,
		})
	})
}

func parseWithdrawPolicy(value string) (service.WithdrawPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "after-transfer":
		return service.WithdrawAfterTransfer, nil
	case "before-transfer":
		return service.WithdrawBeforeTransfer, nil
	default:
		return 0, fmt.Errorf("unknown withdraw policy %q", value)
	}
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
