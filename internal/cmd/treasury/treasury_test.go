package treasury

import (
	"flag"
	"testing"

	"github.com/hearthvault/hearthvault/internal/treasury/service"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("treasury", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil, func(string) (string, bool) { return "", false })
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.WithdrawPolicy != "after-transfer" {
		t.Errorf("WithdrawPolicy = %q, want after-transfer", cfg.WithdrawPolicy)
	}
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	env := map[string]string{
		"HEARTHVAULT_TREASURY_ADDR":   ":9090",
		"HEARTHVAULT_WITHDRAW_POLICY": "before-transfer",
	}
	fs := flag.NewFlagSet("treasury", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-db", "/tmp/t.db"}, func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	})
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Addr)
	}
	if cfg.DBPath != "/tmp/t.db" {
		t.Errorf("DBPath = %q, want /tmp/t.db", cfg.DBPath)
	}
	if cfg.WithdrawPolicy != "before-transfer" {
		t.Errorf("WithdrawPolicy = %q, want before-transfer", cfg.WithdrawPolicy)
	}
}

func TestParseWithdrawPolicy(t *testing.T) {
	if _, err := parseWithdrawPolicy("sideways"); err == nil {
		t.Error("expected error for unknown policy")
	}
	if policy, err := parseWithdrawPolicy(" AFTER-TRANSFER "); err != nil || policy != service.WithdrawAfterTransfer {
		t.Errorf("after-transfer: policy=%v err=%v", policy, err)
	}
	if policy, err := parseWithdrawPolicy("before-transfer"); err != nil || policy != service.WithdrawBeforeTransfer {
		t.Errorf("before-transfer: policy=%v err=%v", policy, err)
	}
}
