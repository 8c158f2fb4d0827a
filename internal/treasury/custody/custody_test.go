package custody

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/hearthvault/hearthvault/internal/platform/errors"
	"github.com/hearthvault/hearthvault/internal/treasury/ledger"
)

func TestVaultWalletTransfer(t *testing.T) {
	ctx := context.Background()
	vault := NewVault(ledger.NewMemory())

	wallet, err := vault.Wallet("fam-wallet")
	if err != nil {
		t.Fatalf("Wallet: %v", err)
	}
	if err := wallet.Deposit(ctx, 500); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	if err := wallet.Transfer(ctx, "alice", 200); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	got, err := wallet.Balance(ctx)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if got != 300 {
		t.Errorf("balance = %d, want 300", got)
	}
}

func TestVaultWalletEmptyAddress(t *testing.T) {
	vault := NewVault(ledger.NewMemory())
	_, err := vault.Wallet("  ")
	if !errors.IsCode(err, errors.CodeWalletNotFound) {
		t.Fatalf("expected wallet not found, got %v", err)
	}
}

func TestWalletTransferInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	vault := NewVault(ledger.NewMemory())
	wallet, err := vault.Wallet("fam-wallet")
	if err != nil {
		t.Fatalf("Wallet: %v", err)
	}

	err = wallet.Transfer(ctx, "alice", 1)
	if !errors.IsCode(err, errors.CodeInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestWalletTransferEmptyRecipient(t *testing.T) {
	vault := NewVault(ledger.NewMemory())
	wallet, err := vault.Wallet("fam-wallet")
	if err != nil {
		t.Fatalf("Wallet: %v", err)
	}

	err = wallet.Transfer(context.Background(), "", 10)
	if !errors.IsCode(err, errors.CodeRecipientEmpty) {
		t.Fatalf("expected recipient empty, got %v", err)
	}
}

type failingLedger struct {
	ledger.Ledger
}

func (failingLedger) Transfer(ctx context.Context, from, to string, amount int64) error {
	return stderrors.New("backend down")
}

func TestWalletTransferBackendFailure(t *testing.T) {
	vault := NewVault(failingLedger{})
	wallet, err := vault.Wallet("fam-wallet")
	if err != nil {
		t.Fatalf("Wallet: %v", err)
	}

	err = wallet.Transfer(context.Background(), "alice", 10)
	if !errors.IsCode(err, errors.CodeTransferFailed) {
		t.Fatalf("expected transfer failed, got %v", err)
	}
}
