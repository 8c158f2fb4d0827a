// Package custody manages the per-family wallets that hold group funds.
//
// Wallets are held by a Vault and never handed to callers outside the
// treasury service, so only approved proposal executions can move funds.
package custody

import (
	"context"
	"strings"

	"github.com/hearthvault/hearthvault/internal/platform/errors"
	"github.com/hearthvault/hearthvault/internal/treasury/ledger"
)

// Vault issues and resolves family wallets against a ledger backend.
type Vault struct {
	ledger ledger.Ledger
}

// NewVault returns a vault settling against the given ledger.
func NewVault(l ledger.Ledger) *Vault {
	return &Vault{ledger: l}
}

// Wallet is a single family's custody account. Its transfer operation is
// reachable only through the vault, which the service owns.
type Wallet struct {
	address string
	ledger  ledger.Ledger
}

// Wallet resolves the wallet for an address. The address must have been
// issued at family creation.
func (v *Vault) Wallet(address string) (*Wallet, error) {
	if strings.TrimSpace(address) == "" {
		return nil, errors.New(errors.CodeWalletNotFound, "wallet address is empty")
	}
	return &Wallet{address: address, ledger: v.ledger}, nil
}

// Address returns the wallet's ledger address.
func (w *Wallet) Address() string {
	return w.address
}

// Balance returns the wallet's current funds.
func (w *Wallet) Balance(ctx context.Context) (int64, error) {
	return w.ledger.BalanceOf(ctx, w.address)
}

// Transfer moves amount from the wallet to the recipient address. Backend
// failures other than insufficient funds are reported as transfer failures.
func (w *Wallet) Transfer(ctx context.Context, recipient string, amount int64) error {
	if strings.TrimSpace(recipient) == "" {
		return errors.New(errors.CodeRecipientEmpty, "recipient is empty")
	}

	err := w.ledger.Transfer(ctx, w.address, recipient, amount)
	if err == nil {
		return nil
	}
	if errors.IsCode(err, errors.CodeInsufficientFunds) || errors.IsCode(err, errors.CodeProposalAmountInvalid) {
		return err
	}
	return errors.Wrap(errors.CodeTransferFailed, "ledger transfer failed", err)
}

// Deposit credits the wallet from outside the treasury.
func (w *Wallet) Deposit(ctx context.Context, amount int64) error {
	return w.ledger.Deposit(ctx, w.address, amount)
}
