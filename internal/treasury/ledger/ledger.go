// Package ledger abstracts the value-transfer backend that custody wallets
// settle against.
package ledger

import (
	"context"
	"strconv"

	"github.com/hearthvault/hearthvault/internal/platform/errors"
)

// Ledger moves value between addresses. Implementations must be safe for
// concurrent use.
type Ledger interface {
	// Transfer moves amount from one address to another. It returns
	// CodeInsufficientFunds when the source balance cannot cover the
	// amount, and CodeTransferFailed for backend failures.
	Transfer(ctx context.Context, from, to string, amount int64) error

	// BalanceOf returns the current balance of an address. Unknown
	// addresses have a zero balance.
	BalanceOf(ctx context.Context, addr string) (int64, error)

	// Deposit credits an address. Used to fund wallets from outside the
	// treasury.
	Deposit(ctx context.Context, addr string, amount int64) error
}

func validateAmount(amount int64) error {
	if amount <= 0 {
		return errors.WithMetadata(errors.CodeProposalAmountInvalid, "transfer amount must be positive", map[string]string{
			"amount": strconv.FormatInt(amount, 10),
		})
	}
	return nil
}
