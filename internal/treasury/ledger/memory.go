package ledger

import (
	"context"
	"strconv"
	"sync"

	"github.com/hearthvault/hearthvault/internal/platform/errors"
)

// Memory is an in-process ledger backed by a map. It is the default backend
// and the one used throughout the tests.
type Memory struct {
	mu       sync.Mutex
	balances map[string]int64
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{balances: make(map[string]int64)}
}

// Transfer implements Ledger.
func (m *Memory) Transfer(ctx context.Context, from, to string, amount int64) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if from == "" || to == "" {
		return errors.New(errors.CodeTransferFailed, "transfer address is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.balances[from] < amount {
		return errors.WithMetadata(errors.CodeInsufficientFunds, "insufficient funds", map[string]string{
			"address": from,
			"balance": strconv.FormatInt(m.balances[from], 10),
			"amount":  strconv.FormatInt(amount, 10),
		})
	}

	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}

// BalanceOf implements Ledger.
func (m *Memory) BalanceOf(ctx context.Context, addr string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[addr], nil
}

// Deposit implements Ledger.
func (m *Memory) Deposit(ctx context.Context, addr string, amount int64) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if addr == "" {
		return errors.New(errors.CodeTransferFailed, "deposit address is empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[addr] += amount
	return nil
}
