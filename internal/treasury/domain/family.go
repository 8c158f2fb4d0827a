// Package domain holds the pure treasury state machine: families, members,
// proposals, and the voting and claim transition rules. Nothing in this
// package touches storage or transports.
package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/hearthvault/hearthvault/internal/platform/errors"
)

// Family is one group's isolated treasury instance. The ID is assigned
// sequentially by storage at creation and never reused; the wallet address
// is assigned at creation and never changes.
type Family struct {
	ID              int64
	Name            string
	CreatorIdentity string
	CreatorName     string
	WalletAddress   string
	CreatedAt       time.Time
}

// NewFamilyInput describes the fields needed to create a family.
type NewFamilyInput struct {
	Name            string
	CreatorIdentity string
	CreatorName     string
}

// NewFamily validates input and builds a family record with a fresh custody
// wallet address. The ID is zero until storage assigns it.
func NewFamily(input NewFamilyInput, now func() time.Time, idGenerator func() (string, error)) (Family, error) {
	if now == nil {
		now = time.Now
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Family{}, apperrors.New(apperrors.CodeFamilyNameEmpty, "family name is required")
	}
	creatorIdentity := strings.TrimSpace(input.CreatorIdentity)
	if creatorIdentity == "" {
		return Family{}, apperrors.New(apperrors.CodeInvalidIdentity, "creator identity is required")
	}
	creatorName := strings.TrimSpace(input.CreatorName)
	if creatorName == "" {
		return Family{}, apperrors.New(apperrors.CodeMemberNameEmpty, "creator display name is required")
	}

	walletAddress, err := idGenerator()
	if err != nil {
		return Family{}, fmt.Errorf("generate wallet address: %w", err)
	}

	return Family{
		Name:            name,
		CreatorIdentity: creatorIdentity,
		CreatorName:     creatorName,
		WalletAddress:   walletAddress,
		CreatedAt:       now().UTC(),
	}, nil
}
