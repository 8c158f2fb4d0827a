// Package service orchestrates treasury operations: authorization guards,
// domain transitions, persistence, custody transfers, and event fan-out.
// Mutations are serialized so each family behaves like a single sequencer.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/hearthvault/hearthvault/internal/platform/errors"
	"github.com/hearthvault/hearthvault/internal/platform/requestctx"
	"github.com/hearthvault/hearthvault/internal/treasury/custody"
	"github.com/hearthvault/hearthvault/internal/treasury/domain"
	"github.com/hearthvault/hearthvault/internal/treasury/event"
	"github.com/hearthvault/hearthvault/internal/treasury/notify"
	"github.com/hearthvault/hearthvault/internal/treasury/storage"
)

// WithdrawPolicy selects when a claim marks the proposal withdrawn relative
// to the custody transfer.
type WithdrawPolicy int

const (
	// WithdrawAfterTransfer commits the withdrawn status only after the
	// transfer succeeds. A failed transfer leaves the proposal claimable.
	WithdrawAfterTransfer WithdrawPolicy = iota
	// WithdrawBeforeTransfer marks the proposal withdrawn before moving
	// funds, reproducing ledger-first ordering for behavioral parity.
	WithdrawBeforeTransfer
)

// Service is the treasury orchestrator. All operations read the caller
// identity from context; transports must authenticate before dispatch.
type Service struct {
	store          storage.Store
	vault          *custody.Vault
	bus            *notify.Bus
	logger         *slog.Logger
	now            func() time.Time
	withdrawPolicy WithdrawPolicy

	// mu serializes mutations; reads take the read lock so views see a
	// consistent snapshot across members, proposals, and balances.
	mu sync.RWMutex
}

// Option customizes a Service.
type Option func(*Service)

// WithClock injects a clock, read once per operation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithWithdrawPolicy selects the claim ordering policy.
func WithWithdrawPolicy(policy WithdrawPolicy) Option {
	return func(s *Service) { s.withdrawPolicy = policy }
}

// WithLogger injects a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New assembles a treasury service. The bus may be nil when no observers
// are wired.
func New(store storage.Store, vault *custody.Vault, bus *notify.Bus, opts ...Option) *Service {
	s := &Service{
		store:          store,
		vault:          vault,
		bus:            bus,
		logger:         slog.Default(),
		now:            time.Now,
		withdrawPolicy: WithdrawAfterTransfer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// caller resolves the authenticated identity from context.
func (s *Service) caller(ctx context.Context) (string, error) {
	identity := requestctx.IdentityFromContext(ctx)
	if identity == "" {
		return "", apperrors.New(apperrors.CodeUnauthenticated, "caller identity is required")
	}
	return identity, nil
}

// requireFamily loads a family or fails with FamilyNotFound.
func (s *Service) requireFamily(ctx context.Context, familyID int64) (domain.Family, error) {
	family, err := s.store.GetFamily(ctx, familyID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return domain.Family{}, apperrors.New(apperrors.CodeFamilyNotFound, "family not found")
		}
		return domain.Family{}, apperrors.Wrap(apperrors.CodeInternal, "load family", err)
	}
	return family, nil
}

// requireMember verifies the identity belongs to the family.
func (s *Service) requireMember(ctx context.Context, familyID int64, identity string) (domain.Member, error) {
	member, err := s.store.GetMember(ctx, familyID, identity)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return domain.Member{}, apperrors.New(apperrors.CodeNotAMember, "caller is not a family member")
		}
		return domain.Member{}, apperrors.Wrap(apperrors.CodeInternal, "load member", err)
	}
	return member, nil
}

// requireParent verifies the identity is a parent of the family.
func (s *Service) requireParent(ctx context.Context, familyID int64, identity string) (domain.Member, error) {
	member, err := s.requireMember(ctx, familyID, identity)
	if err != nil {
		return domain.Member{}, err
	}
	if member.Role != domain.RoleParent {
		return domain.Member{}, apperrors.New(apperrors.CodeNotAParent, "caller is not a parent")
	}
	return member, nil
}

// publish fans events out to observers. Persistence already succeeded;
// delivery is best effort.
func (s *Service) publish(evts ...event.Event) {
	if s.bus == nil {
		return
	}
	for _, evt := range evts {
		s.bus.Publish(evt)
	}
}
