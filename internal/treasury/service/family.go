package service

import (
	"context"
	"strconv"
	"time"

	apperrors "github.com/hearthvault/hearthvault/internal/platform/errors"
	"github.com/hearthvault/hearthvault/internal/platform/id"
	"github.com/hearthvault/hearthvault/internal/treasury/domain"
	"github.com/hearthvault/hearthvault/internal/treasury/event"
)

// newEvent builds an audit event with a JSON payload. Storage assigns Seq.
func newEvent(familyID int64, typ event.Type, actor, entityType, entityID string, payload any, at time.Time) (event.Event, error) {
	raw, err := event.MarshalPayload(payload)
	if err != nil {
		return event.Event{}, apperrors.Wrap(apperrors.CodeInternal, "encode event payload", err)
	}
	return event.Event{
		FamilyID:    familyID,
		Timestamp:   at,
		Type:        typ,
		Actor:       actor,
		EntityType:  entityType,
		EntityID:    entityID,
		PayloadJSON: raw,
	}, nil
}

// CreateFamilyInput describes a family creation request.
type CreateFamilyInput struct {
	Name        string
	CreatorName string
}

// CreateFamily creates a family with the caller installed as its parent
// creator and a fresh custody wallet.
func (s *Service) CreateFamily(ctx context.Context, input CreateFamilyInput) (domain.Family, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return domain.Family{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	family, err := domain.NewFamily(domain.NewFamilyInput{
		Name:            input.Name,
		CreatorIdentity: caller,
		CreatorName:     input.CreatorName,
	}, func() time.Time { return now }, id.New)
	if err != nil {
		return domain.Family{}, err
	}

	creator, err := domain.NewMember(domain.NewMemberInput{
		Identity:    caller,
		DisplayName: family.CreatorName,
		Role:        domain.RoleParent,
	}, func() time.Time { return now })
	if err != nil {
		return domain.Family{}, err
	}

	evt, err := newEvent(0, event.TypeFamilyCreated, caller, "family", "", event.FamilyCreatedPayload{
		Name:            family.Name,
		CreatorIdentity: caller,
		WalletAddress:   family.WalletAddress,
	}, now)
	if err != nil {
		return domain.Family{}, err
	}

	created, err := s.store.CreateFamily(ctx, family, creator, evt)
	if err != nil {
		return domain.Family{}, apperrors.Wrap(apperrors.CodeInternal, "create family", err)
	}

	s.logger.Info("family created", "family_id", created.ID, "name", created.Name)
	evt.FamilyID = created.ID
	evt.EntityID = strconv.FormatInt(created.ID, 10)
	s.publish(evt)
	return created, nil
}

// DeleteFamily removes a family and everything in it. Parent-only. The
// audit journal survives with the deletion as its final entry.
func (s *Service) DeleteFamily(ctx context.Context, familyID int64) error {
	caller, err := s.caller(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	family, err := s.requireFamily(ctx, familyID)
	if err != nil {
		return err
	}
	if _, err := s.requireParent(ctx, familyID, caller); err != nil {
		return err
	}

	evt, err := newEvent(familyID, event.TypeFamilyDeleted, caller, "family",
		strconv.FormatInt(familyID, 10), event.FamilyDeletedPayload{Name: family.Name}, s.now())
	if err != nil {
		return err
	}

	if err := s.store.DeleteFamily(ctx, familyID, evt); err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return apperrors.New(apperrors.CodeFamilyNotFound, "family not found")
		}
		return apperrors.Wrap(apperrors.CodeInternal, "delete family", err)
	}

	s.logger.Info("family deleted", "family_id", familyID)
	s.publish(evt)
	return nil
}

// ProposalView augments a proposal with derived voting math.
type ProposalView struct {
	Proposal        domain.Proposal
	RequiredPercent int64
	CurrentPercent  int64
	Expired         bool
}

// FamilyView is a consistent snapshot of one family for the caller.
type FamilyView struct {
	Family    domain.Family
	Balance   int64
	Members   []domain.Member
	Proposals []ProposalView
}

// ListFamiliesForIdentity returns snapshots of every family the caller
// belongs to, including live custody balances.
func (s *Service) ListFamiliesForIdentity(ctx context.Context) ([]FamilyView, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	families, err := s.store.ListFamiliesByIdentity(ctx, caller)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "list families", err)
	}

	now := s.now()
	views := make([]FamilyView, 0, len(families))
	for _, family := range families {
		view, err := s.familyView(ctx, family, now)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *Service) familyView(ctx context.Context, family domain.Family, now time.Time) (FamilyView, error) {
	members, err := s.store.ListMembers(ctx, family.ID)
	if err != nil {
		return FamilyView{}, apperrors.Wrap(apperrors.CodeInternal, "list members", err)
	}
	proposals, err := s.store.ListProposals(ctx, family.ID)
	if err != nil {
		return FamilyView{}, apperrors.Wrap(apperrors.CodeInternal, "list proposals", err)
	}

	wallet, err := s.vault.Wallet(family.WalletAddress)
	if err != nil {
		return FamilyView{}, err
	}
	balance, err := wallet.Balance(ctx)
	if err != nil {
		return FamilyView{}, apperrors.Wrap(apperrors.CodeInternal, "wallet balance", err)
	}

	memberCount := int64(len(members))
	views := make([]ProposalView, 0, len(proposals))
	for _, proposal := range proposals {
		views = append(views, ProposalView{
			Proposal:        proposal,
			RequiredPercent: domain.RequiredApprovalPercent(proposal.Amount),
			CurrentPercent:  domain.ApprovalPercent(proposal.VotesFor, memberCount),
			Expired:         proposal.Expired(now),
		})
	}

	return FamilyView{
		Family:    family,
		Balance:   balance,
		Members:   members,
		Proposals: views,
	}, nil
}
