package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	apperrors "github.com/hearthvault/hearthvault/internal/platform/errors"
	"github.com/hearthvault/hearthvault/internal/treasury/domain"
	"github.com/hearthvault/hearthvault/internal/treasury/event"
	"github.com/hearthvault/hearthvault/internal/treasury/storage"
)

// CreateProposalInput describes a spending proposal request.
type CreateProposalInput struct {
	FamilyID    int64
	Title       string
	Description string
	Amount      int64
	Recipient   string
	Duration    time.Duration
}

// CreateProposal opens a spending proposal with a voting window. Member-only.
func (s *Service) CreateProposal(ctx context.Context, input CreateProposalInput) (domain.Proposal, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return domain.Proposal{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireFamily(ctx, input.FamilyID); err != nil {
		return domain.Proposal{}, err
	}
	if _, err := s.requireMember(ctx, input.FamilyID, caller); err != nil {
		return domain.Proposal{}, err
	}

	now := s.now()
	proposal, err := domain.NewProposal(domain.NewProposalInput{
		FamilyID:    input.FamilyID,
		Proposer:    caller,
		Title:       input.Title,
		Description: input.Description,
		Amount:      input.Amount,
		Recipient:   input.Recipient,
		Duration:    input.Duration,
	}, func() time.Time { return now })
	if err != nil {
		return domain.Proposal{}, err
	}

	evt, err := newEvent(input.FamilyID, event.TypeProposalCreated, caller, "proposal", "",
		event.ProposalCreatedPayload{
			Title:          proposal.Title,
			Amount:         proposal.Amount,
			Recipient:      proposal.Recipient,
			VotingDeadline: proposal.VotingDeadline.Format(time.RFC3339),
		}, now)
	if err != nil {
		return domain.Proposal{}, err
	}

	created, err := s.store.CreateProposal(ctx, proposal, evt)
	if err != nil {
		return domain.Proposal{}, apperrors.Wrap(apperrors.CodeInternal, "create proposal", err)
	}

	s.logger.Info("proposal created", "family_id", input.FamilyID, "proposal_id", created.ID, "amount", created.Amount)
	evt.EntityID = strconv.FormatInt(created.ID, 10)
	s.publish(evt)
	return created, nil
}

// loadProposal resolves a proposal scoped to its family.
func (s *Service) loadProposal(ctx context.Context, familyID, proposalID int64) (domain.Proposal, error) {
	proposal, err := s.store.GetProposal(ctx, familyID, proposalID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return domain.Proposal{}, apperrors.New(apperrors.CodeProposalNotFound, "proposal not found")
		}
		return domain.Proposal{}, apperrors.Wrap(apperrors.CodeInternal, "load proposal", err)
	}
	return proposal, nil
}

// Vote casts the caller's ballot on a pending proposal. Member-only; one
// vote per identity; the window must be open.
func (s *Service) Vote(ctx context.Context, familyID, proposalID int64, inFavor bool) (domain.Proposal, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return domain.Proposal{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireFamily(ctx, familyID); err != nil {
		return domain.Proposal{}, err
	}
	if _, err := s.requireMember(ctx, familyID, caller); err != nil {
		return domain.Proposal{}, err
	}

	proposal, err := s.loadProposal(ctx, familyID, proposalID)
	if err != nil {
		return domain.Proposal{}, err
	}

	now := s.now()
	if err := proposal.CheckVote(now); err != nil {
		return domain.Proposal{}, err
	}

	evt, err := newEvent(familyID, event.TypeProposalVoted, caller, "proposal",
		strconv.FormatInt(proposalID, 10), event.ProposalVotedPayload{
			ProposalID: proposalID,
			InFavor:    inFavor,
		}, now)
	if err != nil {
		return domain.Proposal{}, err
	}

	updated, err := s.store.RecordVote(ctx, storage.Vote{
		ProposalID: proposalID,
		FamilyID:   familyID,
		Identity:   caller,
		InFavor:    inFavor,
		VotedAt:    now,
	}, evt)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return domain.Proposal{}, apperrors.New(apperrors.CodeAlreadyVoted, "identity has already voted")
		}
		return domain.Proposal{}, apperrors.Wrap(apperrors.CodeInternal, "record vote", err)
	}

	s.logger.Info("vote recorded", "family_id", familyID, "proposal_id", proposalID, "in_favor", inFavor)
	s.publish(evt)
	return updated, nil
}

// VetoProposal force-resolves a pending proposal before its deadline.
// Parent-only; the proposer may not resolve their own proposal unless they
// are the family's sole member.
func (s *Service) VetoProposal(ctx context.Context, familyID, proposalID int64, approve bool) (domain.Proposal, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return domain.Proposal{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireFamily(ctx, familyID); err != nil {
		return domain.Proposal{}, err
	}
	if _, err := s.requireParent(ctx, familyID, caller); err != nil {
		return domain.Proposal{}, err
	}

	proposal, err := s.loadProposal(ctx, familyID, proposalID)
	if err != nil {
		return domain.Proposal{}, err
	}

	memberCount, err := s.store.CountMembers(ctx, familyID)
	if err != nil {
		return domain.Proposal{}, apperrors.Wrap(apperrors.CodeInternal, "count members", err)
	}

	now := s.now()
	if err := proposal.CheckVeto(caller, memberCount, now); err != nil {
		return domain.Proposal{}, err
	}

	status := domain.StatusVetoed
	if approve {
		status = domain.StatusApproved
	}

	evt, err := newEvent(familyID, event.TypeProposalResolved, caller, "proposal",
		strconv.FormatInt(proposalID, 10), event.ProposalResolvedPayload{
			ProposalID: proposalID,
			Status:     status.String(),
		}, now)
	if err != nil {
		return domain.Proposal{}, err
	}

	updated, err := s.store.SetProposalStatus(ctx, familyID, proposalID, status, evt)
	if err != nil {
		return domain.Proposal{}, apperrors.Wrap(apperrors.CodeInternal, "resolve proposal", err)
	}

	s.logger.Info("proposal resolved", "family_id", familyID, "proposal_id", proposalID, "status", status.String())
	s.publish(evt)
	return updated, nil
}

// ClaimFunds executes an eligible proposal: funds move from the family
// wallet to the recipient and the proposal is marked withdrawn. Member-only.
func (s *Service) ClaimFunds(ctx context.Context, familyID, proposalID int64) (domain.Proposal, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return domain.Proposal{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	family, err := s.requireFamily(ctx, familyID)
	if err != nil {
		return domain.Proposal{}, err
	}
	if _, err := s.requireMember(ctx, familyID, caller); err != nil {
		return domain.Proposal{}, err
	}

	proposal, err := s.loadProposal(ctx, familyID, proposalID)
	if err != nil {
		return domain.Proposal{}, err
	}

	memberCount, err := s.store.CountMembers(ctx, familyID)
	if err != nil {
		return domain.Proposal{}, apperrors.Wrap(apperrors.CodeInternal, "count members", err)
	}

	now := s.now()
	if err := proposal.CheckClaim(memberCount, now); err != nil {
		return domain.Proposal{}, err
	}

	// A pending proposal that cleared the threshold is recorded approved
	// before any funds move.
	if proposal.Status == domain.StatusPending {
		proposal, err = s.store.SetProposalStatus(ctx, familyID, proposalID, domain.StatusApproved)
		if err != nil {
			return domain.Proposal{}, apperrors.Wrap(apperrors.CodeInternal, "approve proposal", err)
		}
	}

	wallet, err := s.vault.Wallet(family.WalletAddress)
	if err != nil {
		return domain.Proposal{}, err
	}
	balance, err := wallet.Balance(ctx)
	if err != nil {
		return domain.Proposal{}, apperrors.Wrap(apperrors.CodeInternal, "wallet balance", err)
	}
	if balance < proposal.Amount {
		return domain.Proposal{}, apperrors.WithMetadata(apperrors.CodeInsufficientFunds, "wallet cannot cover proposal", map[string]string{
			"Balance": strconv.FormatInt(balance, 10),
			"Amount":  strconv.FormatInt(proposal.Amount, 10),
		})
	}

	executedEvt, err := newEvent(familyID, event.TypeProposalExecuted, caller, "proposal",
		strconv.FormatInt(proposalID, 10), event.ProposalExecutedPayload{
			ProposalID: proposalID,
			Amount:     proposal.Amount,
			Recipient:  proposal.Recipient,
		}, now)
	if err != nil {
		return domain.Proposal{}, err
	}
	transferredEvt, err := newEvent(familyID, event.TypeFundsTransferred, caller, "wallet",
		family.WalletAddress, event.FundsTransferredPayload{
			From:   family.WalletAddress,
			To:     proposal.Recipient,
			Amount: proposal.Amount,
		}, now)
	if err != nil {
		return domain.Proposal{}, err
	}

	var updated domain.Proposal
	switch s.withdrawPolicy {
	case WithdrawBeforeTransfer:
		updated, err = s.store.SetProposalStatus(ctx, familyID, proposalID, domain.StatusWithdrawn, executedEvt)
		if err != nil {
			return domain.Proposal{}, apperrors.Wrap(apperrors.CodeInternal, "withdraw proposal", err)
		}
		if err := wallet.Transfer(ctx, proposal.Recipient, proposal.Amount); err != nil {
			return domain.Proposal{}, err
		}
		if _, err := s.store.AppendEvent(ctx, transferredEvt); err != nil {
			return domain.Proposal{}, apperrors.Wrap(apperrors.CodeInternal, "record transfer", err)
		}
	default: // WithdrawAfterTransfer
		if err := wallet.Transfer(ctx, proposal.Recipient, proposal.Amount); err != nil {
			return domain.Proposal{}, err
		}
		updated, err = s.store.SetProposalStatus(ctx, familyID, proposalID, domain.StatusWithdrawn, executedEvt, transferredEvt)
		if err != nil {
			return domain.Proposal{}, apperrors.Wrap(apperrors.CodeInternal, "withdraw proposal", err)
		}
	}

	s.logger.Info("proposal executed", "family_id", familyID, "proposal_id", proposalID,
		"amount", proposal.Amount, "recipient", proposal.Recipient)
	s.publish(executedEvt, transferredEvt)
	return updated, nil
}

// ListFamilyProposals returns a family's proposals with derived voting
// math. Member-only.
func (s *Service) ListFamilyProposals(ctx context.Context, familyID int64) ([]ProposalView, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.requireFamily(ctx, familyID); err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, familyID, caller); err != nil {
		return nil, err
	}

	proposals, err := s.store.ListProposals(ctx, familyID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "list proposals", err)
	}
	memberCount, err := s.store.CountMembers(ctx, familyID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "count members", err)
	}

	now := s.now()
	views := make([]ProposalView, 0, len(proposals))
	for _, proposal := range proposals {
		views = append(views, ProposalView{
			Proposal:        proposal,
			RequiredPercent: domain.RequiredApprovalPercent(proposal.Amount),
			CurrentPercent:  domain.ApprovalPercent(proposal.VotesFor, memberCount),
			Expired:         proposal.Expired(now),
		})
	}
	return views, nil
}

// ListFamilyEvents returns a page of the family's audit journal. Member-only.
func (s *Service) ListFamilyEvents(ctx context.Context, familyID, afterSeq int64, limit int) ([]event.Event, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.requireFamily(ctx, familyID); err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, familyID, caller); err != nil {
		return nil, err
	}

	events, err := s.store.ListEvents(ctx, familyID, afterSeq, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "list events", err)
	}
	return events, nil
}

// RequiredApprovalPercent exposes the tiered threshold for an amount.
func (s *Service) RequiredApprovalPercent(amount int64) int64 {
	return domain.RequiredApprovalPercent(amount)
}
