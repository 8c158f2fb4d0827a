package domain

import (
	"strconv"
	"strings"
	"time"

	apperrors "github.com/hearthvault/hearthvault/internal/platform/errors"
)

// Status is the proposal lifecycle state. Transitions only move forward:
// Pending -> Approved -> Withdrawn, or Pending -> Vetoed. Vetoed and
// Withdrawn are terminal; Approved is a recorded intermediate reached by a
// parent veto-approve or inside a successful claim.
type Status int

const (
	// StatusUnspecified represents an invalid status value.
	StatusUnspecified Status = iota
	// StatusPending means the voting window is open or awaiting claim.
	StatusPending
	// StatusApproved means the proposal passed and awaits fund withdrawal.
	StatusApproved
	// StatusVetoed means a parent rejected the proposal. Terminal.
	StatusVetoed
	// StatusWithdrawn means funds were claimed. Terminal.
	StatusWithdrawn
)

// statusLabels maps statuses to their wire labels.
var statusLabels = map[Status]string{
	StatusPending:   "pending",
	StatusApproved:  "approved",
	StatusVetoed:    "vetoed",
	StatusWithdrawn: "withdrawn",
}

// String returns the wire label for the status.
func (s Status) String() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return "unspecified"
}

// ParseStatus resolves a wire label into a Status.
func ParseStatus(label string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "pending":
		return StatusPending, true
	case "approved":
		return StatusApproved, true
	case "vetoed":
		return StatusVetoed, true
	case "withdrawn":
		return StatusWithdrawn, true
	default:
		return StatusUnspecified, false
	}
}

// Proposal is a time-boxed request to move funds from a family's custody
// wallet to a recipient, subject to voting. Vote tallies count one vote per
// identity; a recorded vote survives the voter's later removal.
type Proposal struct {
	ID             int64
	FamilyID       int64
	Proposer       string
	Title          string
	Description    string
	Amount         int64
	Recipient      string
	VotesFor       int64
	VotesAgainst   int64
	CreatedAt      time.Time
	VotingDeadline time.Time
	Status         Status
}

// NewProposalInput describes the fields needed to create a proposal.
type NewProposalInput struct {
	FamilyID    int64
	Proposer    string
	Title       string
	Description string
	Amount      int64
	Recipient   string
	Duration    time.Duration
}

// NewProposal validates input and builds a pending proposal. No upper bound
// is enforced on amount or duration; that is a governance decision, not a
// code-level one.
func NewProposal(input NewProposalInput, now func() time.Time) (Proposal, error) {
	if now == nil {
		now = time.Now
	}

	proposer := strings.TrimSpace(input.Proposer)
	if proposer == "" {
		return Proposal{}, apperrors.New(apperrors.CodeInvalidIdentity, "proposer identity is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Proposal{}, apperrors.New(apperrors.CodeProposalTitleEmpty, "proposal title is required")
	}
	if input.Amount <= 0 {
		return Proposal{}, apperrors.New(apperrors.CodeProposalAmountInvalid, "proposal amount must be positive")
	}
	recipient := strings.TrimSpace(input.Recipient)
	if recipient == "" {
		return Proposal{}, apperrors.New(apperrors.CodeRecipientEmpty, "proposal recipient is required")
	}
	if input.Duration <= 0 {
		return Proposal{}, apperrors.New(apperrors.CodeDurationInvalid, "voting duration must be positive")
	}

	createdAt := now().UTC()
	return Proposal{
		FamilyID:       input.FamilyID,
		Proposer:       proposer,
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		Amount:         input.Amount,
		Recipient:      recipient,
		CreatedAt:      createdAt,
		VotingDeadline: createdAt.Add(input.Duration),
		Status:         StatusPending,
	}, nil
}

// RequiredApprovalPercent returns the minimum approval percentage for the
// requested amount. Larger asks need near-unanimous consent.
func RequiredApprovalPercent(amount int64) int64 {
	switch {
	case amount <= 500:
		return 51
	case amount <= 1500:
		return 75
	default:
		return 100
	}
}

// ApprovalPercent computes the approval ratio in whole percent against the
// current member count. Integer division matches the tally semantics: 1 of
// 2 voters is 50%, not 50.5%.
func ApprovalPercent(votesFor, memberCount int64) int64 {
	if memberCount <= 0 {
		return 0
	}
	return votesFor * 100 / memberCount
}

// Expired reports whether the voting window has closed.
func (p Proposal) Expired(now time.Time) bool {
	return !now.Before(p.VotingDeadline)
}

// CheckVote validates that a vote may be cast right now. Duplicate-vote
// detection lives in storage, keyed on (proposal, identity).
func (p Proposal) CheckVote(now time.Time) error {
	if p.Status != StatusPending {
		return apperrors.WithMetadata(apperrors.CodeNotPending, "proposal is not pending", map[string]string{
			"Status": p.Status.String(),
		})
	}
	if p.Expired(now) {
		return apperrors.New(apperrors.CodeVotingClosed, "voting deadline has passed")
	}
	return nil
}

// CheckVeto validates that caller may force-resolve the proposal right now.
// The proposer may not veto their own proposal unless they are the family's
// sole member.
func (p Proposal) CheckVeto(caller string, memberCount int64, now time.Time) error {
	if p.Status != StatusPending {
		return apperrors.WithMetadata(apperrors.CodeNotPending, "proposal is not pending", map[string]string{
			"Status": p.Status.String(),
		})
	}
	if p.Expired(now) {
		return apperrors.New(apperrors.CodeVotingClosed, "voting deadline has passed")
	}
	if caller == p.Proposer && memberCount > 1 {
		return apperrors.New(apperrors.CodeCannotVetoOwnProposal, "proposer cannot veto their own proposal")
	}
	return nil
}

// CheckClaim validates claim eligibility: either the proposal was approved
// early by a parent, or the deadline has passed and the tally meets the
// tiered threshold.
func (p Proposal) CheckClaim(memberCount int64, now time.Time) error {
	switch p.Status {
	case StatusWithdrawn:
		return apperrors.New(apperrors.CodeAlreadyWithdrawn, "proposal funds were already withdrawn")
	case StatusVetoed:
		return apperrors.WithMetadata(apperrors.CodeNotPending, "proposal was vetoed", map[string]string{
			"Status": p.Status.String(),
		})
	case StatusApproved:
		return nil
	case StatusPending:
		if !p.Expired(now) {
			return apperrors.New(apperrors.CodeVotingOpen, "voting window is still open")
		}
		required := RequiredApprovalPercent(p.Amount)
		actual := ApprovalPercent(p.VotesFor, memberCount)
		if actual < required {
			return apperrors.WithMetadata(apperrors.CodeInsufficientVotes, "approval threshold not met", map[string]string{
				"Required": strconv.FormatInt(required, 10),
				"Actual":   strconv.FormatInt(actual, 10),
			})
		}
		return nil
	default:
		return apperrors.New(apperrors.CodeInternal, "proposal status is invalid")
	}
}
