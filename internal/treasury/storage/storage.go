package storage

import (
	"context"
	"time"

	"github.com/hearthvault/hearthvault/internal/platform/errors"
	"github.com/hearthvault/hearthvault/internal/treasury/domain"
	"github.com/hearthvault/hearthvault/internal/treasury/event"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New(errors.CodeNotFound, "record not found")

// ErrAlreadyExists indicates a uniqueness violation on insert.
var ErrAlreadyExists = errors.New(errors.CodeAlreadyMember, "record already exists")

// Vote records one member's ballot on a proposal. A member votes at most
// once per proposal.
type Vote struct {
	ProposalID int64
	FamilyID   int64
	Identity   string
	InFavor    bool
	VotedAt    time.Time
}

// FamilyStore persists family records. Mutations append their audit event in
// the same transaction.
type FamilyStore interface {
	// CreateFamily inserts the family and its creator membership atomically
	// and returns the family with its assigned ID.
	CreateFamily(ctx context.Context, family domain.Family, creator domain.Member, evt event.Event) (domain.Family, error)
	GetFamily(ctx context.Context, familyID int64) (domain.Family, error)
	// DeleteFamily removes the family, its members, proposals, and votes.
	// The audit journal survives deletion; evt is appended as its final
	// entry.
	DeleteFamily(ctx context.Context, familyID int64, evt event.Event) error
	// ListFamiliesByIdentity returns the families the identity belongs to.
	ListFamiliesByIdentity(ctx context.Context, identity string) ([]domain.Family, error)
}

// MemberStore persists family memberships.
type MemberStore interface {
	AddMember(ctx context.Context, member domain.Member, evt event.Event) error
	GetMember(ctx context.Context, familyID int64, identity string) (domain.Member, error)
	RemoveMember(ctx context.Context, familyID int64, identity string, evt event.Event) error
	SetMemberRole(ctx context.Context, familyID int64, identity string, role domain.Role, evt event.Event) error
	ListMembers(ctx context.Context, familyID int64) ([]domain.Member, error)
	CountMembers(ctx context.Context, familyID int64) (int64, error)
}

// ProposalStore persists spending proposals and votes.
type ProposalStore interface {
	// CreateProposal inserts the proposal and returns it with its assigned
	// ID.
	CreateProposal(ctx context.Context, proposal domain.Proposal, evt event.Event) (domain.Proposal, error)
	GetProposal(ctx context.Context, familyID, proposalID int64) (domain.Proposal, error)
	// RecordVote inserts the ballot, bumps the proposal's tally, and
	// returns the updated proposal. A repeat ballot by the same identity
	// fails with ErrAlreadyExists.
	RecordVote(ctx context.Context, vote Vote, evt event.Event) (domain.Proposal, error)
	// SetProposalStatus transitions the proposal and appends the given
	// audit events in the same transaction.
	SetProposalStatus(ctx context.Context, familyID, proposalID int64, status domain.Status, evts ...event.Event) (domain.Proposal, error)
	ListProposals(ctx context.Context, familyID int64) ([]domain.Proposal, error)
}

// EventStore reads and extends a family's audit journal.
type EventStore interface {
	// AppendEvent appends an event outside any entity mutation and returns
	// it with its assigned sequence number.
	AppendEvent(ctx context.Context, evt event.Event) (event.Event, error)
	// ListEvents returns events with Seq greater than afterSeq, oldest
	// first, up to limit. A limit of zero or less means no limit.
	ListEvents(ctx context.Context, familyID, afterSeq int64, limit int) ([]event.Event, error)
}

// Store is the full persistence surface of the treasury service.
type Store interface {
	FamilyStore
	MemberStore
	ProposalStore
	EventStore
	Close() error
}
