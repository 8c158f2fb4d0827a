// Package event defines the append-only audit journal that records every
// treasury mutation for external observers.
package event

import (
	"strings"
	"time"
)

// Type identifies the kind of a treasury event.
type Type string

// Family lifecycle events.
const (
	// TypeFamilyCreated records the creation of a family.
	TypeFamilyCreated Type = "family.created"
	// TypeFamilyDeleted records the atomic deletion of a family.
	TypeFamilyDeleted Type = "family.deleted"
)

// Membership events.
const (
	// TypeMemberAdded records a member joining a family.
	TypeMemberAdded Type = "member.added"
	// TypeMemberRemoved records a member's removal.
	TypeMemberRemoved Type = "member.removed"
	// TypeMemberRoleChanged records a role change.
	TypeMemberRoleChanged Type = "member.role_changed"
)

// Proposal events.
const (
	// TypeProposalCreated records the creation of a spending proposal.
	TypeProposalCreated Type = "proposal.created"
	// TypeProposalVoted records one member's vote.
	TypeProposalVoted Type = "proposal.voted"
	// TypeProposalResolved records a parent's early approve or reject.
	TypeProposalResolved Type = "proposal.resolved"
	// TypeProposalExecuted records a successful claim commit.
	TypeProposalExecuted Type = "proposal.executed"
)

// Custody events.
const (
	// TypeFundsTransferred records a custody wallet transfer.
	TypeFundsTransferred Type = "funds.transferred"
)

// Event represents an immutable record in a family's audit journal. Seq is
// assigned by storage on append, starting at 1 per family, in the same
// transaction as the mutation the event records.
type Event struct {
	FamilyID    int64
	Seq         int64
	Timestamp   time.Time
	Type        Type
	Actor       string
	EntityType  string
	EntityID    string
	PayloadJSON []byte
}

// IsValid reports whether the event type is usable.
func (t Type) IsValid() bool {
	return strings.TrimSpace(string(t)) != ""
}

// Domain returns the domain prefix of the event type (e.g., "family",
// "proposal").
func (t Type) Domain() string {
	for i, c := range t {
		if c == '.' {
			return string(t[:i])
		}
	}
	return string(t)
}
