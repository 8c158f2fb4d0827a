package event

import "encoding/json"

// FamilyCreatedPayload describes a family.created event.
type FamilyCreatedPayload struct {
	Name            string `json:"name"`
	CreatorIdentity string `json:"creator_identity"`
	WalletAddress   string `json:"wallet_address"`
}

// FamilyDeletedPayload describes a family.deleted event.
type FamilyDeletedPayload struct {
	Name string `json:"name"`
}

// MemberAddedPayload describes a member.added event.
type MemberAddedPayload struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// MemberRemovedPayload describes a member.removed event.
type MemberRemovedPayload struct {
	Identity string `json:"identity"`
}

// MemberRoleChangedPayload describes a member.role_changed event.
type MemberRoleChangedPayload struct {
	Identity string `json:"identity"`
	OldRole  string `json:"old_role"`
	NewRole  string `json:"new_role"`
}

// ProposalCreatedPayload describes a proposal.created event.
type ProposalCreatedPayload struct {
	ProposalID     int64  `json:"proposal_id"`
	Title          string `json:"title"`
	Amount         int64  `json:"amount"`
	Recipient      string `json:"recipient"`
	VotingDeadline string `json:"voting_deadline"`
}

// ProposalVotedPayload describes a proposal.voted event.
type ProposalVotedPayload struct {
	ProposalID int64 `json:"proposal_id"`
	InFavor    bool  `json:"in_favor"`
}

// ProposalResolvedPayload describes a proposal.resolved event.
type ProposalResolvedPayload struct {
	ProposalID int64  `json:"proposal_id"`
	Status     string `json:"status"`
}

// ProposalExecutedPayload describes a proposal.executed event.
type ProposalExecutedPayload struct {
	ProposalID int64  `json:"proposal_id"`
	Amount     int64  `json:"amount"`
	Recipient  string `json:"recipient"`
}

// FundsTransferredPayload describes a funds.transferred event.
type FundsTransferredPayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// MarshalPayload encodes a payload struct to JSON for storage in an event.
func MarshalPayload(payload any) ([]byte, error) {
	return json.Marshal(payload)
}
