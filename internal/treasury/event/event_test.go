package event

import (
	"encoding/json"
	"testing"
)

func TestTypeDomain(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{TypeFamilyCreated, "family"},
		{TypeMemberRoleChanged, "member"},
		{TypeProposalExecuted, "proposal"},
		{TypeFundsTransferred, "funds"},
		{Type("bare"), "bare"},
	}
	for _, tt := range tests {
		if got := tt.typ.Domain(); got != tt.want {
			t.Errorf("Domain(%q) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestTypeIsValid(t *testing.T) {
	if !TypeProposalVoted.IsValid() {
		t.Error("expected proposal.voted to be valid")
	}
	if Type("").IsValid() {
		t.Error("expected empty type to be invalid")
	}
	if Type("  ").IsValid() {
		t.Error("expected blank type to be invalid")
	}
}

func TestMarshalPayload(t *testing.T) {
	raw, err := MarshalPayload(ProposalVotedPayload{ProposalID: 7, InFavor: true})
	if err != nil {
		t.Fatalf("MarshalPayload: %v", err)
	}

	var decoded ProposalVotedPayload
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.ProposalID != 7 || !decoded.InFavor {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
}
