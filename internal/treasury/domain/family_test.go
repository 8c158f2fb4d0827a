package domain

import (
	"testing"
	"time"

	apperrors "github.com/hearthvault/hearthvault/internal/platform/errors"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func staticID(value string) func() (string, error) {
	return func() (string, error) { return value, nil }
}

func TestNewFamily(t *testing.T) {
	createdAt := time.Date(2026, time.April, 10, 9, 0, 0, 0, time.UTC)

	family, err := NewFamily(NewFamilyInput{
		Name:            "  Smiths ",
		CreatorIdentity: "alice",
		CreatorName:     "Alice",
	}, fixedClock(createdAt), staticID("wallet-1"))
	if err != nil {
		t.Fatalf("new family: %v", err)
	}
	if family.Name != "Smiths" {
		t.Fatalf("expected trimmed name, got %q", family.Name)
	}
	if family.WalletAddress != "wallet-1" {
		t.Fatalf("expected wallet address, got %q", family.WalletAddress)
	}
	if !family.CreatedAt.Equal(createdAt) {
		t.Fatalf("unexpected creation time %v", family.CreatedAt)
	}
	if family.ID != 0 {
		t.Fatalf("expected zero id before storage assignment, got %d", family.ID)
	}
}

func TestNewFamilyValidation(t *testing.T) {
	now := fixedClock(time.Date(2026, time.April, 10, 9, 0, 0, 0, time.UTC))

	tests := []struct {
		name  string
		input NewFamilyInput
		code  apperrors.Code
	}{
		{"empty name", NewFamilyInput{CreatorIdentity: "alice", CreatorName: "Alice"}, apperrors.CodeFamilyNameEmpty},
		{"empty creator identity", NewFamilyInput{Name: "Smiths", CreatorName: "Alice"}, apperrors.CodeInvalidIdentity},
		{"empty creator name", NewFamilyInput{Name: "Smiths", CreatorIdentity: "alice"}, apperrors.CodeMemberNameEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFamily(tt.input, now, staticID("wallet-1"))
			if !apperrors.IsCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestNewMember(t *testing.T) {
	joinedAt := time.Date(2026, time.April, 10, 9, 30, 0, 0, time.UTC)

	member, err := NewMember(NewMemberInput{
		FamilyID:    7,
		Identity:    " bob ",
		DisplayName: "Bob",
		Role:        RoleChild,
	}, fixedClock(joinedAt))
	if err != nil {
		t.Fatalf("new member: %v", err)
	}
	if member.Identity != "bob" {
		t.Fatalf("expected trimmed identity, got %q", member.Identity)
	}
	if member.Role != RoleChild {
		t.Fatalf("expected child role, got %v", member.Role)
	}
	if !member.JoinedAt.Equal(joinedAt) {
		t.Fatalf("unexpected join time %v", member.JoinedAt)
	}
}

func TestNewMemberValidation(t *testing.T) {
	now := fixedClock(time.Date(2026, time.April, 10, 9, 30, 0, 0, time.UTC))

	tests := []struct {
		name  string
		input NewMemberInput
		code  apperrors.Code
	}{
		{"empty identity", NewMemberInput{DisplayName: "Bob", Role: RoleChild}, apperrors.CodeInvalidIdentity},
		{"empty display name", NewMemberInput{Identity: "bob", Role: RoleChild}, apperrors.CodeMemberNameEmpty},
		{"invalid role", NewMemberInput{Identity: "bob", DisplayName: "Bob"}, apperrors.CodeInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMember(tt.input, now)
			if !apperrors.IsCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	if role, ok := ParseRole(" Parent "); !ok || role != RoleParent {
		t.Fatalf("expected parent, got %v %v", role, ok)
	}
	if role, ok := ParseRole("child"); !ok || role != RoleChild {
		t.Fatalf("expected child, got %v %v", role, ok)
	}
	if _, ok := ParseRole("guardian"); ok {
		t.Fatal("expected unknown label to fail")
	}
}
