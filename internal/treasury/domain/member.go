package domain

import (
	"strings"
	"time"

	apperrors "github.com/hearthvault/hearthvault/internal/platform/errors"
)

// Role partitions family membership into spending-governance tiers.
// Parents manage membership and may veto proposals; children may propose
// and vote.
type Role int

const (
	// RoleUnspecified represents an invalid role value.
	RoleUnspecified Role = iota
	// RoleParent grants membership-management and veto rights.
	RoleParent
	// RoleChild grants proposal and voting rights only.
	RoleChild
)

// roleLabels maps roles to their wire labels.
var roleLabels = map[Role]string{
	RoleParent: "parent",
	RoleChild:  "child",
}

// String returns the wire label for the role.
func (r Role) String() string {
	if label, ok := roleLabels[r]; ok {
		return label
	}
	return "unspecified"
}

// IsValid reports whether the role is usable.
func (r Role) IsValid() bool {
	return r == RoleParent || r == RoleChild
}

// ParseRole resolves a wire label into a Role.
func ParseRole(label string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "parent":
		return RoleParent, true
	case "child":
		return RoleChild, true
	default:
		return RoleUnspecified, false
	}
}

// Member is one identity's membership in a family. Identity is unique
// within a family; the same identity may belong to many families.
type Member struct {
	FamilyID    int64
	Identity    string
	DisplayName string
	Role        Role
	JoinedAt    time.Time
}

// NewMemberInput describes the fields needed to add a member.
type NewMemberInput struct {
	FamilyID    int64
	Identity    string
	DisplayName string
	Role        Role
}

// NewMember validates input and builds a membership record.
func NewMember(input NewMemberInput, now func() time.Time) (Member, error) {
	if now == nil {
		now = time.Now
	}

	identity := strings.TrimSpace(input.Identity)
	if identity == "" {
		return Member{}, apperrors.New(apperrors.CodeInvalidIdentity, "member identity is required")
	}
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		return Member{}, apperrors.New(apperrors.CodeMemberNameEmpty, "member display name is required")
	}
	if !input.Role.IsValid() {
		return Member{}, apperrors.New(apperrors.CodeInvalidRole, "member role is required")
	}

	return Member{
		FamilyID:    input.FamilyID,
		Identity:    identity,
		DisplayName: displayName,
		Role:        input.Role,
		JoinedAt:    now().UTC(),
	}, nil
}
