package service

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/hearthvault/hearthvault/internal/platform/errors"
	"github.com/hearthvault/hearthvault/internal/treasury/domain"
	"github.com/hearthvault/hearthvault/internal/treasury/event"
	"github.com/hearthvault/hearthvault/internal/treasury/storage"
)

// AddMemberInput describes a membership addition request.
type AddMemberInput struct {
	FamilyID    int64
	Identity    string
	DisplayName string
	Role        domain.Role
}

// AddMember adds an identity to a family. Parent-only.
func (s *Service) AddMember(ctx context.Context, input AddMemberInput) (domain.Member, error) {
	caller, err := s.caller(ctx)
	if err != nil {
		return domain.Member{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireFamily(ctx, input.FamilyID); err != nil {
		return domain.Member{}, err
	}
	if _, err := s.requireParent(ctx, input.FamilyID, caller); err != nil {
		return domain.Member{}, err
	}

	now := s.now()
	member, err := domain.NewMember(domain.NewMemberInput{
		FamilyID:    input.FamilyID,
		Identity:    input.Identity,
		DisplayName: input.DisplayName,
		Role:        input.Role,
	}, func() time.Time { return now })
	if err != nil {
		return domain.Member{}, err
	}

	evt, err := newEvent(input.FamilyID, event.TypeMemberAdded, caller, "member",
		member.Identity, event.MemberAddedPayload{
			Identity:    member.Identity,
			DisplayName: member.DisplayName,
			Role:        member.Role.String(),
		}, now)
	if err != nil {
		return domain.Member{}, err
	}

	if err := s.store.AddMember(ctx, member, evt); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return domain.Member{}, apperrors.New(apperrors.CodeAlreadyMember, "identity is already a member")
		}
		return domain.Member{}, apperrors.Wrap(apperrors.CodeInternal, "add member", err)
	}

	s.logger.Info("member added", "family_id", input.FamilyID, "identity", member.Identity, "role", member.Role.String())
	s.publish(evt)
	return member, nil
}

// RemoveMember removes an identity from a family. Parent-only. The family
// creator can never be removed; recorded votes survive removal.
func (s *Service) RemoveMember(ctx context.Context, familyID int64, identity string) error {
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

	identity = strings.TrimSpace(identity)
	if identity == family.CreatorIdentity {
		return apperrors.New(apperrors.CodeCannotRemoveCreator, "family creator cannot be removed")
	}
	if _, err := s.store.GetMember(ctx, familyID, identity); err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return apperrors.New(apperrors.CodeNotAMember, "identity is not a member")
		}
		return apperrors.Wrap(apperrors.CodeInternal, "load member", err)
	}

	evt, err := newEvent(familyID, event.TypeMemberRemoved, caller, "member",
		identity, event.MemberRemovedPayload{Identity: identity}, s.now())
	if err != nil {
		return err
	}

	if err := s.store.RemoveMember(ctx, familyID, identity, evt); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "remove member", err)
	}

	s.logger.Info("member removed", "family_id", familyID, "identity", identity)
	s.publish(evt)
	return nil
}

// SetMemberRole changes a member's role. Parent-only; self-demotion is
// allowed.
func (s *Service) SetMemberRole(ctx context.Context, familyID int64, identity string, role domain.Role) error {
	caller, err := s.caller(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireFamily(ctx, familyID); err != nil {
		return err
	}
	if _, err := s.requireParent(ctx, familyID, caller); err != nil {
		return err
	}
	if !role.IsValid() {
		return apperrors.New(apperrors.CodeInvalidRole, "role is invalid")
	}

	identity = strings.TrimSpace(identity)
	member, err := s.store.GetMember(ctx, familyID, identity)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return apperrors.New(apperrors.CodeNotAMember, "identity is not a member")
		}
		return apperrors.Wrap(apperrors.CodeInternal, "load member", err)
	}
	if member.Role == role {
		return nil
	}

	evt, err := newEvent(familyID, event.TypeMemberRoleChanged, caller, "member",
		identity, event.MemberRoleChangedPayload{
			Identity: identity,
			OldRole:  member.Role.String(),
			NewRole:  role.String(),
		}, s.now())
	if err != nil {
		return err
	}

	if err := s.store.SetMemberRole(ctx, familyID, identity, role, evt); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "set member role", err)
	}

	s.logger.Info("member role changed", "family_id", familyID, "identity", identity, "role", role.String())
	s.publish(evt)
	return nil
}

// ListFamilyMembers returns a family's members. Member-only.
func (s *Service) ListFamilyMembers(ctx context.Context, familyID int64) ([]domain.Member, error) {
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

	members, err := s.store.ListMembers(ctx, familyID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "list members", err)
	}
	return members, nil
}
