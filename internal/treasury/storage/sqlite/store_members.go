package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hearthvault/hearthvault/internal/treasury/domain"
	"github.com/hearthvault/hearthvault/internal/treasury/event"
	"github.com/hearthvault/hearthvault/internal/treasury/storage"
)

// AddMember inserts a membership and its audit event in one transaction.
// Adding an identity already in the family fails with ErrAlreadyExists.
func (s *Store) AddMember(ctx context.Context, member domain.Member, evt event.Event) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO members (family_id, identity, display_name, role, joined_at)
VALUES (?, ?, ?, ?, ?)`,
		member.FamilyID, member.Identity, member.DisplayName,
		member.Role.String(), toMillis(member.JoinedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert member: %w", err)
	}

	if _, err := appendEventTx(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit()
}

// GetMember returns one identity's membership in a family.
func (s *Store) GetMember(ctx context.Context, familyID int64, identity string) (domain.Member, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT family_id, identity, display_name, role, joined_at
FROM members WHERE family_id = ? AND identity = ?`, familyID, identity)
	return scanMember(row)
}

// RemoveMember deletes a membership and appends its audit event.
func (s *Store) RemoveMember(ctx context.Context, familyID int64, identity string, evt event.Event) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM members WHERE family_id = ? AND identity = ?`, familyID, identity)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete member rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	if _, err := appendEventTx(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit()
}

// SetMemberRole updates a membership's role and appends its audit event.
func (s *Store) SetMemberRole(ctx context.Context, familyID int64, identity string, role domain.Role, evt event.Event) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE members SET role = ? WHERE family_id = ? AND identity = ?`,
		role.String(), familyID, identity)
	if err != nil {
		return fmt.Errorf("update member role: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update member rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	if _, err := appendEventTx(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit()
}

// ListMembers returns a family's members, oldest first.
func (s *Store) ListMembers(ctx context.Context, familyID int64) ([]domain.Member, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT family_id, identity, display_name, role, joined_at
FROM members WHERE family_id = ?
ORDER BY joined_at, identity`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []domain.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

// CountMembers returns the number of members in a family.
func (s *Store) CountMembers(ctx context.Context, familyID int64) (int64, error) {
	var count int64
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM members WHERE family_id = ?`, familyID)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}

func scanMember(row rowScanner) (domain.Member, error) {
	var member domain.Member
	var role string
	var joinedAt int64
	err := row.Scan(&member.FamilyID, &member.Identity, &member.DisplayName, &role, &joinedAt)
	if err == sql.ErrNoRows {
		return domain.Member{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Member{}, fmt.Errorf("scan member: %w", err)
	}
	parsed, ok := domain.ParseRole(role)
	if !ok {
		return domain.Member{}, fmt.Errorf("unknown role %q", role)
	}
	member.Role = parsed
	member.JoinedAt = fromMillis(joinedAt)
	return member, nil
}
