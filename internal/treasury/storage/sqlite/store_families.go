package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hearthvault/hearthvault/internal/treasury/domain"
	"github.com/hearthvault/hearthvault/internal/treasury/event"
	"github.com/hearthvault/hearthvault/internal/treasury/storage"
)

// CreateFamily inserts the family, its creator membership, and the creation
// event in one transaction. The assigned family ID is returned.
func (s *Store) CreateFamily(ctx context.Context, family domain.Family, creator domain.Member, evt event.Event) (domain.Family, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Family{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
INSERT INTO families (name, creator_identity, creator_name, wallet_address, created_at)
VALUES (?, ?, ?, ?, ?)`,
		family.Name, family.CreatorIdentity, family.CreatorName,
		family.WalletAddress, toMillis(family.CreatedAt))
	if err != nil {
		return domain.Family{}, fmt.Errorf("insert family: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Family{}, fmt.Errorf("family id: %w", err)
	}
	family.ID = id
	creator.FamilyID = id
	evt.FamilyID = id
	evt.EntityID = fmt.Sprintf("%d", id)

	if _, err := tx.ExecContext(ctx, `
INSERT INTO members (family_id, identity, display_name, role, joined_at)
VALUES (?, ?, ?, ?, ?)`,
		creator.FamilyID, creator.Identity, creator.DisplayName,
		creator.Role.String(), toMillis(creator.JoinedAt)); err != nil {
		return domain.Family{}, fmt.Errorf("insert creator member: %w", err)
	}

	if _, err := appendEventTx(ctx, tx, evt); err != nil {
		return domain.Family{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Family{}, fmt.Errorf("commit: %w", err)
	}
	return family, nil
}

// GetFamily returns a family by ID.
func (s *Store) GetFamily(ctx context.Context, familyID int64) (domain.Family, error) {
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, name, creator_identity, creator_name, wallet_address, created_at
FROM families WHERE id = ?`, familyID)
	return scanFamily(row)
}

// DeleteFamily removes the family and its members, proposals, and votes in
// one transaction. The deletion event becomes the journal's final entry.
func (s *Store) DeleteFamily(ctx context.Context, familyID int64, evt event.Event) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM families WHERE id = ?`, familyID)
	if err != nil {
		return fmt.Errorf("delete family: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete family rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE family_id = ?`, familyID); err != nil {
		return fmt.Errorf("delete votes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM proposals WHERE family_id = ?`, familyID); err != nil {
		return fmt.Errorf("delete proposals: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM members WHERE family_id = ?`, familyID); err != nil {
		return fmt.Errorf("delete members: %w", err)
	}

	if _, err := appendEventTx(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit()
}

// ListFamiliesByIdentity returns the families the identity belongs to,
// oldest first.
func (s *Store) ListFamiliesByIdentity(ctx context.Context, identity string) ([]domain.Family, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT f.id, f.name, f.creator_identity, f.creator_name, f.wallet_address, f.created_at
FROM families f
JOIN members m ON m.family_id = f.id
WHERE m.identity = ?
ORDER BY f.id`, identity)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	defer rows.Close()

	var families []domain.Family
	for rows.Next() {
		family, err := scanFamily(rows)
		if err != nil {
			return nil, err
		}
		families = append(families, family)
	}
	return families, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFamily(row rowScanner) (domain.Family, error) {
	var family domain.Family
	var createdAt int64
	err := row.Scan(&family.ID, &family.Name, &family.CreatorIdentity,
		&family.CreatorName, &family.WalletAddress, &createdAt)
	if err == sql.ErrNoRows {
		return domain.Family{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Family{}, fmt.Errorf("scan family: %w", err)
	}
	family.CreatedAt = fromMillis(createdAt)
	return family, nil
}
