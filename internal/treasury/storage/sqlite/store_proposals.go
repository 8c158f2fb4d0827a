package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hearthvault/hearthvault/internal/treasury/domain"
	"github.com/hearthvault/hearthvault/internal/treasury/event"
	"github.com/hearthvault/hearthvault/internal/treasury/storage"
)

// CreateProposal inserts the proposal and its creation event in one
// transaction. The assigned proposal ID is returned.
func (s *Store) CreateProposal(ctx context.Context, proposal domain.Proposal, evt event.Event) (domain.Proposal, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Proposal{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
INSERT INTO proposals (family_id, proposer, title, description, amount, recipient,
    votes_for, votes_against, created_at, voting_deadline, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		proposal.FamilyID, proposal.Proposer, proposal.Title, proposal.Description,
		proposal.Amount, proposal.Recipient, proposal.VotesFor, proposal.VotesAgainst,
		toMillis(proposal.CreatedAt), toMillis(proposal.VotingDeadline),
		proposal.Status.String())
	if err != nil {
		return domain.Proposal{}, fmt.Errorf("insert proposal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Proposal{}, fmt.Errorf("proposal id: %w", err)
	}
	proposal.ID = id
	evt.EntityID = fmt.Sprintf("%d", id)

	if _, err := appendEventTx(ctx, tx, evt); err != nil {
		return domain.Proposal{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Proposal{}, fmt.Errorf("commit: %w", err)
	}
	return proposal, nil
}

// GetProposal returns a proposal scoped to its family.
func (s *Store) GetProposal(ctx context.Context, familyID, proposalID int64) (domain.Proposal, error) {
	row := s.sqlDB.QueryRowContext(ctx, proposalSelect+
		` WHERE family_id = ? AND id = ?`, familyID, proposalID)
	return scanProposal(row)
}

// RecordVote inserts the ballot, bumps the tally, appends the audit event,
// and returns the updated proposal, all in one transaction. A repeat ballot
// fails with ErrAlreadyExists.
func (s *Store) RecordVote(ctx context.Context, vote storage.Vote, evt event.Event) (domain.Proposal, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Proposal{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inFavor := 0
	if vote.InFavor {
		inFavor = 1
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO votes (proposal_id, family_id, identity, in_favor, voted_at)
VALUES (?, ?, ?, ?, ?)`,
		vote.ProposalID, vote.FamilyID, vote.Identity, inFavor, toMillis(vote.VotedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Proposal{}, storage.ErrAlreadyExists
		}
		return domain.Proposal{}, fmt.Errorf("insert vote: %w", err)
	}

	column := "votes_against"
	if vote.InFavor {
		column = "votes_for"
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE proposals SET `+column+` = `+column+` + 1 WHERE id = ?`,
		vote.ProposalID); err != nil {
		return domain.Proposal{}, fmt.Errorf("update tally: %w", err)
	}

	if _, err := appendEventTx(ctx, tx, evt); err != nil {
		return domain.Proposal{}, err
	}

	row := tx.QueryRowContext(ctx, proposalSelect+` WHERE id = ?`, vote.ProposalID)
	proposal, err := scanProposal(row)
	if err != nil {
		return domain.Proposal{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Proposal{}, fmt.Errorf("commit: %w", err)
	}
	return proposal, nil
}

// SetProposalStatus transitions the proposal and appends the given audit
// events in the same transaction, returning the updated proposal.
func (s *Store) SetProposalStatus(ctx context.Context, familyID, proposalID int64, status domain.Status, evts ...event.Event) (domain.Proposal, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Proposal{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE proposals SET status = ? WHERE family_id = ? AND id = ?`,
		status.String(), familyID, proposalID)
	if err != nil {
		return domain.Proposal{}, fmt.Errorf("update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Proposal{}, fmt.Errorf("update status rows: %w", err)
	}
	if affected == 0 {
		return domain.Proposal{}, storage.ErrNotFound
	}

	for _, evt := range evts {
		if _, err := appendEventTx(ctx, tx, evt); err != nil {
			return domain.Proposal{}, err
		}
	}

	row := tx.QueryRowContext(ctx, proposalSelect+` WHERE id = ?`, proposalID)
	proposal, err := scanProposal(row)
	if err != nil {
		return domain.Proposal{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.Proposal{}, fmt.Errorf("commit: %w", err)
	}
	return proposal, nil
}

// ListProposals returns a family's proposals, oldest first.
func (s *Store) ListProposals(ctx context.Context, familyID int64) ([]domain.Proposal, error) {
	rows, err := s.sqlDB.QueryContext(ctx, proposalSelect+
		` WHERE family_id = ? ORDER BY id`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	var proposals []domain.Proposal
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, proposal)
	}
	return proposals, rows.Err()
}

const proposalSelect = `
SELECT id, family_id, proposer, title, description, amount, recipient,
    votes_for, votes_against, created_at, voting_deadline, status
FROM proposals`

func scanProposal(row rowScanner) (domain.Proposal, error) {
	var proposal domain.Proposal
	var createdAt, votingDeadline int64
	var status string
	err := row.Scan(&proposal.ID, &proposal.FamilyID, &proposal.Proposer,
		&proposal.Title, &proposal.Description, &proposal.Amount, &proposal.Recipient,
		&proposal.VotesFor, &proposal.VotesAgainst, &createdAt, &votingDeadline, &status)
	if err == sql.ErrNoRows {
		return domain.Proposal{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Proposal{}, fmt.Errorf("scan proposal: %w", err)
	}
	parsed, ok := domain.ParseStatus(status)
	if !ok {
		return domain.Proposal{}, fmt.Errorf("unknown status %q", status)
	}
	proposal.Status = parsed
	proposal.CreatedAt = fromMillis(createdAt)
	proposal.VotingDeadline = fromMillis(votingDeadline)
	return proposal, nil
}
