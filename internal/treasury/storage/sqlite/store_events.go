package sqlite

import (
	"context"
	"fmt"

	"github.com/hearthvault/hearthvault/internal/treasury/event"
)

// AppendEvent appends a standalone audit event and returns it with its
// assigned sequence number.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	appended, err := appendEventTx(ctx, tx, evt)
	if err != nil {
		return event.Event{}, err
	}
	if err := tx.Commit(); err != nil {
		return event.Event{}, fmt.Errorf("commit: %w", err)
	}
	return appended, nil
}

// ListEvents returns events with Seq greater than afterSeq, oldest first. A
// limit of zero or less means no limit.
func (s *Store) ListEvents(ctx context.Context, familyID, afterSeq int64, limit int) ([]event.Event, error) {
	query := `
SELECT family_id, seq, timestamp, type, actor, entity_type, entity_id, payload
FROM events WHERE family_id = ? AND seq > ?
ORDER BY seq`
	args := []any{familyID, afterSeq}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var evt event.Event
		var timestamp int64
		var typ, payload string
		if err := rows.Scan(&evt.FamilyID, &evt.Seq, &timestamp, &typ,
			&evt.Actor, &evt.EntityType, &evt.EntityID, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Timestamp = fromMillis(timestamp)
		evt.Type = event.Type(typ)
		evt.PayloadJSON = []byte(payload)
		events = append(events, evt)
	}
	return events, rows.Err()
}
