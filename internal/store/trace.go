package store

import (
	"context"
	"fmt"

	"github.com/BoonLang/boon-sub001/internal/engine"
)

// AppendTrace writes a batch of firings to the trace log in one
// transaction. Order within the batch is preserved by insertion order.
func (s *Store) AppendTrace(ctx context.Context, program string, events []engine.TraceEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append trace: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trace_events (program, tick, node, kind, version, emitted)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("append trace: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, program, ev.Tick, ev.Node, ev.Kind, ev.Version, ev.Emitted); err != nil {
			return fmt.Errorf("append trace: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append trace: %w", err)
	}
	return nil
}

// TraceRange returns the firings of a program between fromTick and
// toTick inclusive, in (tick, insertion) order. A toTick of 0 means no
// upper bound.
func (s *Store) TraceRange(ctx context.Context, program string, fromTick, toTick int64) ([]engine.TraceEvent, error) {
	query := `
		SELECT tick, node, kind, version, emitted FROM trace_events
		WHERE program = ? AND tick >= ?
		ORDER BY tick ASC, id ASC
	`
	args := []any{program, fromTick}
	if toTick > 0 {
		query = `
			SELECT tick, node, kind, version, emitted FROM trace_events
			WHERE program = ? AND tick >= ? AND tick <= ?
			ORDER BY tick ASC, id ASC
		`
		args = append(args, toTick)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("trace range: %w", err)
	}
	defer rows.Close()

	var out []engine.TraceEvent
	for rows.Next() {
		var ev engine.TraceEvent
		if err := rows.Scan(&ev.Tick, &ev.Node, &ev.Kind, &ev.Version, &ev.Emitted); err != nil {
			return nil, fmt.Errorf("trace range: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trace range: %w", err)
	}
	return out, nil
}
