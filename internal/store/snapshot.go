package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BoonLang/boon-sub001/internal/engine"
)

// ErrNoSnapshot is returned when no snapshot exists for a program.
var ErrNoSnapshot = errors.New("no snapshot recorded")

// SnapshotInfo describes one stored snapshot without its state blob.
type SnapshotInfo struct {
	Tick      int64
	CreatedAt string
}

// SaveSnapshot persists a quiescent engine state under a program name.
// Writing the same (program, tick) twice replaces the earlier capture:
// a re-run of a deterministic program produces the same state anyway.
func (s *Store) SaveSnapshot(ctx context.Context, program string, snap *engine.Snapshot) error {
	state, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (program, tick, state)
		VALUES (?, ?, ?)
		ON CONFLICT(program, tick) DO UPDATE SET state = excluded.state
	`, program, snap.Tick, state)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	return nil
}

// LatestSnapshot loads the most recent snapshot for a program.
// Returns ErrNoSnapshot if the program has never been captured.
func (s *Store) LatestSnapshot(ctx context.Context, program string) (*engine.Snapshot, error) {
	return s.loadSnapshot(ctx, `
		SELECT state FROM snapshots
		WHERE program = ?
		ORDER BY tick DESC, id DESC
		LIMIT 1
	`, program)
}

// SnapshotAt loads the snapshot captured at an exact tick.
func (s *Store) SnapshotAt(ctx context.Context, program string, tick int64) (*engine.Snapshot, error) {
	return s.loadSnapshot(ctx, `
		SELECT state FROM snapshots
		WHERE program = ? AND tick = ?
	`, program, tick)
}

func (s *Store) loadSnapshot(ctx context.Context, query string, args ...any) (*engine.Snapshot, error) {
	var state []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap engine.Snapshot
	if err := json.Unmarshal(state, &snap); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return &snap, nil
}

// ListSnapshots returns the stored snapshots for a program, oldest first.
func (s *Store) ListSnapshots(ctx context.Context, program string) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tick, created_at FROM snapshots
		WHERE program = ?
		ORDER BY tick ASC, id ASC
	`, program)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.Tick, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return out, nil
}

// PruneSnapshots keeps the newest keep snapshots of a program and deletes
// the rest. Returns the number of rows removed.
func (s *Store) PruneSnapshots(ctx context.Context, program string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE program = ? AND id NOT IN (
			SELECT id FROM snapshots
			WHERE program = ?
			ORDER BY tick DESC, id DESC
			LIMIT ?
		)
	`, program, program, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return n, nil
}
