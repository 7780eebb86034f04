package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/blackwell-systems/venvtrack/internal/apperr"
)

// Operation index

// InsertOperation appends one operation row and returns its id. Ids are
// allocated by SQLite AUTOINCREMENT: strictly increasing, gapless under
// append-only use, and never reused.
func (s *Store) InsertOperation(op *Operation) (int64, error) {
	query := `
		INSERT INTO operations (kind, args, actor, created_at, undone, before_count, after_count)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`
	res, err := s.db.Exec(query,
		op.Kind,
		op.Args,
		op.Actor,
		op.CreatedAt.UTC().Format(time.RFC3339Nano),
		op.BeforeCount,
		op.AfterCount,
	)
	if err != nil {
		return 0, wrapErr("failed to insert operation", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read operation id: %w", err)
	}
	return id, nil
}

// GetOperation retrieves one operation by id.
func (s *Store) GetOperation(id int64) (*Operation, error) {
	row := s.db.QueryRow(`
		SELECT id, kind, args, actor, created_at, undone, before_count, after_count
		FROM operations WHERE id = ?
	`, id)
	op, err := scanOperation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("operation %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("failed to get operation %d", id), err)
	}
	return op, nil
}

// ListOperations returns operations ordered oldest-first (most-recent-last).
// limit 0 means no limit; a positive limit keeps the newest entries.
func (s *Store) ListOperations(limit int) ([]*Operation, error) {
	query := `
		SELECT id, kind, args, actor, created_at, undone, before_count, after_count
		FROM operations ORDER BY id
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, wrapErr("failed to list operations", err)
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		op, err := scanOperation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operations: %w", err)
	}
	if limit > 0 && len(ops) > limit {
		ops = ops[len(ops)-limit:]
	}
	return ops, nil
}

// ActiveOperations returns the not-yet-undone operations, newest first,
// capped at limit (0 = all). These are the entries undo walks.
func (s *Store) ActiveOperations(limit int) ([]*Operation, error) {
	query := `
		SELECT id, kind, args, actor, created_at, undone, before_count, after_count
		FROM operations WHERE undone = 0 ORDER BY id DESC
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, wrapErr("failed to list active operations", err)
	}
	defer rows.Close()

	var ops []*Operation
	for rows.Next() {
		op, err := scanOperation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		ops = append(ops, op)
		if limit > 0 && len(ops) == limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate operations: %w", err)
	}
	return ops, nil
}

// SetUndone flags or unflags an operation as undone.
func (s *Store) SetUndone(id int64, undone bool) error {
	res, err := s.db.Exec(`UPDATE operations SET undone = ? WHERE id = ?`, undone, id)
	if err != nil {
		return wrapErr(fmt.Sprintf("failed to mark operation %d", id), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of operation %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("operation %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// CountOperationsSince returns how many operations were recorded strictly
// after t. Used by the snapshot-reminder heuristic.
func (s *Store) CountOperationsSince(t time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM operations WHERE created_at > ?`,
		t.UTC().Format(time.RFC3339Nano),
	).Scan(&n)
	if err != nil {
		return 0, wrapErr("failed to count operations", err)
	}
	return n, nil
}

func scanOperation(scan func(dest ...any) error) (*Operation, error) {
	var op Operation
	var createdAt string
	if err := scan(&op.ID, &op.Kind, &op.Args, &op.Actor, &createdAt, &op.Undone, &op.BeforeCount, &op.AfterCount); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
	}
	op.CreatedAt = t
	return &op, nil
}

// Redo stack

// PushRedo records an undone operation as redoable.
func (s *Store) PushRedo(operationID int64) error {
	if _, err := s.db.Exec(`INSERT INTO redo_stack (operation_id) VALUES (?)`, operationID); err != nil {
		return wrapErr("failed to push redo entry", err)
	}
	return nil
}

// PopRedo removes and returns the most recently pushed redoable operation.
// An empty stack is apperr.ErrNotFound.
func (s *Store) PopRedo() (int64, error) {
	var pos, opID int64
	err := s.db.QueryRow(
		`SELECT position, operation_id FROM redo_stack ORDER BY position DESC LIMIT 1`,
	).Scan(&pos, &opID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("redo stack empty: %w", apperr.ErrNotFound)
	}
	if err != nil {
		return 0, wrapErr("failed to read redo stack", err)
	}
	if _, err := s.db.Exec(`DELETE FROM redo_stack WHERE position = ?`, pos); err != nil {
		return 0, wrapErr("failed to pop redo entry", err)
	}
	return opID, nil
}

// PeekRedo returns up to n redoable operation ids in pop order (most
// recently pushed first) without removing them. n <= 0 means all.
func (s *Store) PeekRedo(n int) ([]int64, error) {
	rows, err := s.db.Query(`SELECT operation_id FROM redo_stack ORDER BY position DESC`)
	if err != nil {
		return nil, wrapErr("failed to read redo stack", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan redo entry: %w", err)
		}
		ids = append(ids, id)
		if n > 0 && len(ids) == n {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate redo stack: %w", err)
	}
	return ids, nil
}

// ClearRedo empties the redo stack. Any new mutating operation calls this,
// since redo validity depends on an unbroken chain back to current state.
func (s *Store) ClearRedo() error {
	if _, err := s.db.Exec(`DELETE FROM redo_stack`); err != nil {
		return wrapErr("failed to clear redo stack", err)
	}
	return nil
}

// RedoDepth returns the number of redoable operations.
func (s *Store) RedoDepth() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM redo_stack`).Scan(&n); err != nil {
		return 0, wrapErr("failed to count redo stack", err)
	}
	return n, nil
}

// Named snapshot registry

// UpsertNamedSnapshot inserts or replaces a named snapshot registry row.
func (s *Store) UpsertNamedSnapshot(ns *NamedSnapshot) error {
	query := `
		INSERT OR REPLACE INTO named_snapshots (name, created_at, package_count, python_version, file_path)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		ns.Name,
		ns.CreatedAt.UTC().Format(time.RFC3339Nano),
		ns.PackageCount,
		ns.PythonVersion,
		ns.FilePath,
	)
	if err != nil {
		return wrapErr(fmt.Sprintf("failed to upsert snapshot %s", ns.Name), err)
	}
	return nil
}

// GetNamedSnapshot retrieves one registry row by name.
func (s *Store) GetNamedSnapshot(name string) (*NamedSnapshot, error) {
	row := s.db.QueryRow(`
		SELECT name, created_at, package_count, python_version, file_path
		FROM named_snapshots WHERE name = ?
	`, name)
	ns, err := scanNamedSnapshot(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot %q: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr(fmt.Sprintf("failed to get snapshot %s", name), err)
	}
	return ns, nil
}

// ListNamedSnapshots returns all registry rows, newest first.
func (s *Store) ListNamedSnapshots() ([]*NamedSnapshot, error) {
	rows, err := s.db.Query(`
		SELECT name, created_at, package_count, python_version, file_path
		FROM named_snapshots ORDER BY created_at DESC, name
	`)
	if err != nil {
		return nil, wrapErr("failed to list snapshots", err)
	}
	defer rows.Close()

	var snaps []*NamedSnapshot
	for rows.Next() {
		ns, err := scanNamedSnapshot(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, ns)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}
	return snaps, nil
}

func scanNamedSnapshot(scan func(dest ...any) error) (*NamedSnapshot, error) {
	var ns NamedSnapshot
	var createdAt string
	if err := scan(&ns.Name, &createdAt, &ns.PackageCount, &ns.PythonVersion, &ns.FilePath); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
	}
	ns.CreatedAt = t
	return &ns, nil
}
