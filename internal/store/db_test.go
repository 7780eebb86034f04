package store

import (
	"errors"
	"testing"
	"time"

	"github.com/blackwell-systems/venvtrack/internal/apperr"
)

// newTestStore creates an in-memory store with the schema applied.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.CreateSchema(); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return s
}

func insertOp(t *testing.T, s *Store, kind string) int64 {
	t.Helper()
	id, err := s.InsertOperation(&Operation{
		Kind:      kind,
		Args:      kind + " six",
		Actor:     "dev@host",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("InsertOperation() failed: %v", err)
	}
	return id
}

func TestListOperations_NoSchema_ReturnsErrNotInitialized(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	// No CreateSchema call: simulates an uninitialized database.
	_, err = s.ListOperations(0)
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("ListOperations() error = %v; want ErrNotInitialized", err)
	}
}

func TestInsertOperation_IdsMonotonic(t *testing.T) {
	s := newTestStore(t)

	var prev int64
	for i := 0; i < 5; i++ {
		id := insertOp(t, s, "install")
		if id != prev+1 {
			t.Errorf("operation id = %d, want %d (gapless, strictly increasing)", id, prev+1)
		}
		prev = id
	}

	// Marking entries undone must not affect subsequent id allocation.
	if err := s.SetUndone(5, true); err != nil {
		t.Fatalf("SetUndone() failed: %v", err)
	}
	if id := insertOp(t, s, "batch"); id != 6 {
		t.Errorf("id after undo = %d, want 6 (ids are never reused)", id)
	}
}

func TestGetOperation(t *testing.T) {
	s := newTestStore(t)
	id := insertOp(t, s, "install")

	op, err := s.GetOperation(id)
	if err != nil {
		t.Fatalf("GetOperation() failed: %v", err)
	}
	if op.Kind != "install" || op.Actor != "dev@host" || op.Undone {
		t.Errorf("unexpected operation: %+v", op)
	}

	_, err = s.GetOperation(999)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing id error = %v, want ErrNotFound", err)
	}
}

func TestActiveOperations(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 4; i++ {
		insertOp(t, s, "install")
	}
	if err := s.SetUndone(4, true); err != nil {
		t.Fatalf("SetUndone() failed: %v", err)
	}

	ops, err := s.ActiveOperations(2)
	if err != nil {
		t.Fatalf("ActiveOperations() failed: %v", err)
	}
	if len(ops) != 2 || ops[0].ID != 3 || ops[1].ID != 2 {
		t.Errorf("ActiveOperations(2) = %v, want ids [3 2]", ops)
	}
}

func TestRedoStack(t *testing.T) {
	s := newTestStore(t)
	a := insertOp(t, s, "install")
	b := insertOp(t, s, "uninstall")

	if err := s.PushRedo(a); err != nil {
		t.Fatalf("PushRedo() failed: %v", err)
	}
	if err := s.PushRedo(b); err != nil {
		t.Fatalf("PushRedo() failed: %v", err)
	}

	if n, _ := s.RedoDepth(); n != 2 {
		t.Errorf("RedoDepth() = %d, want 2", n)
	}

	// LIFO order.
	if id, err := s.PopRedo(); err != nil || id != b {
		t.Errorf("PopRedo() = %d, %v; want %d", id, err, b)
	}
	if id, err := s.PopRedo(); err != nil || id != a {
		t.Errorf("PopRedo() = %d, %v; want %d", id, err, a)
	}
	if _, err := s.PopRedo(); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("empty stack error = %v, want ErrNotFound", err)
	}
}

func TestClearRedo(t *testing.T) {
	s := newTestStore(t)
	id := insertOp(t, s, "install")
	if err := s.PushRedo(id); err != nil {
		t.Fatalf("PushRedo() failed: %v", err)
	}
	if err := s.ClearRedo(); err != nil {
		t.Fatalf("ClearRedo() failed: %v", err)
	}
	if n, _ := s.RedoDepth(); n != 0 {
		t.Errorf("RedoDepth() after clear = %d, want 0", n)
	}
}

func TestNamedSnapshotRegistry(t *testing.T) {
	s := newTestStore(t)

	older := &NamedSnapshot{
		Name:          "base",
		CreatedAt:     time.Now().Add(-time.Hour),
		PackageCount:  3,
		PythonVersion: "Python 3.11.0",
		FilePath:      "/tmp/base.txt",
	}
	newer := &NamedSnapshot{
		Name:          "release",
		CreatedAt:     time.Now(),
		PackageCount:  5,
		PythonVersion: "Python 3.11.0",
		FilePath:      "/tmp/release.txt",
	}
	for _, ns := range []*NamedSnapshot{older, newer} {
		if err := s.UpsertNamedSnapshot(ns); err != nil {
			t.Fatalf("UpsertNamedSnapshot(%s) failed: %v", ns.Name, err)
		}
	}

	got, err := s.GetNamedSnapshot("base")
	if err != nil {
		t.Fatalf("GetNamedSnapshot() failed: %v", err)
	}
	if got.PackageCount != 3 || got.FilePath != "/tmp/base.txt" {
		t.Errorf("unexpected row: %+v", got)
	}

	snaps, err := s.ListNamedSnapshots()
	if err != nil {
		t.Fatalf("ListNamedSnapshots() failed: %v", err)
	}
	if len(snaps) != 2 || snaps[0].Name != "release" {
		t.Errorf("ListNamedSnapshots() = %v, want newest first", snaps)
	}

	if _, err := s.GetNamedSnapshot("ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing snapshot error = %v, want ErrNotFound", err)
	}
}

func TestCountOperationsSince(t *testing.T) {
	s := newTestStore(t)
	cutoff := time.Now().Add(-time.Minute)

	if _, err := s.InsertOperation(&Operation{Kind: "install", Args: "a", Actor: "x@y", CreatedAt: time.Now().Add(-time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.InsertOperation(&Operation{Kind: "install", Args: "b", Actor: "x@y", CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	n, err := s.CountOperationsSince(cutoff)
	if err != nil {
		t.Fatalf("CountOperationsSince() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("CountOperationsSince() = %d, want 1", n)
	}
}
