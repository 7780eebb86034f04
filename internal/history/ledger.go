// Package history implements the append-only operation ledger. Every
// mutating command brackets its installer invocation with a before and an
// after capture and records them here exactly once.
//
// Each entry is persisted as a pair of self-contained JSON files,
// NNNNNN_before.json and NNNNNN_after.json, written staged-then-renamed.
// The SQLite index allocates ids and serves listings; the files remain the
// source of truth and are never patched after the fact.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/blackwell-systems/venvtrack/internal/fsutil"
	"github.com/blackwell-systems/venvtrack/internal/snapshot"
	"github.com/blackwell-systems/venvtrack/internal/store"
)

// Kind classifies a mutating operation.
type Kind string

const (
	KindInstall   Kind = "install"
	KindUninstall Kind = "uninstall"
	KindUpgrade   Kind = "upgrade"
	KindBatch     Kind = "batch"
)

// Entry is one ledger record: what ran, who ran it, and the environment
// state on both sides of the run.
type Entry struct {
	ID        int64              `json:"id"`
	Kind      Kind               `json:"kind"`
	Args      []string           `json:"args"`
	Actor     string             `json:"actor"` // user@host
	Timestamp time.Time          `json:"timestamp"`
	Before    *snapshot.Snapshot `json:"before,omitempty"`
	After     *snapshot.Snapshot `json:"after,omitempty"`
	Undone    bool               `json:"-"`
}

// phaseRecord is the on-disk shape of one entry file. Both phases repeat
// the operation metadata so each file stands alone.
type phaseRecord struct {
	ID        int64              `json:"id"`
	Kind      Kind               `json:"kind"`
	Args      []string           `json:"args"`
	Actor     string             `json:"actor"`
	Timestamp time.Time          `json:"timestamp"`
	Phase     string             `json:"phase"` // "before" or "after"
	Snapshot  *snapshot.Snapshot `json:"snapshot"`
}

// Ledger owns the history directory and its index.
type Ledger struct {
	dir string
	st  *store.Store
}

// New returns a Ledger over dir, indexed by st.
func New(dir string, st *store.Store) *Ledger {
	return &Ledger{dir: dir, st: st}
}

// Record appends one entry and returns its operation id. The entry
// reflects what actually changed, not what was requested: callers pass
// the after-capture even when the underlying installer failed partway.
func (l *Ledger) Record(before, after *snapshot.Snapshot, kind Kind, args []string, actor string) (int64, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create history directory: %w", err)
	}

	now := time.Now().UTC()
	id, err := l.st.InsertOperation(&store.Operation{
		Kind:        string(kind),
		Args:        joinArgs(args),
		Actor:       actor,
		CreatedAt:   now,
		BeforeCount: len(before.Packages),
		AfterCount:  len(after.Packages),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to index operation: %w", err)
	}

	for _, phase := range []struct {
		name string
		snap *snapshot.Snapshot
	}{
		{"before", before},
		{"after", after},
	} {
		rec := phaseRecord{
			ID:        id,
			Kind:      kind,
			Args:      args,
			Actor:     actor,
			Timestamp: now,
			Phase:     phase.name,
			Snapshot:  phase.snap,
		}
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return 0, fmt.Errorf("failed to marshal %s record: %w", phase.name, err)
		}
		path := l.entryFile(id, phase.name)
		if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
			return 0, fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return id, nil
}

// entryFile returns the path of one phase file; the name embeds the
// operation id and phase.
func (l *Ledger) entryFile(id int64, phase string) string {
	return filepath.Join(l.dir, fmt.Sprintf("%06d_%s.json", id, phase))
}

// Get loads one full entry by operation id.
func (l *Ledger) Get(id int64) (*Entry, error) {
	op, err := l.st.GetOperation(id)
	if err != nil {
		return nil, err
	}
	return l.hydrate(op, false)
}

// List returns entries ordered most-recent-last, capped at limit (0 = all).
// The read is lock-free: an entry whose files are still being written by a
// concurrent mutation comes back with its snapshots nil rather than
// failing the listing.
func (l *Ledger) List(limit int) ([]*Entry, error) {
	ops, err := l.st.ListOperations(limit)
	if err != nil {
		return nil, err
	}
	entries := make([]*Entry, 0, len(ops))
	for _, op := range ops {
		e, err := l.hydrate(op, true)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Active returns the not-yet-undone entries, newest first, capped at n
// (0 = all). This is the sequence undo walks.
func (l *Ledger) Active(n int) ([]*Entry, error) {
	ops, err := l.st.ActiveOperations(n)
	if err != nil {
		return nil, err
	}
	entries := make([]*Entry, 0, len(ops))
	for _, op := range ops {
		e, err := l.hydrate(op, false)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Latest returns the newest entry, or nil when the ledger is empty.
func (l *Ledger) Latest() (*Entry, error) {
	ops, err := l.st.ListOperations(1)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, nil
	}
	return l.hydrate(ops[0], false)
}

// hydrate attaches the snapshot files to an indexed operation. With
// tolerant set, unreadable phase files are left nil instead of failing;
// strict loads are for undo/redo, which cannot work from partial data.
func (l *Ledger) hydrate(op *store.Operation, tolerant bool) (*Entry, error) {
	e := &Entry{
		ID:        op.ID,
		Kind:      Kind(op.Kind),
		Actor:     op.Actor,
		Timestamp: op.CreatedAt,
		Undone:    op.Undone,
	}

	for _, phase := range []string{"before", "after"} {
		rec, err := l.readPhase(op.ID, phase)
		if err != nil {
			if tolerant {
				continue
			}
			return nil, err
		}
		e.Args = rec.Args
		if phase == "before" {
			e.Before = rec.Snapshot
		} else {
			e.After = rec.Snapshot
		}
	}
	return e, nil
}

func (l *Ledger) readPhase(id int64, phase string) (*phaseRecord, error) {
	path := l.entryFile(id, phase)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var rec phaseRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &rec, nil
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}

// Actor returns the current actor identity in user@host form.
func Actor() string {
	username := "unknown"
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	return username + "@" + host
}
