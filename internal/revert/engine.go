// Package revert computes and applies the corrective plans behind undo
// and redo. Plans are computed against a fresh capture of the live
// environment; if that capture disagrees with the ledger's expectation
// the engine refuses to act rather than mutate state it cannot explain.
package revert

import (
	"context"
	"fmt"
	"strings"

	"github.com/blackwell-systems/venvtrack/internal/apperr"
	"github.com/blackwell-systems/venvtrack/internal/history"
	"github.com/blackwell-systems/venvtrack/internal/pip"
	"github.com/blackwell-systems/venvtrack/internal/snapshot"
	"github.com/blackwell-systems/venvtrack/internal/store"
)

// Action is one corrective installer call.
type Action struct {
	Uninstall bool
	Name      string
	Version   string // install target version; empty for uninstalls
}

func (a Action) String() string {
	if a.Uninstall {
		return "uninstall " + a.Name
	}
	if a.Version == "" {
		return "install " + a.Name
	}
	return fmt.Sprintf("install %s==%s", a.Name, a.Version)
}

// Step is the corrective action set for one ledger entry.
type Step struct {
	OperationID int64
	Kind        history.Kind
	Args        []string
	Actions     []Action
}

// Plan is an ordered sequence of steps plus the live state it was
// computed against. Steps are applied in order; for undo that means
// newest entry first, walking backward through time.
type Plan struct {
	Redo  bool
	Steps []Step
	// Live is the capture the drift check validated; applying the plan
	// to Live yields the target state.
	Live *snapshot.Snapshot
}

// Empty reports whether the plan does nothing.
func (p *Plan) Empty() bool { return len(p.Steps) == 0 }

// Actions returns the flattened action count.
func (p *Plan) Actions() int {
	n := 0
	for _, s := range p.Steps {
		n += len(s.Actions)
	}
	return n
}

// Engine wires the ledger, its index, the snapshotter, and the installer.
type Engine struct {
	Ledger      *history.Ledger
	Store       *store.Store
	Snapshotter *snapshot.Snapshotter
	Installer   pip.Installer
}

// PlanUndo computes the plan that reverts the last n not-yet-undone
// operations. An empty ledger yields an empty plan and no error.
func (e *Engine) PlanUndo(ctx context.Context, n int) (*Plan, error) {
	entries, err := e.Ledger.Active(n)
	if err != nil {
		return nil, err
	}
	plan := &Plan{}
	if len(entries) == 0 {
		return plan, nil
	}

	live, err := e.checkDrift(ctx)
	if err != nil {
		return nil, err
	}
	plan.Live = live

	// Newest entry first: entry N is undone before entry N-1 so every
	// intermediate state matches a state the ledger has seen.
	for _, entry := range entries {
		plan.Steps = append(plan.Steps, Step{
			OperationID: entry.ID,
			Kind:        entry.Kind,
			Args:        entry.Args,
			Actions:     diffActions(entry.After, entry.Before),
		})
	}
	return plan, nil
}

// PlanRedo computes the plan that reapplies up to n undone operations
// from the redo stack, oldest undone first.
func (e *Engine) PlanRedo(ctx context.Context, n int) (*Plan, error) {
	ids, err := e.Store.PeekRedo(n)
	if err != nil {
		return nil, err
	}
	plan := &Plan{Redo: true}
	if len(ids) == 0 {
		return plan, nil
	}

	live, err := e.checkDrift(ctx)
	if err != nil {
		return nil, err
	}
	plan.Live = live

	for _, id := range ids {
		entry, err := e.Ledger.Get(id)
		if err != nil {
			return nil, err
		}
		plan.Steps = append(plan.Steps, Step{
			OperationID: entry.ID,
			Kind:        entry.Kind,
			Args:        entry.Args,
			Actions:     diffActions(entry.Before, entry.After),
		})
	}
	return plan, nil
}

// Apply runs the plan's actions through the installer, updates the undo
// bookkeeping, and records the whole application as one batch ledger
// entry reflecting what actually changed. It returns the new operation
// id. On a partial installer failure the batch entry is still recorded
// and the undone/redo bookkeeping is left untouched, so a later drift
// check sees the truth.
func (e *Engine) Apply(ctx context.Context, plan *Plan, actor string) (int64, error) {
	if plan.Empty() {
		return 0, nil
	}

	before := plan.Live
	var failures []string
	for _, step := range plan.Steps {
		for _, a := range step.Actions {
			var err error
			if a.Uninstall {
				err = e.Installer.Uninstall(ctx, a.Name)
			} else {
				err = e.Installer.Install(ctx, a.Name, a.Version)
			}
			if err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", a, err))
			}
		}
	}

	// After-capture and record happen even on partial failure or an
	// interrupt that cancelled ctx mid-plan; an unrecorded partial
	// mutation is the primary source of ledger drift.
	after, err := e.Snapshotter.Capture(context.WithoutCancel(ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to capture state after revert: %w", err)
	}

	verb := "undo"
	if plan.Redo {
		verb = "redo"
	}
	args := []string{verb, fmt.Sprintf("%d", len(plan.Steps))}
	opID, err := e.Ledger.Record(before, after, history.KindBatch, args, actor)
	if err != nil {
		return 0, fmt.Errorf("failed to record %s: %w", verb, err)
	}

	if len(failures) > 0 {
		return opID, fmt.Errorf("%s applied partially: %s", verb, strings.Join(failures, "; "))
	}

	for _, step := range plan.Steps {
		if plan.Redo {
			if _, err := e.Store.PopRedo(); err != nil {
				return opID, fmt.Errorf("failed to pop redo stack: %w", err)
			}
			if err := e.Store.SetUndone(step.OperationID, false); err != nil {
				return opID, err
			}
		} else {
			if err := e.Store.SetUndone(step.OperationID, true); err != nil {
				return opID, err
			}
			if err := e.Store.PushRedo(step.OperationID); err != nil {
				return opID, err
			}
		}
	}
	return opID, nil
}

// checkDrift captures the live state and compares it against the newest
// ledger entry's after-state. Divergence is apperr.ErrDrift.
func (e *Engine) checkDrift(ctx context.Context) (*snapshot.Snapshot, error) {
	live, err := e.Snapshotter.Capture(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := e.Ledger.Latest()
	if err != nil {
		return nil, err
	}
	if latest == nil || latest.After == nil {
		return live, nil
	}
	if !snapshot.Equal(live, latest.After) {
		d := snapshot.Compute(live, latest.After)
		var parts []string
		for _, p := range d.Install {
			parts = append(parts, p.Name+" missing")
		}
		for _, c := range d.Change {
			parts = append(parts, fmt.Sprintf("%s is %s, ledger expects %s", c.Name, c.From, c.To))
		}
		for _, name := range d.Remove {
			parts = append(parts, name+" installed outside venvtrack")
		}
		return nil, fmt.Errorf("live environment diverged from operation %d (%s): %w",
			latest.ID, strings.Join(parts, ", "), apperr.ErrDrift)
	}
	return live, nil
}

// diffActions returns the installer calls that turn state from into state
// to: installs at to-versions for missing or version-changed packages,
// uninstalls for packages absent from to.
func diffActions(from, to *snapshot.Snapshot) []Action {
	d := snapshot.Compute(from, to)
	actions := make([]Action, 0, d.Actions())
	for _, p := range d.Install {
		actions = append(actions, Action{Name: p.Name, Version: p.Version})
	}
	for _, c := range d.Change {
		actions = append(actions, Action{Name: c.Name, Version: c.To})
	}
	for _, name := range d.Remove {
		actions = append(actions, Action{Uninstall: true, Name: name})
	}
	return actions
}
