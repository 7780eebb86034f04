package app

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/blackwell-systems/venvtrack/internal/config"
	"github.com/blackwell-systems/venvtrack/internal/history"
	"github.com/blackwell-systems/venvtrack/internal/lock"
	"github.com/blackwell-systems/venvtrack/internal/output"
	"github.com/blackwell-systems/venvtrack/internal/pip"
	"github.com/blackwell-systems/venvtrack/internal/revert"
	"github.com/blackwell-systems/venvtrack/internal/snapshot"
	"github.com/blackwell-systems/venvtrack/internal/store"
)

// appEnv bundles everything a command needs: configuration, the SQLite
// index, the venv boundary, the snapshotter, and the ledger.
type appEnv struct {
	cfg    *config.Config
	st     *store.Store
	venv   *pip.Venv
	snap   *snapshot.Snapshotter
	ledger *history.Ledger
}

// openEnv loads configuration and opens the index. It does not require
// the venv to exist; commands that need it call requireVenv.
func openEnv() (*appEnv, error) {
	path := flagConfig
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if flagRoot != "" {
		cfg.Root = flagRoot
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	venv := pip.NewVenv(cfg.VenvDir())
	venv.IndexURL = cfg.IndexURL
	return &appEnv{
		cfg:    cfg,
		st:     st,
		venv:   venv,
		snap:   &snapshot.Snapshotter{Installer: venv},
		ledger: history.New(cfg.HistoryDir(), st),
	}, nil
}

func (e *appEnv) Close() {
	e.st.Close()
}

// requireVenv fails with ErrEnvUnavailable when the managed venv is
// missing or unusable.
func (e *appEnv) requireVenv() error {
	return e.venv.Check()
}

// engine returns the undo/redo engine over this environment.
func (e *appEnv) engine() *revert.Engine {
	return &revert.Engine{
		Ledger:      e.ledger,
		Store:       e.st,
		Snapshotter: e.snap,
		Installer:   e.venv,
	}
}

// acquireLock takes the mutation lock for this environment. Callers must
// Release what they get back.
func (e *appEnv) acquireLock() (*lock.Lock, error) {
	return lock.Acquire(e.cfg.LockPath())
}

// mutate brackets fn with before/after captures, records the result in
// the ledger, and clears the redo stack. The entry is recorded even when
// fn fails partway, so the ledger always reflects what actually changed.
//
// fn runs on a signal-aware context: an interrupt kills the pip
// subprocess, not this process. The after-capture and the record run on
// an uncancellable context so the partial result still lands in the
// ledger; an interrupted mutation that goes unrecorded is exactly the
// drift the ledger exists to prevent.
func (e *appEnv) mutate(ctx context.Context, kind history.Kind, args []string, fn func(ctx context.Context, before *snapshot.Snapshot) error) (int64, error) {
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	before, err := e.snap.Capture(runCtx)
	if err != nil {
		return 0, fmt.Errorf("failed to capture state: %w", err)
	}

	runErr := fn(runCtx, before)

	after, err := e.snap.Capture(context.WithoutCancel(ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to capture state after operation: %w", err)
	}

	if snapshot.Equal(before, after) && runErr != nil {
		// Nothing changed; a failed no-op does not earn a ledger entry.
		return 0, runErr
	}

	id, err := e.ledger.Record(before, after, kind, args, history.Actor())
	if err != nil {
		return 0, err
	}
	// A new mutation invalidates the redo timeline.
	if err := e.st.ClearRedo(); err != nil {
		return id, err
	}
	return id, runErr
}

// confirm prompts for a yes/no answer, defaulting to no. A non-TTY stdin
// reads EOF and declines, so scripted callers must pass --yes.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

// applyDiff drives the installer through a diff: installs and version
// changes first, removals last. It returns the first error but keeps
// going, because a half-applied plan with a truthful ledger entry beats
// an aborted one without.
func applyDiff(ctx context.Context, inst pip.Installer, d *snapshot.Diff) error {
	bar := output.NewProgress(d.Actions(), "Applying changes")
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
		bar.Increment()
	}

	for _, p := range d.Install {
		record(inst.Install(ctx, p.Name, p.Version))
	}
	for _, c := range d.Change {
		record(inst.Install(ctx, c.Name, c.To))
	}
	for _, name := range d.Remove {
		record(inst.Uninstall(ctx, name))
	}
	bar.Finish()
	return firstErr
}

// splitRequirement splits "name==version" into its parts; a bare name
// comes back with an empty version.
func splitRequirement(spec string) (name, version string) {
	if i := strings.Index(spec, "=="); i >= 0 {
		return strings.TrimSpace(spec[:i]), strings.TrimSpace(spec[i+2:])
	}
	return strings.TrimSpace(spec), ""
}
