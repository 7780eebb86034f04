package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/venvtrack/internal/history"
	"github.com/blackwell-systems/venvtrack/internal/manifest"
	"github.com/blackwell-systems/venvtrack/internal/output"
	"github.com/blackwell-systems/venvtrack/internal/snapshot"
)

var (
	restoreFlagYes    bool
	restoreFlagDryRun bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Make the environment match a named snapshot",
	Long: `Computes the difference between the current environment and the named
snapshot, shows it, and applies it: missing packages are installed,
version mismatches are reinstalled at the snapshot's version, and
packages absent from the snapshot are removed.

The restore is recorded as one ledger entry and can itself be undone.`,
	Example: `  venvtrack restore stable
  venvtrack restore stable --dry-run
  venvtrack restore stable --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVarP(&restoreFlagYes, "yes", "y", false, "Skip confirmation prompt")
	restoreCmd.Flags().BoolVar(&restoreFlagDryRun, "dry-run", false, "Show the plan without applying it")
	RootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := manifest.ValidateName(name); err != nil {
		return err
	}

	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()
	if err := env.requireVenv(); err != nil {
		return err
	}

	pkgs, err := manifest.ReadSnapshot(env.cfg.SnapshotsDir(), name)
	if err != nil {
		return err
	}
	target := &snapshot.Snapshot{Packages: pkgs}

	ctx := cmd.Context()
	current, err := env.snap.Capture(ctx)
	if err != nil {
		return err
	}

	if reg, err := env.st.GetNamedSnapshot(name); err == nil &&
		reg.PythonVersion != "" && reg.PythonVersion != current.PythonVersion {
		fmt.Printf("Warning: snapshot was taken on %s, this venv runs %s.\n",
			reg.PythonVersion, current.PythonVersion)
	}

	d := snapshot.Compute(current, target)
	fmt.Printf("Restoring %q:\n\n%s", name, output.RenderDiff(d))
	if d.Empty() {
		return nil
	}
	if restoreFlagDryRun {
		return nil
	}
	if !restoreFlagYes && !confirm("Apply?") {
		fmt.Println("Cancelled.")
		return nil
	}

	lk, err := env.acquireLock()
	if err != nil {
		return err
	}
	defer lk.Release()

	id, err := env.mutate(ctx, history.KindBatch, []string{"restore", name}, func(ctx context.Context, before *snapshot.Snapshot) error {
		// The plan was computed against an unlocked read; recompute under
		// the lock so a racing mutation cannot skew the actions.
		return applyDiff(ctx, env.venv, snapshot.Compute(before, target))
	})
	if err != nil {
		return err
	}

	fmt.Printf("Restored %q; recorded as operation %d.\n", name, id)
	return nil
}
