package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/venvtrack/internal/history"
	"github.com/blackwell-systems/venvtrack/internal/manifest"
	"github.com/blackwell-systems/venvtrack/internal/output"
	"github.com/blackwell-systems/venvtrack/internal/snapshot"
)

var (
	importFlagYes    bool
	importFlagDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Make the environment match a shared manifest",
	Long: `Reads a manifest produced by 'venvtrack share' (or any pip freeze
file), shows the changes needed to match it, and applies them.

A mangled header never blocks an import; it is reported as a warning.
Malformed package lines do block it, because silently skipping one
would build a different environment than the sender exported.`,
	Example: `  venvtrack import stable-2026-08-23.venvtrack
  venvtrack import requirements.txt --dry-run
  venvtrack import stable.venvtrack --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVarP(&importFlagYes, "yes", "y", false, "Skip confirmation prompt")
	importCmd.Flags().BoolVar(&importFlagDryRun, "dry-run", false, "Show the plan without applying it")
	RootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	file := args[0]
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	m, warns, err := manifest.Parse(f)
	f.Close()
	if err != nil {
		return err
	}
	for _, w := range warns {
		fmt.Printf("Warning: %s\n", w)
	}

	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()
	if err := env.requireVenv(); err != nil {
		return err
	}

	ctx := cmd.Context()
	current, err := env.snap.Capture(ctx)
	if err != nil {
		return err
	}

	if m.Python != "" && m.Python != current.PythonVersion {
		fmt.Printf("Warning: manifest was exported from %s, this venv runs %s.\n",
			m.Python, current.PythonVersion)
		fmt.Println("Packages with compiled extensions may resolve differently.")
	}

	target := &snapshot.Snapshot{Packages: m.Packages}
	d := snapshot.Compute(current, target)
	fmt.Printf("Importing %s:\n\n%s", file, output.RenderDiff(d))
	if d.Empty() {
		return nil
	}
	if importFlagDryRun {
		return nil
	}
	if !importFlagYes && !confirm("Apply?") {
		fmt.Println("Cancelled.")
		return nil
	}

	lk, err := env.acquireLock()
	if err != nil {
		return err
	}
	defer lk.Release()

	id, err := env.mutate(ctx, history.KindBatch, []string{"import", file}, func(ctx context.Context, before *snapshot.Snapshot) error {
		return applyDiff(ctx, env.venv, snapshot.Compute(before, target))
	})
	if err != nil {
		return err
	}

	fmt.Printf("Imported %s; recorded as operation %d.\n", file, id)
	return nil
}
