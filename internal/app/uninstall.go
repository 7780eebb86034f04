package app

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/venvtrack/internal/deps"
	"github.com/blackwell-systems/venvtrack/internal/history"
	"github.com/blackwell-systems/venvtrack/internal/output"
	"github.com/blackwell-systems/venvtrack/internal/pip"
	"github.com/blackwell-systems/venvtrack/internal/snapshot"
)

var uninstallFlagYes bool

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <package> ...",
	Short: "Remove packages and report newly orphaned dependencies",
	Long: `Removes one or more packages through the venv's pip and appends the
operation to the history ledger.

After the removal, dependencies that were only needed by the removed
packages are listed as orphan candidates. Nothing is removed
automatically; the report names what a follow-up uninstall could clean.`,
	Example: `  venvtrack uninstall requests
  venvtrack uninstall flask six --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUninstall,
}

func init() {
	uninstallCmd.Flags().BoolVarP(&uninstallFlagYes, "yes", "y", false, "Skip confirmation prompts")
	RootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()
	if err := env.requireVenv(); err != nil {
		return err
	}

	lk, err := env.acquireLock()
	if err != nil {
		return err
	}
	defer lk.Release()

	if !uninstallFlagYes && !confirm(fmt.Sprintf("Remove %s?", strings.Join(args, ", "))) {
		fmt.Println("Cancelled.")
		return nil
	}

	ctx := cmd.Context()
	var orphans []string
	var graph map[string][]string
	id, err := env.mutate(ctx, history.KindUninstall, args, func(ctx context.Context, before *snapshot.Snapshot) error {
		// The dependency graph must come from the pre-removal state so
		// the removed packages' own edges are still known.
		spinner := output.NewSpinner("Reading dependency graph")
		spinner.Start()
		edges, graphErr := env.snap.CaptureDeps(ctx, before)
		spinner.Stop()

		for _, spec := range args {
			name, _ := splitRequirement(spec)
			if err := env.venv.Uninstall(ctx, name); err != nil {
				return err
			}
		}

		if graphErr != nil {
			fmt.Printf("Note: orphan detection skipped (%v)\n", graphErr)
			return nil
		}
		graph = edges
		orphans = findOrphansAfter(ctx, env, before, args, edges)
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Removed %d package(s); recorded as operation %d.\n", len(args), id)
	if len(orphans) > 0 {
		fmt.Println("\nNo longer needed by anything installed:")
		for _, line := range orphanReport(orphans, deps.Dependents(graph)) {
			fmt.Printf("  %s\n", line)
		}
		fmt.Printf("\nClean up with: venvtrack uninstall %s\n", strings.Join(orphans, " "))
	}
	return nil
}

// orphanReport formats the orphan listing, naming for each orphan the
// packages that used to need it so the reader can judge the advice.
func orphanReport(orphans []string, dependents map[string][]string) []string {
	lines := make([]string, 0, len(orphans))
	for _, o := range orphans {
		if parents := dependents[o]; len(parents) > 0 {
			lines = append(lines, fmt.Sprintf("%s (was needed by %s)", o, strings.Join(parents, ", ")))
		} else {
			lines = append(lines, o)
		}
	}
	return lines
}

// findOrphansAfter runs orphan detection for each removed package against
// the post-removal state, using the pre-removal dependency graph and the
// ledger's record of what was ever explicitly requested.
func findOrphansAfter(ctx context.Context, env *appEnv, before *snapshot.Snapshot, removedSpecs []string, edges map[string][]string) []string {
	after, err := env.snap.Capture(ctx)
	if err != nil {
		return nil
	}
	explicit, err := explicitInstalls(env)
	if err != nil {
		explicit = map[string]bool{}
	}

	seen := make(map[string]bool)
	var all []string
	for _, spec := range removedSpecs {
		name, _ := splitRequirement(spec)
		for _, o := range deps.FindOrphans(pip.NormalizeName(name), after.Names(), edges, explicit) {
			if !seen[o] {
				seen[o] = true
				all = append(all, o)
			}
		}
	}
	sort.Strings(all)
	return all
}

// explicitInstalls collects every package name the user directly asked
// for across the ledger. pip itself does not distinguish requested
// packages from pulled-in dependencies; the ledger does.
func explicitInstalls(env *appEnv) (map[string]bool, error) {
	entries, err := env.ledger.List(0)
	if err != nil {
		return nil, err
	}
	explicit := make(map[string]bool)
	for _, e := range entries {
		if e.Kind != history.KindInstall && e.Kind != history.KindUpgrade {
			continue
		}
		for _, spec := range e.Args {
			name, _ := splitRequirement(spec)
			explicit[pip.NormalizeName(name)] = true
		}
	}
	return explicit, nil
}
