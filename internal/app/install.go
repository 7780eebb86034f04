package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/venvtrack/internal/history"
	"github.com/blackwell-systems/venvtrack/internal/output"
	"github.com/blackwell-systems/venvtrack/internal/snapshot"
	"github.com/blackwell-systems/venvtrack/internal/version"
)

var installFlagYes bool

var installCmd = &cobra.Command{
	Use:   "install <package>[==version] ...",
	Short: "Install packages and record the operation",
	Long: `Installs one or more packages through the venv's pip and appends the
operation to the history ledger.

A pinned install that would move an already-installed package to an
older version triggers a downgrade warning and asks for confirmation.`,
	Example: `  venvtrack install requests
  venvtrack install six==1.16.0 urllib3
  venvtrack install flask==2.0.0 --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVarP(&installFlagYes, "yes", "y", false, "Skip confirmation prompts")
	RootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
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

	ctx := cmd.Context()
	current, err := env.snap.Capture(ctx)
	if err != nil {
		return err
	}
	if !checkDowngrades(current, args, installFlagYes) {
		fmt.Println("Cancelled.")
		return nil
	}

	id, err := env.mutate(ctx, history.KindInstall, args, func(ctx context.Context, _ *snapshot.Snapshot) error {
		spinner := output.NewSpinner("Installing")
		spinner.Start()
		defer spinner.Stop()

		for _, spec := range args {
			name, ver := splitRequirement(spec)
			spinner.UpdateMessage("Installing " + spec)
			if err := env.venv.Install(ctx, name, ver); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Installed %d package(s); recorded as operation %d.\n", len(args), id)
	return nil
}

// checkDowngrades warns about every pinned spec that would move an
// installed package backward and asks for one confirmation covering all
// of them. Returns false when the user declines.
func checkDowngrades(before *snapshot.Snapshot, specs []string, yes bool) bool {
	var downgrades []string
	for _, spec := range specs {
		name, ver := splitRequirement(spec)
		if ver == "" {
			continue
		}
		current, ok := before.Get(name)
		if !ok {
			continue
		}
		v := version.Check(ver, current.Version)
		switch v.Result {
		case version.Downgrade:
			downgrades = append(downgrades,
				fmt.Sprintf("  %s: %s -> %s", name, current.Version, ver))
		case version.Unknown:
			fmt.Printf("Note: cannot compare versions for %s (%s vs %s); proceeding.\n",
				name, current.Version, ver)
		}
	}
	if len(downgrades) == 0 {
		return true
	}

	fmt.Println("Warning: this install downgrades:")
	for _, d := range downgrades {
		fmt.Println(d)
	}
	if yes {
		return true
	}
	return confirm("Continue with downgrade?")
}
