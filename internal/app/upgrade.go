package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/venvtrack/internal/history"
	"github.com/blackwell-systems/venvtrack/internal/output"
	"github.com/blackwell-systems/venvtrack/internal/snapshot"
)

var upgradeFlagYes bool

var upgradeCmd = &cobra.Command{
	Use:   "upgrade <package>[==version] ...",
	Short: "Upgrade packages to the newest or a pinned version",
	Long: `Upgrades one or more packages and appends the operation to the history
ledger. Without a pin the newest version the index offers is installed.

A pin that points backward triggers the same downgrade warning as
install; an unpinned upgrade never does.`,
	Example: `  venvtrack upgrade requests
  venvtrack upgrade six==1.16.0`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpgrade,
}

func init() {
	upgradeCmd.Flags().BoolVarP(&upgradeFlagYes, "yes", "y", false, "Skip confirmation prompts")
	RootCmd.AddCommand(upgradeCmd)
}

func runUpgrade(cmd *cobra.Command, args []string) error {
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
	if !checkDowngrades(current, args, upgradeFlagYes) {
		fmt.Println("Cancelled.")
		return nil
	}

	id, err := env.mutate(ctx, history.KindUpgrade, args, func(ctx context.Context, _ *snapshot.Snapshot) error {
		spinner := output.NewSpinner("Upgrading")
		spinner.Start()
		defer spinner.Stop()

		for _, spec := range args {
			name, ver := splitRequirement(spec)
			spinner.UpdateMessage("Upgrading " + spec)
			var err error
			if ver == "" {
				err = env.venv.Upgrade(ctx, name)
			} else {
				err = env.venv.Install(ctx, name, ver)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Upgraded %d package(s); recorded as operation %d.\n", len(args), id)
	return nil
}
