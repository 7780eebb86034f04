package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/venvtrack/internal/manifest"
	"github.com/blackwell-systems/venvtrack/internal/output"
	"github.com/blackwell-systems/venvtrack/internal/snapshot"
)

var diffCmd = &cobra.Command{
	Use:   "diff [name]",
	Short: "Compare the environment against a snapshot or the ledger",
	Long: `Without an argument, compares the live environment against the state
the last recorded operation left behind; any output means something
mutated packages outside venvtrack.

With a snapshot name, compares the live environment against that
snapshot, showing what a restore would change.`,
	Example: `  venvtrack diff
  venvtrack diff stable`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiff,
}

func init() {
	RootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()
	if err := env.requireVenv(); err != nil {
		return err
	}

	current, err := env.snap.Capture(cmd.Context())
	if err != nil {
		return err
	}

	var target *snapshot.Snapshot
	if len(args) == 1 {
		name := args[0]
		if err := manifest.ValidateName(name); err != nil {
			return err
		}
		pkgs, err := manifest.ReadSnapshot(env.cfg.SnapshotsDir(), name)
		if err != nil {
			return err
		}
		target = &snapshot.Snapshot{Packages: pkgs}
		fmt.Printf("Against snapshot %q (changes a restore would apply):\n\n", name)
	} else {
		latest, err := env.ledger.Latest()
		if err != nil {
			return err
		}
		if latest == nil || latest.After == nil {
			fmt.Println("No operations recorded yet; nothing to compare against.")
			return nil
		}
		target = latest.After
		fmt.Printf("Against the state after operation %d:\n\n", latest.ID)
	}

	fmt.Print(output.RenderDiff(snapshot.Compute(current, target)))
	return nil
}
