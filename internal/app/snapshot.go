package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/venvtrack/internal/apperr"
	"github.com/blackwell-systems/venvtrack/internal/manifest"
	"github.com/blackwell-systems/venvtrack/internal/output"
	"github.com/blackwell-systems/venvtrack/internal/store"
)

var snapshotFlagYes bool

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <name>",
	Short: "Save the current package set under a name",
	Long: `Captures the installed package set and saves it as a named snapshot.
Names may use letters, digits, hyphens, and underscores. Overwriting an
existing snapshot asks for confirmation.`,
	Example: `  venvtrack snapshot stable
  venvtrack snapshot before-ml-experiment --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runSnapshot,
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List named snapshots",
	Args:  cobra.NoArgs,
	RunE:  runSnapshots,
}

func init() {
	snapshotCmd.Flags().BoolVarP(&snapshotFlagYes, "yes", "y", false, "Overwrite without asking")
	RootCmd.AddCommand(snapshotCmd)
	RootCmd.AddCommand(snapshotsCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
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

	if _, err := env.st.GetNamedSnapshot(name); err == nil {
		if !snapshotFlagYes && !confirm(fmt.Sprintf("Snapshot %q exists. Overwrite?", name)) {
			fmt.Println("Cancelled.")
			return nil
		}
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	snap, err := env.snap.Capture(cmd.Context())
	if err != nil {
		return err
	}

	if err := manifest.WriteSnapshot(env.cfg.SnapshotsDir(), name, snap); err != nil {
		return err
	}
	if err := env.st.UpsertNamedSnapshot(&store.NamedSnapshot{
		Name:          name,
		CreatedAt:     snap.CapturedAt,
		PackageCount:  len(snap.Packages),
		PythonVersion: snap.PythonVersion,
		FilePath:      manifest.SnapshotFile(env.cfg.SnapshotsDir(), name),
	}); err != nil {
		return err
	}

	fmt.Printf("Saved snapshot %q (%d packages).\n", name, len(snap.Packages))
	return nil
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	snaps, err := env.st.ListNamedSnapshots()
	if err != nil {
		return err
	}
	fmt.Print(output.RenderSnapshotTable(snaps))
	return nil
}
