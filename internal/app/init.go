package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/venvtrack/internal/pip"
)

var initFlagYes bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the managed environment",
	Long: `Creates the environment root, the venv inside it, the operation ledger,
and the snapshot directory.

Re-running init on an existing environment offers to recreate the venv
from scratch. The ledger and snapshots are never touched by init.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initFlagYes, "yes", "y", false, "Recreate an existing venv without asking")
	RootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	for _, dir := range []string{env.cfg.Root, env.cfg.HistoryDir(), env.cfg.SnapshotsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	if err := env.st.CreateSchema(); err != nil {
		return fmt.Errorf("failed to initialize index: %w", err)
	}

	if pip.Exists(env.cfg.VenvDir()) {
		fmt.Printf("Environment already exists at %s\n", env.cfg.Root)
		if !initFlagYes && !confirm("Recreate the venv? Installed packages will be lost") {
			fmt.Println("Leaving the existing environment untouched.")
			return nil
		}
		if err := os.RemoveAll(env.cfg.VenvDir()); err != nil {
			return fmt.Errorf("failed to remove old venv: %w", err)
		}
	}

	fmt.Printf("Creating venv at %s ...\n", env.cfg.VenvDir())
	if err := pip.Create(cmd.Context(), env.cfg.VenvDir()); err != nil {
		return err
	}

	py, err := env.venv.PythonVersion(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Initialized %s (%s)\n", env.cfg.Root, py)
	fmt.Println("\nNext: venvtrack install <package>")
	return nil
}
