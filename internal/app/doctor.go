package app

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/venvtrack/internal/history"
	"github.com/blackwell-systems/venvtrack/internal/manifest"
	"github.com/blackwell-systems/venvtrack/internal/snapshot"
)

// errDoctorWarnings marks a warnings-only diagnosis. ExitCode maps it to
// 2; returning it instead of exiting directly lets deferred cleanup run.
var errDoctorWarnings = errors.New("diagnostics reported warnings")

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose common issues and check environment health",
	Long: `Runs diagnostic checks on the venvtrack environment.

Checks:
  • Environment root, index database, and venv exist
  • pip inside the venv answers queries
  • The ledger chain is consistent (each after-state matches the next
    before-state)
  • The live package set matches the last recorded state
  • No stale mutation lock is left behind`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("Running venvtrack diagnostics...")
	fmt.Println()

	// Critical failures exit 1 through the error return; warning-only
	// findings exit 2 so scripts can distinguish "degraded" from "broken".
	warnings := 0

	env, err := openEnv()
	if err != nil {
		fmt.Println("✗ Configuration:", err)
		return err
	}
	defer env.Close()

	if _, statErr := os.Stat(env.cfg.Root); statErr != nil {
		fmt.Println("✗ Environment root missing:", env.cfg.Root)
		fmt.Println("  Action: run 'venvtrack init'")
		return fmt.Errorf("environment root missing: %w", statErr)
	}
	fmt.Println("✓ Environment root:", env.cfg.Root)

	if _, dbErr := env.st.ListOperations(1); dbErr != nil {
		fmt.Println("✗ Index database:", dbErr)
		fmt.Println("  Action: run 'venvtrack init'")
		return dbErr
	}
	fmt.Println("✓ Index database:", env.cfg.DBPath())

	if venvErr := env.requireVenv(); venvErr != nil {
		fmt.Println("✗ Venv:", venvErr)
		return venvErr
	}
	fmt.Println("✓ Venv:", env.cfg.VenvDir())

	ctx := cmd.Context()
	live, capErr := env.snap.Capture(ctx)
	if capErr != nil {
		fmt.Println("✗ pip query failed:", capErr)
		return capErr
	}
	fmt.Printf("✓ pip answers: %d packages, %s\n", len(live.Packages), live.PythonVersion)

	entries, listErr := env.ledger.List(0)
	if listErr != nil {
		fmt.Println("✗ Ledger unreadable:", listErr)
		return listErr
	}
	if breaks := history.CheckChain(entries); len(breaks) > 0 {
		for _, b := range breaks {
			fmt.Println("⚠", b)
		}
		warnings += len(breaks)
	} else {
		fmt.Printf("✓ Ledger chain consistent (%d entries)\n", len(entries))
	}

	if len(entries) > 0 {
		last := entries[len(entries)-1]
		if last.After != nil && !snapshot.Equal(live, last.After) {
			fmt.Println("⚠ Live environment differs from the last recorded state")
			fmt.Println("  Action: run 'venvtrack diff' to inspect the drift")
			warnings++
		} else {
			fmt.Println("✓ Live environment matches the ledger")
		}
	}

	files, snapErr := manifest.ListSnapshots(env.cfg.SnapshotsDir())
	if snapErr != nil {
		fmt.Println("⚠ Snapshot directory unreadable:", snapErr)
		warnings++
	} else if reg, regErr := env.st.ListNamedSnapshots(); regErr != nil {
		fmt.Println("⚠ Snapshot registry unreadable:", regErr)
		warnings++
	} else {
		onDisk := make(map[string]bool, len(files))
		for _, n := range files {
			onDisk[n] = true
		}
		inReg := make(map[string]bool, len(reg))
		for _, s := range reg {
			inReg[s.Name] = true
		}
		mismatches := 0
		for _, n := range files {
			if !inReg[n] {
				fmt.Printf("⚠ Snapshot file %q has no registry entry\n", n)
				fmt.Printf("  Action: re-save it with 'venvtrack snapshot %s' or delete the file\n", n)
				mismatches++
			}
		}
		for _, s := range reg {
			if !onDisk[s.Name] {
				fmt.Printf("⚠ Registry lists snapshot %q but its file is missing\n", s.Name)
				mismatches++
			}
		}
		if mismatches == 0 {
			fmt.Printf("✓ Snapshot registry matches the %d file(s) on disk\n", len(files))
		}
		warnings += mismatches
	}

	if info, statErr := os.Stat(env.cfg.LockPath()); statErr == nil {
		age := time.Since(info.ModTime()).Round(time.Second)
		fmt.Printf("⚠ Mutation lock present (age %s)\n", age)
		fmt.Println("  Action: if no venvtrack command is running, remove", env.cfg.LockPath())
		warnings++
	} else {
		fmt.Println("✓ No leftover mutation lock")
	}

	fmt.Println()
	if warnings > 0 {
		return fmt.Errorf("%d warning(s): %w", warnings, errDoctorWarnings)
	}
	fmt.Println("All checks passed.")
	return nil
}
