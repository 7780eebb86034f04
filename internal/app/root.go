// Package app wires the venvtrack CLI: one file per subcommand, shared
// environment plumbing in common.go, and the exit-code mapping of the
// error taxonomy at the bottom of this file.
package app

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/venvtrack/internal/apperr"
	"github.com/blackwell-systems/venvtrack/internal/lock"
)

var (
	flagConfig string
	flagRoot   string

	// RootCmd is the root command for venvtrack
	RootCmd = &cobra.Command{
		Use:   "venvtrack",
		Short: "pip with a memory: history, undo, and portable snapshots",
		Long: `venvtrack wraps pip and venv with an operation ledger so every install,
uninstall, and upgrade can be inspected, undone, and redone.

Features:
  • Full history of package operations with before/after state
  • Multi-step undo and redo
  • Orphaned-dependency detection on uninstall
  • Downgrade warnings when a pinned install would move a package backward
  • Named snapshots, restore, and portable share manifests

Quick Start:
  1. venvtrack init
  2. venvtrack install requests
  3. venvtrack history
  4. venvtrack undo

Examples:
  # Save and share the current environment
  venvtrack snapshot stable
  venvtrack share stable

  # Recreate it elsewhere
  venvtrack import stable-2026-08-23.venvtrack`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ~/.config/venvtrack/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "environment root (default: ~/.local/python-packages)")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// ExitCode maps an error from Execute to the process exit code. Each
// sentinel in the error taxonomy gets a distinct code so scripts can
// branch on the failure class.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, apperr.ErrEnvUnavailable):
		return 2
	case errors.Is(err, errDoctorWarnings):
		// Warning-only diagnostics share the "environment needs attention"
		// code so scripts can branch without a second case.
		return 2
	case errors.Is(err, apperr.ErrDrift):
		return 3
	case errors.Is(err, apperr.ErrInvalidName):
		return 4
	case errors.Is(err, apperr.ErrNotFound):
		return 5
	case errors.Is(err, apperr.ErrManifestParse):
		return 6
	case errors.Is(err, lock.ErrLocked):
		return 7
	default:
		return 1
	}
}
