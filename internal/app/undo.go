package app

import (
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/venvtrack/internal/history"
	"github.com/blackwell-systems/venvtrack/internal/revert"
)

var (
	undoFlagYes bool
	redoFlagYes bool
)

var undoCmd = &cobra.Command{
	Use:   "undo [n]",
	Short: "Revert the last n operations",
	Long: `Reverts the most recent not-yet-undone operations, newest first, by
installing and uninstalling whatever moves the environment back to the
state before them. The reversal itself is recorded as a new ledger
entry, so history is never rewritten.

Undo refuses to run when packages changed outside venvtrack since the
last recorded operation; resolve the drift first (any recorded
venvtrack operation does).`,
	Example: `  venvtrack undo         # revert the last operation
  venvtrack undo 3       # revert the last three
  venvtrack undo 3 --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUndo,
}

var redoCmd = &cobra.Command{
	Use:   "redo [n]",
	Short: "Reapply the last n undone operations",
	Long: `Reapplies undone operations in their original order. The redo stack is
cleared by any new install, uninstall, upgrade, restore, or import.`,
	Example: `  venvtrack redo
  venvtrack redo 2 --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRedo,
}

func init() {
	undoCmd.Flags().BoolVarP(&undoFlagYes, "yes", "y", false, "Skip confirmation prompt")
	redoCmd.Flags().BoolVarP(&redoFlagYes, "yes", "y", false, "Skip confirmation prompt")
	RootCmd.AddCommand(undoCmd)
	RootCmd.AddCommand(redoCmd)
}

func runUndo(cmd *cobra.Command, args []string) error {
	return runRevert(cmd, args, false, undoFlagYes)
}

func runRedo(cmd *cobra.Command, args []string) error {
	return runRevert(cmd, args, true, redoFlagYes)
}

func runRevert(cmd *cobra.Command, args []string, redo, yes bool) error {
	n := 1
	if len(args) == 1 {
		parsed, err := strconv.Atoi(args[0])
		if err != nil || parsed < 1 {
			return fmt.Errorf("invalid count %q: must be a positive number", args[0])
		}
		n = parsed
	}

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

	// An interrupt cancels the in-flight installer call; the engine still
	// captures and records whatever was applied before the signal landed.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	eng := env.engine()

	var plan *revert.Plan
	if redo {
		plan, err = eng.PlanRedo(ctx, n)
	} else {
		plan, err = eng.PlanUndo(ctx, n)
	}
	if err != nil {
		return err
	}

	verb := "undo"
	if redo {
		verb = "redo"
	}
	if plan.Empty() {
		fmt.Printf("Nothing to %s.\n", verb)
		return nil
	}

	fmt.Printf("Will %s %d operation(s):\n", verb, len(plan.Steps))
	for _, step := range plan.Steps {
		fmt.Printf("  %d %s %s\n", step.OperationID, step.Kind, strings.Join(step.Args, " "))
		for _, a := range step.Actions {
			fmt.Printf("      %s\n", a)
		}
	}

	if !yes && !confirm(fmt.Sprintf("Apply %s?", verb)) {
		fmt.Println("Cancelled.")
		return nil
	}

	opID, err := eng.Apply(ctx, plan, history.Actor())
	if err != nil {
		return err
	}
	fmt.Printf("Done; recorded as operation %d.\n", opID)
	return nil
}
