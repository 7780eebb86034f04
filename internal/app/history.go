package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/venvtrack/internal/output"
)

var (
	historyFlagDetailed bool
	historyFlagLimit    int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the operation ledger",
	Long: `Lists recorded operations, oldest first. With --detailed each entry
also shows the per-package changes between its before and after state.`,
	Example: `  venvtrack history
  venvtrack history --detailed
  venvtrack history --limit 10`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyFlagDetailed, "detailed", false, "Show per-package changes for each entry")
	historyCmd.Flags().IntVar(&historyFlagLimit, "limit", 20, "Maximum entries to show (0 = all)")
	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	entries, err := env.ledger.List(historyFlagLimit)
	if err != nil {
		return err
	}

	fmt.Print(output.RenderHistoryTable(entries, historyFlagDetailed))

	depth, err := env.st.RedoDepth()
	if err == nil && depth > 0 {
		fmt.Printf("\n%d undone operation(s) available to 'venvtrack redo'.\n", depth)
	}
	return nil
}
