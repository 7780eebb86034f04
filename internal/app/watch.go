package app

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/venvtrack/internal/output"
	"github.com/blackwell-systems/venvtrack/internal/snapshot"
	"github.com/blackwell-systems/venvtrack/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch site-packages for changes made outside venvtrack",
	Long: `Runs in the foreground and reports whenever the venv's site-packages
directory changes without a venvtrack command doing it: bare pip calls,
IDE package managers, anything.

The watcher only reports. Drift stays until the next recorded operation
or a 'venvtrack restore'. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()
	if err := env.requireVenv(); err != nil {
		return err
	}

	site, err := env.venv.SitePackages()
	if err != nil {
		return err
	}

	baseline := func() (*snapshot.Snapshot, error) {
		latest, err := env.ledger.Latest()
		if err != nil || latest == nil {
			return nil, err
		}
		return latest.After, nil
	}

	w := watcher.New(site, env.snap.Capture, baseline)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", site)
	return w.Run(ctx, func(ev watcher.Event) {
		stamp := ev.Time.Format("15:04:05")
		if ev.Diff == nil {
			fmt.Printf("[%s] activity settled; environment matches the ledger\n", stamp)
			return
		}
		fmt.Printf("[%s] external change detected:\n", stamp)
		fmt.Print(output.RenderDiff(ev.Diff))
	})
}
