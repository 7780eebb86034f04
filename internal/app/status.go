package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/venvtrack/internal/remind"
	"github.com/blackwell-systems/venvtrack/internal/snapshot"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show environment state and recent activity",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()
	if err := env.requireVenv(); err != nil {
		return err
	}

	live, err := env.snap.Capture(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Environment: %s\n", env.cfg.Root)
	fmt.Printf("Python:      %s\n", live.PythonVersion)
	if pipVer, err := env.venv.Version(cmd.Context()); err == nil {
		fmt.Printf("pip:         %s\n", pipVer)
	}
	fmt.Printf("Packages:    %d\n", len(live.Packages))

	latest, err := env.ledger.Latest()
	if err != nil {
		return err
	}
	if latest == nil {
		fmt.Println("History:     empty")
	} else {
		stats, err := env.ledger.CollectStats(time.Time{})
		if err != nil {
			return err
		}
		fmt.Printf("History:     %d operation(s); latest is %d (%s %s)\n",
			stats.TotalOperations, latest.ID, latest.Kind, strings.Join(latest.Args, " "))
		if latest.After != nil && !snapshot.Equal(live, latest.After) {
			fmt.Println("\nWarning: packages changed outside venvtrack since the last operation.")
			fmt.Println("Run 'venvtrack diff' to see what moved.")
		}
	}

	if msg, ok := snapshotReminder(env, live); ok {
		fmt.Println()
		fmt.Println(msg)
	}
	return nil
}

// snapshotReminder assembles the heuristic's inputs from the index.
func snapshotReminder(env *appEnv, live *snapshot.Snapshot) (string, bool) {
	snaps, err := env.st.ListNamedSnapshots()
	if err != nil {
		return "", false
	}

	var infos []remind.SnapshotInfo
	var newest time.Time
	for _, s := range snaps {
		infos = append(infos, remind.SnapshotInfo{CreatedAt: s.CreatedAt, PackageCount: s.PackageCount})
		if s.CreatedAt.After(newest) {
			newest = s.CreatedAt
		}
	}

	n, err := env.st.CountOperationsSince(newest)
	if err != nil {
		return "", false
	}

	return remind.Suggest(remind.Input{
		OperationsSinceSnapshot: n,
		InstalledPackages:       len(live.Packages),
		Snapshots:               infos,
	}, env.cfg.Thresholds(), time.Now())
}
