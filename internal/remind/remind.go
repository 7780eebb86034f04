// Package remind decides whether status output should nudge the user to
// capture a named snapshot. It is a pure function over explicit inputs so
// it can be tested without constructing an environment.
package remind

import (
	"fmt"
	"time"
)

// Thresholds tune the heuristic.
type Thresholds struct {
	// MinOperations is the number of mutating operations since the last
	// named snapshot (or since environment creation) that must be
	// exceeded before a reminder fires.
	MinOperations int
	// MinPackages is the installed-package count that must be exceeded.
	MinPackages int
	// RecentWindow is how far back an existing equal-or-larger snapshot
	// suppresses the reminder.
	RecentWindow time.Duration
}

// DefaultThresholds match the original tool's behavior: remind only for
// environments that are both busy and substantial.
var DefaultThresholds = Thresholds{
	MinOperations: 5,
	MinPackages:   15,
	RecentWindow:  7 * 24 * time.Hour,
}

// SnapshotInfo is the slice of named-snapshot metadata the heuristic needs.
type SnapshotInfo struct {
	CreatedAt    time.Time
	PackageCount int
}

// Input gathers the ledger statistics the heuristic reads.
type Input struct {
	// OperationsSinceSnapshot counts mutating operations recorded after
	// the newest named snapshot, or all operations when none exists.
	OperationsSinceSnapshot int
	// InstalledPackages is the current package count.
	InstalledPackages int
	// Snapshots describes all existing named snapshots.
	Snapshots []SnapshotInfo
}

// Suggest returns advisory reminder text and whether to show it.
func Suggest(in Input, th Thresholds, now time.Time) (string, bool) {
	// A snapshot already covers the current state if nothing mutated
	// since it was taken.
	if len(in.Snapshots) > 0 && in.OperationsSinceSnapshot == 0 {
		return "", false
	}
	if in.OperationsSinceSnapshot <= th.MinOperations {
		return "", false
	}
	if in.InstalledPackages <= th.MinPackages {
		return "", false
	}
	for _, s := range in.Snapshots {
		if s.PackageCount >= in.InstalledPackages && now.Sub(s.CreatedAt) <= th.RecentWindow {
			return "", false
		}
	}
	return fmt.Sprintf(
		"Tip: %d operations since your last named snapshot. Consider 'venvtrack snapshot <name>' to checkpoint your %d packages.",
		in.OperationsSinceSnapshot, in.InstalledPackages), true
}
