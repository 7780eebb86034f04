// Package output provides terminal output utilities for venvtrack.
//
// This package includes:
//   - Table rendering for history entries, named snapshots, and diffs
//   - Spinners and progress bars for long-running pip operations
//   - Human-readable formatting for dates and counts
//
// All table rendering uses ASCII characters and ANSI color codes for
// terminal output. Progress indicators are thread-safe.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/venvtrack/internal/history"
	"github.com/blackwell-systems/venvtrack/internal/pip"
	"github.com/blackwell-systems/venvtrack/internal/snapshot"
	"github.com/blackwell-systems/venvtrack/internal/store"
)

// ANSI color codes for diff and history display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderHistoryTable renders the operation ledger, most recent last.
// When detailed is true each row is followed by the per-package changes
// between its before and after states.
func RenderHistoryTable(entries []*history.Entry, detailed bool) string {
	if len(entries) == 0 {
		return "No operations recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-6s %-10s %-28s %-13s %-9s %s\n",
		"ID", "Kind", "Arguments", "When", "Packages", "Actor"))
	sb.WriteString(strings.Repeat("─", 84))
	sb.WriteString("\n")

	for _, e := range entries {
		pkgs := "?"
		if e.Before != nil && e.After != nil {
			pkgs = fmt.Sprintf("%d→%d", len(e.Before.Packages), len(e.After.Packages))
		}
		kind := string(e.Kind)
		if e.Undone {
			kind = colorize(colorGray, kind+" (undone)")
		}
		sb.WriteString(fmt.Sprintf("%-6d %-10s %-28s %-13s %-9s %s\n",
			e.ID,
			kind,
			truncate(strings.Join(e.Args, " "), 28),
			formatRelativeTime(e.Timestamp),
			pkgs,
			truncate(e.Actor, 24)))

		if detailed && e.Before != nil && e.After != nil {
			d := snapshot.Compute(e.Before, e.After)
			for _, line := range diffLines(d) {
				sb.WriteString("       " + line + "\n")
			}
		}
	}

	return sb.String()
}

// RenderSnapshotTable renders the named snapshot registry.
func RenderSnapshotTable(snaps []*store.NamedSnapshot) string {
	if len(snaps) == 0 {
		return "No snapshots saved. Create one with: venvtrack snapshot <name>\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-24s %-13s %-9s %s\n",
		"Name", "Created", "Packages", "Python"))
	sb.WriteString(strings.Repeat("─", 60))
	sb.WriteString("\n")

	for _, s := range snaps {
		sb.WriteString(fmt.Sprintf("%-24s %-13s %-9d %s\n",
			truncate(s.Name, 24),
			formatRelativeTime(s.CreatedAt),
			s.PackageCount,
			s.PythonVersion))
	}

	return sb.String()
}

// RenderDiff renders the changes needed to move from one package set to
// another. Installs are green, removals red, version changes yellow.
func RenderDiff(d *snapshot.Diff) string {
	if d.Empty() {
		return "No differences.\n"
	}

	var sb strings.Builder
	for _, line := range diffLines(d) {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("\n%d to install, %d to change, %d to remove, %d unchanged\n",
		len(d.Install), len(d.Change), len(d.Remove), d.Same))
	return sb.String()
}

// diffLines returns one formatted line per diff action, installs first.
func diffLines(d *snapshot.Diff) []string {
	lines := make([]string, 0, len(d.Install)+len(d.Change)+len(d.Remove))
	for _, p := range d.Install {
		lines = append(lines, colorize(colorGreen, "+ "+packageLabel(p)))
	}
	for _, c := range d.Change {
		lines = append(lines, colorize(colorYellow, fmt.Sprintf("~ %s %s → %s", c.Name, c.From, c.To)))
	}
	for _, name := range d.Remove {
		lines = append(lines, colorize(colorRed, fmt.Sprintf("- %s", name)))
	}
	return lines
}

// packageLabel formats a package with its provenance when one was
// recorded, so VCS and editable installs do not masquerade as plain
// index installs.
func packageLabel(p pip.Package) string {
	switch {
	case p.Provenance != "" && p.Version == "":
		return p.Name + " @ " + p.Provenance
	case p.Provenance != "":
		return fmt.Sprintf("%s==%s (from %s)", p.Name, p.Version, p.Provenance)
	default:
		return p.Name + "==" + p.Version
	}
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	case diff < 30*24*time.Hour:
		weeks := int(diff.Hours() / 24 / 7)
		if weeks == 1 {
			return "1 week ago"
		}
		return fmt.Sprintf("%d weeks ago", weeks)
	default:
		months := int(diff.Hours() / 24 / 30)
		if months == 1 {
			return "1 month ago"
		}
		return fmt.Sprintf("%d months ago", months)
	}
}

// truncate shortens a string to maxLen, appending "..." when it cuts.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
