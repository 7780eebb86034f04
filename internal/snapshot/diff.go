package snapshot

import (
	"sort"

	"github.com/blackwell-systems/venvtrack/internal/pip"
)

// VersionChange is a package present on both sides of a diff with
// different versions.
type VersionChange struct {
	Name string
	From string
	To   string
}

// Diff is the action plan that transforms one package set into another:
// install everything in Install, re-install every Change at its To
// version, and uninstall everything in Remove.
type Diff struct {
	Install []pip.Package   // present in target, absent from current
	Change  []VersionChange // present in both, version differs
	Remove  []string        // present in current, absent from target
	Same    int             // present in both at the same version
}

// Empty reports whether the diff requires no action.
func (d *Diff) Empty() bool {
	return len(d.Install) == 0 && len(d.Change) == 0 && len(d.Remove) == 0
}

// Actions returns the total number of actions the diff implies.
func (d *Diff) Actions() int {
	return len(d.Install) + len(d.Change) + len(d.Remove)
}

// Compute diffs current against target and returns the plan that makes
// current equal to target. All slices come back sorted by package name.
func Compute(current, target *Snapshot) *Diff {
	d := &Diff{}
	cur := make(map[string]pip.Package, len(current.Packages))
	for _, p := range current.Packages {
		cur[p.Name] = p
	}

	for _, want := range target.Packages {
		have, ok := cur[want.Name]
		switch {
		case !ok:
			d.Install = append(d.Install, want)
		case have.Version != want.Version:
			d.Change = append(d.Change, VersionChange{Name: want.Name, From: have.Version, To: want.Version})
		default:
			d.Same++
		}
		delete(cur, want.Name)
	}
	for name := range cur {
		d.Remove = append(d.Remove, name)
	}

	sort.Slice(d.Install, func(i, j int) bool { return d.Install[i].Name < d.Install[j].Name })
	sort.Slice(d.Change, func(i, j int) bool { return d.Change[i].Name < d.Change[j].Name })
	sort.Strings(d.Remove)
	return d
}
