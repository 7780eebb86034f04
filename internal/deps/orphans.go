// Package deps models the dependency graph of the managed environment and
// detects packages orphaned by a removal. The graph is an adjacency map
// keyed by normalized package names, rebuilt from installer metadata on
// every query; nothing here is persisted.
package deps

import "sort"

// Closure returns the transitive dependency closure of start over edges,
// excluding start itself. Cycles are tolerated: a visited node is never
// expanded twice.
func Closure(start string, edges map[string][]string) map[string]bool {
	closure := make(map[string]bool)
	stack := append([]string(nil), edges[start]...)
	visited := map[string]bool{start: true}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true
		closure[n] = true
		stack = append(stack, edges[n]...)
	}
	return closure
}

// Dependents returns the reverse adjacency of edges: for each package, the
// set of packages that directly depend on it.
func Dependents(edges map[string][]string) map[string][]string {
	rev := make(map[string][]string)
	for pkg, ds := range edges {
		for _, d := range ds {
			rev[d] = append(rev[d], pkg)
		}
	}
	for _, dependents := range rev {
		sort.Strings(dependents)
	}
	return rev
}

// FindOrphans returns the packages in installed that were transitive
// dependencies of removed and are no longer reachable from any other
// installed package. Explicitly installed packages are never orphans.
//
// The result is advisory and sorted by name; the caller decides whether
// anything is actually uninstalled. edges must be the dependency adjacency
// captured before the removal, so that removed's own edges are present.
func FindOrphans(removed string, installed []string, edges map[string][]string, explicit map[string]bool) []string {
	installedSet := make(map[string]bool, len(installed))
	for _, p := range installed {
		installedSet[p] = true
	}

	// Candidates: still-installed, non-explicit transitive deps of the
	// removed package.
	candidates := make(map[string]bool)
	for dep := range Closure(removed, edges) {
		if installedSet[dep] && !explicit[dep] {
			candidates[dep] = true
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	// Fixed point: a candidate reachable from any non-candidate installed
	// package is not an orphan. Rescuing one candidate turns it into a
	// referencing root, which may rescue its own dependencies, so iterate
	// until the candidate set stops shrinking.
	for {
		referenced := make(map[string]bool)
		for _, p := range installed {
			if candidates[p] || p == removed {
				continue
			}
			referenced[p] = true
			for dep := range Closure(p, edges) {
				if dep != removed {
					referenced[dep] = true
				}
			}
		}

		shrunk := false
		for c := range candidates {
			if referenced[c] {
				delete(candidates, c)
				shrunk = true
			}
		}
		if !shrunk {
			break
		}
	}

	orphans := make([]string, 0, len(candidates))
	for c := range candidates {
		orphans = append(orphans, c)
	}
	sort.Strings(orphans)
	return orphans
}
