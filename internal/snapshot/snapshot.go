// Package snapshot captures and compares point-in-time views of the
// managed environment's installed package set.
package snapshot

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/venvtrack/internal/pip"
)

// Snapshot is the full state of the environment at one instant: the
// installed packages (sorted by name, names unique), the interpreter
// version, and the capture time.
type Snapshot struct {
	Packages      []pip.Package `json:"packages"`
	PythonVersion string        `json:"python_version"`
	CapturedAt    time.Time     `json:"captured_at"`
}

// Snapshotter captures snapshots through the installer boundary.
type Snapshotter struct {
	Installer pip.Installer
}

// depsFetchLimit bounds concurrent `pip show` subprocesses during a
// dependency-graph capture.
const depsFetchLimit = 8

// Capture reads the live package listing and interpreter version. It is a
// pure read: zero installed packages is a valid result.
func (s *Snapshotter) Capture(ctx context.Context) (*Snapshot, error) {
	pkgs, err := s.Installer.ListInstalled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list installed packages: %w", err)
	}
	pyVersion, err := s.Installer.PythonVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query interpreter version: %w", err)
	}
	return &Snapshot{
		Packages:      pkgs,
		PythonVersion: pyVersion,
		CapturedAt:    time.Now().UTC(),
	}, nil
}

// CaptureDeps builds the direct-dependency adjacency for every package in
// snap, querying the installer concurrently. The graph is reconstructed
// fresh on each call rather than persisted, so it can never go stale.
func (s *Snapshotter) CaptureDeps(ctx context.Context, snap *Snapshot) (map[string][]string, error) {
	edges := make(map[string][]string, len(snap.Packages))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(depsFetchLimit)
	for _, p := range snap.Packages {
		p := p
		g.Go(func() error {
			deps, err := s.Installer.Dependencies(ctx, p.Name)
			if err != nil {
				return fmt.Errorf("failed to get dependencies for %s: %w", p.Name, err)
			}
			mu.Lock()
			edges[p.Name] = deps
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return edges, nil
}

// Get returns the package named name, if present.
func (s *Snapshot) Get(name string) (pip.Package, bool) {
	name = pip.NormalizeName(name)
	for _, p := range s.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return pip.Package{}, false
}

// Map returns the snapshot's name -> version mapping.
func (s *Snapshot) Map() map[string]string {
	m := make(map[string]string, len(s.Packages))
	for _, p := range s.Packages {
		m[p.Name] = p.Version
	}
	return m
}

// Names returns the sorted package names.
func (s *Snapshot) Names() []string {
	names := make([]string, 0, len(s.Packages))
	for _, p := range s.Packages {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// Equal reports whether two snapshots describe the same package set
// (names and versions; capture time and interpreter are ignored).
func Equal(a, b *Snapshot) bool {
	if len(a.Packages) != len(b.Packages) {
		return false
	}
	bm := b.Map()
	for _, p := range a.Packages {
		if v, ok := bm[p.Name]; !ok || v != p.Version {
			return false
		}
	}
	return true
}
