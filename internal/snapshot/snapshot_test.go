package snapshot

import (
	"context"
	"reflect"
	"sort"
	"testing"

	"github.com/blackwell-systems/venvtrack/internal/pip"
)

// fakeInstaller is an in-memory pip.Installer for snapshotter tests.
type fakeInstaller struct {
	pkgs      []pip.Package
	deps      map[string][]string
	pyVersion string
}

func (f *fakeInstaller) ListInstalled(ctx context.Context) ([]pip.Package, error) {
	out := make([]pip.Package, len(f.pkgs))
	copy(out, f.pkgs)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeInstaller) Install(ctx context.Context, name, version string) error { return nil }
func (f *fakeInstaller) Uninstall(ctx context.Context, name string) error        { return nil }
func (f *fakeInstaller) Upgrade(ctx context.Context, name string) error          { return nil }

func (f *fakeInstaller) Dependencies(ctx context.Context, name string) ([]string, error) {
	return f.deps[name], nil
}

func (f *fakeInstaller) PythonVersion(ctx context.Context) (string, error) {
	return f.pyVersion, nil
}

func TestCapture(t *testing.T) {
	inst := &fakeInstaller{
		pkgs: []pip.Package{
			{Name: "urllib3", Version: "2.0.4"},
			{Name: "six", Version: "1.16.0"},
		},
		pyVersion: "Python 3.11.0",
	}
	s := &Snapshotter{Installer: inst}

	snap, err := s.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() failed: %v", err)
	}
	if snap.PythonVersion != "Python 3.11.0" {
		t.Errorf("PythonVersion = %q", snap.PythonVersion)
	}
	if got := snap.Names(); !reflect.DeepEqual(got, []string{"six", "urllib3"}) {
		t.Errorf("Names() = %v", got)
	}
	if snap.CapturedAt.IsZero() {
		t.Error("CapturedAt should be set")
	}
}

func TestCapture_EmptyEnvironment(t *testing.T) {
	s := &Snapshotter{Installer: &fakeInstaller{pyVersion: "Python 3.11.0"}}
	snap, err := s.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() of empty environment failed: %v", err)
	}
	if len(snap.Packages) != 0 {
		t.Errorf("expected no packages, got %v", snap.Packages)
	}
}

func TestCaptureDeps(t *testing.T) {
	inst := &fakeInstaller{
		pkgs: []pip.Package{
			{Name: "requests", Version: "2.28.0"},
			{Name: "urllib3", Version: "2.0.4"},
			{Name: "certifi", Version: "2023.7.22"},
		},
		deps: map[string][]string{
			"requests": {"urllib3", "certifi"},
		},
		pyVersion: "Python 3.11.0",
	}
	s := &Snapshotter{Installer: inst}
	snap, err := s.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() failed: %v", err)
	}

	edges, err := s.CaptureDeps(context.Background(), snap)
	if err != nil {
		t.Fatalf("CaptureDeps() failed: %v", err)
	}
	if len(edges) != 3 {
		t.Errorf("expected an adjacency entry per package, got %d", len(edges))
	}
	if !reflect.DeepEqual(edges["requests"], []string{"urllib3", "certifi"}) {
		t.Errorf("requests deps = %v", edges["requests"])
	}
	if len(edges["certifi"]) != 0 {
		t.Errorf("certifi deps = %v, want none", edges["certifi"])
	}
}

func TestComputeDiff(t *testing.T) {
	current := &Snapshot{Packages: []pip.Package{
		{Name: "six", Version: "1.16.0"},
		{Name: "urllib3", Version: "1.26.0"},
		{Name: "leftover", Version: "0.1.0"},
	}}
	target := &Snapshot{Packages: []pip.Package{
		{Name: "six", Version: "1.16.0"},
		{Name: "urllib3", Version: "2.0.4"},
		{Name: "requests", Version: "2.28.0"},
	}}

	d := Compute(current, target)

	if len(d.Install) != 1 || d.Install[0].Name != "requests" {
		t.Errorf("Install = %v, want requests", d.Install)
	}
	if len(d.Change) != 1 || d.Change[0] != (VersionChange{Name: "urllib3", From: "1.26.0", To: "2.0.4"}) {
		t.Errorf("Change = %v", d.Change)
	}
	if !reflect.DeepEqual(d.Remove, []string{"leftover"}) {
		t.Errorf("Remove = %v", d.Remove)
	}
	if d.Same != 1 {
		t.Errorf("Same = %d, want 1", d.Same)
	}
	if d.Empty() {
		t.Error("diff should not be empty")
	}
}

func TestComputeDiff_Identical(t *testing.T) {
	snap := &Snapshot{Packages: []pip.Package{{Name: "six", Version: "1.16.0"}}}
	d := Compute(snap, snap)
	if !d.Empty() {
		t.Errorf("identical snapshots should produce an empty diff, got %+v", d)
	}
	if d.Same != 1 {
		t.Errorf("Same = %d, want 1", d.Same)
	}
}

func TestEqual(t *testing.T) {
	a := &Snapshot{Packages: []pip.Package{{Name: "six", Version: "1.16.0"}}}
	b := &Snapshot{Packages: []pip.Package{{Name: "six", Version: "1.16.0"}}}
	c := &Snapshot{Packages: []pip.Package{{Name: "six", Version: "1.15.0"}}}

	if !Equal(a, b) {
		t.Error("identical package sets should be Equal")
	}
	if Equal(a, c) {
		t.Error("different versions should not be Equal")
	}
	if Equal(a, &Snapshot{}) {
		t.Error("different sizes should not be Equal")
	}
}
