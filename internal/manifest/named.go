package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/blackwell-systems/venvtrack/internal/apperr"
	"github.com/blackwell-systems/venvtrack/internal/fsutil"
	"github.com/blackwell-systems/venvtrack/internal/pip"
	"github.com/blackwell-systems/venvtrack/internal/snapshot"
)

// namePattern restricts snapshot names to alphanumerics, hyphens, and
// underscores, with no leading dot or hyphen. Anything with a path
// separator fails by construction.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidateName rejects snapshot names that fail the naming pattern,
// before anything touches the filesystem.
func ValidateName(name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.Length(1, 128),
		validation.Match(namePattern),
	)
	if err != nil {
		return fmt.Errorf("%q: %w", name, apperr.ErrInvalidName)
	}
	return nil
}

// SnapshotFile returns the path of the named snapshot's package-list file.
func SnapshotFile(dir, name string) string {
	return filepath.Join(dir, name+".txt")
}

// WriteSnapshot persists snap under name in dir as a freeze-format text
// file, one `name==version` line per package, sorted. The write is staged
// then renamed.
func WriteSnapshot(dir, name string, snap *snapshot.Snapshot) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	pkgs := make([]pip.Package, len(snap.Packages))
	copy(pkgs, snap.Packages)
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })

	var b strings.Builder
	for _, p := range pkgs {
		b.WriteString(FreezeLine(p) + "\n")
	}
	if err := fsutil.WriteFileAtomic(SnapshotFile(dir, name), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", name, err)
	}
	return nil
}

// ReadSnapshot loads the named snapshot's package list. A missing file is
// apperr.ErrNotFound.
func ReadSnapshot(dir, name string) ([]pip.Package, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(SnapshotFile(dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("snapshot %q: %w", name, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", name, err)
	}
	return pip.ParseFreeze(string(data)), nil
}

// ListSnapshots returns the names of all snapshot files in dir, sorted.
// A missing directory means no snapshots, not an error.
func ListSnapshots(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(e.Name(), ".txt"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
