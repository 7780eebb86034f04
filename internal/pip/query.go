package pip

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"sort"
	"strings"
)

// ListInstalled parses `pip freeze` output into the installed package set.
// Freeze is used instead of `pip list` because its line format carries
// provenance for VCS and local installs ("name @ url") and is the same wire
// format share manifests use.
func (v *Venv) ListInstalled(ctx context.Context) ([]Package, error) {
	output, err := v.run(ctx, "freeze")
	if err != nil {
		return nil, fmt.Errorf("pip freeze failed: %w", err)
	}
	return ParseFreeze(output), nil
}

// ParseFreeze parses freeze-format lines into packages, sorted by name.
// Unrecognized lines are skipped: freeze output is produced by pip itself,
// so anything unparseable is a pip artifact, not an error.
func ParseFreeze(output string) []Package {
	var pkgs []Package
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if pkg, ok := ParseFreezeLine(line); ok {
			pkgs = append(pkgs, pkg)
		}
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	return pkgs
}

// ParseFreezeLine parses a single freeze line. Supported forms:
//
//	name==version
//	name @ url          (VCS or local provenance)
//	-e path_or_url      (editable install; path is the provenance)
func ParseFreezeLine(line string) (Package, bool) {
	if rest, ok := strings.CutPrefix(line, "-e "); ok {
		src := strings.TrimSpace(rest)
		// Editable VCS requirements carry the name in an #egg= fragment;
		// plain local paths fall back to the directory name.
		name := path.Base(strings.TrimSuffix(src, "/"))
		if _, egg, found := strings.Cut(src, "#egg="); found {
			name = egg
		}
		return Package{Name: NormalizeName(name), Provenance: src}, name != ""
	}
	if name, url, found := strings.Cut(line, " @ "); found {
		return Package{Name: NormalizeName(name), Provenance: strings.TrimSpace(url)}, name != ""
	}
	if name, ver, found := strings.Cut(line, "=="); found {
		return Package{Name: NormalizeName(name), Version: strings.TrimSpace(ver)}, name != ""
	}
	return Package{}, false
}

// Dependencies returns the direct dependencies of an installed package via
// `pip show`. A package pip does not know yields an empty set, not an
// error, since dependency metadata is advisory.
func (v *Venv) Dependencies(ctx context.Context, name string) ([]string, error) {
	output, err := v.run(ctx, "show", name)
	if err != nil {
		var instErr *InstallerError
		if errors.As(err, &instErr) {
			return nil, nil
		}
		return nil, fmt.Errorf("pip show %s failed: %w", name, err)
	}
	return parseRequires(output), nil
}

// parseRequires extracts the "Requires:" field from pip show output.
func parseRequires(output string) []string {
	for _, line := range strings.Split(output, "\n") {
		rest, ok := strings.CutPrefix(line, "Requires:")
		if !ok {
			continue
		}
		var deps []string
		for _, dep := range strings.Split(rest, ",") {
			dep = strings.TrimSpace(dep)
			if dep != "" {
				deps = append(deps, NormalizeName(dep))
			}
		}
		return deps
	}
	return nil
}

// PythonVersion returns the venv interpreter's version string, e.g.
// "Python 3.11.0".
func (v *Venv) PythonVersion(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, v.python(), "--version")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("python --version failed: %w (output: %s)", err, string(output))
	}
	return strings.TrimSpace(string(output)), nil
}

// Version returns the venv pip's own version line.
func (v *Venv) Version(ctx context.Context) (string, error) {
	output, err := v.run(ctx, "--version")
	if err != nil {
		return "", fmt.Errorf("pip --version failed: %w", err)
	}
	return strings.TrimSpace(output), nil
}
