// Package manifest implements the portable share-manifest format and the
// named snapshot files it is built from.
//
// A share manifest is a comment-prefixed header block followed by a blank
// line and `name==version` lines in pip's own freeze format. The package
// lines are load-bearing and must round-trip losslessly; the header is
// advisory and a missing or mangled header never fails an import.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/blackwell-systems/venvtrack/internal/apperr"
	"github.com/blackwell-systems/venvtrack/internal/pip"
)

// headerMarker opens every share manifest.
const headerMarker = "# venvtrack shared environment"

// Manifest is a named snapshot plus export metadata.
type Manifest struct {
	Created      time.Time
	Python       string
	PackageCount int
	By           string // exporting actor, user@host
	Packages     []pip.Package
}

// Warnings collects non-fatal header issues found while parsing.
type Warnings []string

// Write serializes the manifest: header block, blank line, then one
// freeze-format line per package, sorted by name.
func (m *Manifest) Write(w io.Writer) error {
	pkgs := make([]pip.Package, len(m.Packages))
	copy(pkgs, m.Packages)
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })

	var b strings.Builder
	b.WriteString(headerMarker + "\n")
	b.WriteString("# Created: " + m.Created.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("# Python: " + m.Python + "\n")
	b.WriteString(fmt.Sprintf("# Packages: %d\n", len(pkgs)))
	b.WriteString("# By: " + m.By + "\n")
	b.WriteString("#\n")
	b.WriteString("# To import: venvtrack import <file>\n")
	b.WriteString("\n")
	for _, p := range pkgs {
		b.WriteString(FreezeLine(p) + "\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// FreezeLine renders a package in the freeze wire format.
func FreezeLine(p pip.Package) string {
	if p.Provenance != "" && p.Version == "" {
		return p.Name + " @ " + p.Provenance
	}
	return p.Name + "==" + p.Version
}

// Parse reads a manifest. Header fields are parsed best-effort and
// problems come back as warnings; a package line that is neither blank,
// a comment, nor valid freeze format fails the parse with
// apperr.ErrManifestParse.
func Parse(r io.Reader) (*Manifest, Warnings, error) {
	m := &Manifest{}
	var warns Warnings

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			parseHeaderLine(m, &warns, line)
			continue
		}
		pkg, ok := pip.ParseFreezeLine(line)
		if !ok {
			return nil, warns, fmt.Errorf("line %d: %q: %w", lineNo, line, apperr.ErrManifestParse)
		}
		m.Packages = append(m.Packages, pkg)
	}
	if err := scanner.Err(); err != nil {
		return nil, warns, fmt.Errorf("failed to read manifest: %w", err)
	}

	sort.Slice(m.Packages, func(i, j int) bool { return m.Packages[i].Name < m.Packages[j].Name })
	if m.PackageCount != 0 && m.PackageCount != len(m.Packages) {
		warns = append(warns, fmt.Sprintf("header says %d packages, found %d", m.PackageCount, len(m.Packages)))
	}
	return m, warns, nil
}

// parseHeaderLine fills in one metadata field from a comment line.
// Unknown comments are ignored; recognized fields that fail to parse add
// a warning but never an error.
func parseHeaderLine(m *Manifest, warns *Warnings, line string) {
	body := strings.TrimSpace(strings.TrimPrefix(line, "#"))
	key, value, found := strings.Cut(body, ":")
	if !found {
		return
	}
	value = strings.TrimSpace(value)

	switch key {
	case "Created":
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			*warns = append(*warns, fmt.Sprintf("unparseable Created header %q", value))
			return
		}
		m.Created = t
	case "Python":
		m.Python = value
	case "Packages":
		n, err := strconv.Atoi(value)
		if err != nil {
			*warns = append(*warns, fmt.Sprintf("unparseable Packages header %q", value))
			return
		}
		m.PackageCount = n
	case "By":
		m.By = value
	}
}
