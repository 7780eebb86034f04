package pip

import "strings"

// Package represents one installed package as reported by pip.
type Package struct {
	Name       string `json:"name"` // case-normalized (PEP 503)
	Version    string `json:"version"`
	// Provenance is the package origin: index name, VCS URL, or local
	// path. Empty means the default index.
	Provenance string `json:"provenance,omitempty"`
}

// NormalizeName canonicalizes a package name per PEP 503: lowercase with
// runs of '-', '_' and '.' collapsed to a single hyphen.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	prevSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if r == '-' || r == '_' || r == '.' {
			prevSep = true
			continue
		}
		if prevSep && b.Len() > 0 {
			b.WriteByte('-')
		}
		prevSep = false
		b.WriteRune(r)
	}
	return b.String()
}
