// Package apperr defines the sentinel errors shared across venvtrack
// commands. Commands map these to distinct exit codes at the CLI boundary.
package apperr

import "errors"

var (
	// ErrEnvUnavailable means the managed venv does not exist or pip
	// inside it cannot be queried. Fatal before any mutation.
	ErrEnvUnavailable = errors.New("environment unavailable; run 'venvtrack init' to create it")

	// ErrDrift means the live package set disagrees with the ledger's
	// expected state. Fatal for undo/redo; never auto-repaired.
	ErrDrift = errors.New("environment drift detected")

	// ErrInvalidName means a snapshot name failed the naming pattern.
	ErrInvalidName = errors.New("invalid snapshot name")

	// ErrNotFound means a referenced snapshot or operation id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrManifestParse means the package-list section of a share manifest
	// is malformed. Header problems are warnings, never this error.
	ErrManifestParse = errors.New("manifest parse error")
)
