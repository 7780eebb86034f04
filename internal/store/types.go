package store

import "time"

// Operation is one indexed ledger entry. The full before/after snapshots
// live in the entry files; the index carries what listings and statistics
// need.
type Operation struct {
	ID          int64
	Kind        string // install | uninstall | upgrade | batch
	Args        string
	Actor       string // user@host
	CreatedAt   time.Time
	Undone      bool
	BeforeCount int
	AfterCount  int
}

// NamedSnapshot is a registry row for a user-named snapshot file.
type NamedSnapshot struct {
	Name          string
	CreatedAt     time.Time
	PackageCount  int
	PythonVersion string
	FilePath      string
}
