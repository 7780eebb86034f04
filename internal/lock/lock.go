// Package lock provides the advisory lock file serializing mutating
// commands against one environment. Read-only commands never take it and
// never block on it.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrLocked means another process holds the mutation lock.
var ErrLocked = errors.New("another venvtrack command is running")

// staleAfter is the age past which a lock file is presumed abandoned even
// when the owning pid cannot be checked.
const staleAfter = 24 * time.Hour

// Lock is a held advisory lock.
type Lock struct {
	path string
}

// Acquire takes the lock at path, creating it exclusively. A lock held by
// a dead process (or older than a day) is broken and retaken once.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
			f.Close()
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}
		if attempt == 0 && isStale(path) {
			os.Remove(path)
			continue
		}
		return nil, fmt.Errorf("lock file %s: %w", path, ErrLocked)
	}
	return nil, fmt.Errorf("lock file %s: %w", path, ErrLocked)
}

// Release removes the lock file. Safe to call more than once.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	os.Remove(l.path)
}

// isStale reports whether the lock at path belongs to a process that no
// longer exists, or is old enough to be presumed abandoned.
func isStale(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	fields := strings.Fields(string(data))
	if len(fields) >= 1 {
		if pid, err := strconv.Atoi(fields[0]); err == nil && pid > 0 {
			// Signal 0 only probes for existence.
			if killErr := syscall.Kill(pid, 0); killErr == syscall.ESRCH {
				return true
			}
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > staleAfter
}
