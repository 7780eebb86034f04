// Package pip wraps the pip and python binaries of a single managed venv.
// All mutation and query traffic to the environment goes through the
// Installer interface so that commands can be tested against a fake.
package pip

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/venvtrack/internal/apperr"
)

// Installer is the query/mutation boundary to the external installer tool.
type Installer interface {
	// ListInstalled returns the installed package set, sorted by name.
	ListInstalled(ctx context.Context) ([]Package, error)
	// Install installs name, pinned to version when version is non-empty.
	Install(ctx context.Context, name, version string) error
	// Uninstall removes name without prompting.
	Uninstall(ctx context.Context, name string) error
	// Upgrade moves name to the newest available version.
	Upgrade(ctx context.Context, name string) error
	// Dependencies returns the direct dependency names of an installed
	// package, as reported by the installer's metadata.
	Dependencies(ctx context.Context, name string) ([]string, error)
	// PythonVersion returns the interpreter version string of the venv.
	PythonVersion(ctx context.Context) (string, error)
}

// InstallerError carries the captured output and exit status of a failed
// installer subprocess.
type InstallerError struct {
	Args     []string
	Output   string
	ExitCode int
	Err      error
}

func (e *InstallerError) Error() string {
	return fmt.Sprintf("pip %s failed (exit %d): %s", strings.Join(e.Args, " "), e.ExitCode, strings.TrimSpace(e.Output))
}

func (e *InstallerError) Unwrap() error { return e.Err }

// Venv is the Installer backed by a real venv directory.
type Venv struct {
	Dir string // venv root, e.g. ~/.local/python-packages/venv
	// IndexURL, when set, is passed to pip as --index-url on installs.
	IndexURL string
}

// NewVenv returns an Installer for the venv at dir.
func NewVenv(dir string) *Venv {
	return &Venv{Dir: dir}
}

// Exists reports whether a venv exists at dir. The python binary is the
// load-bearing artifact; an empty directory does not count.
func Exists(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "bin", "python"))
	return err == nil && !info.IsDir()
}

// Check returns ErrEnvUnavailable unless the venv exists and its pip binary
// is present. Every command calls this before proceeding.
func (v *Venv) Check() error {
	if !Exists(v.Dir) {
		return fmt.Errorf("no venv at %s: %w", v.Dir, apperr.ErrEnvUnavailable)
	}
	if _, err := os.Stat(v.pip()); err != nil {
		return fmt.Errorf("pip missing from venv at %s: %w", v.Dir, apperr.ErrEnvUnavailable)
	}
	return nil
}

// Create builds a fresh venv at dir via `python3 -m venv`. An existing venv
// is replaced only when the caller has removed it first.
func Create(ctx context.Context, dir string) error {
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	cmd := exec.CommandContext(ctx, "python3", "-m", "venv", dir)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("python3 -m venv %s failed: %w (output: %s)", dir, err, string(output))
	}
	return nil
}

// SitePackages returns the venv's site-packages directory, the location
// watched for external mutation.
func (v *Venv) SitePackages() (string, error) {
	libDir := filepath.Join(v.Dir, "lib")
	entries, err := os.ReadDir(libDir)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", libDir, err)
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "python") {
			return filepath.Join(libDir, e.Name(), "site-packages"), nil
		}
	}
	return "", fmt.Errorf("no python lib directory under %s", libDir)
}

func (v *Venv) pip() string {
	return filepath.Join(v.Dir, "bin", "pip")
}

func (v *Venv) python() string {
	return filepath.Join(v.Dir, "bin", "python")
}

// run executes the venv's pip with args and returns combined output.
// Non-zero exits come back as *InstallerError. The context is honored so
// an interrupted subprocess still returns control to the caller, which is
// then responsible for the after-capture.
func (v *Venv) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, v.pip(), args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return string(output), &InstallerError{
			Args:     args,
			Output:   string(output),
			ExitCode: exitCode,
			Err:      err,
		}
	}
	return string(output), nil
}

// Install installs name through the venv's pip, pinned when version is set.
func (v *Venv) Install(ctx context.Context, name, version string) error {
	spec := name
	if version != "" {
		spec = fmt.Sprintf("%s==%s", name, version)
	}
	_, err := v.run(ctx, v.installArgs("install", spec)...)
	return err
}

// Uninstall removes name through the venv's pip.
func (v *Venv) Uninstall(ctx context.Context, name string) error {
	_, err := v.run(ctx, "uninstall", "-y", name)
	return err
}

// Upgrade moves name to the newest version the index offers.
func (v *Venv) Upgrade(ctx context.Context, name string) error {
	_, err := v.run(ctx, v.installArgs("install", "--upgrade", name)...)
	return err
}

func (v *Venv) installArgs(args ...string) []string {
	if v.IndexURL != "" {
		args = append(args, "--index-url", v.IndexURL)
	}
	return args
}
