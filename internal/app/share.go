package app

import (
	"bytes"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/venvtrack/internal/fsutil"
	"github.com/blackwell-systems/venvtrack/internal/history"
	"github.com/blackwell-systems/venvtrack/internal/manifest"
	"github.com/blackwell-systems/venvtrack/internal/pip"
)

var shareFlagOutput string

var shareCmd = &cobra.Command{
	Use:   "share <name>",
	Short: "Export a named snapshot as a portable manifest",
	Long: `Writes a named snapshot as a self-describing manifest file that
'venvtrack import' can replay on another machine. The package lines use
pip's freeze format, so plain 'pip install -r' also accepts the file.`,
	Example: `  venvtrack share stable
  venvtrack share stable -o /tmp/stable.venvtrack`,
	Args: cobra.ExactArgs(1),
	RunE: runShare,
}

func init() {
	shareCmd.Flags().StringVarP(&shareFlagOutput, "output", "o", "", "Output file (default: <name>-<date>.venvtrack)")
	RootCmd.AddCommand(shareCmd)
}

func runShare(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := manifest.ValidateName(name); err != nil {
		return err
	}

	env, err := openEnv()
	if err != nil {
		return err
	}
	defer env.Close()

	pkgs, err := manifest.ReadSnapshot(env.cfg.SnapshotsDir(), name)
	if err != nil {
		return err
	}

	m := &manifest.Manifest{
		Created:      time.Now().UTC(),
		PackageCount: len(pkgs),
		By:           history.Actor(),
		Packages:     pkgs,
	}
	if reg, err := env.st.GetNamedSnapshot(name); err == nil {
		m.Python = reg.PythonVersion
	} else if pip.Exists(env.cfg.VenvDir()) {
		if py, err := env.venv.PythonVersion(cmd.Context()); err == nil {
			m.Python = py
		}
	}

	out := shareFlagOutput
	if out == "" {
		out = fmt.Sprintf("%s-%s.venvtrack", name, time.Now().Format("2006-01-02"))
	}

	var buf bytes.Buffer
	if err := m.Write(&buf); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	fmt.Printf("Wrote %s (%d packages).\n", out, len(pkgs))
	fmt.Println("Import elsewhere with: venvtrack import " + out)
	return nil
}
