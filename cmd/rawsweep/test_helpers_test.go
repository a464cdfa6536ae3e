package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rawsweep/internal/config"
	"rawsweep/internal/testsupport"
)

// renderScript stands in for darktable-cli: it answers --version and
// creates the destination file ($3) of a render.
const renderScript = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "this is darktable-cli 3.8.1"
  exit 0
fi
: > "$3"
cat <<'EOT'
[dev_pixelpipe] took 0.020 secs (0.050 CPU) processed ` + "`" + `exposure' on CPU, blended on CPU [export]
[dev_process_export] pixel pipeline processing took 0.250 secs (0.700 CPU)
EOT
`

const failingScript = "#!/bin/sh\necho \"export failed\" >&2\nexit 1\n"

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, script string) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithSweep("colorbalancergb", "contrast", -0.5, 0.5, 2))
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	binary := filepath.Join(base, "bin", "darktable-cli")
	if err := os.MkdirAll(filepath.Dir(binary), 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	if err := os.WriteFile(binary, []byte(script), 0o755); err != nil {
		t.Fatalf("write darktable stub: %v", err)
	}
	cfg.Darktable.Binary = binary
	cfg.Logging.Level = "error"

	return &cliTestEnv{
		cfg:        cfg,
		configPath: testsupport.WriteConfig(t, cfg),
		baseDir:    base,
	}
}

func (e *cliTestEnv) writeSources(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		testsupport.WriteDNG(t, filepath.Join(e.cfg.Sweep.SourceDir, name))
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n%s", needle, haystack)
	}
}
