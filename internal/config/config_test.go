package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"rawsweep/internal/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Setenv("DARKTABLE_CLI", "")
	cfg := config.Default()
	cfg.Darktable.Binary = "darktable-cli"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Sweep.Stage != "colorbalancergb" || cfg.Sweep.Field != "contrast" || cfg.Sweep.Steps != 7 {
		t.Fatalf("unexpected sweep defaults: %+v", cfg.Sweep)
	}
	if cfg.RenderTimeout() != 600*time.Second {
		t.Fatalf("render timeout = %s", cfg.RenderTimeout())
	}
}

func TestLoadMissingExplicitPathUsesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DARKTABLE_CLI", "")

	path := filepath.Join(t.TempDir(), "missing.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false")
	}
	if resolved != path {
		t.Fatalf("resolved = %q", resolved)
	}
	if cfg.Darktable.Binary != "darktable-cli" {
		t.Fatalf("binary = %q", cfg.Darktable.Binary)
	}
	wantOutput := filepath.Join(home, ".local", "share", "rawsweep", "renders")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("output_dir = %q, want %q", cfg.Paths.OutputDir, wantOutput)
	}
}

func TestLoadReadsFileAndNormalizes(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DARKTABLE_CLI", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
output_dir = "~/renders"

[darktable]
binary = "/opt/darktable/bin/darktable-cli"
render_timeout = 30
extra_args = ["--hq", " ", "true"]

[sweep]
source_dir = "~/raws"
stage = " Exposure "
field = "exposure"
start = -1
stop = 1
steps = 5
output_format = ".TIF"
only_stages = ["Sharpen", "sharpen", ""]

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Paths.OutputDir != filepath.Join(home, "renders") {
		t.Fatalf("output_dir = %q", cfg.Paths.OutputDir)
	}
	if cfg.Sweep.SourceDir != filepath.Join(home, "raws") {
		t.Fatalf("source_dir = %q", cfg.Sweep.SourceDir)
	}
	if cfg.Sweep.Stage != "exposure" || cfg.Sweep.OutputFormat != "tif" {
		t.Fatalf("sweep not normalized: %+v", cfg.Sweep)
	}
	if len(cfg.Sweep.OnlyStages) != 1 || cfg.Sweep.OnlyStages[0] != "sharpen" {
		t.Fatalf("only_stages = %v", cfg.Sweep.OnlyStages)
	}
	if len(cfg.Darktable.ExtraArgs) != 2 {
		t.Fatalf("extra_args = %v", cfg.Darktable.ExtraArgs)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}
	if cfg.RenderTimeout() != 30*time.Second {
		t.Fatalf("timeout = %s", cfg.RenderTimeout())
	}
}

func TestLoadBinaryFromEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DARKTABLE_CLI", "/usr/local/bin/darktable-cli")
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Darktable.Binary != "/usr/local/bin/darktable-cli" {
		t.Fatalf("binary = %q", cfg.Darktable.Binary)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[sweep]\nbogus = 1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error for unknown key")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"binary", func(c *config.Config) { c.Darktable.Binary = "" }, "darktable.binary"},
		{"timeout", func(c *config.Config) { c.Darktable.RenderTimeout = -1 }, "darktable.render_timeout"},
		{"stage", func(c *config.Config) { c.Sweep.Stage = "demosaic" }, "sweep.stage"},
		{"field", func(c *config.Config) { c.Sweep.Field = "nope" }, "sweep.field"},
		{"array field", func(c *config.Config) { c.Sweep.Stage = "rawprepare"; c.Sweep.Field = "black_levels" }, "cannot be swept"},
		{"steps", func(c *config.Config) { c.Sweep.Steps = 0 }, "sweep.steps"},
		{"offset", func(c *config.Config) { c.Sweep.Offset = -2 }, "sweep.offset"},
		{"limit", func(c *config.Config) { c.Sweep.Limit = -1 }, "sweep.limit"},
		{"format", func(c *config.Config) { c.Sweep.OutputFormat = "gif" }, "sweep.output_format"},
		{"base", func(c *config.Config) { c.Sweep.Base = "half" }, "sweep.base"},
		{"only", func(c *config.Config) { c.Sweep.OnlyStages = []string{"lens"} }, "sweep.only_stages"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"log level", func(c *config.Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Darktable.Binary = "darktable-cli"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tc.want)
			}
		})
	}
}

func TestCreateSampleLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DARKTABLE_CLI", "")
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path, false); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if err := config.CreateSample(path, false); !errors.Is(err, config.ErrConfigExists) {
		t.Fatalf("second CreateSample = %v, want ErrConfigExists", err)
	}
	if !exists || cfg.Sweep.Steps != 7 || len(cfg.Sweep.DumpStages) != 7 {
		t.Fatalf("sample config not loaded as expected: %+v", cfg.Sweep)
	}
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(root, "out")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Paths.LedgerPath = filepath.Join(root, "state", "ledger.db")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{"out", "logs", "state"} {
		if info, err := os.Stat(filepath.Join(root, dir)); err != nil || !info.IsDir() {
			t.Fatalf("%s not created: %v", dir, err)
		}
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/renders", filepath.Join(home, "renders")},
		{"/tmp/a/../b", "/tmp/b"},
	}
	for _, tc := range tests {
		got, err := config.ExpandPath(tc.in)
		if err != nil {
			t.Fatalf("ExpandPath(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ExpandPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
