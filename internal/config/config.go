package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	DumpDir    string `toml:"dump_dir"`
	LedgerPath string `toml:"ledger_path"`
}

// Darktable contains darktable-cli invocation settings.
type Darktable struct {
	Binary         string   `toml:"binary"`
	RenderTimeout  int      `toml:"render_timeout"`
	DisableOpenCL  bool     `toml:"disable_opencl"`
	ExtraArgs      []string `toml:"extra_args"`
	CompressParams bool     `toml:"compress_params"`
}

// Sweep describes a parameter sweep over a directory of raw files.
type Sweep struct {
	SourceDir    string   `toml:"source_dir"`
	Stage        string   `toml:"stage"`
	Field        string   `toml:"field"`
	Start        float64  `toml:"start"`
	Stop         float64  `toml:"stop"`
	Steps        int      `toml:"steps"`
	Offset       int      `toml:"offset"`
	Limit        int      `toml:"limit"`
	OutputFormat string   `toml:"output_format"`
	Base         string   `toml:"base"`
	OnlyStages   []string `toml:"only_stages"`
	ConvertDumps bool     `toml:"convert_dumps"`
	DumpStages   []string `toml:"dump_stages"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for rawsweep.
//
// Configuration sections by subsystem:
//   - Paths: render output, logs, darktable debug dumps, run ledger
//   - Darktable: darktable-cli binary and flags
//   - Sweep: which stage field to vary and over which files
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Darktable Darktable `toml:"darktable"`
	Sweep     Sweep     `toml:"sweep"`
	Logging   Logging   `toml:"logging"`
}

// ErrConfigExists is returned by CreateSample when the target is already
// present and overwrite is false.
var ErrConfigExists = errors.New("config file already exists")

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath(defaultConfigPath)
}

// Load reads the configuration at path, or the first existing default
// location when path is empty, and returns it normalized and validated
// together with the resolved path and whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// locate resolves an explicit path, or falls back to the user config file
// and then ./rawsweep.toml. A missing explicit path is not an error.
func locate(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		switch _, err := os.Stat(expanded); {
		case err == nil:
			return expanded, true, nil
		case errors.Is(err, fs.ErrNotExist):
			return expanded, false, nil
		default:
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}

	userPath, err := ExpandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	localPath, err := filepath.Abs("rawsweep.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, localPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

// EnsureDirectories creates the output and log directories and the ledger's
// parent directory.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir, filepath.Dir(c.Paths.LedgerPath)} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RenderTimeout returns the per-render timeout; zero disables it.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Darktable.RenderTimeout) * time.Second
}

// ExpandPath resolves a leading ~ against the home directory and returns an
// absolute, cleaned path. The empty string is returned unchanged.
func ExpandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimLeft(p[1:], `/\`))
	}
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}
	return abs, nil
}

// CreateSample writes the embedded sample configuration to path, creating
// parent directories. An existing file is only replaced when overwrite is set.
func CreateSample(path string, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w at %s (use --overwrite to replace it)", ErrConfigExists, path)
	}
	if err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	if _, err := f.WriteString(sampleConfig); err != nil {
		f.Close()
		return fmt.Errorf("write sample config: %w", err)
	}
	return f.Close()
}

// Marshal encodes cfg as TOML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
