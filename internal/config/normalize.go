package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDarktable()
	if err := c.normalizeSweep(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = ExpandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DumpDir) == "" {
		c.Paths.DumpDir = defaultDumpDir
	}
	if c.Paths.DumpDir, err = ExpandPath(c.Paths.DumpDir); err != nil {
		return fmt.Errorf("paths.dump_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LedgerPath) == "" {
		c.Paths.LedgerPath = defaultLedgerPath
	}
	if c.Paths.LedgerPath, err = ExpandPath(c.Paths.LedgerPath); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeDarktable() {
	c.Darktable.Binary = strings.TrimSpace(c.Darktable.Binary)
	if c.Darktable.Binary == "" {
		if value, ok := os.LookupEnv("DARKTABLE_CLI"); ok && strings.TrimSpace(value) != "" {
			c.Darktable.Binary = strings.TrimSpace(value)
		} else {
			c.Darktable.Binary = defaultBinary
		}
	}
	args := c.Darktable.ExtraArgs[:0]
	for _, arg := range c.Darktable.ExtraArgs {
		if arg = strings.TrimSpace(arg); arg != "" {
			args = append(args, arg)
		}
	}
	c.Darktable.ExtraArgs = args
}

func (c *Config) normalizeSweep() error {
	if strings.TrimSpace(c.Sweep.SourceDir) != "" {
		var err error
		if c.Sweep.SourceDir, err = ExpandPath(c.Sweep.SourceDir); err != nil {
			return fmt.Errorf("sweep.source_dir: %w", err)
		}
	}
	c.Sweep.Stage = strings.ToLower(strings.TrimSpace(c.Sweep.Stage))
	c.Sweep.Field = strings.TrimSpace(c.Sweep.Field)
	c.Sweep.OutputFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Sweep.OutputFormat), "."))
	if c.Sweep.OutputFormat == "" {
		c.Sweep.OutputFormat = defaultOutputFormat
	}
	c.Sweep.Base = strings.ToLower(strings.TrimSpace(c.Sweep.Base))
	if c.Sweep.Base == "" {
		c.Sweep.Base = defaultSweepBase
	}
	c.Sweep.OnlyStages = normalizeNames(c.Sweep.OnlyStages)
	c.Sweep.DumpStages = normalizeNames(c.Sweep.DumpStages)
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeNames(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
