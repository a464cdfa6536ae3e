package config

import (
	"errors"
	"fmt"
	"strings"

	"rawsweep/internal/params"
)

var supportedOutputFormats = map[string]struct{}{
	"png":  {},
	"tif":  {},
	"tiff": {},
	"jpg":  {},
	"jpeg": {},
	"exr":  {},
	"pfm":  {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDarktable(); err != nil {
		return err
	}
	if err := c.validateSweep(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDarktable() error {
	if strings.TrimSpace(c.Darktable.Binary) == "" {
		return errors.New("darktable.binary must be set (or export DARKTABLE_CLI)")
	}
	if c.Darktable.RenderTimeout < 0 {
		return errors.New("darktable.render_timeout must be zero or positive (seconds)")
	}
	return nil
}

func (c *Config) validateSweep() error {
	stage, ok := params.Lookup(c.Sweep.Stage)
	if !ok || stage == params.Blend {
		return fmt.Errorf("sweep.stage %q is not a configurable stage", c.Sweep.Stage)
	}
	field, ok := params.SchemaFor(stage).Field(c.Sweep.Field)
	if !ok {
		return fmt.Errorf("sweep.field %q is not a field of %s", c.Sweep.Field, c.Sweep.Stage)
	}
	if !field.Type.Scalar() {
		return fmt.Errorf("sweep.field %s.%s is %s and cannot be swept", c.Sweep.Stage, c.Sweep.Field, field.Type)
	}
	if c.Sweep.Steps <= 0 {
		return errors.New("sweep.steps must be positive")
	}
	if c.Sweep.Offset < 0 {
		return errors.New("sweep.offset must be zero or positive")
	}
	if c.Sweep.Limit < 0 {
		return errors.New("sweep.limit must be zero (no limit) or positive")
	}
	if _, ok := supportedOutputFormats[c.Sweep.OutputFormat]; !ok {
		return fmt.Errorf("sweep.output_format %q is not supported", c.Sweep.OutputFormat)
	}
	switch c.Sweep.Base {
	case "minimal", "full":
	default:
		return fmt.Errorf("sweep.base must be minimal or full, got %q", c.Sweep.Base)
	}
	for _, name := range c.Sweep.OnlyStages {
		s, ok := params.Lookup(name)
		if !ok || s == params.Blend {
			return fmt.Errorf("sweep.only_stages: unknown stage %q", name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
