package config

const (
	defaultConfigPath    = "~/.config/rawsweep/config.toml"
	defaultOutputDir     = "~/.local/share/rawsweep/renders"
	defaultLogDir        = "~/.local/share/rawsweep/logs"
	defaultDumpDir       = "/tmp"
	defaultLedgerPath    = "~/.local/share/rawsweep/ledger.db"
	defaultBinary        = "darktable-cli"
	defaultRenderTimeout = 600
	defaultSweepStage    = "colorbalancergb"
	defaultSweepField    = "contrast"
	defaultSweepStart    = -0.5
	defaultSweepStop     = 0.9
	defaultSweepSteps    = 7
	defaultOutputFormat  = "png"
	defaultSweepBase     = "minimal"
	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
)

// defaultDumpStages are the -d perf dump prefixes darktable writes when built
// with pipeline dumps enabled.
var defaultDumpStages = []string{
	"temperature_bayer",
	"highlights_bayer",
	"exposure",
	"colorin",
	"sharpen",
	"colorbalancergb",
	"colorout",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
			DumpDir:    defaultDumpDir,
			LedgerPath: defaultLedgerPath,
		},
		Darktable: Darktable{
			RenderTimeout:  defaultRenderTimeout,
			DisableOpenCL:  true,
			CompressParams: true,
		},
		Sweep: Sweep{
			Stage:        defaultSweepStage,
			Field:        defaultSweepField,
			Start:        defaultSweepStart,
			Stop:         defaultSweepStop,
			Steps:        defaultSweepSteps,
			OutputFormat: defaultOutputFormat,
			Base:         defaultSweepBase,
			ConvertDumps: true,
			DumpStages:   append([]string(nil), defaultDumpStages...),
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
