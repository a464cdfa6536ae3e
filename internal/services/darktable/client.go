package darktable

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"rawsweep/internal/logging"
	"rawsweep/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger routes darktable output and render events to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithOpenCL controls whether --disable-opencl is passed. OpenCL is disabled
// by default so renders are reproducible across machines.
func WithOpenCL(enabled bool) Option {
	return func(c *Client) {
		c.disableOpenCL = !enabled
	}
}

// WithExtraArgs appends arguments after the --core separator.
func WithExtraArgs(args ...string) Option {
	return func(c *Client) {
		c.extraArgs = append(c.extraArgs, args...)
	}
}

// Client wraps darktable-cli interactions.
type Client struct {
	binary        string
	timeout       time.Duration
	disableOpenCL bool
	extraArgs     []string
	exec          Executor
	logger        *slog.Logger
}

// Result summarizes one finished render.
type Result struct {
	Output   string
	Duration time.Duration
	// Timings holds per-module processing times reported by -d perf.
	Timings []Timing
	// PipelineSeconds is the total export pipeline time darktable reported,
	// zero when the line was absent.
	PipelineSeconds float64
}

// New constructs a darktable client.
func New(binary string, timeout time.Duration, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("darktable-cli binary required")
	}
	client := &Client{
		binary:        binary,
		timeout:       timeout,
		disableOpenCL: true,
		exec:          commandExecutor{},
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured darktable-cli path.
func (c *Client) Binary() string { return c.binary }

// Args returns the argument list used to render src with sidecar xmp into dst.
func (c *Client) Args(src, xmp, dst string) []string {
	args := []string{src, xmp, dst, "--core"}
	if c.disableOpenCL {
		args = append(args, "--disable-opencl")
	}
	args = append(args, "-d", "perf")
	return append(args, c.extraArgs...)
}

// Render exports src through the history in xmp and writes dst. The
// destination's parent directory is created when missing.
func (c *Client) Render(ctx context.Context, src, xmp, dst string) (Result, error) {
	if src == "" || xmp == "" || dst == "" {
		return Result{}, services.Wrap(services.ErrValidation, "darktable", "render", "source, sidecar and destination are required", nil)
	}
	if _, err := os.Stat(src); err != nil {
		return Result{}, services.Wrap(services.ErrNotFound, "darktable", "render", "source raw", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "darktable", "render", "create destination directory", err)
	}

	renderCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := c.Args(src, xmp, dst)
	c.logger.Debug("darktable render starting",
		logging.String(logging.FieldEventType, "darktable_render_start"),
		logging.String("binary", c.binary),
		logging.String("args", strings.Join(args, " ")),
	)

	result := Result{Output: dst}
	var mu sync.Mutex
	started := time.Now()
	err := c.exec.Run(renderCtx, c.binary, args, func(line string) {
		c.logger.Debug("darktable output", logging.String("line", line))
		mu.Lock()
		defer mu.Unlock()
		if timing, ok := parseTiming(line); ok {
			result.Timings = append(result.Timings, timing)
		} else if secs, ok := parsePipelineTotal(line); ok {
			result.PipelineSeconds = secs
		}
	})
	result.Duration = time.Since(started)
	if err != nil {
		if errors.Is(renderCtx.Err(), context.DeadlineExceeded) {
			return result, services.Wrap(services.ErrTimeout, "darktable", "render", fmt.Sprintf("exceeded %s", c.timeout), err)
		}
		return result, services.Wrap(services.ErrExternalTool, "darktable", "render", filepath.Base(src), err)
	}
	if _, err := os.Stat(dst); err != nil {
		// darktable-cli exits 0 on some export failures.
		return result, services.Wrap(services.ErrExternalTool, "darktable", "render", "no output produced", err)
	}
	c.logger.Info("darktable render finished",
		logging.String(logging.FieldEventType, "darktable_render_complete"),
		logging.String("output", dst),
		logging.Duration("duration", result.Duration),
		logging.Int("module_timings", len(result.Timings)),
	)
	return result, nil
}

// Version runs darktable-cli --version and returns the first output line.
func (c *Client) Version(ctx context.Context) (string, error) {
	var first string
	err := c.exec.Run(ctx, c.binary, []string{"--version"}, func(line string) {
		if first == "" {
			first = strings.TrimSpace(line)
		}
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "darktable", "version", "", err)
	}
	return first, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onOutput != nil {
				onOutput(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
