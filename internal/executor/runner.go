package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"

	"nexus/internal/runtime"
)

const (
	DefaultMaxOutput = 8192
	DefaultTimeout   = 30 * time.Second
)

// killWaitDelay bounds how long Run waits for I/O after the process group
// has been killed.
const killWaitDelay = 2 * time.Second

// Exit codes a shell reports when it cannot run a program.
const (
	exitNotExecutable = 126
	exitNotFound      = 127
)

// RunResult is the outcome of running a command.
type RunResult struct {
	Output    string
	Truncated bool
	ExitCode  int
	Succeeded bool
	TimedOut  bool
	Duration  time.Duration
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// TempDir holds capture files; "" means os.TempDir().
	TempDir string
	// MaxOutput caps the returned output in bytes.
	MaxOutput int
	// Timeout bounds the whole command. Zero disables it.
	Timeout time.Duration
}

// Runner executes commands on the host, capturing combined output in a temp
// file.
type Runner struct {
	tempDir   string
	maxOutput int
	timeout   time.Duration
}

func NewRunner(opts RunnerOptions) *Runner {
	if opts.MaxOutput <= 0 {
		opts.MaxOutput = DefaultMaxOutput
	}
	if opts.Timeout < 0 {
		opts.Timeout = 0
	}
	return &Runner{
		tempDir:   opts.TempDir,
		maxOutput: opts.MaxOutput,
		timeout:   opts.Timeout,
	}
}

// Run executes each step of cmd in order, stopping at the first non-zero
// exit. On timeout the running process is killed and the partial result is
// returned with ErrTimeout.
func (r *Runner) Run(ctx context.Context, cmd runtime.Command) (*RunResult, error) {
	if cmd.Empty() {
		return nil, fmt.Errorf("%w: empty command", ErrExecutionFailed)
	}

	capture, err := os.CreateTemp(r.tempDir, capturePattern)
	if err != nil {
		return nil, fmt.Errorf("creating capture file: %w", err)
	}
	defer func() {
		capture.Close()
		if err := os.Remove(capture.Name()); err != nil {
			log.Warn().Err(err).Str("file", capture.Name()).Msg("failed to remove capture file")
		}
	}()

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	result := &RunResult{}

	for _, step := range cmd.Steps {
		result.ExitCode = r.runStep(runCtx, step, capture)
		if runCtx.Err() != nil {
			break
		}
		if result.ExitCode != 0 {
			break
		}
	}
	result.Duration = time.Since(start)

	output, truncated, readErr := r.readCapture(capture)
	if readErr != nil {
		return nil, readErr
	}
	result.Output = output
	result.Truncated = truncated

	if err := runCtx.Err(); err != nil {
		result.ExitCode = -1
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			result.TimedOut = true
			return result, ErrTimeout
		}
		return result, err
	}

	result.Succeeded = result.ExitCode == 0
	return result, nil
}

// runStep runs one program with stdout and stderr both attached to out and
// returns its exit code.
func (r *Runner) runStep(ctx context.Context, step runtime.Step, out *os.File) int {
	c := exec.CommandContext(ctx, step[0], step[1:]...) // #nosec G204 -- running user-selected files is the purpose of this tool
	c.Stdout = out
	c.Stderr = out
	isolateProcessGroup(c)

	err := c.Run()
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}

	if ctx.Err() != nil {
		return -1
	}

	// The program never started; report it the way a shell would.
	fmt.Fprintf(out, "%s: %v\n", step[0], err)
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return exitNotFound
	}
	return exitNotExecutable
}

// readCapture reads back at most maxOutput bytes of the capture file.
func (r *Runner) readCapture(f *os.File) (string, bool, error) {
	info, err := f.Stat()
	if err != nil {
		return "", false, fmt.Errorf("stat capture file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", false, fmt.Errorf("rewinding capture file: %w", err)
	}

	data, err := io.ReadAll(io.LimitReader(f, int64(r.maxOutput)))
	if err != nil {
		return "", false, fmt.Errorf("reading capture file: %w", err)
	}
	return string(data), info.Size() > int64(r.maxOutput), nil
}
