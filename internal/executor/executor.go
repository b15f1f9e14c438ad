// Package executor compiles and runs files on the host and records the
// outcome.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"nexus/internal/files"
	"nexus/internal/monitor"
	"nexus/internal/runtime"
	"nexus/internal/storage"
)

// ExecutionRequest names a file to compile and/or run.
type ExecutionRequest struct {
	Filename string `json:"filename"`
	Action   string `json:"action"`
	Location string `json:"location"`
}

// ExecutionResult is the outcome of one Execute call.
type ExecutionResult struct {
	ID        string        `json:"id"`
	Filename  string        `json:"filename"`
	Extension string        `json:"extension"`
	Action    string        `json:"action"`
	Command   string        `json:"command"`
	Succeeded bool          `json:"success"`
	ExitCode  int           `json:"exitCode"`
	Output    string        `json:"output"`
	Truncated bool          `json:"truncated"`
	TimedOut  bool          `json:"timedOut"`
	Duration  time.Duration `json:"duration"`
}

// HistoryRecorder receives a record of every execution.
type HistoryRecorder interface {
	Log(exec *storage.Execution)
}

// Options configures an Executor. Files, Table and Runner are required.
type Options struct {
	Files   *files.Service
	Table   *runtime.Table
	Runner  *Runner
	Metrics *monitor.Metrics
	Tracer  *monitor.Tracer
	History HistoryRecorder

	// StrictNames rejects filenames and locations with shell-significant
	// characters.
	StrictNames bool
}

// Executor resolves a file, picks its command and runs it.
type Executor struct {
	files   *files.Service
	table   *runtime.Table
	runner  *Runner
	metrics *monitor.Metrics
	tracer  *monitor.Tracer
	history HistoryRecorder
	strict  bool
}

func New(opts Options) *Executor {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = monitor.NewTracer()
	}
	return &Executor{
		files:   opts.Files,
		table:   opts.Table,
		runner:  opts.Runner,
		metrics: opts.Metrics,
		tracer:  tracer,
		history: opts.History,
		strict:  opts.StrictNames,
	}
}

// Table returns the dispatch table used by the executor.
func (e *Executor) Table() *runtime.Table {
	return e.table
}

// Plan returns the command Execute would run, without running it.
func (e *Executor) Plan(req ExecutionRequest) (runtime.Command, error) {
	location, err := e.prepare(req)
	if err != nil {
		return runtime.Command{}, err
	}
	return e.table.BuildCommand(req.Filename, location, runtime.ParseAction(req.Action))
}

// Execute compiles and/or runs req.Filename. When the command ran, the result
// is returned even if the error is non-nil: ErrExecutionFailed for a non-zero
// exit, ErrTimeout when the time limit was hit.
func (e *Executor) Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error) {
	execID := uuid.New().String()
	ext := runtime.Extension(req.Filename)
	action := runtime.ParseAction(req.Action)

	logger := log.With().
		Str("exec_id", execID).
		Str("filename", req.Filename).
		Str("extension", ext).
		Logger()

	ctx, span := e.tracer.StartExecution(ctx, execID, req.Filename, ext, string(action))
	defer span.End()

	location, err := e.prepare(req)
	if err != nil {
		e.recordError("invalid_request")
		monitor.MarkError(span, err)
		return nil, &ExecutionError{ExecID: execID, Op: "validate", Err: err}
	}

	cmd, err := e.table.BuildCommand(req.Filename, location, action)
	if err != nil {
		logger.Info().Msg("unsupported file type")
		e.recordError("unsupported")
		monitor.MarkError(span, err)
		return nil, &ExecutionError{ExecID: execID, Op: "dispatch", Err: err}
	}

	span.SetAttributes(monitor.AttrCommand.String(cmd.String()))
	logger.Info().Str("command", cmd.String()).Msg("execution requested")

	if e.metrics != nil {
		e.metrics.ActiveExecutions.Inc()
		defer e.metrics.ActiveExecutions.Dec()
	}

	createdAt := time.Now()
	run, runErr := e.runner.Run(ctx, cmd)
	if run == nil {
		e.recordError("run")
		monitor.MarkError(span, runErr)
		e.recordHistory(&storage.Execution{
			ID:        execID,
			Filename:  req.Filename,
			Extension: ext,
			Action:    string(action),
			Location:  location,
			Command:   cmd.String(),
			ExitCode:  -1,
			Status:    storage.StatusError,
			CreatedAt: createdAt,
		})
		logger.Error().Err(runErr).Msg("execution could not run")
		return nil, &ExecutionError{ExecID: execID, Op: "run", Err: runErr}
	}

	result := &ExecutionResult{
		ID:        execID,
		Filename:  req.Filename,
		Extension: ext,
		Action:    string(action),
		Command:   cmd.String(),
		Succeeded: run.Succeeded,
		ExitCode:  run.ExitCode,
		Output:    run.Output,
		Truncated: run.Truncated,
		TimedOut:  run.TimedOut,
		Duration:  run.Duration,
	}

	status := storage.StatusCompleted
	switch {
	case run.TimedOut:
		status = storage.StatusTimeout
	case runErr != nil:
		status = storage.StatusError
	case !run.Succeeded:
		status = storage.StatusFailed
	}

	if e.metrics != nil {
		e.metrics.RecordExecution(ext, string(action), status, run.Duration.Seconds())
		e.metrics.RecordOutput(len(run.Output), run.Truncated)
	}
	span.SetAttributes(
		monitor.AttrExitCode.Int(run.ExitCode),
		monitor.AttrTruncated.Bool(run.Truncated),
	)

	completedAt := createdAt.Add(run.Duration)
	e.recordHistory(&storage.Execution{
		ID:          execID,
		Filename:    req.Filename,
		Extension:   ext,
		Action:      string(action),
		Location:    location,
		Command:     result.Command,
		ExitCode:    run.ExitCode,
		Output:      run.Output,
		Truncated:   run.Truncated,
		Status:      status,
		DurationMS:  run.Duration.Milliseconds(),
		CreatedAt:   createdAt,
		CompletedAt: &completedAt,
	})

	logger.Info().
		Int("exit_code", run.ExitCode).
		Dur("duration", run.Duration).
		Bool("truncated", run.Truncated).
		Str("status", status).
		Msg("execution completed")

	switch {
	case runErr != nil:
		e.recordError(status)
		monitor.MarkError(span, runErr)
		return result, &ExecutionError{ExecID: execID, Op: "run", Err: runErr}
	case !run.Succeeded:
		return result, &ExecutionError{
			ExecID: execID,
			Op:     "run",
			Err:    fmt.Errorf("%w: exit code %d", ErrExecutionFailed, run.ExitCode),
		}
	}
	return result, nil
}

// prepare validates the request and returns the effective location.
func (e *Executor) prepare(req ExecutionRequest) (string, error) {
	if req.Filename == "" {
		return "", files.ErrInvalidName
	}
	if e.strict {
		if err := runtime.ValidateName(req.Filename); err != nil {
			return "", err
		}
		if err := runtime.ValidateName(req.Location); err != nil {
			return "", err
		}
	}

	location := e.files.Location(req.Location)
	if _, err := e.files.Path(req.Filename, location); err != nil {
		return "", err
	}
	return location, nil
}

func (e *Executor) recordError(errType string) {
	if e.metrics != nil {
		e.metrics.RecordError(errType)
	}
}

func (e *Executor) recordHistory(rec *storage.Execution) {
	if e.history != nil {
		e.history.Log(rec)
	}
}
