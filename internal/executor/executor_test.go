package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"nexus/internal/files"
	"nexus/internal/monitor"
	"nexus/internal/runtime"
	"nexus/internal/storage"
)

type recordingHistory struct {
	mu      sync.Mutex
	records []*storage.Execution
}

func (h *recordingHistory) Log(exec *storage.Execution) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, exec)
}

func newTestExecutor(t *testing.T, strict bool) (*Executor, *recordingHistory, *monitor.Metrics) {
	t.Helper()
	history := &recordingHistory{}
	metrics := monitor.NewMetrics()
	e := New(Options{
		Files:       files.NewService(files.Options{Root: "."}),
		Table:       runtime.NewTable(),
		Runner:      NewRunner(RunnerOptions{TempDir: t.TempDir()}),
		Metrics:     metrics,
		History:     history,
		StrictNames: strict,
	})
	return e, history, metrics
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExecute_HelloPython(t *testing.T) {
	requireBinary(t, "python3")
	e, history, metrics := newTestExecutor(t, false)
	dir := t.TempDir()
	writeFile(t, dir, "hello.py", "print(1)")

	res, err := e.Execute(context.Background(), ExecutionRequest{
		Filename: "hello.py",
		Action:   "run",
		Location: dir,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Succeeded || res.ExitCode != 0 || res.Output != "1\n" {
		t.Errorf("got success=%v exitCode=%d output=%q", res.Succeeded, res.ExitCode, res.Output)
	}
	if res.ID == "" {
		t.Error("expected an execution id")
	}
	if res.Command != "python3 "+dir+"/hello.py" {
		t.Errorf("Command = %q", res.Command)
	}

	if got := testutil.ToFloat64(metrics.ExecutionsTotal.WithLabelValues("py", "run", storage.StatusCompleted)); got != 1 {
		t.Errorf("executions_total = %v, want 1", got)
	}
	if len(history.records) != 1 || history.records[0].Status != storage.StatusCompleted {
		t.Errorf("history = %+v", history.records)
	}
}

func TestExecute_NonZeroExit(t *testing.T) {
	requireBinary(t, "bash")
	e, history, _ := newTestExecutor(t, false)
	dir := t.TempDir()
	writeFile(t, dir, "fail.sh", "echo partial\nexit 4\n")

	res, err := e.Execute(context.Background(), ExecutionRequest{Filename: "fail.sh", Location: dir})
	if !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("expected ErrExecutionFailed, got %v", err)
	}
	var execErr *ExecutionError
	if !errors.As(err, &execErr) || execErr.ExecID != res.ID {
		t.Errorf("expected ExecutionError carrying the id, got %v", err)
	}
	if res.ExitCode != 4 || res.Succeeded {
		t.Errorf("ExitCode = %d, Succeeded = %v", res.ExitCode, res.Succeeded)
	}
	if res.Output != "partial\n" {
		t.Errorf("Output = %q", res.Output)
	}
	if history.records[0].Status != storage.StatusFailed {
		t.Errorf("status = %q, want failed", history.records[0].Status)
	}
}

func TestExecute_Unsupported(t *testing.T) {
	e, history, metrics := newTestExecutor(t, false)

	res, err := e.Execute(context.Background(), ExecutionRequest{Filename: "data.xyz"})
	if res != nil {
		t.Errorf("expected no result, got %+v", res)
	}
	if !IsUnsupported(err) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	var ue *runtime.UnsupportedError
	if !errors.As(err, &ue) || ue.Extension != "xyz" {
		t.Errorf("expected UnsupportedError{xyz}, got %v", err)
	}
	if len(history.records) != 0 {
		t.Error("unsupported requests should not be recorded")
	}
	if got := testutil.ToFloat64(metrics.ExecutionErrors.WithLabelValues("unsupported")); got != 1 {
		t.Errorf("execution_errors_total{unsupported} = %v", got)
	}
}

func TestExecute_EmptyFilename(t *testing.T) {
	e, _, _ := newTestExecutor(t, false)

	_, err := e.Execute(context.Background(), ExecutionRequest{})
	if !errors.Is(err, files.ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
}

func TestExecute_StrictNames(t *testing.T) {
	e, _, _ := newTestExecutor(t, true)

	for _, req := range []ExecutionRequest{
		{Filename: "a b.py"},
		{Filename: "x.py", Location: "dir;rm"},
	} {
		_, err := e.Execute(context.Background(), req)
		if !errors.Is(err, ErrInvalidName) {
			t.Errorf("%+v: expected ErrInvalidName, got %v", req, err)
		}
	}
}

func TestExecute_MissingSourceFile(t *testing.T) {
	requireBinary(t, "bash")
	e, _, _ := newTestExecutor(t, false)

	res, err := e.Execute(context.Background(), ExecutionRequest{Filename: "absent.sh", Location: t.TempDir()})
	if !errors.Is(err, ErrExecutionFailed) {
		t.Fatalf("expected ErrExecutionFailed, got %v", err)
	}
	if res.Succeeded || res.ExitCode == 0 {
		t.Errorf("expected failure, got exit %d", res.ExitCode)
	}
}

func TestPlan(t *testing.T) {
	e, _, _ := newTestExecutor(t, false)

	cmd, err := e.Plan(ExecutionRequest{Filename: "main.c", Action: "compile", Location: "src"})
	if err != nil {
		t.Fatal(err)
	}
	if got := cmd.String(); got != "gcc -o src/main.c.out src/main.c" {
		t.Errorf("Plan = %q", got)
	}
}

func TestExecutionError(t *testing.T) {
	err := &ExecutionError{ExecID: "abc", Op: "run", Err: ErrTimeout}
	if err.Error() != "execution abc: run: execution timed out" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !IsTimeout(err) {
		t.Error("expected IsTimeout")
	}

	noID := &ExecutionError{Op: "dispatch", Err: ErrExecutionFailed}
	if noID.Error() != "dispatch: execution failed" {
		t.Errorf("Error() = %q", noID.Error())
	}
}
