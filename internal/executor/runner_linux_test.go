package executor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"nexus/internal/runtime"
)

// processAlive reports whether pid exists and is not a zombie.
func processAlive(pid int) bool {
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/stat")
	if err != nil {
		return false
	}
	// The state follows the parenthesized command name.
	i := bytes.LastIndexByte(data, ')')
	if i < 0 || i+2 >= len(data) {
		return false
	}
	return data[i+2] != 'Z'
}

func TestRunner_TimeoutKillsDescendants(t *testing.T) {
	requireBinary(t, "bash")
	requireBinary(t, "sleep")

	dir := t.TempDir()
	pidFile := filepath.Join(dir, "child.pid")
	script := "sleep 41 &\necho $! > " + pidFile + "\nwait\necho done\n"
	if err := os.WriteFile(filepath.Join(dir, "loop.sh"), []byte(script), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd, err := runtime.NewTable().BuildCommand("loop.sh", dir, runtime.ActionRun)
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}

	r := NewRunner(RunnerOptions{TempDir: t.TempDir(), Timeout: 300 * time.Millisecond})
	res, err := r.Run(context.Background(), cmd)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if strings.Contains(res.Output, "done") {
		t.Errorf("script finished despite timeout: %q", res.Output)
	}

	data, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("reading child pid: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("parsing child pid %q: %v", data, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for processAlive(pid) {
		if time.Now().After(deadline) {
			t.Fatalf("child process %d still running after timeout", pid)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRunner_CancelKillsDescendants(t *testing.T) {
	requireBinary(t, "sh")
	requireBinary(t, "sleep")

	pidFile := filepath.Join(t.TempDir(), "child.pid")
	r := NewRunner(RunnerOptions{TempDir: t.TempDir()})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(300*time.Millisecond, cancel)

	_, err := r.Run(ctx, runtime.Command{Steps: []runtime.Step{
		shell("sleep 42 & echo $! > " + pidFile + "; wait"),
	}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	data, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("reading child pid: %v", err)
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(string(data)))

	deadline := time.Now().Add(2 * time.Second)
	for processAlive(pid) {
		if time.Now().After(deadline) {
			t.Fatalf("child process %d still running after cancel", pid)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
