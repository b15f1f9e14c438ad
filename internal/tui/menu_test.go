package tui

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"nexus/internal/catalog"
	"nexus/internal/executor"
	"nexus/internal/files"
	"nexus/internal/runtime"
)

type testEnv struct {
	dir   string
	known *catalog.KnownFiles
	fs    *files.Service
	exec  *executor.Executor
}

func newTestEnv(t *testing.T, capacity int) *testEnv {
	t.Helper()
	dir := t.TempDir()
	fs := files.NewService(files.Options{Root: dir})
	return &testEnv{
		dir:   dir,
		known: catalog.NewKnownFiles(capacity, nil),
		fs:    fs,
		exec: executor.New(executor.Options{
			Files:  fs,
			Table:  runtime.NewTable(),
			Runner: executor.NewRunner(executor.RunnerOptions{TempDir: t.TempDir()}),
		}),
	}
}

func (e *testEnv) run(t *testing.T, input string) string {
	t.Helper()
	var out bytes.Buffer
	m := New(Options{
		In:       strings.NewReader(input),
		Out:      &out,
		Files:    e.fs,
		Executor: e.exec,
		Known:    e.known,
		Location: e.dir,
	})
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String()
}

func (e *testEnv) write(t *testing.T, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(e.dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := e.known.Add(name, e.dir); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) read(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.dir, name))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestMenu_EndOfInput(t *testing.T) {
	env := newTestEnv(t, 0)
	out := env.run(t, "")
	if !strings.Contains(out, "NEXUS FILE MANAGER") {
		t.Errorf("missing banner in %q", out)
	}
	if !strings.Contains(out, "(none yet)") {
		t.Errorf("expected empty file list in %q", out)
	}
}

func TestMenu_Quit(t *testing.T) {
	env := newTestEnv(t, 0)
	out := env.run(t, "q\nN\n")
	if !strings.Contains(out, "Goodbye!") {
		t.Errorf("expected goodbye in %q", out)
	}
	if strings.Contains(out, "Enter filename") {
		t.Error("menu kept reading after quit")
	}
}

func TestMenu_CreateAndView(t *testing.T) {
	env := newTestEnv(t, 0)
	out := env.run(t, "N\nnotes.txt\nline one\nline two\nEND\nV\n1\nQ\n")

	if got := env.read(t, "notes.txt"); got != "line one\nline two\n" {
		t.Errorf("content = %q", got)
	}
	if env.known.Len() != 1 {
		t.Fatalf("known files = %d, want 1", env.known.Len())
	}
	for _, want := range []string{
		"File saved successfully!",
		"[READ-ONLY]",
		"   1 │ line one",
		"   2 │ line two",
		"1. " + filepath.Join(env.dir, "notes.txt"),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestMenu_CreateEmptyFilename(t *testing.T) {
	env := newTestEnv(t, 0)
	out := env.run(t, "N\n\nQ\n")
	if !strings.Contains(out, "Filename is required") {
		t.Errorf("expected filename error in %q", out)
	}
	if env.known.Len() != 0 {
		t.Error("nothing should be remembered")
	}
}

func TestMenu_OverwritePrompt(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{"declined", "n", "original\n"},
		{"accepted", "y", "replaced\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, 0)
			env.write(t, "a.txt", "original\n")
			env.run(t, "N\na.txt\n"+tt.answer+"\nreplaced\nEND\nQ\n")
			if got := env.read(t, "a.txt"); got != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMenu_Edit(t *testing.T) {
	env := newTestEnv(t, 0)
	env.write(t, "a.txt", "old\n")
	env.run(t, "E\n1\nnew\nEND\nQ\n")
	if got := env.read(t, "a.txt"); got != "new\n" {
		t.Errorf("content = %q", got)
	}
}

func TestMenu_ContentEndsAtEOF(t *testing.T) {
	env := newTestEnv(t, 0)
	env.run(t, "N\nb.txt\nonly line")
	if got := env.read(t, "b.txt"); got != "only line\n" {
		t.Errorf("content = %q", got)
	}
}

func TestMenu_InvalidSelection(t *testing.T) {
	env := newTestEnv(t, 0)
	env.write(t, "a.txt", "x")
	out := env.run(t, "V\n5\nV\nabc\nV\n0\nQ\n")
	if n := strings.Count(out, "Invalid file number!"); n != 3 {
		t.Errorf("invalid selections = %d, want 3", n)
	}
}

func TestMenu_NoFilesToSelect(t *testing.T) {
	env := newTestEnv(t, 0)
	out := env.run(t, "E\nV\nX\nD\nQ\n")
	if n := strings.Count(out, "No files yet"); n != 4 {
		t.Errorf("no-file messages = %d, want 4", n)
	}
}

func TestMenu_InvalidOption(t *testing.T) {
	env := newTestEnv(t, 0)
	out := env.run(t, "z\nQ\n")
	if !strings.Contains(out, "Invalid option: Z") {
		t.Errorf("expected invalid option in %q", out)
	}
}

func TestMenu_CapacityReached(t *testing.T) {
	env := newTestEnv(t, 1)
	env.write(t, "a.txt", "x")
	out := env.run(t, "N\nQ\n")
	if !strings.Contains(out, "Maximum file limit reached!") {
		t.Errorf("expected limit message in %q", out)
	}
}

func TestMenu_Delete(t *testing.T) {
	env := newTestEnv(t, 0)
	env.write(t, "a.txt", "x")
	env.write(t, "b.txt", "y")

	out := env.run(t, "D\n1\nn\nD\n1\ny\nQ\n")

	if !strings.Contains(out, "Operation cancelled") {
		t.Error("first delete should be cancelled")
	}
	if _, err := os.Stat(filepath.Join(env.dir, "a.txt")); !os.IsNotExist(err) {
		t.Errorf("a.txt still exists: %v", err)
	}
	entries := env.known.List()
	if len(entries) != 1 || entries[0].Name != "b.txt" {
		t.Errorf("known = %+v, want only b.txt", entries)
	}
}

func TestMenu_ListDirectory(t *testing.T) {
	env := newTestEnv(t, 0)
	env.write(t, "b.txt", "")
	env.write(t, "a.txt", "")
	if err := os.Mkdir(filepath.Join(env.dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	out := env.run(t, "L\nQ\n")
	ia, ib := strings.Index(out, "  a.txt"), strings.Index(out, "  b.txt")
	if ia < 0 || ib < 0 || ia > ib {
		t.Errorf("expected sorted listing in %q", out)
	}
	if strings.Contains(out, "  sub\n") {
		t.Error("directories should not be listed")
	}
}

func TestMenu_ExecuteUnsupported(t *testing.T) {
	env := newTestEnv(t, 0)
	env.write(t, "notes.txt", "x")
	out := env.run(t, "X\n1\n\nQ\n")
	if !strings.Contains(out, "unsupported file type: txt") {
		t.Errorf("expected unsupported message in %q", out)
	}
}

func TestMenu_ExecutePython(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skipf("python3 not available: %v", err)
	}
	env := newTestEnv(t, 0)
	env.write(t, "hello.py", "print('hi from nexus')\n")

	out := env.run(t, "X\n1\nrun\nQ\n")
	for _, want := range []string{
		"$ python3 " + filepath.Join(env.dir, "hello.py"),
		"hi from nexus",
		"Exit code 0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q in %q", want, out)
		}
	}
}

func TestMenu_ExecuteFailure(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skipf("python3 not available: %v", err)
	}
	env := newTestEnv(t, 0)
	env.write(t, "fail.py", "import sys\nsys.exit(3)\n")

	out := env.run(t, "X\n1\n\nQ\n")
	if !strings.Contains(out, "Execution failed with exit code 3") {
		t.Errorf("expected failure message in %q", out)
	}
}

func TestMenu_ContextCancelled(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := New(Options{
		In:    strings.NewReader("N\n"),
		Out:   &bytes.Buffer{},
		Files: env.fs,
		Known: env.known,
	})
	if err := m.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}
