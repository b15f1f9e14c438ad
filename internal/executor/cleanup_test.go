package executor

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCleanupOrphaned(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-2 * time.Hour)

	touch := func(name string, mtime time.Time) string {
		t.Helper()
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(p, mtime, mtime); err != nil {
			t.Fatal(err)
		}
		return p
	}

	stale := touch("nexus_output_123.txt", old)
	fresh := touch("nexus_output_456.txt", time.Now())
	other := touch("notes.txt", old)

	r := NewRunner(RunnerOptions{TempDir: dir})
	n, err := r.CleanupOrphaned(time.Hour)
	if err != nil {
		t.Fatalf("CleanupOrphaned: %v", err)
	}
	if n != 1 {
		t.Errorf("cleaned = %d, want 1", n)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale capture file should be removed")
	}
	for _, p := range []string{fresh, other} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s should survive: %v", filepath.Base(p), err)
		}
	}
}

func TestCleanupOrphaned_EmptyDir(t *testing.T) {
	r := NewRunner(RunnerOptions{TempDir: t.TempDir()})
	n, err := r.CleanupOrphaned(0)
	if err != nil || n != 0 {
		t.Errorf("got %d, %v", n, err)
	}
}
