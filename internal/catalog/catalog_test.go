package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"nexus/internal/monitor"
)

func TestKnownFiles_AddDedupe(t *testing.T) {
	k := NewKnownFiles(0, nil)

	i, err := k.Add("a.py", "")
	if err != nil || i != 0 {
		t.Fatalf("Add = %d, %v", i, err)
	}
	j, _ := k.Add("b.py", "dir")
	if j != 1 {
		t.Errorf("second index = %d, want 1", j)
	}
	again, _ := k.Add("a.py", "")
	if again != 0 {
		t.Errorf("duplicate index = %d, want 0", again)
	}
	if k.Len() != 2 {
		t.Errorf("Len = %d, want 2", k.Len())
	}
	if k.Cap() != DefaultCapacity {
		t.Errorf("Cap = %d, want %d", k.Cap(), DefaultCapacity)
	}
}

func TestKnownFiles_Capacity(t *testing.T) {
	k := NewKnownFiles(2, nil)

	k.Add("a", "")
	k.Add("b", "")
	if _, err := k.Add("c", ""); !errors.Is(err, ErrFull) {
		t.Errorf("expected ErrFull, got %v", err)
	}
	// Re-adding a known entry succeeds even when full.
	if i, err := k.Add("a", ""); err != nil || i != 0 {
		t.Errorf("Add existing = %d, %v", i, err)
	}
}

func TestKnownFiles_GetAndRemove(t *testing.T) {
	k := NewKnownFiles(10, nil)
	k.Add("a", "")
	k.Add("b", "x")
	k.Add("c", "")

	e, ok := k.Get(1)
	if !ok || e != (Entry{Name: "b", Location: "x"}) {
		t.Errorf("Get(1) = %+v, %v", e, ok)
	}
	if e.Path() != "x/b" {
		t.Errorf("Path = %q", e.Path())
	}
	if _, ok := k.Get(3); ok {
		t.Error("Get(3) should fail")
	}
	if _, ok := k.Get(-1); ok {
		t.Error("Get(-1) should fail")
	}

	if !k.Remove("b", "x") {
		t.Error("Remove returned false")
	}
	if k.Remove("b", "x") {
		t.Error("second Remove returned true")
	}

	want := []Entry{{Name: "a"}, {Name: "c"}}
	if got := k.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List = %+v, want %+v", got, want)
	}
}

func TestKnownFiles_ListIsCopy(t *testing.T) {
	k := NewKnownFiles(10, nil)
	k.Add("a", "")

	list := k.List()
	list[0].Name = "mutated"
	if e, _ := k.Get(0); e.Name != "a" {
		t.Error("List exposed internal storage")
	}
}

func TestKnownFiles_Gauge(t *testing.T) {
	m := monitor.NewMetrics()
	k := NewKnownFiles(10, m)

	k.Add("a", "")
	k.Add("b", "")
	if got := testutil.ToFloat64(m.KnownFiles); got != 2 {
		t.Errorf("gauge = %v, want 2", got)
	}
	k.Remove("a", "")
	if got := testutil.ToFloat64(m.KnownFiles); got != 1 {
		t.Errorf("gauge = %v, want 1", got)
	}
}

func TestKnownFiles_OnAdd(t *testing.T) {
	k := NewKnownFiles(10, nil)
	var seen []Entry
	k.OnAdd(func(e Entry) { seen = append(seen, e) })

	k.Add("a", "")
	k.Add("a", "")
	k.Add("b", "")

	if len(seen) != 2 {
		t.Errorf("callback ran %d times, want 2", len(seen))
	}
}

func TestWatcher_RemovesDeletedFiles(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.txt")
	gone := filepath.Join(dir, "gone.txt")
	for _, p := range []string{keep, gone} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	k := NewKnownFiles(10, nil)
	w, err := NewWatcher(k)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	k.Add("keep.txt", dir)
	k.Add("gone.txt", dir)

	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for k.Len() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("entry not removed, list = %+v", k.List())
		}
		time.Sleep(20 * time.Millisecond)
	}
	if e, _ := k.Get(0); e.Name != "keep.txt" {
		t.Errorf("remaining entry = %+v", e)
	}
}
