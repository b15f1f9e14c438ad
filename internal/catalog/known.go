// Package catalog keeps the list of files the user has touched in this
// session.
package catalog

import (
	"errors"
	"sync"

	"nexus/internal/files"
	"nexus/internal/monitor"
)

// DefaultCapacity bounds the list when no capacity is configured.
const DefaultCapacity = 100

// ErrFull is returned when the list has reached its capacity.
var ErrFull = errors.New("known file list is full")

// Entry is a file remembered by name and location.
type Entry struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Path returns the resolved path of the entry.
func (e Entry) Path() string {
	return files.Resolve(e.Name, e.Location)
}

// KnownFiles is an ordered, de-duplicated, bounded list of entries. It is
// advisory: entries may point at files that no longer exist.
type KnownFiles struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	metrics  *monitor.Metrics
	onAdd    func(Entry)
}

func NewKnownFiles(capacity int, metrics *monitor.Metrics) *KnownFiles {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &KnownFiles{capacity: capacity, metrics: metrics}
}

// OnAdd registers fn to be called, outside the lock, for each new entry.
func (k *KnownFiles) OnAdd(fn func(Entry)) {
	k.mu.Lock()
	k.onAdd = fn
	k.mu.Unlock()
}

// Add appends an entry and returns its index. Adding an entry already in the
// list returns the existing index.
func (k *KnownFiles) Add(name, location string) (int, error) {
	e := Entry{Name: name, Location: location}

	k.mu.Lock()
	for i, existing := range k.entries {
		if existing.Path() == e.Path() {
			k.mu.Unlock()
			return i, nil
		}
	}
	if len(k.entries) >= k.capacity {
		k.mu.Unlock()
		return -1, ErrFull
	}
	k.entries = append(k.entries, e)
	idx := len(k.entries) - 1
	fn := k.onAdd
	k.updateGauge()
	k.mu.Unlock()

	if fn != nil {
		fn(e)
	}
	return idx, nil
}

// Remove drops the entry for name in location, reporting whether it existed.
func (k *KnownFiles) Remove(name, location string) bool {
	target := files.Resolve(name, location)
	return k.RemoveFunc(func(e Entry) bool { return e.Path() == target }) > 0
}

// RemoveFunc drops every entry for which match returns true and returns how
// many were removed.
func (k *KnownFiles) RemoveFunc(match func(Entry) bool) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	kept := k.entries[:0]
	removed := 0
	for _, e := range k.entries {
		if match(e) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	k.entries = kept
	if removed > 0 {
		k.updateGauge()
	}
	return removed
}

// Get returns the entry at index i.
func (k *KnownFiles) Get(i int) (Entry, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if i < 0 || i >= len(k.entries) {
		return Entry{}, false
	}
	return k.entries[i], true
}

// List returns a copy of the entries in insertion order.
func (k *KnownFiles) List() []Entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]Entry, len(k.entries))
	copy(out, k.entries)
	return out
}

func (k *KnownFiles) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

func (k *KnownFiles) Cap() int {
	return k.capacity
}

// updateGauge must be called with mu held.
func (k *KnownFiles) updateGauge() {
	if k.metrics != nil {
		k.metrics.KnownFiles.Set(float64(len(k.entries)))
	}
}
