// Package journal keeps an append-only record of run events: state
// transitions, per-step summaries and persistence outcomes. Entries go to
// a plain text file under the output directory and stay queryable in
// memory for diagnostics and tests.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Kind tags what a journal entry records.
type Kind string

const (
	KindState   Kind = "state"
	KindStep    Kind = "step"
	KindPersist Kind = "persist"
	KindWarn    Kind = "warn"
	KindError   Kind = "error"
)

// Entry is one recorded event.
type Entry struct {
	At      time.Time
	Kind    Kind
	Message string
}

// Journal appends run events to a text file. A nil Journal discards
// everything, so callers never need to guard.
type Journal struct {
	path    string
	mu      sync.Mutex
	entries []Entry
	now     func() time.Time
}

// New creates a journal writing to path, creating parent directories.
func New(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("journal: ensure dir: %w", err)
	}
	return &Journal{path: path, now: time.Now}, nil
}

// InMemory creates a journal with no backing file, for tests.
func InMemory() *Journal {
	return &Journal{now: time.Now}
}

// Path returns the file backing the journal, empty when in-memory.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Append records one entry.
func (j *Journal) Append(kind Kind, format string, args ...any) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	entry := Entry{At: j.now().UTC(), Kind: kind, Message: fmt.Sprintf(format, args...)}
	j.entries = append(j.entries, entry)
	if j.path == "" {
		return
	}
	line := fmt.Sprintf("%s %-7s %s\n",
		entry.At.Format(time.RFC3339), string(entry.Kind), strings.TrimSpace(entry.Message))
	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line)
}

// State records a state transition.
func (j *Journal) State(from, to string) {
	j.Append(KindState, "%s -> %s", from, to)
}

// Entries returns a copy of everything recorded so far.
func (j *Journal) Entries() []Entry {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// OfKind returns the recorded entries of one kind, in order.
func (j *Journal) OfKind(kind Kind) []Entry {
	var out []Entry
	for _, e := range j.Entries() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
