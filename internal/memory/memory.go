// Package memory is the simplified long-term memory manager (spec
// component #16): an append-only JSONL event log plus an in-memory
// short-term snapshot keyed by user, generalized down from the
// teacher's vector-backed memory.Manager hierarchy
// (internal/memory/manager.go, internal/memory/hierarchy.go) to the
// spec's minimum contract — this system has no embedding backend wired
// in, so semantic retrieval is out of scope; only append/snapshot
// survive the generalization.
package memory

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Event is one fact recorded to a user's long-term memory: a
// resolved preference, a closed matter, a noted correction.
type Event struct {
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is the bounded recent-events view Append keeps in memory
// for cheap reads without re-scanning the JSONL log.
type Snapshot struct {
	UserID string
	Events []Event
}

// Manager appends events to an on-disk JSONL log and maintains a
// bounded in-memory snapshot per user for fast reads.
type Manager struct {
	mu           sync.Mutex
	file         *os.File
	snapshotSize int
	snapshots    map[string][]Event
}

// Config configures a Manager.
type Config struct {
	// LogPath is the JSONL file events are appended to. Empty disables
	// on-disk persistence (events only live in the in-memory snapshot).
	LogPath string

	// SnapshotSize bounds how many recent events per user are kept in
	// memory; 0 defaults to 20.
	SnapshotSize int
}

// New creates a Manager, opening (and creating, if absent) the JSONL
// log file for appending.
func New(cfg Config) (*Manager, error) {
	size := cfg.SnapshotSize
	if size <= 0 {
		size = 20
	}

	m := &Manager{
		snapshotSize: size,
		snapshots:    make(map[string][]Event),
	}

	if cfg.LogPath == "" {
		return m, nil
	}

	f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("memory: failed to open log file: %w", err)
	}
	m.file = f

	if err := m.loadSnapshotsFromLog(); err != nil {
		f.Close()
		return nil, err
	}
	return m, nil
}

func (m *Manager) loadSnapshotsFromLog() error {
	if _, err := m.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	scanner := bufio.NewScanner(m.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue // tolerate a partially-written trailing line
		}
		m.appendToSnapshot(event)
	}
	if _, err := m.file.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	return scanner.Err()
}

// Append records event: written to the JSONL log (if configured) then
// folded into the in-memory snapshot.
func (m *Manager) Append(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file != nil {
		encoded, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("memory: failed to encode event: %w", err)
		}
		if _, err := m.file.Write(append(encoded, '\n')); err != nil {
			return fmt.Errorf("memory: failed to append event: %w", err)
		}
	}

	m.appendToSnapshot(event)
	return nil
}

// appendToSnapshot must be called with m.mu held.
func (m *Manager) appendToSnapshot(event Event) {
	events := append(m.snapshots[event.UserID], event)
	if len(events) > m.snapshotSize {
		events = events[len(events)-m.snapshotSize:]
	}
	m.snapshots[event.UserID] = events
}

// Snapshot returns userID's bounded recent-events view.
func (m *Manager) Snapshot(userID string) *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := m.snapshots[userID]
	out := make([]Event, len(events))
	copy(out, events)
	return &Snapshot{UserID: userID, Events: out}
}

// Close releases the underlying log file handle, if any.
func (m *Manager) Close() error {
	if m.file == nil {
		return nil
	}
	return m.file.Close()
}
