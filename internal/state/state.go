package state

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sokinpui/recon/internal/jsonx"
)

const (
	stateDirName  = ".recon"
	stateFileName = "state.json"
)

// Snapshot records one file's content around an applied run. A nil
// content means the file did not exist.
type Snapshot struct {
	Path   string  `json:"path"`
	Before *string `json:"before,omitempty"`
	After  *string `json:"after,omitempty"`
}

// HistoryEntry represents one complete run of the tool.
type HistoryEntry struct {
	Timestamp int64      `json:"timestamp"`
	Summary   string     `json:"summary,omitempty"`
	Files     []Snapshot `json:"files"`
}

// State represents the entire state file.
type State struct {
	History      []HistoryEntry `json:"history"`
	CurrentIndex int            `json:"current_index"`
}

// Manager handles the lifecycle of the state file.
type Manager struct {
	statePath string
	state     *State
	StateDir  string
	now       func() time.Time
}

// findGitRoot finds the root of the git repository containing dir.
func findGitRoot(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// New creates and loads a state manager rooted at the git repository
// containing dir, or at dir itself outside a repository.
func New(dir string) (*Manager, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current working directory: %w", err)
		}
		dir = wd
	}
	rootDir, err := findGitRoot(dir)
	if err != nil {
		rootDir = dir
	}
	return Open(filepath.Join(rootDir, stateDirName))
}

// Open loads the state kept in stateDir. The directory is created on the
// first save, so reading history leaves no trace on disk.
func Open(stateDir string) (*Manager, error) {
	m := &Manager{
		statePath: filepath.Join(stateDir, stateFileName),
		StateDir:  stateDir,
		now:       time.Now,
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) load() error {
	m.state = &State{CurrentIndex: -1, History: []HistoryEntry{}}
	data, err := os.ReadFile(m.statePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read state file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	var st State
	if err := jsonx.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("invalid state file %s: %w", m.statePath, err)
	}
	if st.CurrentIndex < -1 || st.CurrentIndex >= len(st.History) {
		return fmt.Errorf("invalid state file %s: index %d out of range", m.statePath, st.CurrentIndex)
	}
	if st.History == nil {
		st.History = []HistoryEntry{}
	}
	m.state = &st
	return nil
}

func (m *Manager) save() error {
	data, err := jsonx.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.MkdirAll(m.StateDir, 0o755); err != nil {
		return fmt.Errorf("could not create state directory: %w", err)
	}
	tmp := m.statePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return os.Rename(tmp, m.statePath)
}

// Write adds a new run to the history, discarding any undone runs after
// the current one.
func (m *Manager) Write(files []Snapshot, summary string) error {
	if m.state.CurrentIndex < len(m.state.History)-1 {
		m.state.History = m.state.History[:m.state.CurrentIndex+1]
	}
	m.state.History = append(m.state.History, HistoryEntry{
		Timestamp: m.now().UTC().Unix(),
		Summary:   summary,
		Files:     files,
	})
	m.state.CurrentIndex++
	return m.save()
}

// Undo returns the run to revert and moves the history pointer back. It
// returns nil when there is nothing to undo.
func (m *Manager) Undo() (*HistoryEntry, error) {
	if m.state.CurrentIndex < 0 {
		return nil, nil
	}
	entry := m.state.History[m.state.CurrentIndex]
	m.state.CurrentIndex--
	if err := m.save(); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Redo returns the next undone run and moves the history pointer forward.
// It returns nil when there is nothing to redo.
func (m *Manager) Redo() (*HistoryEntry, error) {
	next := m.state.CurrentIndex + 1
	if next >= len(m.state.History) {
		return nil, nil
	}
	m.state.CurrentIndex = next
	if err := m.save(); err != nil {
		return nil, err
	}
	entry := m.state.History[next]
	return &entry, nil
}

// Len reports the number of runs in the history and the current position.
func (m *Manager) Len() (entries, current int) {
	return len(m.state.History), m.state.CurrentIndex
}

// BeforeContents maps each path to its content before the run.
func (e *HistoryEntry) BeforeContents() map[string]*string {
	out := make(map[string]*string, len(e.Files))
	for _, f := range e.Files {
		out[f.Path] = f.Before
	}
	return out
}

// AfterContents maps each path to its content after the run.
func (e *HistoryEntry) AfterContents() map[string]*string {
	out := make(map[string]*string, len(e.Files))
	for _, f := range e.Files {
		out[f.Path] = f.After
	}
	return out
}
