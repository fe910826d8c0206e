package state

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Run records one dependency analysis started from this machine.
type Run struct {
	SessionID     string    `json:"session_id"`
	Repo          string    `json:"repo"`
	TargetVersion string    `json:"target_version,omitempty"`
	URL           string    `json:"url,omitempty"`
	Status        string    `json:"status,omitempty"`
	Outcome       string    `json:"outcome,omitempty"`
	ResultFile    string    `json:"result_file,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at,omitzero"`
}

// RunStore is a JSON-file-backed history of runs.
type RunStore struct {
	path string
	mu   sync.RWMutex
}

// NewRunStore creates a new file-backed RunStore at the given file path.
func NewRunStore(path string) *RunStore {
	return &RunStore{path: path}
}

// Path returns the file path used by this store.
func (s *RunStore) Path() string {
	return s.path
}

// List returns all runs in the order they were added. Returns an empty
// slice if the file doesn't exist.
func (s *RunStore) List() ([]*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs, err := s.load()
	if err != nil {
		return nil, err
	}
	if runs == nil {
		return []*Run{}, nil
	}
	return runs, nil
}

// Get finds a run by session id.
func (s *RunStore) Get(sessionID string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, run := range runs {
		if run.SessionID == sessionID {
			return run, nil
		}
	}
	return nil, fmt.Errorf("run not found: %s", sessionID)
}

// Add appends a run. Returns an error if the session is already recorded.
func (s *RunStore) Add(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs, err := s.load()
	if err != nil {
		return err
	}
	for _, existing := range runs {
		if existing.SessionID == run.SessionID {
			return fmt.Errorf("run already exists: %s", run.SessionID)
		}
	}

	runs = append(runs, run)
	return s.save(runs)
}

// Update applies fn to the run for sessionID and persists the result.
func (s *RunStore) Update(sessionID string, fn func(*Run)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs, err := s.load()
	if err != nil {
		return err
	}
	for _, run := range runs {
		if run.SessionID == sessionID {
			fn(run)
			return s.save(runs)
		}
	}
	return fmt.Errorf("run not found: %s", sessionID)
}

func (s *RunStore) load() ([]*Run, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runs file: %w", err)
	}

	var runs []*Run
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("unmarshal runs: %w", err)
	}
	return runs, nil
}

func (s *RunStore) save(runs []*Run) error {
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal runs: %w", err)
	}
	return writeAtomic(s.path, data)
}
