package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileName is the ledger file kept at the root of a storage destination.
const FileName = ".shuttergate-state.json"

type StoredFile struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Hash      string    `json:"hash"`
	DestPath  string    `json:"dest_path"`
	BatchID   string    `json:"batch_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// State records which file contents have already been stored, keyed by SHA-256.
type State struct {
	mu       sync.RWMutex
	filePath string
	Stored   map[string]StoredFile `json:"stored"`
	LastRun  time.Time             `json:"last_run"`
}

func New(filePath string) *State {
	return &State{
		filePath: filePath,
		Stored:   make(map[string]StoredFile),
	}
}

func Load(filePath string) (*State, error) {
	s := New(filePath)

	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if s.Stored == nil {
		s.Stored = make(map[string]StoredFile)
	}

	return s, nil
}

func (s *State) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.filePath, data, 0644)
}

// Lookup returns the earlier record for content with this hash and size.
func (s *State) Lookup(hash string, size int64) (StoredFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.Stored[hash]
	if !ok || f.Size != size {
		return StoredFile{}, false
	}
	return f, true
}

func (s *State) MarkStored(f StoredFile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.Timestamp.IsZero() {
		f.Timestamp = time.Now()
	}
	s.Stored[f.Hash] = f
	s.LastRun = time.Now()
}
