package processor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const checkpointFile = "processing_checkpoint.json"

// Checkpoint is the small durable blob that lets a restarted run resume
// near where it left off. It is advisory bookkeeping, not transactionally
// tied to the persistence writes.
type Checkpoint struct {
	LastProcessedIndex int     `json:"last_processed_index"`
	ProcessedCount     int     `json:"processed_count"`
	FailedCount        int     `json:"failed_count"`
	SectionsCreated    int     `json:"sections_created"`
	ChunksCreated      int     `json:"chunks_created"`
	TotalCost          float64 `json:"total_cost"`
	Timestamp          string  `json:"timestamp"`
	Interrupted        bool    `json:"interrupted,omitempty"`
}

// CheckpointStore reads and writes checkpoints as a JSON file in a local
// directory.
type CheckpointStore struct {
	dir string
}

// NewCheckpointStore creates the checkpoint directory if needed.
func NewCheckpointStore(dir string) (*CheckpointStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &CheckpointStore{dir: dir}, nil
}

// Save writes the checkpoint, replacing any previous one.
func (s *CheckpointStore) Save(cp Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, checkpointFile), data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

// Load returns the stored checkpoint, or ok=false when none exists yet.
func (s *CheckpointStore) Load() (Checkpoint, bool, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, checkpointFile))
	if errors.Is(err, fs.ErrNotExist) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	return cp, true, nil
}
