// Package recovery mirrors session state to a local file so that a crash or
// restart can reconstruct the wizard and the running stopwatch without
// re-querying the ledger.
package recovery

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/models"
)

// Snapshot is the minimal set of facts needed to reconstruct the session:
// the wizard state plus, when a test is running, the timer reference instant
// and the active segment id.
type Snapshot struct {
	Running      bool   `yaml:"running"`
	StartISO     string `yaml:"start_iso"`
	StartEpochMS int64  `yaml:"start_epoch_ms"`
	Serial       string `yaml:"serial"`
	SegmentID    string `yaml:"segment_id"`

	Vessel            *models.VesselIdentity   `yaml:"vessel,omitempty"`
	Operator          *models.OperatorIdentity `yaml:"operator,omitempty"`
	VesselConfirmed   bool                     `yaml:"vessel_confirmed"`
	OperatorConfirmed bool                     `yaml:"operator_confirmed"`
	Manpower          int                      `yaml:"manpower"`
}

// CanResume reports whether the running flag may be honored: every field the
// timer and ledger need must be present and well-formed. Anything less is
// treated as not running, so startup falls back to the earliest unmet wizard
// phase instead of resuming a broken timer.
func (s *Snapshot) CanResume() bool {
	if _, err := time.Parse(time.RFC3339, s.StartISO); err != nil {
		return false
	}
	return s.Running &&
		s.SegmentID != "" &&
		s.Serial != "" &&
		s.StartEpochMS > 0 &&
		s.Vessel != nil &&
		s.Operator != nil
}

// StartInstant returns the stored timer reference instant.
func (s *Snapshot) StartInstant() time.Time {
	return time.UnixMilli(s.StartEpochMS).UTC()
}

// FileStore persists snapshots as a YAML file.
type FileStore struct {
	path string
}

// NewFileStore creates a snapshot store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the snapshot. A missing or unparseable file yields a zero
// snapshot: corruption must degrade to the wizard start, never to a crash.
func (f *FileStore) Load() (*Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return &Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	snap := &Snapshot{}
	if err := yaml.Unmarshal(data, snap); err != nil {
		return &Snapshot{}, nil
	}
	return snap, nil
}

// Save writes the snapshot, creating the parent directory as needed.
func (f *FileStore) Save(snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(f.path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Clear removes the snapshot file. Clearing an absent file is not an error.
func (f *FileStore) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}
