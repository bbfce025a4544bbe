package coverage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/pkg/logging"
)

const storeSubsystem = "CoverageStore"

// Store persists coverage snapshots to a JSON file inside the project's
// state directory. Load and Persist degrade gracefully: a missing or
// unreadable snapshot means "no coverage data yet", never a hard failure
// for callers, so test selection keeps working on a fresh checkout.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted snapshot. A missing file returns (nil, nil).
// Corrupt or unreadable files are logged and also reported as no data,
// carrying the error so callers can surface it if they care.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		logging.Warn(storeSubsystem, "Failed to read coverage snapshot from %s: %v", s.path, err)
		return nil, fmt.Errorf("reading coverage snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logging.Warn(storeSubsystem, "Coverage snapshot at %s is corrupt, treating as empty: %v", s.path, err)
		return nil, fmt.Errorf("decoding coverage snapshot: %w", err)
	}
	return &snap, nil
}

// Persist writes the snapshot atomically: the JSON is written to a temp
// file in the same directory and renamed over the target, so a crash
// mid-write never leaves a half-written snapshot behind.
func (s *Store) Persist(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("cannot persist nil snapshot")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating coverage state directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding coverage snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".coverage-*.json")
	if err != nil {
		return fmt.Errorf("creating temp snapshot file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp snapshot file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp snapshot file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing coverage snapshot: %w", err)
	}

	logging.Debug(storeSubsystem, "Persisted coverage snapshot (%d files) to %s", len(snap.Files), s.path)
	return nil
}

// Gaps reports which of the tracked files fall below the per-file line
// coverage threshold. Files the snapshot has never seen count as gaps
// too. Input order is preserved; each path appears at most once.
func Gaps(snap *Snapshot, perFileThreshold float64, tracked []string) []string {
	var gaps []string
	seen := make(map[string]bool, len(tracked))
	for _, p := range tracked {
		if seen[p] {
			continue
		}
		seen[p] = true

		if snap == nil {
			gaps = append(gaps, p)
			continue
		}
		fc, ok := snap.Files[p]
		if !ok {
			gaps = append(gaps, p)
			continue
		}
		if fc.LinePercentage() < perFileThreshold {
			gaps = append(gaps, p)
		}
	}
	return gaps
}

// LowCoverageFiles lists every file in the snapshot below the threshold,
// sorted by path. Used by health reporting rather than suite selection.
func LowCoverageFiles(snap *Snapshot, perFileThreshold float64) []string {
	if snap == nil {
		return nil
	}
	var low []string
	for path, fc := range snap.Files {
		if fc.LinePercentage() < perFileThreshold {
			low = append(low, path)
		}
	}
	sort.Strings(low)
	return low
}
