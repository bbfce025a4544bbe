package watcher

import (
	"time"

	"github.com/google/uuid"
)

// ChangeKind classifies what happened to a file.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// ChangeRecord is one observed file change. Records are identified by
// (Path, ObservedAt); a batch may carry several records for one path.
type ChangeRecord struct {
	Path       string     `json:"path"` // Relative to the project root
	Kind       ChangeKind `json:"kind"`
	ObservedAt time.Time  `json:"observedAt"`
}

/// ChangeBatch is the unit of work handed to the orchestrator: every
// record observed since the last quiet period, in observation order.
type ChangeBatch struct {
	ID      string         `json:"id"`
	Records []ChangeRecord `json:"records"`
}

// Paths returns the distinct changed paths in first-seen order.
func (b ChangeBatch) Paths() []string {
	seen := make(map[string]bool, len(b.Records))
	var paths []string
	for _, r := range b.Records {
		if !seen[r.Path] {
			seen[r.Path] = true
			paths = append(paths, r.Path)
		}
	}
	return paths
}

func newBatch(records []ChangeRecord) ChangeBatch {
	return ChangeBatch{ID: uuid.New().String(), Records: records}
}

// BatchOf builds a synthetic batch marking every path as modified now.
// Workflows use it to drive suite selection outside the watch loop.
func BatchOf(paths ...string) ChangeBatch {
	now := time.Now()
	records := make([]ChangeRecord, 0, len(paths))
	for _, p := range paths {
		records = append(records, ChangeRecord{Path: p, Kind: ChangeModified, ObservedAt: now})
	}
	return newBatch(records)
}
