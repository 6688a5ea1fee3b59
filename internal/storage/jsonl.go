package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/matsen/cvmerge/internal/conflict"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// HistoryEntry records one committed merge.
type HistoryEntry struct {
	ID             string               `json:"id"`
	MergedAt       time.Time            `json:"merged_at"`
	Source         string               `json:"source"`   // Path or label of the incoming snapshot
	Strategy       string               `json:"strategy"` // accept-all, keep-all, file, interactive, default
	TotalConflicts int                  `json:"total_conflicts"`
	Stats          conflict.Stats       `json:"stats"`
	Summary        conflict.Summary     `json:"summary"`
	Resolutions    conflict.Resolutions `json:"resolutions,omitempty"`
}

// NewHistoryEntry describes a merge of a under res. Only explicit decisions
// are recorded; defaults can be recomputed from the summary.
func NewHistoryEntry(source, strategy string, mergedAt time.Time, a *conflict.Analysis, res conflict.Resolutions) HistoryEntry {
	return HistoryEntry{
		ID:             uuid.NewString(),
		MergedAt:       mergedAt.UTC(),
		Source:         source,
		Strategy:       strategy,
		TotalConflicts: a.TotalConflicts,
		Stats:          a.Stats,
		Summary:        res.Summarize(a),
		Resolutions:    res,
	}
}

// ReadHistory reads all history entries from a JSONL file.
func ReadHistory(path string) ([]HistoryEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Empty file returns empty slice
		}
		return nil, fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()

	var entries []HistoryEntry
	scanner := bufio.NewScanner(f)

	// Increase buffer size for long lines
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var e HistoryEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		entries = append(entries, e)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}

	return entries, nil
}

// AppendHistory adds an entry to the end of a JSONL file.
func AppendHistory(path string, e HistoryEntry) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening history file for append: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding history entry: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing history entry: %w", err)
	}
	return nil
}
