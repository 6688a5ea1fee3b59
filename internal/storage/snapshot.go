// Package storage persists the current snapshot, the merge history (JSONL) and
// the history cache (SQLite).
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matsen/cvmerge/internal/cv"
)

// ErrStaleSnapshot is returned when the stored snapshot changed after it was
// read for a merge.
var ErrStaleSnapshot = errors.New("snapshot was modified since it was read")

// ErrLocked is returned when another commit holds the snapshot lock.
var ErrLocked = errors.New("snapshot is locked by another commit")

// ReadDocument reads and validates a snapshot file.
func ReadDocument(path string) (cv.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cv.Document{}, fmt.Errorf("reading snapshot: %w", err)
	}
	doc, err := cv.Decode(data)
	if err != nil {
		return cv.Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// WriteDocument writes a snapshot atomically: the file is written next to
// path and renamed into place.
func WriteDocument(path string, doc cv.Document) error {
	data, err := cv.Encode(doc)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name()) // No-op after a successful rename

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// CommitMerge replaces the snapshot at path with merged, provided the stored
// snapshot still carries the lastModified value it had when the merge was
// computed. Otherwise nothing is written and ErrStaleSnapshot is returned.
// An invalid merged snapshot is never written.
func CommitMerge(path string, readAt time.Time, merged cv.Document) error {
	unlock, err := lock(path)
	if err != nil {
		return err
	}
	defer unlock()

	if err := cv.Validate(merged); err != nil {
		return fmt.Errorf("merged snapshot: %w", err)
	}

	stored, err := ReadDocument(path)
	if err != nil {
		return err
	}
	if !stored.LastModified.Equal(readAt) {
		return fmt.Errorf("%w (read at %s, now %s)", ErrStaleSnapshot,
			readAt.Format(time.RFC3339), stored.LastModified.Format(time.RFC3339))
	}
	return WriteDocument(path, merged)
}

// lock takes an exclusive lock file beside path.
func lock(path string) (func(), error) {
	lockPath := path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w (remove %s if no merge is running)", ErrLocked, lockPath)
		}
		return nil, fmt.Errorf("creating lock: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return func() { os.Remove(lockPath) }, nil
}
