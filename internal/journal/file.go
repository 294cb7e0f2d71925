package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileJournal keeps one JSON file per run
type FileJournal struct {
	dir string
}

// NewFileJournal creates a journal in ~/.agentdesk/journal
func NewFileJournal() *FileJournal {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return &FileJournal{dir: filepath.Join(homeDir, ".agentdesk", "journal")}
}

// NewFileJournalWithDir creates a journal in dir
func NewFileJournalWithDir(dir string) *FileJournal {
	return &FileJournal{dir: dir}
}

// Dir returns the journal directory
func (f *FileJournal) Dir() string {
	return f.dir
}

func (f *FileJournal) getPath(runID string) string {
	return filepath.Join(f.dir, runID+".json")
}

func (f *FileJournal) ensureDir() error {
	return os.MkdirAll(f.dir, 0700)
}

// Load loads the entry of a run
func (f *FileJournal) Load(_ context.Context, runID string) (*Entry, error) {
	if err := validRunID(runID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.getPath(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read journal file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse journal file: %w", err)
	}
	return &entry, nil
}

// Save writes an entry atomically
func (f *FileJournal) Save(_ context.Context, entry *Entry) error {
	if err := validRunID(entry.RunID); err != nil {
		return err
	}
	if err := f.ensureDir(); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	entry.UpdatedAt = time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = entry.UpdatedAt
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	path := f.getPath(entry.RunID)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write journal temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename journal temp file: %w", err)
	}
	return nil
}

// Delete removes the entry of a run
func (f *FileJournal) Delete(_ context.Context, runID string) error {
	if err := validRunID(runID); err != nil {
		return err
	}
	if err := os.Remove(f.getPath(runID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete journal file: %w", err)
	}
	return nil
}

// List returns every readable entry
func (f *FileJournal) List(ctx context.Context) ([]*Entry, error) {
	if err := f.ensureDir(); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	files, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	var entries []*Entry
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		entry, err := f.Load(ctx, strings.TrimSuffix(file.Name(), ".json"))
		if err != nil || entry == nil {
			continue // skip unreadable entries
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// CleanupOld removes entries not updated within maxAge
func (f *FileJournal) CleanupOld(maxAge time.Duration) (int, error) {
	ctx := context.Background()
	entries, err := f.List(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	deleted := 0
	for _, entry := range entries {
		if now.Sub(entry.UpdatedAt) > maxAge {
			if err := f.Delete(ctx, entry.RunID); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}

func validRunID(runID string) error {
	if runID == "" || strings.ContainsAny(runID, `/\`) || strings.Contains(runID, "..") {
		return fmt.Errorf("invalid run id %q", runID)
	}
	return nil
}
