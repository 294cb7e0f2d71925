package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentdesk/agentdesk/pkg/sequencer"
	"github.com/agentdesk/agentdesk/pkg/types"
)

func testEntry(runID string) *Entry {
	return &Entry{
		RunID:  runID,
		Wallet: "0x123",
		Snapshot: sequencer.Snapshot{
			RunID:    runID,
			Flow:     sequencer.FlowAnalysis,
			Stage:    sequencer.StageRecommending,
			Progress: 60,
			Messages: []string{"Analyzing current market conditions..."},
		},
	}
}

func TestFileJournal_SaveAndLoad(t *testing.T) {
	j := NewFileJournalWithDir(t.TempDir())
	ctx := context.Background()

	entry := testEntry("run-1")
	entry.Snapshot.Recommendation = &types.Recommendation{Command: types.CommandSell, Quantity: 100}
	if err := j.Save(ctx, entry); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := j.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded == nil {
		t.Fatal("Load() returned nil")
	}
	if loaded.Snapshot.Stage != sequencer.StageRecommending {
		t.Errorf("Stage = %v, want %v", loaded.Snapshot.Stage, sequencer.StageRecommending)
	}
	if loaded.Snapshot.Progress != 60 {
		t.Errorf("Progress = %v, want 60", loaded.Snapshot.Progress)
	}
	if loaded.Snapshot.Recommendation == nil || loaded.Snapshot.Recommendation.Quantity != 100 {
		t.Errorf("Recommendation = %+v", loaded.Snapshot.Recommendation)
	}
	if loaded.CreatedAt.IsZero() || loaded.UpdatedAt.IsZero() {
		t.Error("timestamps should be set by Save")
	}
}

func TestFileJournal_LoadNonExistent(t *testing.T) {
	j := NewFileJournalWithDir(t.TempDir())

	loaded, err := j.Load(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded != nil {
		t.Error("Load() should return nil for a missing run")
	}
}

func TestFileJournal_Delete(t *testing.T) {
	j := NewFileJournalWithDir(t.TempDir())
	ctx := context.Background()

	if err := j.Save(ctx, testEntry("run-del")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := j.Delete(ctx, "run-del"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if loaded, _ := j.Load(ctx, "run-del"); loaded != nil {
		t.Error("entry should be gone after Delete")
	}
	if err := j.Delete(ctx, "run-del"); err != nil {
		t.Errorf("Delete() of a missing entry error = %v", err)
	}
}

func TestFileJournal_RejectsPathIDs(t *testing.T) {
	j := NewFileJournalWithDir(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "../escape", "a/b"} {
		if err := j.Save(ctx, testEntry(id)); err == nil {
			t.Errorf("Save(%q) should fail", id)
		}
	}
}

func TestFileJournal_ListAndCleanupOld(t *testing.T) {
	dir := t.TempDir()
	j := NewFileJournalWithDir(dir)
	ctx := context.Background()

	for _, id := range []string{"run-a", "run-b"} {
		if err := j.Save(ctx, testEntry(id)); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	// Written directly so Save does not refresh updated_at
	old := time.Now().Add(-2 * time.Hour).UTC().Format(time.RFC3339)
	oldJSON := `{"run_id":"run-old","snapshot":{"stage":"success"},"created_at":"` + old + `","updated_at":"` + old + `"}`
	if err := os.WriteFile(filepath.Join(dir, "run-old.json"), []byte(oldJSON), 0600); err != nil {
		t.Fatalf("failed to write old entry: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0600); err != nil {
		t.Fatalf("failed to write stray file: %v", err)
	}

	list, err := j.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(list))
	}

	deleted, err := j.CleanupOld(time.Hour)
	if err != nil {
		t.Fatalf("CleanupOld() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("CleanupOld() deleted %d, want 1", deleted)
	}
	if loaded, _ := j.Load(ctx, "run-old"); loaded != nil {
		t.Error("old entry should be removed")
	}
	if loaded, _ := j.Load(ctx, "run-a"); loaded == nil {
		t.Error("recent entry should be kept")
	}
}
