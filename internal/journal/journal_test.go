package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Millisecond)
	if err := store.BeginRun(ctx, "run-1", "manual", started); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordFile(ctx, "run-1", "a.igc", "compute", 1500*time.Millisecond, nil); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordFile(ctx, "run-1", "b.igc", "skip", 0, nil); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordFile(ctx, "run-1", "c.igc", "compute", 300*time.Millisecond, errors.New("bad fix data")); err != nil {
		t.Fatal(err)
	}
	if err := store.FinishRun(ctx, "run-1", Counts{Total: 3, Computed: 1, Skipped: 1, Failed: 1}, nil); err != nil {
		t.Fatal(err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d", len(runs))
	}
	run := runs[0]
	if run.ID != "run-1" || run.Trigger != "manual" || run.Status != StatusCompleted {
		t.Errorf("run = %+v", run)
	}
	if run.FilesTotal != 3 || run.FilesComputed != 1 || run.FilesSkipped != 1 || run.FilesFailed != 1 {
		t.Errorf("counts = %+v", run)
	}
	if run.FinishedAt == nil || run.Duration() < 0 {
		t.Errorf("finish bookkeeping: %+v", run)
	}
	if !run.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", run.StartedAt, started)
	}

	events, err := store.RunFiles(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d", len(events))
	}
	if events[0].Filename != "a.igc" || events[0].Action != "compute" || events[0].Duration != 1500*time.Millisecond {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[2].Error != "bad fix data" {
		t.Errorf("events[2] = %+v", events[2])
	}
}

func TestFailedRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.BeginRun(ctx, "run-2", "watch", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := store.FinishRun(ctx, "run-2", Counts{}, errors.New("directory vanished")); err != nil {
		t.Fatal(err)
	}
	runs, err := store.RecentRuns(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if runs[0].Status != StatusFailed || runs[0].Error != "directory vanished" {
		t.Errorf("run = %+v", runs[0])
	}
}

func TestRecentRunsOrderAndLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		if err := store.BeginRun(ctx, id, "manual", base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatal(err)
		}
	}
	runs, err := store.RecentRuns(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatalf("runs = %d", len(runs))
	}
	if runs[0].ID != "e" || runs[2].ID != "c" {
		t.Errorf("order = %s %s %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.BeginRun(context.Background(), "r", "manual", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	again, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer again.Close()
	runs, err := again.RecentRuns(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("runs after reopen = %d", len(runs))
	}
}
