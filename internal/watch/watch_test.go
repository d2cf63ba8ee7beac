package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"igclog/internal/pipeline"
	"igclog/internal/testsupport"
)

func newScheduler(t *testing.T) (*Scheduler, *pipeline.Runner) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	runner, err := pipeline.New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { runner.Close() })
	scheduler, err := New(cfg, nil, runner)
	if err != nil {
		t.Fatal(err)
	}
	return scheduler, runner
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSchedulerProcessesNewTrack(t *testing.T) {
	scheduler, runner := newScheduler(t)
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer scheduler.Stop()

	if got := scheduler.State(); got != StateWatching {
		t.Fatalf("state = %q", got)
	}

	testsupport.WriteTrack(t, scheduler.cfg.Paths.Directory, "flight.igc", testsupport.TrackSpec{})

	waitFor(t, 15*time.Second, func() bool {
		_, ok, _ := runner.Store().LoadRecord("flight.igc")
		return ok
	})
}

func TestSchedulerCoalescesBurst(t *testing.T) {
	scheduler, runner := newScheduler(t)
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer scheduler.Stop()

	dir := scheduler.cfg.Paths.Directory
	for i := 0; i < 3; i++ {
		testsupport.WriteTrack(t, dir, "flight"+string(rune('a'+i))+".igc", testsupport.TrackSpec{})
	}

	waitFor(t, 15*time.Second, func() bool {
		records, err := runner.Store().RecordList()
		return err == nil && len(records) == 3
	})
}

func TestSchedulerIgnoresUnrelatedFiles(t *testing.T) {
	scheduler, runner := newScheduler(t)
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer scheduler.Stop()

	dir := scheduler.cfg.Paths.Directory
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(2 * quietPeriod)
	records, err := runner.Store().RecordList()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("unexpected records: %d", len(records))
	}
}

func TestSchedulerLockIsExclusive(t *testing.T) {
	scheduler, runner := newScheduler(t)
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer scheduler.Stop()

	second, err := New(scheduler.cfg, nil, runner)
	if err != nil {
		t.Fatal(err)
	}
	if err := second.Start(context.Background()); !errors.Is(err, ErrAlreadyWatched) {
		if err == nil {
			second.Stop()
		}
		t.Fatalf("err = %v, want ErrAlreadyWatched", err)
	}
}

func TestSchedulerStopResetsState(t *testing.T) {
	scheduler, _ := newScheduler(t)
	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	scheduler.Stop()
	if got := scheduler.State(); got != StateIdle {
		t.Errorf("state after stop = %q", got)
	}
	// Stop again is a no-op.
	scheduler.Stop()
}

func TestRelevant(t *testing.T) {
	cases := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{"a.igc", fsnotify.Create, true},
		{"a.IGC", fsnotify.Create, true},
		{"a.igc", fsnotify.Remove, true},
		{"a.igc", fsnotify.Write, false},
		{"a.igc.manual.json", fsnotify.Write, true},
		{"a.igc.manual.json", fsnotify.Create, true},
		{"a.igc.manual.json", fsnotify.Rename, true},
		{"logbook.json", fsnotify.Write, false},
		{"notes.txt", fsnotify.Create, false},
		{"a.igc", fsnotify.Chmod, false},
	}
	for _, tc := range cases {
		got := relevant(fsnotify.Event{Name: "/flights/" + tc.name, Op: tc.op})
		if got != tc.want {
			t.Errorf("relevant(%s, %v) = %v, want %v", tc.name, tc.op, got, tc.want)
		}
	}
}
