// Package watch keeps a track directory continuously processed: filesystem
// events on track or override files schedule a full processing pass.
// Passes are serialized and coalesced, so a burst of events while one pass
// runs results in exactly one follow-up pass. A file lock enforces a
// single watcher per directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"igclog/internal/config"
	"igclog/internal/logging"
	"igclog/internal/pipeline"
)

// States reported by Scheduler.State.
const (
	StateIdle         = "idle"
	StateWatching     = "watching"
	StateReprocessing = "reprocessing"
)

// quietPeriod is how long the scheduler waits after the last event before
// starting a pass, so multi-file copies trigger one pass instead of many.
const quietPeriod = 500 * time.Millisecond

// ErrAlreadyWatched reports that another watcher holds the directory lock.
var ErrAlreadyWatched = errors.New("watch: directory already watched by another process")

// Scheduler drives processing passes from filesystem events.
type Scheduler struct {
	cfg    *config.Config
	logger *slog.Logger
	runner *pipeline.Runner

	lockPath string
	lock     *flock.Flock

	state   atomic.Value
	trigger chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// New constructs a scheduler for the configured directory.
func New(cfg *config.Config, logger *slog.Logger, runner *pipeline.Runner) (*Scheduler, error) {
	if cfg == nil || runner == nil {
		return nil, errors.New("watch: config and runner are required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := filepath.Join(cfg.MetaDir(), "igclog.lock")
	s := &Scheduler{
		cfg:      cfg,
		logger:   logger,
		runner:   runner,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		trigger:  make(chan struct{}, 1),
	}
	s.state.Store(StateIdle)
	return s, nil
}

// State returns the current scheduler state.
func (s *Scheduler) State() string {
	return s.state.Load().(string)
}

// Start acquires the watcher lock and begins observing the directory. It
// returns once watching is established; processing happens in the
// background until Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return errors.New("watch: already started")
	}

	if err := s.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("watch: prepare directories: %w", err)
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("watch: acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyWatched
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = s.lock.Unlock()
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	if err := s.addWatches(watcher); err != nil {
		_ = watcher.Close()
		_ = s.lock.Unlock()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.watcher = watcher
	s.state.Store(StateWatching)

	go s.loop(runCtx, watcher, done)

	s.logger.Info("watching track directory",
		logging.String("directory", s.cfg.Paths.Directory),
		logging.String("lock", s.lockPath))
	return nil
}

// Stop ends watching and releases the lock. It blocks until the current
// pass, if any, has finished.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done, watcher := s.cancel, s.done, s.watcher
	s.cancel, s.done, s.watcher = nil, nil, nil
	s.mu.Unlock()
	if done == nil {
		return
	}

	cancel()
	_ = watcher.Close()
	<-done

	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("failed to release watch lock", logging.Error(err))
	}
	s.state.Store(StateIdle)
	s.logger.Info("stopped watching track directory")
}

// addWatches registers the root directory and its subdirectories, skipping
// the derived-artifact directory.
func (s *Scheduler) addWatches(watcher *fsnotify.Watcher) error {
	metaDir := s.cfg.MetaDir()
	return filepath.WalkDir(s.cfg.Paths.Directory, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if path == metaDir {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch: add %s: %w", path, err)
		}
		return nil
	})
}

func (s *Scheduler) loop(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	var quiet *time.Timer
	var quietC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) {
				// New subdirectories join the watch set.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && event.Name != s.cfg.MetaDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if !relevant(event) {
				continue
			}
			s.logger.Debug("filesystem event",
				logging.String("op", event.Op.String()),
				logging.String(logging.FieldFile, filepath.Base(event.Name)))
			if quiet == nil {
				quiet = time.NewTimer(quietPeriod)
				quietC = quiet.C
			} else {
				quiet.Reset(quietPeriod)
			}
		case <-quietC:
			quiet, quietC = nil, nil
			s.runPass(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", logging.Error(err))
		}
	}
}

// relevant mirrors the event filter: new or removed track files and new,
// changed, or removed override files schedule a pass.
func relevant(event fsnotify.Event) bool {
	name := event.Name
	isTrack := strings.HasSuffix(strings.ToLower(name), ".igc")
	isOverride := strings.HasSuffix(name, ".manual.json")

	switch {
	case event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		return isTrack || isOverride
	case event.Op.Has(fsnotify.Write):
		return isOverride
	default:
		return false
	}
}

func (s *Scheduler) runPass(ctx context.Context) {
	s.state.Store(StateReprocessing)
	defer s.state.Store(StateWatching)

	result, err := s.runner.Run(ctx, pipeline.Options{Trigger: "watch"})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Error("watch pass failed", logging.Error(err))
		return
	}
	s.logger.Info("watch pass completed",
		logging.String(logging.FieldRunID, result.RunID),
		logging.Int("computed", result.Counts.Computed),
		logging.Int("skipped", result.Counts.Skipped),
		logging.Int("failed", result.Counts.Failed))
}
