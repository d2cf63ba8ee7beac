// Package pipeline orchestrates a full processing pass over a track
// directory: artifact garbage collection, per-file parsing and scoring,
// remote enrichment, manual overrides, duplicate detection, and logbook
// aggregation. Each pass is recorded in the run journal.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"igclog/internal/config"
	"igclog/internal/dupes"
	"igclog/internal/enrichment"
	"igclog/internal/fileutil"
	"igclog/internal/flight"
	"igclog/internal/geoindex"
	"igclog/internal/igc"
	"igclog/internal/journal"
	"igclog/internal/logbook"
	"igclog/internal/logging"
	"igclog/internal/metastore"
	"igclog/internal/services"
	"igclog/internal/xcscore"
)

const (
	stageCollect   = "collect"
	stageCompute   = "compute"
	stageManual    = "manual"
	stageAggregate = "aggregate"

	// lookupNeighbors is how many nearby places the reverse lookup
	// considers before role filtering.
	lookupNeighbors = 5

	manualSuffix = ".manual.json"
	trackSuffix  = ".igc"
)

// Runner executes processing passes against one configured directory.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *metastore.Store
	places   *geoindex.Index
	enricher *enrichment.Client
	journal  *journal.Store
}

// New wires a runner from configuration. The locations dataset and the run
// journal are optional: a missing dataset disables reverse lookups and a
// disabled journal skips run history.
func New(cfg *config.Config, logger *slog.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	runner := &Runner{
		cfg:    cfg,
		logger: logger,
		store:  metastore.New(cfg.MetaDir(), cfg.Paths.Legacy, logger),
	}

	if cfg.Paths.Locations != "" && fileutil.Exists(cfg.Paths.Locations) {
		places, err := geoindex.Load(cfg.Paths.Locations)
		if err != nil {
			return nil, fmt.Errorf("pipeline: load locations dataset: %w", err)
		}
		runner.places = places
	}

	runner.enricher = enrichment.NewClient(
		enrichment.WithBaseURL(cfg.Enrichment.BaseURL),
		enrichment.WithAccessToken(cfg.Enrichment.AccessToken),
	)

	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("pipeline: open journal: %w", err)
		}
		runner.journal = store
	}

	return runner, nil
}

// Close releases the runner's journal handle.
func (r *Runner) Close() error {
	if r.journal == nil {
		return nil
	}
	return r.journal.Close()
}

// Store exposes the artifact store for commands that inspect it directly.
func (r *Runner) Store() *metastore.Store { return r.store }

// Journal exposes the run journal, nil when disabled.
func (r *Runner) Journal() *journal.Store { return r.journal }

// Options controls a single processing pass.
type Options struct {
	// Threshold forces recomputation of flights taken off on or after the
	// given instant. Nil keeps all cached artifacts.
	Threshold *time.Time
	// GenerateCSV writes the spreadsheet export next to the track files.
	GenerateCSV bool
	// Trigger names what started the pass, recorded in the journal.
	Trigger string
}

// Result summarizes one processing pass.
type Result struct {
	RunID          string
	Counts         journal.Counts
	Removed        []string
	HashDuplicates []dupes.Pair
	Book           *logbook.Logbook
}

// Run executes one full pass. Per-file failures are counted and logged but
// do not abort the pass; only environment failures do.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)
	result := &Result{RunID: runID}

	if err := checkDirectory(r.cfg.Paths.Directory); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageCollect, "preflight", "track directory not usable", err)
	}
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageCollect, "preflight", "create meta directory", err)
	}

	trigger := opts.Trigger
	if trigger == "" {
		trigger = "manual"
	}
	if r.journal != nil {
		if err := r.journal.BeginRun(ctx, runID, trigger, time.Now()); err != nil {
			logger.Warn("journal unavailable for this run", logging.Error(err))
		}
	}

	runErr := r.runStages(ctx, logger, opts, result)

	if r.journal != nil {
		if err := r.journal.FinishRun(ctx, runID, result.Counts, runErr); err != nil {
			logger.Warn("journal finish failed", logging.Error(err))
		}
	}
	if runErr != nil {
		return result, runErr
	}
	return result, nil
}

func (r *Runner) runStages(ctx context.Context, logger *slog.Logger, opts Options, result *Result) error {
	removed, err := r.store.CollectOrphans()
	if err != nil {
		return services.Wrap(services.ErrFatal, stageCollect, "gc", "collect orphaned artifacts", err)
	}
	result.Removed = removed

	tracks, manuals, err := discover(r.cfg.Paths.Directory)
	if err != nil {
		return services.Wrap(services.ErrFatal, stageCollect, "discover", "scan track directory", err)
	}

	for _, path := range tracks {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.runTrack(ctx, logger, path, opts.Threshold, result)
	}
	logger.Info("track files processed",
		logging.String(logging.FieldStage, stageCompute),
		logging.Int("total", result.Counts.Total),
		logging.Int("computed", result.Counts.Computed),
		logging.Int("skipped", result.Counts.Skipped),
		logging.Int("failed", result.Counts.Failed))

	hashDupes, err := dupes.HashDuplicates(tracks)
	if err != nil {
		logger.Warn("content duplicate scan failed", logging.Error(err))
	}
	result.HashDuplicates = hashDupes
	for _, pair := range hashDupes {
		logger.Warn("identical track files",
			logging.String("file", pair.Path),
			logging.String("duplicate_of", pair.Other))
	}

	for _, path := range manuals {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.applyManual(ctx, path); err != nil {
			logger.Error("manual override failed",
				logging.String(logging.FieldStage, stageManual),
				logging.String(logging.FieldFile, filepath.Base(path)),
				logging.Error(err))
		}
	}
	logger.Info("manual overrides applied",
		logging.String(logging.FieldStage, stageManual),
		logging.Int("count", len(manuals)))

	book, err := logbook.Build(r.store)
	if err != nil {
		return services.Wrap(services.ErrFatal, stageAggregate, "build", "aggregate logbook", err)
	}
	if err := book.Save(r.store); err != nil {
		return services.Wrap(services.ErrFatal, stageAggregate, "save", "persist logbook", err)
	}
	for _, pair := range book.Duplicates {
		logger.Warn("overlapping flights",
			logging.String("file", pair.Path),
			logging.String("overlaps", pair.Other))
	}
	if opts.GenerateCSV {
		path, err := book.ExportCSV(r.cfg.Paths.Directory)
		if err != nil {
			return services.Wrap(services.ErrFatal, stageAggregate, "export", "write csv export", err)
		}
		logger.Info("csv export written", logging.String("path", path))
	}
	result.Book = book
	return nil
}

// runTrack handles one track file, isolating panics from malformed input
// so a single corrupt file cannot take down a watch daemon.
func (r *Runner) runTrack(ctx context.Context, logger *slog.Logger, path string, threshold *time.Time, result *Result) {
	name := filepath.Base(path)
	fileCtx := services.WithFile(ctx, name)
	fileLogger := logging.WithContext(fileCtx, logger)

	started := time.Now()
	result.Counts.Total++

	action, err := r.guardedTrack(fileCtx, fileLogger, path, threshold)
	elapsed := time.Since(started)

	switch {
	case err != nil:
		result.Counts.Failed++
		fileLogger.Error("track processing failed",
			logging.String(logging.FieldStage, stageCompute),
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.Error(err))
	case action == metastore.ActionSkip:
		result.Counts.Skipped++
	default:
		result.Counts.Computed++
		fileLogger.Info("track processed",
			logging.String(logging.FieldStage, stageCompute),
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.String("action", action.String()),
			logging.Duration("elapsed", elapsed))
	}

	if r.journal != nil {
		if jerr := r.journal.RecordFile(ctx, result.RunID, name, action.String(), elapsed, err); jerr != nil {
			fileLogger.Warn("journal record failed", logging.Error(jerr))
		}
	}
}

// guardedTrack runs the compute work on a throwaway goroutine so a panic in
// parsing or scoring is confined to this one file.
func (r *Runner) guardedTrack(ctx context.Context, logger *slog.Logger, path string, threshold *time.Time) (metastore.Action, error) {
	type outcome struct {
		action metastore.Action
		err    error
	}
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				ch <- outcome{err: fmt.Errorf("pipeline: panic processing %s: %v", filepath.Base(path), rec)}
			}
		}()
		action, err := r.processTrack(ctx, logger, path, threshold)
		ch <- outcome{action: action, err: err}
	}()
	res := <-ch
	return res.action, res.err
}

func (r *Runner) processTrack(ctx context.Context, logger *slog.Logger, path string, threshold *time.Time) (metastore.Action, error) {
	action, err := r.store.Decide(path, threshold)
	if err != nil {
		return action, err
	}
	if action == metastore.ActionSkip {
		return action, nil
	}

	entry := r.store.Entry(path)

	track, err := r.loadTrack(path, entry)
	if err != nil {
		return action, services.Wrap(services.ErrValidation, stageCompute, "parse", "parse track file", err)
	}

	if r.cfg.Enrichment.Elevations && !fileutil.Exists(entry.Elevations()) {
		if err := r.fetchElevations(ctx, entry, track); err != nil {
			logger.Warn("elevation profile unavailable", logging.Error(err))
		}
	}

	rec, err := r.loadOrScore(ctx, logger, entry, track)
	if err != nil {
		return action, err
	}
	if rec == nil {
		// Nothing scorable in the track; leave no record behind.
		return metastore.ActionSkip, nil
	}

	rec.Filename = entry.Name
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	rec.Filepath = &absPath

	r.applyPilotDefaults(rec)
	r.enrich(ctx, logger, rec)

	legacy, ok, err := r.store.LoadLegacy(path)
	if err != nil {
		logger.Warn("legacy record unreadable", logging.Error(err))
	} else if ok {
		legacy.Apply(rec)
	}
	if rec.Sport != nil {
		normalized := flight.NormalizeSport(*rec.Sport)
		rec.Sport = &normalized
	}

	if err := r.store.SaveRecord(path, rec); err != nil {
		return action, services.Wrap(services.ErrFatal, stageCompute, "persist", "write flight record", err)
	}
	return action, nil
}

// loadTrack reuses the cached parse artifact when present so reprocessing
// never re-reads the raw file.
func (r *Runner) loadTrack(path string, entry metastore.Entry) (*igc.Track, error) {
	if fileutil.Exists(entry.Positions()) {
		var track igc.Track
		if err := fileutil.ReadJSON(entry.Positions(), &track); err == nil {
			return &track, nil
		}
		// Fall through to a fresh parse on a corrupt artifact.
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	track, err := igc.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := fileutil.WriteJSON(entry.Positions(), track); err != nil {
		return nil, err
	}
	return track, nil
}

// loadOrScore returns the flight record for a track, either reloaded from
// cached artifacts or freshly scored. A nil record with nil error means
// the track has no scorable flight.
func (r *Runner) loadOrScore(ctx context.Context, logger *slog.Logger, entry metastore.Entry, track *igc.Track) (*flight.Record, error) {
	if fileutil.Exists(entry.Optimized()) && fileutil.Exists(entry.Meta()) {
		var rec flight.Record
		if err := fileutil.ReadJSON(entry.Meta(), &rec); err == nil {
			return &rec, nil
		}
	}

	outcome, err := xcscore.Optimize(ctx, track, xcscore.Options{
		Budget:          time.Duration(r.cfg.Optimizer.CycleSeconds) * time.Second,
		MemoryHighWater: r.cfg.Optimizer.MemoryHighWater,
		Logger:          logger,
	})
	if errors.Is(err, xcscore.ErrNoCandidate) {
		logger.Warn("no scorable flight in track")
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stageCompute, "optimize", "score track", err)
	}

	if err := fileutil.WriteJSON(entry.Optimized(), outcome.State); err != nil {
		return nil, services.Wrap(services.ErrFatal, stageCompute, "persist", "write optimizer state", err)
	}
	if err := fileutil.WriteJSON(entry.OptGeoJSON(), outcome.GeoJSON()); err != nil {
		return nil, services.Wrap(services.ErrFatal, stageCompute, "persist", "write route geometry", err)
	}
	return recordFromOutcome(track, outcome), nil
}

// recordFromOutcome builds the initial flight record from the scored track
// and its headers.
func recordFromOutcome(track *igc.Track, outcome *xcscore.Outcome) *flight.Record {
	summary := outcome.Summary
	rec := &flight.Record{
		Distance:   summary.DistanceM,
		Date:       track.Date,
		TakeoffPos: summary.LaunchPos,
		LandingPos: summary.LandingPos,
	}
	duration := summary.DurationS
	rec.Duration = &duration
	if summary.LaunchTime != nil {
		iso := summary.LaunchTime.UTC().Format(time.RFC3339)
		rec.TakeoffDate = &iso
	}
	if summary.LandingTime != nil {
		iso := summary.LandingTime.UTC().Format(time.RFC3339)
		rec.LandingDate = &iso
	}
	maxAlt := summary.MaxAltitude
	rec.MaxAltitude = &maxAlt

	setIfPresent := func(dst **string, value string) {
		if value != "" {
			v := value
			*dst = &v
		}
	}
	setIfPresent(&rec.Glider, track.GliderType)
	setIfPresent(&rec.Pilot, track.Pilot)
	setIfPresent(&rec.Copilot, track.Copilot)
	setIfPresent(&rec.Registration, track.Registration)
	setIfPresent(&rec.Callsign, track.Callsign)
	setIfPresent(&rec.CompetitionClass, track.CompetitionClass)
	setIfPresent(&rec.LoggerID, track.LoggerID)
	setIfPresent(&rec.LoggerManufacturer, track.LoggerManufacturer)
	rec.NumFlight = track.NumFlight

	xcDistance := summary.DistanceM
	rec.XCDistance = &xcDistance
	score := summary.Score
	rec.XCScore = &score
	setIfPresent(&rec.XCType, summary.Type)
	setIfPresent(&rec.XCCode, summary.Code)
	return rec
}

func (r *Runner) applyPilotDefaults(rec *flight.Record) {
	if r.cfg.Pilot.Name != "" && (rec.Pilot == nil || *rec.Pilot == "" || *rec.Pilot == "Unknown") {
		name := r.cfg.Pilot.Name
		rec.Pilot = &name
	}
	if r.cfg.Pilot.Glider != "" && (rec.Glider == nil || *rec.Glider == "") {
		glider := r.cfg.Pilot.Glider
		rec.Glider = &glider
	}
}

// enrich fills the timezone and location fields. All enrichment is best
// effort: failures leave the fields empty rather than failing the file.
func (r *Runner) enrich(ctx context.Context, logger *slog.Logger, rec *flight.Record) {
	if len(rec.TakeoffPos) == 2 {
		var ref *time.Time
		if t, ok := rec.TakeoffTime(); ok {
			ref = &t
		}
		offset, err := r.enricher.Timezone(ctx, rec.TakeoffPos[1], rec.TakeoffPos[0], ref)
		if err != nil {
			logger.Warn("timezone lookup failed", logging.Error(err))
		} else {
			rec.Timezone = offset
		}
	}
	if r.places == nil {
		return
	}
	if rec.TakeoffLocation == "" && len(rec.TakeoffPos) == 2 {
		rec.TakeoffLocation = r.places.ReverseLookup(rec.TakeoffPos[1], rec.TakeoffPos[0], geoindex.RoleTakeoff, lookupNeighbors)
	}
	if rec.LandingLocation == "" && len(rec.LandingPos) == 2 {
		rec.LandingLocation = r.places.ReverseLookup(rec.LandingPos[1], rec.LandingPos[0], geoindex.RoleLanding, lookupNeighbors)
	}
}

func (r *Runner) fetchElevations(ctx context.Context, entry metastore.Entry, track *igc.Track) error {
	positions := make([]enrichment.Position, len(track.Fixes))
	for i, fix := range track.Fixes {
		positions[i] = enrichment.Position{Latitude: fix.Latitude, Longitude: fix.Longitude}
	}
	elevations, err := r.enricher.Elevations(ctx, positions)
	if err != nil {
		return err
	}
	return fileutil.WriteJSON(entry.Elevations(), elevations)
}

// applyManual layers an operator-written override file onto the matching
// flight record, creating a record from the template when the override
// stands alone.
func (r *Runner) applyManual(ctx context.Context, manualPath string) error {
	name := strings.TrimSuffix(filepath.Base(manualPath), manualSuffix)

	var override flight.Override
	if err := fileutil.ReadJSON(manualPath, &override); err != nil {
		return fmt.Errorf("read override: %w", err)
	}

	rec, ok, err := r.store.LoadRecord(name)
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}
	if !ok {
		base := flight.DefaultRecord(time.Now())
		base.Filename = filepath.Base(manualPath)
		if abs, err := filepath.Abs(manualPath); err == nil {
			base.Filepath = &abs
		}
		rec = &base
	}

	if err := override.Apply(rec); err != nil {
		return fmt.Errorf("apply override: %w", err)
	}
	return r.store.SaveRecord(name, rec)
}

func checkDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("insufficient permissions on %s: %w", path, err)
	}
	return nil
}

// discover walks the track directory for source and override files,
// skipping the derived-artifact directory.
func discover(dir string) (tracks, manuals []string, err error) {
	metaDir := filepath.Join(dir, "meta")
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path == metaDir {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		switch {
		case strings.HasSuffix(strings.ToLower(name), trackSuffix):
			tracks = append(tracks, path)
		case strings.HasSuffix(name, manualSuffix):
			manuals = append(manuals, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(tracks)
	sort.Strings(manuals)
	return tracks, manuals, nil
}
