// Package metastore manages the derived-artifact directory that sits next
// to the track files. Every source file owns up to five artifacts keyed by
// its base name; the store decides when cached artifacts are authoritative
// and when they must be rebuilt, and garbage-collects artifacts whose
// source file disappeared.
package metastore

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"igclog/internal/fileutil"
	"igclog/internal/flight"
	"igclog/internal/logging"
)

const (
	suffixPositions  = ".pos.json"
	suffixOptimized  = ".opt.json"
	suffixOptGeoJSON = ".opt.geojson"
	suffixElevations = ".elev.json"
	suffixMeta       = ".meta.json"
)

// Action says what the pipeline should do for one source file.
type Action int

const (
	// ActionCompute builds all missing artifacts for a new file.
	ActionCompute Action = iota
	// ActionRecompute rebuilds artifacts despite a cached record.
	ActionRecompute
	// ActionSkip leaves the cached artifacts untouched.
	ActionSkip
)

func (a Action) String() string {
	switch a {
	case ActionCompute:
		return "compute"
	case ActionRecompute:
		return "recompute"
	case ActionSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Entry is the artifact set for one source file.
type Entry struct {
	// Name is the source file's base name, including its extension.
	Name string

	dir string
}

// Positions returns the parsed-track artifact path.
func (e Entry) Positions() string { return filepath.Join(e.dir, e.Name+suffixPositions) }

// Optimized returns the scoring-result artifact path.
func (e Entry) Optimized() string { return filepath.Join(e.dir, e.Name+suffixOptimized) }

// OptGeoJSON returns the route-geometry artifact path.
func (e Entry) OptGeoJSON() string { return filepath.Join(e.dir, e.Name+suffixOptGeoJSON) }

// Elevations returns the terrain-elevation artifact path.
func (e Entry) Elevations() string { return filepath.Join(e.dir, e.Name+suffixElevations) }

// Meta returns the flight-record artifact path.
func (e Entry) Meta() string { return filepath.Join(e.dir, e.Name+suffixMeta) }

func (e Entry) all() []string {
	return []string{e.Positions(), e.Optimized(), e.OptGeoJSON(), e.Elevations(), e.Meta()}
}

// Store reads and writes derived artifacts under a single meta directory.
// Legacy records live in a sibling directory with their own schema.
type Store struct {
	metaDir   string
	legacyDir string
	logger    *slog.Logger
}

// New creates a store rooted at metaDir. legacyDir may be empty when no
// old-generation logbook exists.
func New(metaDir, legacyDir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{metaDir: metaDir, legacyDir: legacyDir, logger: logger}
}

// Dir returns the meta directory path.
func (s *Store) Dir() string { return s.metaDir }

// Entry returns the artifact set for the given source file path or name.
func (s *Store) Entry(sourcePath string) Entry {
	return Entry{Name: filepath.Base(sourcePath), dir: s.metaDir}
}

// Decide determines the action for a source file. With no threshold a
// cached record always wins. With a threshold, the cached record is kept
// only when its takeoff predates the threshold; records past the threshold,
// or records with no takeoff timestamp at all, are rebuilt.
func (s *Store) Decide(sourcePath string, threshold *time.Time) (Action, error) {
	entry := s.Entry(sourcePath)
	if !fileutil.Exists(entry.Meta()) {
		return ActionCompute, nil
	}
	if threshold == nil {
		return ActionSkip, nil
	}
	var rec flight.Record
	if err := fileutil.ReadJSON(entry.Meta(), &rec); err != nil {
		// Unreadable cache means rebuild, same as a missing one.
		s.logger.Warn("unreadable flight record, rebuilding",
			logging.String(logging.FieldFile, entry.Name),
			logging.Error(err))
		return ActionRecompute, nil
	}
	takeoff, ok := rec.TakeoffTime()
	if ok && threshold.After(takeoff) {
		return ActionSkip, nil
	}
	return ActionRecompute, nil
}

// LoadRecord reads the flight record for a source file. The boolean is
// false when no record exists.
func (s *Store) LoadRecord(sourcePath string) (*flight.Record, bool, error) {
	entry := s.Entry(sourcePath)
	if !fileutil.Exists(entry.Meta()) {
		return nil, false, nil
	}
	var rec flight.Record
	if err := fileutil.ReadJSON(entry.Meta(), &rec); err != nil {
		return nil, false, err
	}
	return &rec, true, nil
}

// SaveRecord persists the flight record for a source file.
func (s *Store) SaveRecord(sourcePath string, rec *flight.Record) error {
	return fileutil.WriteJSON(s.Entry(sourcePath).Meta(), rec)
}

// Records lists every flight record in the store, keyed by artifact path.
func (s *Store) Records() (map[string]*flight.Record, error) {
	matches, err := filepath.Glob(filepath.Join(s.metaDir, "*"+suffixMeta))
	if err != nil {
		return nil, err
	}
	records := make(map[string]*flight.Record, len(matches))
	for _, metaPath := range matches {
		var rec flight.Record
		if err := fileutil.ReadJSON(metaPath, &rec); err != nil {
			s.logger.Warn("skipping unreadable flight record",
				logging.String(logging.FieldFile, filepath.Base(metaPath)),
				logging.Error(err))
			continue
		}
		records[metaPath] = &rec
	}
	return records, nil
}

// RecordList lists every flight record in artifact-name order.
func (s *Store) RecordList() ([]*flight.Record, error) {
	matches, err := filepath.Glob(filepath.Join(s.metaDir, "*"+suffixMeta))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	records := make([]*flight.Record, 0, len(matches))
	for _, metaPath := range matches {
		var rec flight.Record
		if err := fileutil.ReadJSON(metaPath, &rec); err != nil {
			s.logger.Warn("skipping unreadable flight record",
				logging.String(logging.FieldFile, filepath.Base(metaPath)),
				logging.Error(err))
			continue
		}
		records = append(records, &rec)
	}
	return records, nil
}

// Remove deletes every artifact belonging to a source file.
func (s *Store) Remove(sourcePath string) error {
	var firstErr error
	for _, p := range s.Entry(sourcePath).all() {
		if err := fileutil.RemoveIfExists(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// CollectOrphans removes artifact sets whose recorded source file no
// longer exists on disk. Records without a source path are left alone,
// since manual-only entries have no file to check. It returns the base
// names of the removed sets.
func (s *Store) CollectOrphans() ([]string, error) {
	records, err := s.Records()
	if err != nil {
		return nil, err
	}
	var removed []string
	for metaPath, rec := range records {
		if rec.Filepath == nil || *rec.Filepath == "" {
			continue
		}
		if fileutil.Exists(*rec.Filepath) {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(metaPath), suffixMeta)
		if err := s.Remove(name); err != nil {
			return removed, err
		}
		s.logger.Info("removed artifacts for missing track",
			logging.String(logging.FieldFile, name))
		removed = append(removed, name)
	}
	return removed, nil
}

// Clean deletes every derived artifact in the meta directory.
func (s *Store) Clean() (int, error) {
	suffixes := []string{suffixPositions, suffixOptimized, suffixOptGeoJSON, suffixElevations, suffixMeta}
	count := 0
	for _, suffix := range suffixes {
		matches, err := filepath.Glob(filepath.Join(s.metaDir, "*"+suffix))
		if err != nil {
			return count, err
		}
		for _, p := range matches {
			if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

// LoadLegacy reads the old-generation record for a source file. The
// boolean is false when no legacy directory is configured or the file has
// no legacy entry.
func (s *Store) LoadLegacy(sourcePath string) (*flight.Legacy, bool, error) {
	if s.legacyDir == "" {
		return nil, false, nil
	}
	legacyPath := filepath.Join(s.legacyDir, filepath.Base(sourcePath)+".json")
	if !fileutil.Exists(legacyPath) {
		return nil, false, nil
	}
	var legacy flight.Legacy
	if err := fileutil.ReadJSON(legacyPath, &legacy); err != nil {
		return nil, false, err
	}
	return &legacy, true, nil
}
