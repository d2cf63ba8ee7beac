// Package logbook aggregates the per-file flight records into a single
// sorted logbook, reports likely duplicate flights, and exports the result
// for spreadsheet use.
package logbook

import (
	"path/filepath"
	"sort"
	"time"

	"igclog/internal/dupes"
	"igclog/internal/fileutil"
	"igclog/internal/flight"
	"igclog/internal/metastore"
)

// FileName is the aggregate artifact written into the meta directory.
const FileName = "logbook.json"

// Logbook is the aggregated view over every flight record in a store.
type Logbook struct {
	Flights    []*flight.Record
	Duplicates []dupes.Pair
}

// Build collects all records from the store, sorts them, and flags
// temporally overlapping flights.
func Build(store *metastore.Store) (*Logbook, error) {
	records, err := store.RecordList()
	if err != nil {
		return nil, err
	}
	book := &Logbook{Flights: records}
	book.Duplicates = findOverlaps(records)
	Sort(book.Flights)
	return book, nil
}

// Save writes the aggregated logbook into the store's meta directory.
func (b *Logbook) Save(store *metastore.Store) error {
	return fileutil.WriteJSON(filepath.Join(store.Dir(), FileName), b.Flights)
}

// Sort orders flights by takeoff, newest first. A flight with no takeoff
// timestamp compares as earlier than its counterpart from either side, so
// the comparison is not a strict ordering; the stable sort keeps the output
// deterministic for a given input order.
func Sort(flights []*flight.Record) {
	sort.SliceStable(flights, func(i, j int) bool {
		ti, okI := flights[i].TakeoffTime()
		if !okI {
			return true
		}
		if _, okJ := flights[j].TakeoffTime(); !okJ {
			return true
		}
		tj, _ := flights[j].TakeoffTime()
		return ti.After(tj)
	})
}

func findOverlaps(flights []*flight.Record) []dupes.Pair {
	intervals := make([]dupes.Interval, 0, len(flights))
	for _, rec := range flights {
		takeoff, okT := rec.TakeoffTime()
		landing, okL := rec.LandingTime()
		if !okT || !okL || rec.Filepath == nil || *rec.Filepath == "" {
			continue
		}
		intervals = append(intervals, dupes.Interval{
			Takeoff: takeoff,
			Landing: landing,
			Path:    *rec.Filepath,
		})
	}
	return dupes.TemporalDuplicates(intervals)
}

// Totals are the running sums shown in the summary, with configured
// starting offsets already applied by the caller.
type Totals struct {
	Flights       int
	DistanceKm    float64
	DurationHours float64
	XCScore       float64
	Favorites     int
	MaxAltitude   int
}

// Summarize folds the logbook into totals. Distance is stored in meters
// and duration in seconds on each record.
func (b *Logbook) Summarize() Totals {
	var t Totals
	for _, rec := range b.Flights {
		t.Flights++
		t.DistanceKm += rec.Distance / 1000
		if rec.Duration != nil {
			t.DurationHours += *rec.Duration / 3600
		}
		if rec.XCScore != nil {
			t.XCScore += *rec.XCScore
		}
		if rec.Favorite {
			t.Favorites++
		}
		if rec.MaxAltitude != nil && *rec.MaxAltitude > t.MaxAltitude {
			t.MaxAltitude = *rec.MaxAltitude
		}
	}
	return t
}

// Year filters the logbook down to flights whose takeoff falls in the
// given calendar year.
func (b *Logbook) Year(year int) *Logbook {
	filtered := &Logbook{Duplicates: b.Duplicates}
	for _, rec := range b.Flights {
		takeoff, ok := rec.TakeoffTime()
		if ok && takeoff.UTC().Year() == year {
			filtered.Flights = append(filtered.Flights, rec)
		}
	}
	return filtered
}

// GoalProgress is the standing of one season target.
type GoalProgress struct {
	Name   string
	Actual float64
	Target float64
}

// Fraction returns progress toward the target, capped at 1.
func (g GoalProgress) Fraction() float64 {
	if g.Target <= 0 {
		return 0
	}
	f := g.Actual / g.Target
	if f > 1 {
		return 1
	}
	return f
}

// Goals compares this season's totals against the configured targets.
// Zero-valued targets are omitted.
func (b *Logbook) Goals(now time.Time, distanceKm, durationHours float64, flights int) []GoalProgress {
	totals := b.Year(now.UTC().Year()).Summarize()
	var progress []GoalProgress
	if distanceKm > 0 {
		progress = append(progress, GoalProgress{Name: "distance_km", Actual: totals.DistanceKm, Target: distanceKm})
	}
	if durationHours > 0 {
		progress = append(progress, GoalProgress{Name: "duration_hours", Actual: totals.DurationHours, Target: durationHours})
	}
	if flights > 0 {
		progress = append(progress, GoalProgress{Name: "flights", Actual: float64(totals.Flights), Target: float64(flights)})
	}
	return progress
}
