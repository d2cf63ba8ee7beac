package metastore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"igclog/internal/fileutil"
	"igclog/internal/flight"
)

func newTestStore(t *testing.T) (*Store, string, string) {
	t.Helper()
	base := t.TempDir()
	metaDir := filepath.Join(base, "meta")
	legacyDir := filepath.Join(base, "cu")
	for _, dir := range []string{metaDir, legacyDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return New(metaDir, legacyDir, nil), metaDir, legacyDir
}

func writeTrack(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("AXCT fixture\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestEntryPaths(t *testing.T) {
	store, metaDir, _ := newTestStore(t)
	entry := store.Entry("/flights/2024-06-01-xct.igc")

	want := map[string]string{
		entry.Positions():  "2024-06-01-xct.igc.pos.json",
		entry.Optimized():  "2024-06-01-xct.igc.opt.json",
		entry.OptGeoJSON(): "2024-06-01-xct.igc.opt.geojson",
		entry.Elevations(): "2024-06-01-xct.igc.elev.json",
		entry.Meta():       "2024-06-01-xct.igc.meta.json",
	}
	for got, base := range want {
		if got != filepath.Join(metaDir, base) {
			t.Errorf("artifact path = %q, want %q", got, filepath.Join(metaDir, base))
		}
	}
}

func TestDecide(t *testing.T) {
	store, _, _ := newTestStore(t)
	takeoff := "2024-06-10T09:00:00Z"

	action, err := store.Decide("new.igc", nil)
	if err != nil || action != ActionCompute {
		t.Fatalf("missing record: action=%v err=%v", action, err)
	}

	rec := &flight.Record{TakeoffDate: &takeoff}
	if err := store.SaveRecord("new.igc", rec); err != nil {
		t.Fatal(err)
	}

	action, err = store.Decide("new.igc", nil)
	if err != nil || action != ActionSkip {
		t.Fatalf("cached without threshold: action=%v err=%v", action, err)
	}

	before := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	after := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)

	action, err = store.Decide("new.igc", &after)
	if err != nil || action != ActionSkip {
		t.Fatalf("takeoff before threshold: action=%v err=%v", action, err)
	}
	action, err = store.Decide("new.igc", &before)
	if err != nil || action != ActionRecompute {
		t.Fatalf("takeoff on or after threshold: action=%v err=%v", action, err)
	}

	// Records without a takeoff timestamp always rebuild under a threshold.
	if err := store.SaveRecord("undated.igc", &flight.Record{}); err != nil {
		t.Fatal(err)
	}
	action, err = store.Decide("undated.igc", &after)
	if err != nil || action != ActionRecompute {
		t.Fatalf("missing takeoff date: action=%v err=%v", action, err)
	}
}

func TestDecideThresholdEqualTakeoff(t *testing.T) {
	store, _, _ := newTestStore(t)
	takeoff := "2024-06-10T09:00:00Z"
	if err := store.SaveRecord("a.igc", &flight.Record{TakeoffDate: &takeoff}); err != nil {
		t.Fatal(err)
	}
	exact := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	action, err := store.Decide("a.igc", &exact)
	if err != nil || action != ActionRecompute {
		t.Fatalf("threshold equal to takeoff must recompute: action=%v err=%v", action, err)
	}
}

func TestRecordRoundTrip(t *testing.T) {
	store, _, _ := newTestStore(t)

	_, ok, err := store.LoadRecord("a.igc")
	if err != nil || ok {
		t.Fatalf("expected no record, ok=%v err=%v", ok, err)
	}

	pilot := "Test Pilot"
	if err := store.SaveRecord("a.igc", &flight.Record{Pilot: &pilot, Distance: 12.5}); err != nil {
		t.Fatal(err)
	}
	rec, ok, err := store.LoadRecord("a.igc")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if rec.Pilot == nil || *rec.Pilot != pilot || rec.Distance != 12.5 {
		t.Errorf("loaded record = %+v", rec)
	}
}

func TestCollectOrphans(t *testing.T) {
	store, _, _ := newTestStore(t)
	tracks := t.TempDir()

	keepPath := writeTrack(t, tracks, "keep.igc")
	gonePath := filepath.Join(tracks, "gone.igc")

	if err := store.SaveRecord("keep.igc", &flight.Record{Filepath: &keepPath}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveRecord("gone.igc", &flight.Record{Filepath: &gonePath}); err != nil {
		t.Fatal(err)
	}
	// Manual-only entry with no source path survives collection.
	if err := store.SaveRecord("manual-entry", &flight.Record{}); err != nil {
		t.Fatal(err)
	}
	// Sibling artifacts for the vanished track must go too.
	goneEntry := store.Entry("gone.igc")
	if err := fileutil.WriteJSON(goneEntry.Positions(), map[string]string{"x": "y"}); err != nil {
		t.Fatal(err)
	}

	removed, err := store.CollectOrphans()
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 1 || removed[0] != "gone.igc" {
		t.Fatalf("removed = %v", removed)
	}
	if fileutil.Exists(goneEntry.Meta()) || fileutil.Exists(goneEntry.Positions()) {
		t.Error("artifacts for vanished track still present")
	}
	if _, ok, _ := store.LoadRecord("keep.igc"); !ok {
		t.Error("record for existing track was removed")
	}
	if _, ok, _ := store.LoadRecord("manual-entry"); !ok {
		t.Error("manual-only record was removed")
	}
}

func TestClean(t *testing.T) {
	store, metaDir, _ := newTestStore(t)
	if err := store.SaveRecord("a.igc", &flight.Record{}); err != nil {
		t.Fatal(err)
	}
	entry := store.Entry("a.igc")
	if err := fileutil.WriteJSON(entry.Positions(), map[string]int{"n": 1}); err != nil {
		t.Fatal(err)
	}
	// Unrelated files survive a clean.
	other := filepath.Join(metaDir, "notes.txt")
	if err := os.WriteFile(other, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	count, err := store.Clean()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if fileutil.Exists(entry.Meta()) || fileutil.Exists(entry.Positions()) {
		t.Error("artifacts survived clean")
	}
	if !fileutil.Exists(other) {
		t.Error("unrelated file removed by clean")
	}
}

func TestLoadLegacy(t *testing.T) {
	store, _, legacyDir := newTestStore(t)

	_, ok, err := store.LoadLegacy("a.igc")
	if err != nil || ok {
		t.Fatalf("expected no legacy entry, ok=%v err=%v", ok, err)
	}

	if err := fileutil.WriteJSON(filepath.Join(legacyDir, "a.igc.json"), map[string]any{
		"distance": 33.5,
		"pilot":    "Old Pilot",
		"favorite": true,
	}); err != nil {
		t.Fatal(err)
	}
	legacy, ok, err := store.LoadLegacy("/flights/a.igc")
	if err != nil || !ok {
		t.Fatalf("load legacy: ok=%v err=%v", ok, err)
	}
	if legacy.Distance == nil || *legacy.Distance != 33.5 {
		t.Errorf("distance = %v", legacy.Distance)
	}
	if legacy.Pilot == nil || *legacy.Pilot != "Old Pilot" {
		t.Errorf("pilot = %v", legacy.Pilot)
	}
	if !legacy.Favorite {
		t.Error("favorite not set")
	}

	// No legacy directory configured at all.
	bare := New(t.TempDir(), "", nil)
	if _, ok, err := bare.LoadLegacy("a.igc"); err != nil || ok {
		t.Fatalf("bare store: ok=%v err=%v", ok, err)
	}
}
