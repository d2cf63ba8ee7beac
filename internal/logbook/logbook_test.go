package logbook

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"igclog/internal/flight"
	"igclog/internal/metastore"
)

func strPtr(s string) *string    { return &s }
func floatPtr(v float64) *float64 { return &v }

func recordAt(name, takeoff, landing string) *flight.Record {
	rec := &flight.Record{Filename: name, Filepath: strPtr("/flights/" + name)}
	if takeoff != "" {
		rec.TakeoffDate = strPtr(takeoff)
	}
	if landing != "" {
		rec.LandingDate = strPtr(landing)
	}
	return rec
}

func TestSortNewestFirst(t *testing.T) {
	flights := []*flight.Record{
		recordAt("old.igc", "2023-05-01T10:00:00Z", "2023-05-01T11:00:00Z"),
		recordAt("new.igc", "2024-06-01T10:00:00Z", "2024-06-01T11:00:00Z"),
		recordAt("mid.igc", "2023-12-01T10:00:00Z", "2023-12-01T11:00:00Z"),
	}
	Sort(flights)
	got := []string{flights[0].Filename, flights[1].Filename, flights[2].Filename}
	want := []string{"new.igc", "mid.igc", "old.igc"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestSortUndatedIsDeterministic(t *testing.T) {
	build := func() []*flight.Record {
		return []*flight.Record{
			recordAt("a.igc", "2024-06-01T10:00:00Z", ""),
			recordAt("undated.igc", "", ""),
			recordAt("b.igc", "2024-05-01T10:00:00Z", ""),
		}
	}
	first := build()
	Sort(first)
	for n := 0; n < 10; n++ {
		again := build()
		Sort(again)
		for i := range first {
			if first[i].Filename != again[i].Filename {
				t.Fatalf("sort not deterministic: %v vs %v", first[i].Filename, again[i].Filename)
			}
		}
	}
}

func TestBuildFindsOverlapsAndSorts(t *testing.T) {
	store := metastore.New(t.TempDir(), "", nil)

	save := func(rec *flight.Record) {
		t.Helper()
		if err := store.SaveRecord(rec.Filename, rec); err != nil {
			t.Fatal(err)
		}
	}
	save(recordAt("a.igc", "2024-06-01T10:00:00Z", "2024-06-01T12:00:00Z"))
	save(recordAt("b.igc", "2024-06-01T11:00:00Z", "2024-06-01T13:00:00Z"))
	save(recordAt("c.igc", "2024-07-01T10:00:00Z", "2024-07-01T11:00:00Z"))

	book, err := Build(store)
	if err != nil {
		t.Fatal(err)
	}
	if len(book.Flights) != 3 {
		t.Fatalf("flights = %d", len(book.Flights))
	}
	if book.Flights[0].Filename != "c.igc" {
		t.Errorf("first flight = %s, want c.igc", book.Flights[0].Filename)
	}
	if len(book.Duplicates) != 1 || book.Duplicates[0].Path != "/flights/b.igc" {
		t.Errorf("duplicates = %v", book.Duplicates)
	}
}

func TestSaveWritesSortedAggregate(t *testing.T) {
	store := metastore.New(t.TempDir(), "", nil)
	if err := store.SaveRecord("a.igc", recordAt("a.igc", "2024-06-01T10:00:00Z", "2024-06-01T11:00:00Z")); err != nil {
		t.Fatal(err)
	}
	book, err := Build(store)
	if err != nil {
		t.Fatal(err)
	}
	if err := book.Save(store); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(store.Dir(), FileName))
	if err != nil {
		t.Fatal(err)
	}
	var flights []flight.Record
	if err := json.Unmarshal(data, &flights); err != nil {
		t.Fatal(err)
	}
	if len(flights) != 1 || flights[0].Filename != "a.igc" {
		t.Errorf("persisted logbook = %+v", flights)
	}
}

func TestSummarize(t *testing.T) {
	alt := 2430
	book := &Logbook{Flights: []*flight.Record{
		{Distance: 25000, Duration: floatPtr(7200), XCScore: floatPtr(30.5), Favorite: true, MaxAltitude: &alt},
		{Distance: 5000, Duration: floatPtr(1800)},
	}}
	totals := book.Summarize()
	if totals.Flights != 2 {
		t.Errorf("flights = %d", totals.Flights)
	}
	if totals.DistanceKm != 30 {
		t.Errorf("distance = %v", totals.DistanceKm)
	}
	if totals.DurationHours != 2.5 {
		t.Errorf("duration = %v", totals.DurationHours)
	}
	if totals.XCScore != 30.5 {
		t.Errorf("score = %v", totals.XCScore)
	}
	if totals.Favorites != 1 {
		t.Errorf("favorites = %d", totals.Favorites)
	}
	if totals.MaxAltitude != 2430 {
		t.Errorf("max altitude = %d", totals.MaxAltitude)
	}
}

func TestGoals(t *testing.T) {
	rec := recordAt("a.igc", "2024-06-01T10:00:00Z", "2024-06-01T11:00:00Z")
	rec.Distance = 50000
	rec.Duration = floatPtr(3600)
	lastYear := recordAt("b.igc", "2023-06-01T10:00:00Z", "2023-06-01T11:00:00Z")
	lastYear.Distance = 90000

	book := &Logbook{Flights: []*flight.Record{rec, lastYear}}
	now := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)

	progress := book.Goals(now, 100, 10, 20)
	if len(progress) != 3 {
		t.Fatalf("progress = %+v", progress)
	}
	if progress[0].Actual != 50 || progress[0].Fraction() != 0.5 {
		t.Errorf("distance progress = %+v", progress[0])
	}
	if progress[1].Actual != 1 {
		t.Errorf("duration progress = %+v", progress[1])
	}
	if progress[2].Actual != 1 {
		t.Errorf("flights progress = %+v", progress[2])
	}

	if got := book.Goals(now, 0, 0, 0); len(got) != 0 {
		t.Errorf("zero targets should yield no progress entries: %+v", got)
	}
}

func TestExportCSV(t *testing.T) {
	tz := 2.0
	newer := recordAt("new.igc", "2024-06-02T10:00:00Z", "2024-06-02T12:00:00Z")
	newer.Distance = 42000
	newer.Duration = floatPtr(7200)
	newer.Timezone = &tz
	newer.TakeoffLocation = "Annecy"
	older := recordAt("old.igc", "2024-06-01T10:00:00Z", "2024-06-01T11:00:00Z")

	book := &Logbook{Flights: []*flight.Record{newer, older}}
	Sort(book.Flights)

	dir := t.TempDir()
	path, err := book.ExportCSV(dir)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d: %q", len(lines), string(data))
	}
	// Oldest flight takes row 1.
	if !strings.HasPrefix(lines[1], "1,") || !strings.Contains(lines[1], "old.igc") {
		t.Errorf("row 1 = %q", lines[1])
	}
	if !strings.Contains(lines[2], "Annecy") || !strings.Contains(lines[2], "42.0") {
		t.Errorf("row 2 = %q", lines[2])
	}
	// Takeoff rendered in the flight's local offset.
	if !strings.Contains(lines[2], "02.06.2024 12:00") {
		t.Errorf("row 2 timezone handling = %q", lines[2])
	}
	if !strings.Contains(lines[2], "2:00:00") {
		t.Errorf("row 2 duration = %q", lines[2])
	}
}
