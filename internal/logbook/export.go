package logbook

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"igclog/internal/flight"
)

// CSVFileName is the spreadsheet export written next to the track files.
const CSVFileName = "logbook.csv"

var exportHeader = table.Row{
	"#", "Year", "Month", "Date", "Location", "Glider",
	"Distance km", "Duration", "XC km", "XC score", "XC type",
	"Max alt", "Landing", "Landing date", "Pilot", "Sport", "Filename", "Favorite",
}

// ExportCSV writes the logbook as CSV into dir, oldest flight first so row
// numbers stay stable as new flights are appended.
func (b *Logbook) ExportCSV(dir string) (string, error) {
	flights := make([]*flightRow, 0, len(b.Flights))
	for i := len(b.Flights) - 1; i >= 0; i-- {
		flights = append(flights, &flightRow{rec: b.Flights[i]})
	}

	w := table.NewWriter()
	w.AppendHeader(exportHeader)
	for i, row := range flights {
		w.AppendRow(row.values(i + 1))
	}

	path := filepath.Join(dir, CSVFileName)
	if err := os.WriteFile(path, []byte(w.RenderCSV()+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("logbook: write csv: %w", err)
	}
	return path, nil
}

type flightRow struct {
	rec *flight.Record
}

func (r *flightRow) values(index int) table.Row {
	rec := r.rec
	var year, month, takeoff string
	if t, ok := rec.TakeoffTime(); ok {
		local := t.UTC()
		if rec.Timezone != nil {
			local = t.In(time.FixedZone("", int(*rec.Timezone*3600)))
		}
		year = fmt.Sprintf("%d", local.Year())
		month = local.Month().String()
		takeoff = local.Format("02.01.2006 15:04")
	}
	var landingDate string
	if t, ok := rec.LandingTime(); ok {
		landingDate = t.UTC().Format("02.01.2006 15:04")
	}
	return table.Row{
		index, year, month, takeoff,
		rec.TakeoffLocation,
		strOrEmpty(rec.Glider),
		fmt.Sprintf("%.1f", rec.Distance/1000),
		durationHMS(rec.Duration),
		floatOrEmpty(rec.XCDistance, 1000, "%.1f"),
		floatOrEmpty(rec.XCScore, 1, "%.1f"),
		strOrEmpty(rec.XCType),
		intOrEmpty(rec.MaxAltitude),
		rec.LandingLocation,
		landingDate,
		strOrEmpty(rec.Pilot),
		strOrEmpty(rec.Sport),
		rec.Filename,
		rec.Favorite,
	}
}

func durationHMS(seconds *float64) string {
	if seconds == nil {
		return ""
	}
	d := time.Duration(*seconds * float64(time.Second)).Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func floatOrEmpty(v *float64, divisor float64, format string) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf(format, *v/divisor)
}
