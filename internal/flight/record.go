package flight

import (
	"fmt"
	"time"
)

// Record is the canonical derived metadata for one source file. Pointer
// fields are nullable: nil round-trips as JSON null, matching the artifacts
// the original logbooks carry. Positions are [lon, lat] pairs.
type Record struct {
	Distance            float64    `json:"distance"`
	Duration            *float64   `json:"duration"`
	Date                string     `json:"date"`
	Glider              *string    `json:"glider"`
	LandingDate         *string    `json:"landing_date"`
	LandingPos          []float64  `json:"landing_pos"`
	LandingLocation     string     `json:"landing_location"`
	MaxAltitude         *int       `json:"max_altitude"`
	Pilot               *string    `json:"pilot"`
	Copilot             *string    `json:"copilot"`
	TakeoffDate         *string    `json:"takeoff_date"`
	TakeoffPos          []float64  `json:"takeoff_pos"`
	TakeoffLocation     string     `json:"takeoff_location"`
	Timezone            *float64   `json:"timezone"`
	Filename            string     `json:"filename"`
	Filepath            *string    `json:"filepath"`
	NumFlight           *int       `json:"numFlight"`
	Registration        *string    `json:"registration"`
	Callsign            *string    `json:"callsign"`
	CompetitionClass    *string    `json:"competitionClass"`
	LoggerID            *string    `json:"loggerId"`
	LoggerManufacturer  *string    `json:"loggerManufacturer"`
	XCDistance          *float64   `json:"xcDistance"`
	XCScore             *float64   `json:"xcScore"`
	XCType              *string    `json:"xcType"`
	XCCode              *string    `json:"xcCode"`
	BestThermalAvgVario *float64   `json:"best_thermal_avg_vario"`
	Sport               *string    `json:"sport"`
	Favorite            bool       `json:"favorite"`
}

// TakeoffTime parses the takeoff timestamp. The second return is false when
// the date is absent or unparseable.
func (r *Record) TakeoffTime() (time.Time, bool) {
	return parseDate(r.TakeoffDate)
}

// LandingTime parses the landing timestamp.
func (r *Record) LandingTime() (time.Time, bool) {
	return parseDate(r.LandingDate)
}

func parseDate(s *string) (time.Time, bool) {
	if s == nil || *s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Validate checks record invariants: when both timestamps are present the
// takeoff must not follow the landing.
func (r *Record) Validate() error {
	takeoff, okT := r.TakeoffTime()
	landing, okL := r.LandingTime()
	if okT && okL && takeoff.After(landing) {
		return fmt.Errorf("flight: takeoff %s after landing %s", takeoff.Format(time.RFC3339), landing.Format(time.RFC3339))
	}
	return nil
}

// DefaultRecord is the template layered under manual-only entries: a zero
// flight dated now, with every nullable field null.
func DefaultRecord(now time.Time) Record {
	iso := now.UTC().Format(time.RFC3339)
	return Record{
		Distance:    0,
		Date:        iso,
		TakeoffDate: strPtr(iso),
	}
}

func strPtr(s string) *string { return &s }
