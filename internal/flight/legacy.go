package flight

import "strings"

// Legacy is an entry from the old-generation logbook directory. Its schema
// predates the computed record, so several fields carry different names.
type Legacy struct {
	Distance            *float64 `json:"distance"`
	Duration            *float64 `json:"duration"`
	FlightDate          *string  `json:"flight_date"`
	Glider              *string  `json:"glider"`
	LandingDate         *string  `json:"landing_date"`
	LandingLocation     *string  `json:"landing_location"`
	MaxAltitude         *string  `json:"max_altitude"`
	Pilot               *string  `json:"pilot"`
	TakeoffDate         *string  `json:"takeoff_date"`
	TakeoffLocation     *string  `json:"takeoff_location"`
	Timezone            *float64 `json:"timezone"`
	Filename            *string  `json:"filename"`
	BestThermalAvgVario *float64 `json:"best_thermal_avg_vario"`
	CompetitionNumber   *string  `json:"competition_number"`
	GliderRegistration  *string  `json:"glider_registration"`
	Sport               *string  `json:"sport"`
	Favorite            bool     `json:"favorite"`
}

// Apply merges the legacy entry into rec. Legacy data is the pilot's curated
// history, so its core fields take precedence over computed values outright;
// secondary fields only replace the computed ones when the legacy file
// carries them.
func (l *Legacy) Apply(rec *Record) {
	if l.Distance != nil {
		rec.Distance = *l.Distance
	} else {
		rec.Distance = 0
	}
	rec.Duration = l.Duration
	rec.Glider = l.Glider
	rec.Pilot = l.Pilot
	if l.LandingDate != nil {
		rec.LandingDate = l.LandingDate
	}
	if l.TakeoffDate != nil {
		rec.TakeoffDate = l.TakeoffDate
	}
	if l.BestThermalAvgVario != nil {
		rec.BestThermalAvgVario = l.BestThermalAvgVario
	}
	if l.Sport != nil {
		lowered := strings.ToLower(*l.Sport)
		rec.Sport = &lowered
	} else if rec.Sport != nil {
		lowered := strings.ToLower(*rec.Sport)
		rec.Sport = &lowered
	}
	if l.GliderRegistration != nil {
		rec.Registration = l.GliderRegistration
	}
	if l.CompetitionNumber != nil {
		rec.Callsign = l.CompetitionNumber
	}
	rec.Favorite = l.Favorite || rec.Favorite
	if rec.Sport != nil {
		normalized := NormalizeSport(*rec.Sport)
		rec.Sport = &normalized
	}
}

// NormalizeSport folds sport synonyms into the canonical label.
func NormalizeSport(sport string) string {
	switch strings.ToLower(sport) {
	case "paraglider", "paragliders":
		return "paragliding"
	default:
		return strings.ToLower(sport)
	}
}
