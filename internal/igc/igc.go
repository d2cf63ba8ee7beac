package igc

import "time"

// Fix is one timestamped position sample from a B record.
type Fix struct {
	Time      time.Time `json:"time"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	// Valid reflects the B record fix validity flag ('A' = 3D fix).
	Valid bool `json:"valid"`
	// PressureAltitude is nil when the recorder logged no barometric value.
	PressureAltitude *int `json:"pressureAltitude"`
	// GPSAltitude is nil when the recorder logged no GNSS value.
	GPSAltitude *int `json:"gpsAltitude"`
}

// Altitude returns the preferred altitude for the fix: pressure if present,
// otherwise GPS. The second return is false when neither is available.
func (f Fix) Altitude() (int, bool) {
	if f.PressureAltitude != nil {
		return *f.PressureAltitude, true
	}
	if f.GPSAltitude != nil {
		return *f.GPSAltitude, true
	}
	return 0, false
}

// Track is a parsed IGC file.
type Track struct {
	// Date is the flight date from the HFDTE header, formatted 2006-01-02.
	Date string `json:"date"`

	Pilot              string `json:"pilot"`
	Copilot            string `json:"copilot"`
	GliderType         string `json:"gliderType"`
	Registration       string `json:"registration"`
	Callsign           string `json:"callsign"`
	CompetitionClass   string `json:"competitionClass"`
	LoggerID           string `json:"loggerId"`
	LoggerManufacturer string `json:"loggerManufacturer"`
	NumFlight          *int   `json:"numFlight"`

	Fixes []Fix `json:"fixes"`
}
