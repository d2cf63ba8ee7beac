package testsupport

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TrackSpec describes a synthetic track file. Zero values give a short
// straight flight near Annecy on 2024-06-01.
type TrackSpec struct {
	Pilot    string
	Glider   string
	Date     time.Time
	StartLat float64
	StartLon float64
	// Fixes is the number of B records, one per second. Defaults to 60.
	Fixes int
	// StepDeg is the per-fix latitude increment. The default of 0.0002
	// degrees is roughly 22 m/s, fast enough to register as flying.
	StepDeg float64
	// BaseAlt is the starting pressure altitude in meters.
	BaseAlt int
}

// WriteTrack renders the described flight as an IGC file under dir and returns its path.
func WriteTrack(t testing.TB, dir, name string, spec TrackSpec) string {
	t.Helper()

	if spec.Date.IsZero() {
		spec.Date = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	}
	if spec.Fixes <= 0 {
		spec.Fixes = 60
	}
	if spec.StepDeg == 0 {
		spec.StepDeg = 0.0002
	}
	if spec.StartLat == 0 && spec.StartLon == 0 {
		spec.StartLat, spec.StartLon = 45.93, 6.12
	}
	if spec.BaseAlt == 0 {
		spec.BaseAlt = 1200
	}

	var b strings.Builder
	b.WriteString("AXCTGENERATED\r\n")
	fmt.Fprintf(&b, "HFDTE%s\r\n", spec.Date.Format("020106"))
	if spec.Pilot != "" {
		fmt.Fprintf(&b, "HFPLTPILOTINCHARGE:%s\r\n", spec.Pilot)
	}
	if spec.Glider != "" {
		fmt.Fprintf(&b, "HFGTYGLIDERTYPE:%s\r\n", spec.Glider)
	}

	for i := 0; i < spec.Fixes; i++ {
		at := spec.Date.Add(time.Duration(i) * time.Second)
		lat := spec.StartLat + float64(i)*spec.StepDeg
		alt := spec.BaseAlt + i
		fmt.Fprintf(&b, "B%s%s%sA%05d%05d\r\n",
			at.Format("150405"), igcLatitude(lat), igcLongitude(spec.StartLon), alt, alt+30)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write track %s: %v", path, err)
	}
	return path
}

func igcLatitude(lat float64) string {
	hemi := "N"
	if lat < 0 {
		hemi = "S"
		lat = -lat
	}
	deg := int(lat)
	thousandths := int(math.Round((lat - float64(deg)) * 60 * 1000))
	return fmt.Sprintf("%02d%05d%s", deg, thousandths, hemi)
}

func igcLongitude(lon float64) string {
	hemi := "E"
	if lon < 0 {
		hemi = "W"
		lon = -lon
	}
	deg := int(lon)
	thousandths := int(math.Round((lon - float64(deg)) * 60 * 1000))
	return fmt.Sprintf("%03d%05d%s", deg, thousandths, hemi)
}
