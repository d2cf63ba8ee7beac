package igc

import (
	"math"
	"strings"
	"testing"
	"time"
)

const fixture = "AXCT8F7E17\r\n" +
	"HFDTE200524\r\n" +
	"HFPLTPILOTINCHARGE:Jane Doe\r\n" +
	"HFGTYGLIDERTYPE:Omega ULS\r\n" +
	"HFGIDGLIDERID:D-1234\r\n" +
	"HFCIDCOMPETITIONID:42\r\n" +
	"HFCCLCOMPETITIONCLASS:Sport\r\n" +
	"B1101355206343N00006198WA0058700558\r\n" +
	"B1101455206400N00006100WA0059000561\r\n" +
	"B1101555206500N00006000WA0000000565\r\n"

func TestParseFixture(t *testing.T) {
	track, err := Parse([]byte(fixture))
	if err != nil {
		t.Fatal(err)
	}

	if track.Date != "2024-05-20" {
		t.Fatalf("date = %q", track.Date)
	}
	if track.Pilot != "Jane Doe" {
		t.Fatalf("pilot = %q", track.Pilot)
	}
	if track.GliderType != "Omega ULS" {
		t.Fatalf("glider = %q", track.GliderType)
	}
	if track.Registration != "D-1234" {
		t.Fatalf("registration = %q", track.Registration)
	}
	if track.Callsign != "42" {
		t.Fatalf("callsign = %q", track.Callsign)
	}
	if track.LoggerManufacturer != "XCTracer" {
		t.Fatalf("manufacturer = %q", track.LoggerManufacturer)
	}
	if track.LoggerID != "8F7E17" {
		t.Fatalf("logger id = %q", track.LoggerID)
	}
	if len(track.Fixes) != 3 {
		t.Fatalf("fixes = %d", len(track.Fixes))
	}

	first := track.Fixes[0]
	wantTime := time.Date(2024, 5, 20, 11, 1, 35, 0, time.UTC)
	if !first.Time.Equal(wantTime) {
		t.Fatalf("time = %v", first.Time)
	}
	if math.Abs(first.Latitude-52.105716) > 1e-5 {
		t.Fatalf("lat = %v", first.Latitude)
	}
	if math.Abs(first.Longitude-(-0.1033)) > 1e-4 {
		t.Fatalf("lon = %v", first.Longitude)
	}
	if first.PressureAltitude == nil || *first.PressureAltitude != 587 {
		t.Fatalf("pressure alt = %v", first.PressureAltitude)
	}
	if first.GPSAltitude == nil || *first.GPSAltitude != 558 {
		t.Fatalf("gps alt = %v", first.GPSAltitude)
	}
	if !first.Valid {
		t.Fatal("expected valid fix")
	}

	// All-zero pressure altitude means "not recorded".
	last := track.Fixes[2]
	if last.PressureAltitude != nil {
		t.Fatalf("pressure alt = %v", *last.PressureAltitude)
	}
	if alt, ok := last.Altitude(); !ok || alt != 565 {
		t.Fatalf("altitude fallback = %d ok=%v", alt, ok)
	}
}

func TestParseMidnightRollover(t *testing.T) {
	body := "HFDTE311223\r\n" +
		"B2359505206343N00006198WA0058700558\r\n" +
		"B0000105206400N00006100WA0059000561\r\n"
	track, err := Parse([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if len(track.Fixes) != 2 {
		t.Fatalf("fixes = %d", len(track.Fixes))
	}
	second := track.Fixes[1]
	want := time.Date(2024, 1, 1, 0, 0, 10, 0, time.UTC)
	if !second.Time.Equal(want) {
		t.Fatalf("rolled time = %v, want %v", second.Time, want)
	}
	if !track.Fixes[0].Time.Before(second.Time) {
		t.Fatal("fix times must be monotonic")
	}
}

func TestParseDateHeaderVariants(t *testing.T) {
	body := "HFDTEDATE:200524,02\r\n" +
		"B1101355206343N00006198WA0058700558\r\n"
	track, err := Parse([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if track.Date != "2024-05-20" {
		t.Fatalf("date = %q", track.Date)
	}
	if track.NumFlight == nil || *track.NumFlight != 2 {
		t.Fatalf("numFlight = %v", track.NumFlight)
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"no date":      "B1101355206343N00006198WA0058700558\r\n",
		"no fixes":     "HFDTE200524\r\n",
		"short record": "HFDTE200524\r\nB11013552\r\n",
		"bad digits":   "HFDTE200524\r\nB11X1355206343N00006198WA0058700558\r\n",
	}
	for name, body := range cases {
		if _, err := Parse([]byte(body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestParseIsDeterministic(t *testing.T) {
	a, err := Parse([]byte(fixture))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse([]byte(fixture))
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Fixes) != len(b.Fixes) || a.Date != b.Date || a.Pilot != b.Pilot {
		t.Fatal("parse results differ across runs")
	}
}

func TestParseDecodesLatin1Headers(t *testing.T) {
	body := "HFDTE200524\r\n" +
		"HFPLTPILOTINCHARGE:J" + string([]byte{0xF8}) + "rgen\r\n" +
		"B1101355206343N00006198WA0058700558\r\n"
	track, err := Parse([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(track.Pilot, "ø") {
		t.Fatalf("pilot = %q", track.Pilot)
	}
}
