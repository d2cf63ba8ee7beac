package igc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var (
	ErrEmpty   = errors.New("igc: empty input")
	ErrNoDate  = errors.New("igc: missing HFDTE header")
	ErrNoFixes = errors.New("igc: no B records")
)

var manufacturers = map[string]string{
	"FLA": "Flarm",
	"LXN": "LXNAV",
	"LXV": "LXNAV",
	"NAV": "Naviter",
	"XCT": "XCTracer",
	"XSD": "XCSoar",
	"XSX": "XCSoar",
	"SKT": "Skytraxx",
	"FLY": "Flymaster",
	"SYS": "Syride",
}

// Parse decodes a complete IGC file. It is deterministic and side-effect
// free; the same bytes always yield the same track or the same error.
func Parse(data []byte) (*Track, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}

	// Most recorders emit Latin-1; only reinterpret when the input is not
	// already valid UTF-8 so modern files pass through untouched.
	if !utf8.Valid(data) {
		if decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data); err == nil {
			data = decoded
		}
	}

	track := &Track{}
	var date time.Time
	haveDate := false

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var prev time.Time
	dayOffset := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		switch line[0] {
		case 'A':
			parseARecord(track, line)
		case 'H':
			d, n, err := parseHRecord(track, line)
			if err != nil {
				return nil, fmt.Errorf("igc: line %d: %w", lineNo, err)
			}
			if !d.IsZero() {
				date = d
				haveDate = true
			}
			if n != nil {
				track.NumFlight = n
			}
		case 'B':
			if !haveDate {
				return nil, ErrNoDate
			}
			fix, err := parseBRecord(line, date.AddDate(0, 0, dayOffset))
			if err != nil {
				return nil, fmt.Errorf("igc: line %d: %w", lineNo, err)
			}
			// UTC times roll past midnight on long flights.
			if !prev.IsZero() && fix.Time.Before(prev) {
				dayOffset++
				fix.Time = fix.Time.AddDate(0, 0, 1)
			}
			prev = fix.Time
			track.Fixes = append(track.Fixes, fix)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("igc: scan: %w", err)
	}
	if !haveDate {
		return nil, ErrNoDate
	}
	if len(track.Fixes) == 0 {
		return nil, ErrNoFixes
	}
	track.Date = date.Format("2006-01-02")
	return track, nil
}

func parseARecord(track *Track, line string) {
	if len(line) < 4 {
		return
	}
	code := strings.ToUpper(line[1:4])
	if name, ok := manufacturers[code]; ok {
		track.LoggerManufacturer = name
	} else {
		track.LoggerManufacturer = code
	}
	if len(line) > 4 {
		track.LoggerID = strings.TrimSpace(line[4:])
	}
}

func parseHRecord(track *Track, line string) (time.Time, *int, error) {
	upper := strings.ToUpper(line)
	switch {
	case strings.HasPrefix(upper, "HFDTE"):
		return parseDateHeader(line)
	case strings.HasPrefix(upper, "HFPLT") || strings.HasPrefix(upper, "HOPLT"):
		track.Pilot = headerValue(line)
	case strings.HasPrefix(upper, "HFCM2") || strings.HasPrefix(upper, "HOCM2"):
		track.Copilot = headerValue(line)
	case strings.HasPrefix(upper, "HFGTY") || strings.HasPrefix(upper, "HOGTY"):
		track.GliderType = headerValue(line)
	case strings.HasPrefix(upper, "HFGID") || strings.HasPrefix(upper, "HOGID"):
		track.Registration = headerValue(line)
	case strings.HasPrefix(upper, "HFCID") || strings.HasPrefix(upper, "HOCID"):
		track.Callsign = headerValue(line)
	case strings.HasPrefix(upper, "HFCCL") || strings.HasPrefix(upper, "HOCCL"):
		track.CompetitionClass = headerValue(line)
	}
	return time.Time{}, nil, nil
}

// parseDateHeader handles both the classic HFDTEDDMMYY form and the 2020 spec
// HFDTEDATE:DDMMYY,NN form carrying the flight number of the day.
func parseDateHeader(line string) (time.Time, *int, error) {
	rest := line[len("HFDTE"):]
	var numFlight *int
	if idx := strings.IndexByte(rest, ':'); idx >= 0 {
		rest = rest[idx+1:]
	}
	if idx := strings.IndexByte(rest, ','); idx >= 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(rest[idx+1:])); err == nil {
			numFlight = &n
		}
		rest = rest[:idx]
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 6 {
		return time.Time{}, nil, fmt.Errorf("invalid date header %q", line)
	}
	date, err := time.Parse("020106", rest[:6])
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("invalid date header %q: %w", line, err)
	}
	return date, numFlight, nil
}

// headerValue returns the text after the colon of an H record.
func headerValue(line string) string {
	idx := strings.IndexByte(line, ':')
	if idx < 0 || idx+1 >= len(line) {
		return ""
	}
	return strings.TrimSpace(line[idx+1:])
}

// parseBRecord decodes one fix. Layout (fixed columns):
//
//	B HHMMSS DDMMmmm[NS] DDDMMmmm[EW] [AV] PPPPP GGGGG
func parseBRecord(line string, date time.Time) (Fix, error) {
	if len(line) < 35 {
		return Fix{}, fmt.Errorf("short B record %q", line)
	}

	hour, err1 := strconv.Atoi(line[1:3])
	minute, err2 := strconv.Atoi(line[3:5])
	second, err3 := strconv.Atoi(line[5:7])
	if err1 != nil || err2 != nil || err3 != nil {
		return Fix{}, fmt.Errorf("invalid time in B record %q", line)
	}

	lat, err := parseLatitude(line[7:15])
	if err != nil {
		return Fix{}, fmt.Errorf("invalid latitude in B record %q: %w", line, err)
	}
	lon, err := parseLongitude(line[15:24])
	if err != nil {
		return Fix{}, fmt.Errorf("invalid longitude in B record %q: %w", line, err)
	}

	valid := line[24] == 'A'

	pressure, err := parseAltitude(line[25:30])
	if err != nil {
		return Fix{}, fmt.Errorf("invalid pressure altitude in B record %q", line)
	}
	gps, err := parseAltitude(line[30:35])
	if err != nil {
		return Fix{}, fmt.Errorf("invalid gps altitude in B record %q", line)
	}

	ts := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, second, 0, time.UTC)
	return Fix{
		Time:             ts,
		Latitude:         lat,
		Longitude:        lon,
		Valid:            valid,
		PressureAltitude: pressure,
		GPSAltitude:      gps,
	}, nil
}

func parseLatitude(s string) (float64, error) {
	deg, err1 := strconv.Atoi(s[0:2])
	thousandths, err2 := strconv.Atoi(s[2:7])
	if err1 != nil || err2 != nil {
		return 0, fmt.Errorf("bad digits %q", s)
	}
	value := float64(deg) + float64(thousandths)/1000/60
	switch s[7] {
	case 'N':
		return value, nil
	case 'S':
		return -value, nil
	}
	return 0, fmt.Errorf("bad hemisphere %q", s)
}

func parseLongitude(s string) (float64, error) {
	deg, err1 := strconv.Atoi(s[0:3])
	thousandths, err2 := strconv.Atoi(s[3:8])
	if err1 != nil || err2 != nil {
		return 0, fmt.Errorf("bad digits %q", s)
	}
	value := float64(deg) + float64(thousandths)/1000/60
	switch s[8] {
	case 'E':
		return value, nil
	case 'W':
		return -value, nil
	}
	return 0, fmt.Errorf("bad hemisphere %q", s)
}

// parseAltitude treats an all-zero field as "not recorded", matching the
// behavior of the reference parsers.
func parseAltitude(s string) (*int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if v == 0 {
		return nil, nil
	}
	return &v, nil
}
