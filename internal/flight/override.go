package flight

import (
	"encoding/json"
	"fmt"
)

// Override holds an operator-supplied partial record. Unmarshalling keeps
// the raw key set so an absent field can be told apart from an explicit
// null: absent fields leave the record untouched, null fields clear it.
type Override struct {
	fields map[string]json.RawMessage
}

// UnmarshalJSON captures the raw top-level object.
func (o *Override) UnmarshalJSON(data []byte) error {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("flight: decode override: %w", err)
	}
	o.fields = fields
	return nil
}

// MarshalJSON writes the captured fields back out unchanged.
func (o Override) MarshalJSON() ([]byte, error) {
	if o.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(o.fields)
}

// Has reports whether the override supplies the given JSON key, even as null.
func (o Override) Has(key string) bool {
	_, ok := o.fields[key]
	return ok
}

// Len returns the number of supplied fields.
func (o Override) Len() int { return len(o.fields) }

// Apply merges the override into rec. Only keys present in the override are
// touched; unknown keys are ignored. A null value resets pointer fields to
// nil and value fields to their zero value.
func (o Override) Apply(rec *Record) error {
	for key, raw := range o.fields {
		if err := applyField(rec, key, raw); err != nil {
			return err
		}
	}
	return nil
}

func applyField(rec *Record, key string, raw json.RawMessage) error {
	switch key {
	case "distance":
		return setFloat(&rec.Distance, key, raw)
	case "duration":
		return setFloatPtr(&rec.Duration, key, raw)
	case "date":
		return setString(&rec.Date, key, raw)
	case "glider":
		return setStringPtr(&rec.Glider, key, raw)
	case "landing_date":
		return setStringPtr(&rec.LandingDate, key, raw)
	case "landing_pos":
		return setFloats(&rec.LandingPos, key, raw)
	case "landing_location":
		return setString(&rec.LandingLocation, key, raw)
	case "max_altitude":
		return setIntPtr(&rec.MaxAltitude, key, raw)
	case "pilot":
		return setStringPtr(&rec.Pilot, key, raw)
	case "copilot":
		return setStringPtr(&rec.Copilot, key, raw)
	case "takeoff_date":
		return setStringPtr(&rec.TakeoffDate, key, raw)
	case "takeoff_pos":
		return setFloats(&rec.TakeoffPos, key, raw)
	case "takeoff_location":
		return setString(&rec.TakeoffLocation, key, raw)
	case "timezone":
		return setFloatPtr(&rec.Timezone, key, raw)
	case "filename":
		return setString(&rec.Filename, key, raw)
	case "filepath":
		return setStringPtr(&rec.Filepath, key, raw)
	case "numFlight":
		return setIntPtr(&rec.NumFlight, key, raw)
	case "registration":
		return setStringPtr(&rec.Registration, key, raw)
	case "callsign":
		return setStringPtr(&rec.Callsign, key, raw)
	case "competitionClass":
		return setStringPtr(&rec.CompetitionClass, key, raw)
	case "loggerId":
		return setStringPtr(&rec.LoggerID, key, raw)
	case "loggerManufacturer":
		return setStringPtr(&rec.LoggerManufacturer, key, raw)
	case "xcDistance":
		return setFloatPtr(&rec.XCDistance, key, raw)
	case "xcScore":
		return setFloatPtr(&rec.XCScore, key, raw)
	case "xcType":
		return setStringPtr(&rec.XCType, key, raw)
	case "xcCode":
		return setStringPtr(&rec.XCCode, key, raw)
	case "best_thermal_avg_vario":
		return setFloatPtr(&rec.BestThermalAvgVario, key, raw)
	case "sport":
		if err := setStringPtr(&rec.Sport, key, raw); err != nil {
			return err
		}
		if rec.Sport != nil {
			normalized := NormalizeSport(*rec.Sport)
			rec.Sport = &normalized
		}
		return nil
	case "favorite":
		return setBool(&rec.Favorite, key, raw)
	default:
		// Unknown keys pass through silently so older files keep working.
		return nil
	}
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

func setString(dst *string, key string, raw json.RawMessage) error {
	if isNull(raw) {
		*dst = ""
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("flight: override field %q: %w", key, err)
	}
	return nil
}

func setStringPtr(dst **string, key string, raw json.RawMessage) error {
	if isNull(raw) {
		*dst = nil
		return nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("flight: override field %q: %w", key, err)
	}
	*dst = &v
	return nil
}

func setFloat(dst *float64, key string, raw json.RawMessage) error {
	if isNull(raw) {
		*dst = 0
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("flight: override field %q: %w", key, err)
	}
	return nil
}

func setFloatPtr(dst **float64, key string, raw json.RawMessage) error {
	if isNull(raw) {
		*dst = nil
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("flight: override field %q: %w", key, err)
	}
	*dst = &v
	return nil
}

func setIntPtr(dst **int, key string, raw json.RawMessage) error {
	if isNull(raw) {
		*dst = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("flight: override field %q: %w", key, err)
	}
	*dst = &v
	return nil
}

func setFloats(dst *[]float64, key string, raw json.RawMessage) error {
	if isNull(raw) {
		*dst = nil
		return nil
	}
	var v []float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("flight: override field %q: %w", key, err)
	}
	*dst = v
	return nil
}

func setBool(dst *bool, key string, raw json.RawMessage) error {
	if isNull(raw) {
		*dst = false
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("flight: override field %q: %w", key, err)
	}
	return nil
}
