package measurement

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/airdatahub/airdata-fetch/internal/common"
)

var validate = newRawValidator()

// newRawValidator builds the structural validator for adapter output.
// An empty measurements list is fine (zero new measurements); a missing
// one is not, so the check is on nil rather than the required tag.
func newRawValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		raw := sl.Current().Interface().(RawFetchResult)
		if raw.Measurements == nil {
			sl.ReportError(raw.Measurements, "Measurements", "measurements", "required", "")
		}
	}, RawFetchResult{})
	return v
}

// ValidRawResult performs the structural check on an adapter's output.
// A result whose measurements field is missing is rejected as a whole;
// partial acceptance of a structurally broken payload is never attempted.
func ValidRawResult(raw RawFetchResult) error {
	return validate.Struct(raw)
}

// Normalize projects a source's raw records into canonical Measurements.
// Records missing any of date, parameter, value or unit are dropped
// silently. Missing location falls back to the result's station name;
// missing country/city fall back to the source's static metadata.
// SourceName is always the owning source's name, regardless of what the
// adapter reported. An empty result is valid: it means zero new
// measurements, not a failure.
func Normalize(src Source, raw RawFetchResult) []Measurement {
	out := make([]Measurement, 0, len(raw.Measurements))

	for _, rec := range raw.Measurements {
		date, ok := rawDate(rec["date"])
		if !ok {
			continue
		}
		parameter, ok := rawString(rec["parameter"])
		if !ok {
			continue
		}
		value, ok := rawNumber(rec["value"])
		if !ok {
			continue
		}
		unit, ok := rawString(rec["unit"])
		if !ok {
			continue
		}

		location, _ := rawString(rec["location"])
		city, _ := rawString(rec["city"])
		country, _ := rawString(rec["country"])

		m := Measurement{
			Date:            date,
			Parameter:       parameter,
			Location:        common.FirstNonEmpty(location, raw.Name),
			Value:           value,
			Unit:            unit,
			City:            common.FirstNonEmpty(city, src.City),
			Country:         common.FirstNonEmpty(country, src.Country),
			SourceName:      src.Name,
			Attribution:     rawAttribution(rec["attribution"]),
			AveragingPeriod: rawAveragingPeriod(rec["averagingPeriod"]),
			Coordinates:     rawCoordinates(rec["coordinates"]),
		}
		out = append(out, m)
	}

	return out
}

// rawDate accepts either an RFC3339 string or a {utc, local} object.
func rawDate(v any) (Date, bool) {
	switch d := v.(type) {
	case string:
		ts, err := time.Parse(time.RFC3339, d)
		if err != nil {
			return Date{}, false
		}
		return Date{UTC: ts.UTC(), Local: d}, true
	case map[string]any:
		utc, ok := rawString(d["utc"])
		if !ok {
			return Date{}, false
		}
		ts, err := time.Parse(time.RFC3339, utc)
		if err != nil {
			return Date{}, false
		}
		local, _ := rawString(d["local"])
		return Date{UTC: ts.UTC(), Local: local}, true
	case time.Time:
		if d.IsZero() {
			return Date{}, false
		}
		return Date{UTC: d.UTC()}, true
	default:
		return Date{}, false
	}
}

func rawString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func rawNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func rawCoordinates(v any) *Coordinates {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	lat, latOK := rawNumber(m["latitude"])
	lon, lonOK := rawNumber(m["longitude"])
	if !latOK || !lonOK {
		return nil
	}
	return &Coordinates{Latitude: lat, Longitude: lon}
}

func rawAveragingPeriod(v any) *AveragingPeriod {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	value, valueOK := rawNumber(m["value"])
	unit, unitOK := rawString(m["unit"])
	if !valueOK || !unitOK {
		return nil
	}
	return &AveragingPeriod{Value: value, Unit: unit}
}

func rawAttribution(v any) []Attribution {
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	var out []Attribution
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, ok := rawString(m["name"])
		if !ok {
			continue
		}
		url, _ := rawString(m["url"])
		out = append(out, Attribution{Name: name, URL: url})
	}
	return out
}
