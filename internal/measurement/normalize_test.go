package measurement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSource = Source{
	Name:     "X",
	Adapter:  "x",
	Country:  "US",
	City:     "Metropolis",
	Contacts: []string{"a@b.com"},
}

func TestNormalizeCanonicalRecord(t *testing.T) {
	date := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	raw := RawFetchResult{
		Name: "Metropolis Central",
		Measurements: []RawMeasurement{
			{
				"date":      date.Format(time.RFC3339),
				"parameter": "pm25",
				"value":     12.0,
				"unit":      "µg/m3",
			},
		},
	}

	out := Normalize(testSource, raw)
	require.Len(t, out, 1)

	m := out[0]
	assert.Equal(t, date, m.Date.UTC)
	assert.Equal(t, "pm25", m.Parameter)
	assert.Equal(t, 12.0, m.Value)
	assert.Equal(t, "µg/m3", m.Unit)
	assert.Equal(t, "Metropolis Central", m.Location, "location falls back to the raw result name")
	assert.Equal(t, "US", m.Country)
	assert.Equal(t, "Metropolis", m.City)
	assert.Equal(t, "X", m.SourceName)
}

func TestNormalizeSourceNameCannotBeSpoofed(t *testing.T) {
	raw := RawFetchResult{
		Measurements: []RawMeasurement{
			{
				"date":       time.Now().UTC().Format(time.RFC3339),
				"parameter":  "no2",
				"value":      7.5,
				"unit":       "ppm",
				"sourceName": "someone-else",
			},
		},
	}

	out := Normalize(testSource, raw)
	require.Len(t, out, 1)
	assert.Equal(t, "X", out[0].SourceName)
}

func TestNormalizePrunesIncompleteRecords(t *testing.T) {
	ts := time.Now().UTC().Format(time.RFC3339)
	raw := RawFetchResult{
		Measurements: []RawMeasurement{
			{"parameter": "pm25", "value": 1.0, "unit": "µg/m3"},              // no date
			{"date": ts, "value": 1.0, "unit": "µg/m3"},                       // no parameter
			{"date": ts, "parameter": "pm25", "unit": "µg/m3"},                // no value
			{"date": ts, "parameter": "pm25", "value": 1.0},                   // no unit
			{"date": "not-a-date", "parameter": "pm25", "value": 1.0, "unit": "µg/m3"},
			{"date": ts, "parameter": "pm10", "value": 3.0, "unit": "µg/m3"},  // keeper
		},
	}

	out := Normalize(testSource, raw)
	require.Len(t, out, 1)
	assert.Equal(t, "pm10", out[0].Parameter)
}

func TestNormalizeDropsUnknownFields(t *testing.T) {
	raw := RawFetchResult{
		Measurements: []RawMeasurement{
			{
				"date":        time.Now().UTC().Format(time.RFC3339),
				"parameter":   "o3",
				"value":       42.0,
				"unit":        "ppb",
				"stationType": "roadside",
				"operator":    "city council",
			},
		},
	}

	out := Normalize(testSource, raw)
	require.Len(t, out, 1)

	// The canonical struct is the whitelist; optional fields that the raw
	// record never carried must stay zero.
	m := out[0]
	assert.Nil(t, m.Coordinates)
	assert.Nil(t, m.AveragingPeriod)
	assert.Nil(t, m.Attribution)
}

func TestNormalizeOptionalFields(t *testing.T) {
	raw := RawFetchResult{
		Measurements: []RawMeasurement{
			{
				"date":      map[string]any{"utc": "2026-03-14T12:00:00Z", "local": "2026-03-14T13:00:00+01:00"},
				"parameter": "pm25",
				"value":     9.0,
				"unit":      "µg/m3",
				"coordinates": map[string]any{
					"latitude":  52.37,
					"longitude": 4.89,
				},
				"averagingPeriod": map[string]any{"value": 1.0, "unit": "hours"},
				"attribution": []any{
					map[string]any{"name": "RIVM", "url": "https://rivm.example"},
				},
			},
		},
	}

	out := Normalize(testSource, raw)
	require.Len(t, out, 1)

	m := out[0]
	require.NotNil(t, m.Coordinates)
	assert.Equal(t, 52.37, m.Coordinates.Latitude)
	require.NotNil(t, m.AveragingPeriod)
	assert.Equal(t, "hours", m.AveragingPeriod.Unit)
	require.Len(t, m.Attribution, 1)
	assert.Equal(t, "RIVM", m.Attribution[0].Name)
	assert.Equal(t, "2026-03-14T13:00:00+01:00", m.Date.Local)
}

func TestNormalizeRecordCityCountryOverrideSource(t *testing.T) {
	raw := RawFetchResult{
		Measurements: []RawMeasurement{
			{
				"date":      time.Now().UTC().Format(time.RFC3339),
				"parameter": "pm25",
				"value":     1.0,
				"unit":      "µg/m3",
				"city":      "Gotham",
				"country":   "FR",
				"location":  "Gotham North",
			},
		},
	}

	out := Normalize(testSource, raw)
	require.Len(t, out, 1)
	assert.Equal(t, "Gotham", out[0].City)
	assert.Equal(t, "FR", out[0].Country)
	assert.Equal(t, "Gotham North", out[0].Location)
}

func TestNormalizeEmptyOutputIsValid(t *testing.T) {
	out := Normalize(testSource, RawFetchResult{Measurements: []RawMeasurement{}})
	assert.Empty(t, out)
}

func TestValidRawResult(t *testing.T) {
	assert.Error(t, ValidRawResult(RawFetchResult{}), "missing measurements list is a structural failure")
	assert.NoError(t, ValidRawResult(RawFetchResult{Measurements: []RawMeasurement{}}), "empty list is structurally fine")
}
