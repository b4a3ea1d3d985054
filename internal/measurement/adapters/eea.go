package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/airdatahub/airdata-fetch/internal/measurement"
)

// EEAAdapter pulls hourly observations from an EEA-style air quality
// portal exposing station readings as JSON.
type EEAAdapter struct {
	name    string
	baseURL string
	fetcher *httpFetcher
}

func NewEEAAdapter(client *http.Client, baseURL string) *EEAAdapter {
	return &EEAAdapter{
		name:    "eea",
		baseURL: baseURL,
		fetcher: newHTTPFetcher(client, "eea"),
	}
}

func (a *EEAAdapter) Fetch(ctx context.Context, src measurement.Source) (measurement.RawFetchResult, error) {
	values := url.Values{}
	values.Set("country", src.Country)
	if src.City != "" {
		values.Set("city", src.City)
	}

	resp, err := a.fetcher.get(ctx, fmt.Sprintf("%s?%s", a.baseURL, values.Encode()))
	if err != nil {
		return measurement.RawFetchResult{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Station  string `json:"station"`
		Readings []struct {
			Pollutant     string  `json:"pollutant"`
			Concentration float64 `json:"concentration"`
			Unit          string  `json:"unit"`
			ObservedAt    string  `json:"observed_at"`
			Station       string  `json:"station"`
			Latitude      float64 `json:"latitude"`
			Longitude     float64 `json:"longitude"`
		} `json:"readings"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return measurement.RawFetchResult{}, err
	}

	raw := measurement.RawFetchResult{
		Name:         payload.Station,
		Measurements: make([]measurement.RawMeasurement, 0, len(payload.Readings)),
	}

	for _, r := range payload.Readings {
		observed, err := time.Parse(time.RFC3339, r.ObservedAt)
		if err != nil {
			// Leave the date out; normalization prunes the record.
			observed = time.Time{}
		}

		rec := measurement.RawMeasurement{
			"parameter": mapPollutant(r.Pollutant),
			"value":     r.Concentration,
			"unit":      r.Unit,
			"location":  r.Station,
		}
		if !observed.IsZero() {
			rec["date"] = observed.UTC().Format(time.RFC3339)
		}
		if r.Latitude != 0 || r.Longitude != 0 {
			rec["coordinates"] = map[string]any{
				"latitude":  r.Latitude,
				"longitude": r.Longitude,
			}
		}
		raw.Measurements = append(raw.Measurements, rec)
	}

	return raw, nil
}

// mapPollutant folds the portal's pollutant labels onto canonical
// lowercase parameter codes.
func mapPollutant(label string) string {
	switch strings.ToUpper(strings.ReplaceAll(label, ".", "")) {
	case "PM25", "PM2_5":
		return "pm25"
	case "PM10":
		return "pm10"
	case "NO2":
		return "no2"
	case "SO2":
		return "so2"
	case "O3", "OZONE":
		return "o3"
	case "CO":
		return "co"
	case "BC":
		return "bc"
	default:
		return strings.ToLower(label)
	}
}
