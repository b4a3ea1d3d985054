package adapters

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/airdatahub/airdata-fetch/internal/common"
	"github.com/airdatahub/airdata-fetch/internal/measurement"
)

// AirNowAdapter reads AirNow-style hourly data files: headerless CSV rows
// of station, parameter, value, unit, UTC timestamp, latitude, longitude.
type AirNowAdapter struct {
	name    string
	baseURL string
	fetcher *httpFetcher
}

func NewAirNowAdapter(client *http.Client, baseURL string) *AirNowAdapter {
	return &AirNowAdapter{
		name:    "airnow",
		baseURL: baseURL,
		fetcher: newHTTPFetcher(client, "airnow"),
	}
}

func (a *AirNowAdapter) Fetch(ctx context.Context, src measurement.Source) (measurement.RawFetchResult, error) {
	values := url.Values{}
	values.Set("city", src.City)

	resp, err := a.fetcher.get(ctx, fmt.Sprintf("%s?%s", a.baseURL, values.Encode()))
	if err != nil {
		return measurement.RawFetchResult{}, err
	}
	defer resp.Body.Close()

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return measurement.RawFetchResult{}, fmt.Errorf("parse csv: %w", err)
	}

	raw := measurement.RawFetchResult{
		Measurements: make([]measurement.RawMeasurement, 0, len(rows)),
	}

	for _, row := range rows {
		if len(row) < 5 {
			continue
		}

		value, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			continue
		}
		observed, err := time.Parse(time.RFC3339, row[4])
		if err != nil {
			continue
		}

		rec := measurement.RawMeasurement{
			"location":  row[0],
			"parameter": mapAirNowParameter(row[1]),
			"value":     value,
			"unit":      row[3],
			"date":      observed.UTC().Format(time.RFC3339),
		}

		if len(row) >= 7 {
			lat, latErr := strconv.ParseFloat(row[5], 64)
			lon, lonErr := strconv.ParseFloat(row[6], 64)
			if latErr == nil && lonErr == nil {
				rec["coordinates"] = map[string]any{
					"latitude":  lat,
					"longitude": lon,
				}
			}
		}

		raw.Measurements = append(raw.Measurements, rec)
	}

	return raw, nil
}

func mapAirNowParameter(label string) string {
	switch {
	case common.HasAny(label, "pm2.5", "pm25"):
		return "pm25"
	case common.HasAny(label, "pm10"):
		return "pm10"
	case common.HasAny(label, "ozone", "o3"):
		return "o3"
	case common.HasAny(label, "no2"):
		return "no2"
	case common.HasAny(label, "so2"):
		return "so2"
	case common.HasAny(label, "co"):
		return "co"
	default:
		return label
	}
}
