package measurement

import (
	"time"
)

// Source describes one configured upstream data producer: which adapter
// fetches it, where it is, and who to alert when it fails.
// Sources are loaded once at startup and are read-only afterwards.
type Source struct {
	Name     string   `json:"name" validate:"required"`
	Adapter  string   `json:"adapter" validate:"required"`
	Country  string   `json:"country"`
	City     string   `json:"city"`
	Contacts []string `json:"contacts" validate:"dive,email"`
}

// Date carries the measurement timestamp in UTC plus the upstream's
// local representation when it provided one.
type Date struct {
	UTC   time.Time `json:"utc" bson:"utc"`
	Local string    `json:"local,omitempty" bson:"local,omitempty"`
}

// Coordinates is an optional station position reported by the adapter.
type Coordinates struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// Attribution credits the organization the data originates from.
type Attribution struct {
	Name string `json:"name" bson:"name"`
	URL  string `json:"url,omitempty" bson:"url,omitempty"`
}

// AveragingPeriod describes the window a value was averaged over.
type AveragingPeriod struct {
	Value float64 `json:"value" bson:"value"`
	Unit  string  `json:"unit" bson:"unit"`
}

// Measurement is the canonical record persisted to the store. The struct
// itself is the field whitelist: anything an adapter reports outside these
// fields does not survive normalization. The tuple
// (Location, Parameter, Date.UTC) is globally unique in the store.
type Measurement struct {
	Date            Date             `json:"date" bson:"date"`
	Parameter       string           `json:"parameter" bson:"parameter"`
	Location        string           `json:"location" bson:"location"`
	Value           float64          `json:"value" bson:"value"`
	Unit            string           `json:"unit" bson:"unit"`
	City            string           `json:"city" bson:"city"`
	Country         string           `json:"country" bson:"country"`
	SourceName      string           `json:"sourceName" bson:"sourceName"`
	Attribution     []Attribution    `json:"attribution,omitempty" bson:"attribution,omitempty"`
	AveragingPeriod *AveragingPeriod `json:"averagingPeriod,omitempty" bson:"averagingPeriod,omitempty"`
	Coordinates     *Coordinates     `json:"coordinates,omitempty" bson:"coordinates,omitempty"`
}

// DedupKey returns the canonical identity of this measurement, the same
// tuple the store's uniqueness constraint is built on.
func (m Measurement) DedupKey() string {
	return m.Location + "|" + m.Parameter + "|" + m.Date.UTC.UTC().Format(time.RFC3339)
}

// RawMeasurement is a single not-yet-normalized record as an adapter
// produced it. Schema-agnostic on purpose: adapters deal in whatever the
// upstream speaks and normalization decides what survives.
type RawMeasurement map[string]any

// RawFetchResult is what an adapter hands back for one source. Name is an
// optional station label used as the location fallback.
type RawFetchResult struct {
	Name         string           `json:"name"`
	Measurements []RawMeasurement `json:"measurements"`
}

// TaskOutcome is the uniform result value for one source's participation
// in a cycle. Failures are carried here as values, never as panics or
// errors escaping the runner, so the fan-in step observes every task.
type TaskOutcome struct {
	Source        string `json:"source"`
	Message       string `json:"message"`
	InsertedCount int    `json:"insertedCount"`
	Err           error  `json:"-"`
}

// Failed reports whether this outcome represents a task failure.
func (o TaskOutcome) Failed() bool {
	return o.Err != nil
}
