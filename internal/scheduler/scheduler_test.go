package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/airdatahub/airdata-fetch/internal/measurement"
	"github.com/airdatahub/airdata-fetch/internal/store"
)

type scriptedAdapter struct {
	err error
	raw measurement.RawFetchResult
}

func (a *scriptedAdapter) Fetch(ctx context.Context, src measurement.Source) (measurement.RawFetchResult, error) {
	if a.err != nil {
		return measurement.RawFetchResult{}, a.err
	}
	return a.raw, nil
}

type countingNotifier struct {
	failures    int
	completions int
}

func (n *countingNotifier) NotifyFailure(ctx context.Context, contacts []string, sourceName string, cause error) {
	n.failures++
}

func (n *countingNotifier) NotifyCycleComplete(ctx context.Context) {
	n.completions++
}

func rawWith(parameter string, ts time.Time) measurement.RawFetchResult {
	return measurement.RawFetchResult{
		Name: "Station " + parameter,
		Measurements: []measurement.RawMeasurement{
			{
				"date":      ts.Format(time.RFC3339),
				"parameter": parameter,
				"value":     1.0,
				"unit":      "µg/m3",
			},
		},
	}
}

func testSources(names ...string) []measurement.Source {
	var out []measurement.Source
	for _, n := range names {
		out = append(out, measurement.Source{
			Name:     n,
			Adapter:  n,
			Country:  "US",
			City:     "Metropolis",
			Contacts: []string{"a@b.com"},
		})
	}
	return out
}

func TestCycleIsolatesFailures(t *testing.T) {
	ts := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	registry := measurement.NewRegistry()
	registry.Register("good", &scriptedAdapter{raw: rawWith("pm25", ts)})
	registry.Register("bad", &scriptedAdapter{err: errors.New("timeout")})
	registry.Register("other", &scriptedAdapter{raw: rawWith("no2", ts)})

	gw := store.NewMemoryGateway()
	notifier := &countingNotifier{}
	runner := measurement.NewRunner(registry, gw, notifier, false, zap.NewNop().Sugar())

	s := New(testSources("good", "bad", "other"), time.Minute, runner, notifier, false, zap.NewNop().Sugar())
	s.runCycle()

	last := s.LastCycle()
	require.NotNil(t, last)
	require.Len(t, last.Outcomes, 3, "no outcome may be dropped")

	// Outcomes sit in launch order.
	assert.Equal(t, "good", last.Outcomes[0].Source)
	assert.Equal(t, "bad", last.Outcomes[1].Source)
	assert.Equal(t, "other", last.Outcomes[2].Source)

	assert.False(t, last.Outcomes[0].Failed())
	assert.True(t, last.Outcomes[1].Failed())
	assert.False(t, last.Outcomes[2].Failed(), "a sibling failure must not affect this source")

	assert.Equal(t, 2, gw.Count())
	assert.Equal(t, 1, notifier.failures)
	assert.Equal(t, 1, notifier.completions, "the cycle still completes and posts the webhook")
}

func TestCycleDedupAcrossCycles(t *testing.T) {
	ts := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	registry := measurement.NewRegistry()
	registry.Register("src", &scriptedAdapter{raw: rawWith("pm25", ts)})

	gw := store.NewMemoryGateway()
	notifier := &countingNotifier{}
	runner := measurement.NewRunner(registry, gw, notifier, false, zap.NewNop().Sugar())

	s := New(testSources("src"), time.Minute, runner, notifier, false, zap.NewNop().Sugar())

	s.runCycle()
	first := s.LastCycle()
	require.NotNil(t, first)
	assert.Equal(t, 1, first.Outcomes[0].InsertedCount)

	// Same canonical record again: absorbed, never a second row.
	s.runCycle()
	second := s.LastCycle()
	require.NotNil(t, second)
	assert.Equal(t, 0, second.Outcomes[0].InsertedCount)
	assert.Equal(t, 1, gw.Count())
}

func TestDryRunCycleHasNoSideEffects(t *testing.T) {
	ts := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	registry := measurement.NewRegistry()
	registry.Register("good", &scriptedAdapter{raw: rawWith("pm25", ts)})

	gw := store.NewMemoryGateway()
	notifier := &countingNotifier{}
	runner := measurement.NewRunner(registry, gw, notifier, true, zap.NewNop().Sugar())

	s := New(testSources("good"), time.Minute, runner, notifier, true, zap.NewNop().Sugar())
	s.runCycle()

	assert.Zero(t, gw.Count(), "dry run writes nothing")
	assert.Zero(t, notifier.completions, "dry run never posts the webhook")

	last := s.LastCycle()
	require.NotNil(t, last)
	assert.True(t, last.DryRun)
}

func TestLastCycleNilBeforeFirstRun(t *testing.T) {
	registry := measurement.NewRegistry()
	gw := store.NewMemoryGateway()
	notifier := &countingNotifier{}
	runner := measurement.NewRunner(registry, gw, notifier, false, zap.NewNop().Sugar())

	s := New(testSources("src"), time.Minute, runner, notifier, false, zap.NewNop().Sugar())
	assert.Nil(t, s.LastCycle())
}
