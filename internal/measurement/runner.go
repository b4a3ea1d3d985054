package measurement

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Runner executes one source's fetch task, converting every possible
// failure into a TaskOutcome value. Nothing escapes Run: a failing or even
// panicking adapter is reduced to an outcome so sibling tasks and the
// surrounding cycle are never aborted.
type Runner struct {
	registry *Registry
	gateway  Gateway
	notifier FailureNotifier
	dryRun   bool
	log      *zap.SugaredLogger
}

func NewRunner(registry *Registry, gateway Gateway, notifier FailureNotifier, dryRun bool, log *zap.SugaredLogger) *Runner {
	return &Runner{
		registry: registry,
		gateway:  gateway,
		notifier: notifier,
		dryRun:   dryRun,
		log:      log,
	}
}

// Run fetches, validates, normalizes and persists one source's data.
func (r *Runner) Run(ctx context.Context, src Source) (outcome TaskOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("adapter panic: %v", rec)
			r.log.Errorw("task panicked", "source", src.Name, "panic", rec)
			r.notifier.NotifyFailure(ctx, src.Contacts, src.Name, err)
			outcome = TaskOutcome{Source: src.Name, Message: "Measurement fetch failed", Err: err}
		}
	}()

	adapter, err := r.registry.Lookup(src.Adapter)
	if err != nil {
		// Static configuration error, localized to this task. No fetch is
		// attempted and no failure mail goes out.
		r.log.Errorw("adapter lookup failed", "source", src.Name, "adapter", src.Adapter)
		return TaskOutcome{Source: src.Name, Message: "Could not find adapter", Err: err}
	}

	raw, err := adapter.Fetch(ctx, src)
	if err != nil {
		r.log.Errorw("fetch failed", "source", src.Name, "error", err)
		r.notifier.NotifyFailure(ctx, src.Contacts, src.Name, err)
		return TaskOutcome{Source: src.Name, Message: "Measurement fetch failed", Err: err}
	}

	if err := ValidRawResult(raw); err != nil {
		r.log.Errorw("adapter returned invalid results", "source", src.Name, "error", err)
		r.notifier.NotifyFailure(ctx, src.Contacts, src.Name, err)
		return TaskOutcome{Source: src.Name, Message: "Adapter returned invalid results", Err: err}
	}

	measurements := Normalize(src, raw)
	if len(measurements) == 0 {
		return TaskOutcome{
			Source:  src.Name,
			Message: fmt.Sprintf("New measurements inserted for %s: 0", src.Name),
		}
	}

	if r.dryRun {
		for _, m := range measurements {
			r.log.Debugw("would insert measurement",
				"source", src.Name,
				"location", m.Location,
				"parameter", m.Parameter,
				"value", m.Value,
				"unit", m.Unit,
				"date", m.Date.UTC,
			)
		}
		return TaskOutcome{
			Source:        src.Name,
			Message:       fmt.Sprintf("[dry run] New measurements for %s: %d", src.Name, len(measurements)),
			InsertedCount: len(measurements),
		}
	}

	inserted, err := r.gateway.WriteBatch(ctx, src.Name, measurements)
	if err != nil {
		// The fetch itself succeeded; a store-side problem is logged and
		// absorbed into a best-effort outcome, never mailed.
		r.log.Warnw("persistence failed", "source", src.Name, "error", err)
	}

	return TaskOutcome{
		Source:        src.Name,
		Message:       fmt.Sprintf("New measurements inserted for %s: %d", src.Name, inserted),
		InsertedCount: inserted,
	}
}
