package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/airdatahub/airdata-fetch/internal/measurement"
	"github.com/airdatahub/airdata-fetch/internal/scheduler"
)

// CycleReporter exposes the last completed cycle for the status endpoint.
type CycleReporter interface {
	LastCycle() *scheduler.CycleSummary
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, reporter CycleReporter) {
	v1 := app.Group("/api/v1")

	v1.Get("/status", func(c *fiber.Ctx) error {
		last := reporter.LastCycle()
		if last == nil {
			return fiber.NewError(fiber.StatusNotFound, "no cycle has completed yet")
		}
		return c.JSON(toStatusResponse(last))
	})
}

// statusResponse is the operator-facing view of a completed cycle.
type statusResponse struct {
	Cycle       string          `json:"cycle"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt time.Time       `json:"completedAt"`
	DryRun      bool            `json:"dryRun"`
	Outcomes    []statusOutcome `json:"outcomes"`
}

type statusOutcome struct {
	Source        string `json:"source"`
	Message       string `json:"message"`
	InsertedCount int    `json:"insertedCount"`
	Error         string `json:"error,omitempty"`
}

func toStatusResponse(s *scheduler.CycleSummary) statusResponse {
	resp := statusResponse{
		Cycle:       s.ID,
		StartedAt:   s.StartedAt,
		CompletedAt: s.CompletedAt,
		DryRun:      s.DryRun,
		Outcomes:    make([]statusOutcome, 0, len(s.Outcomes)),
	}
	for _, o := range s.Outcomes {
		resp.Outcomes = append(resp.Outcomes, toStatusOutcome(o))
	}
	return resp
}

func toStatusOutcome(o measurement.TaskOutcome) statusOutcome {
	out := statusOutcome{
		Source:        o.Source,
		Message:       o.Message,
		InsertedCount: o.InsertedCount,
	}
	if o.Failed() {
		out.Error = o.Err.Error()
	}
	return out
}
