package notify

import (
	"context"

	"go.uber.org/zap"
)

// Mailer delivers a per-source failure alert to the source's contacts.
type Mailer interface {
	SendFailure(ctx context.Context, contacts []string, sourceName string, cause error) error
}

// Webhook signals a completed ingestion cycle to a downstream consumer.
type Webhook interface {
	Send(ctx context.Context) error
}

// Dispatcher routes failure events to mail and cycle completion to the
// webhook. Both channels are fire-and-forget: transport problems are
// logged and never propagated back into the cycle.
type Dispatcher struct {
	mailer   Mailer
	webhook  Webhook
	disabled bool
	dryRun   bool
	log      *zap.SugaredLogger
}

func NewDispatcher(mailer Mailer, webhook Webhook, disabled, dryRun bool, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		mailer:   mailer,
		webhook:  webhook,
		disabled: disabled,
		dryRun:   dryRun,
		log:      log,
	}
}

// NotifyFailure mails the source's contacts about a failed fetch.
// Suppressed entirely in dry-run mode or when notifications are disabled.
func (d *Dispatcher) NotifyFailure(ctx context.Context, contacts []string, sourceName string, cause error) {
	if d.dryRun || d.disabled {
		return
	}
	if d.mailer == nil || len(contacts) == 0 {
		return
	}

	if err := d.mailer.SendFailure(ctx, contacts, sourceName, cause); err != nil {
		d.log.Warnw("failure mail not delivered", "source", sourceName, "error", err)
	}
}

// NotifyCycleComplete posts the completion webhook. Never called in
// dry-run mode; errors are logged only.
func (d *Dispatcher) NotifyCycleComplete(ctx context.Context) {
	if d.dryRun || d.webhook == nil {
		return
	}

	if err := d.webhook.Send(ctx); err != nil {
		d.log.Warnw("completion webhook failed", "error", err)
	}
}
