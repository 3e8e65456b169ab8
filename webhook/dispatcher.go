// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Eltonnjulio/hubspot-integration/metrics"
	"github.com/rs/zerolog"
)

type HandlerFunc func(ctx context.Context, ev Event) error

type route struct {
	handle          HandlerFunc
	requireObjectID bool
}

// Result counts what happened to a batch.
type Result struct {
	Processed int `json:"processed"`
	Ignored   int `json:"ignored"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Dispatcher routes verified events by subscription type.
type Dispatcher struct {
	routes map[string]route
	logger zerolog.Logger
}

func NewDispatcher(logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		routes: make(map[string]route),
		logger: logger,
	}
}

// NewDefaultDispatcher registers the contact.creation handler.
func NewDefaultDispatcher(logger zerolog.Logger) *Dispatcher {
	d := NewDispatcher(logger)
	d.Handle(SubscriptionContactCreation, ContactCreationHandler(logger), true)
	return d
}

// Handle registers fn for a subscription type; matching ignores case.
// Registration is not safe to run concurrently with Dispatch.
func (d *Dispatcher) Handle(subscriptionType string, fn HandlerFunc, requireObjectID bool) {
	d.routes[strings.ToLower(subscriptionType)] = route{handle: fn, requireObjectID: requireObjectID}
}

// Dispatch runs every event through its handler in order. Unknown types are
// ignored and events missing a required object id are skipped. Handler
// errors do not stop the batch; they are joined and returned.
func (d *Dispatcher) Dispatch(ctx context.Context, events []Event) (Result, error) {
	var (
		result Result
		errs   []error
	)
	for i, ev := range events {
		subscriptionType := strings.ToLower(ev.SubscriptionType)
		r, ok := d.routes[subscriptionType]
		if !ok {
			result.Ignored++
			metrics.WebhookEvents.WithLabelValues(label(subscriptionType), "ignored").Inc()
			d.logger.Debug().Str("subscription_type", ev.SubscriptionType).Int64("event_id", ev.EventID).Msg("Ignoring unhandled webhook event")
			continue
		}
		if r.requireObjectID && ev.ObjectID == nil {
			result.Skipped++
			metrics.WebhookEvents.WithLabelValues(subscriptionType, "skipped").Inc()
			d.logger.Warn().Str("subscription_type", ev.SubscriptionType).Int64("event_id", ev.EventID).Msg("Webhook event without objectId skipped")
			continue
		}
		if err := r.handle(ctx, ev); err != nil {
			result.Failed++
			metrics.WebhookEvents.WithLabelValues(subscriptionType, "failed").Inc()
			errs = append(errs, fmt.Errorf("event %d (%s): %w", i, ev.SubscriptionType, err))
			continue
		}
		result.Processed++
		metrics.WebhookEvents.WithLabelValues(subscriptionType, "processed").Inc()
	}
	return result, errors.Join(errs...)
}

// label keeps arbitrary sender input out of metric label values.
func label(subscriptionType string) string {
	if subscriptionType == "" {
		return "none"
	}
	return "other"
}

// ContactCreationHandler only records the new contact.
func ContactCreationHandler(logger zerolog.Logger) HandlerFunc {
	return func(ctx context.Context, ev Event) error {
		entry := logger.Info()
		if ev.ObjectID != nil {
			entry = entry.Int64("object_id", *ev.ObjectID)
		}
		entry.Int64("portal_id", ev.PortalID).
			Time("occurred_at", time.UnixMilli(ev.OccurredAt)).
			Str("change_source", ev.ChangeSource).
			Msg("Contact created in HubSpot")
		return nil
	}
}
