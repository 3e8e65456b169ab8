// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TokenCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubspot_token_cache_lookups_total",
		Help: "Access token lookups by outcome (hit, refresh, unauthorized)",
	}, []string{"outcome"})

	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubspot_token_refreshes_total",
		Help: "Refresh token exchanges by status",
	}, []string{"status"})

	TokenExchangeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hubspot_token_exchange_duration_seconds",
		Help:    "Time spent talking to the token endpoint",
		Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 8), // 50ms to ~6.4s
	}, []string{"grant_type"})

	WebhookVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubspot_webhook_verifications_total",
		Help: "Webhook signature verifications by result",
	}, []string{"result"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubspot_webhook_events_total",
		Help: "Webhook events by subscription type and outcome",
	}, []string{"subscription_type", "outcome"})

	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hubspot_api_requests_total",
		Help: "Outbound HubSpot API requests",
	}, []string{"operation", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hubspot_api_request_duration_seconds",
		Help:    "Outbound HubSpot API latency",
		Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 8),
	}, []string{"operation"})
)
