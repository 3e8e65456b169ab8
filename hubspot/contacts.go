// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Eltonnjulio/hubspot-integration/apierror"
	"github.com/Eltonnjulio/hubspot-integration/config"
	"github.com/Eltonnjulio/hubspot-integration/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const contactsPath = "/crm/v3/objects/contacts"

// ErrRateLimited is returned when the local limiter has no capacity within
// the configured wait.
var ErrRateLimited = errors.New("outbound rate limit exceeded")

// TokenSource supplies bearer tokens for outbound calls.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

type ContactProperties struct {
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"firstname,omitempty"`
	LastName  string `json:"lastname,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
}

type ContactRequest struct {
	Properties ContactProperties `json:"properties" binding:"required"`
}

type ContactResponse struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
	Archived   bool              `json:"archived"`
}

// ContactClient calls the CRM contacts API.
type ContactClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	maxWait    time.Duration
	logger     zerolog.Logger
}

func NewContactClient(cfg *config.Config, tokens TokenSource, httpClient *http.Client, logger zerolog.Logger) *ContactClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.APITimeout()}
	}
	rl := cfg.HubSpot.RateLimit
	return &ContactClient{
		baseURL:    strings.TrimRight(cfg.HubSpot.API.BaseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), rl.Burst),
		maxWait:    time.Duration(rl.MaxWaitMillis) * time.Millisecond,
		logger:     logger,
	}
}

// CreateContact posts a new contact. Upstream failures come back as
// *apierror.Error.
func (c *ContactClient) CreateContact(ctx context.Context, req ContactRequest) (*ContactResponse, error) {
	// Unauthorized calls never reach the limiter.
	accessToken, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.wait(ctx); err != nil {
		metrics.APIRequests.WithLabelValues("create_contact", "rate_limited").Inc()
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode contact: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+contactsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	metrics.APIRequestDuration.WithLabelValues("create_contact").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequests.WithLabelValues("create_contact", "error").Inc()
		return nil, fmt.Errorf("contact request failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.APIRequests.WithLabelValues("create_contact", strconv.Itoa(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read contact response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := apierror.Decode(resp.StatusCode, raw, "failed to create contact")
		c.logger.Warn().Err(apiErr).Int("status", resp.StatusCode).Msg("HubSpot rejected contact")
		return nil, apiErr
	}

	var contact ContactResponse
	if err := json.Unmarshal(raw, &contact); err != nil {
		return nil, fmt.Errorf("failed to decode contact response: %w", err)
	}
	c.logger.Info().Str("contact_id", contact.ID).Msg("Contact created")
	return &contact, nil
}

func (c *ContactClient) wait(ctx context.Context) error {
	if c.maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.maxWait)
		defer cancel()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	}
	return nil
}
