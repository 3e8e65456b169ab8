// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Eltonnjulio/hubspot-integration/apierror"
	"github.com/Eltonnjulio/hubspot-integration/auth"
	"github.com/Eltonnjulio/hubspot-integration/config"
	"github.com/Eltonnjulio/hubspot-integration/hubspot"
	"github.com/Eltonnjulio/hubspot-integration/middleware"
	"github.com/Eltonnjulio/hubspot-integration/token"
	"github.com/Eltonnjulio/hubspot-integration/webhook"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const internalErrorMessage = "An internal server error occurred."

// ContactCreator is satisfied by *hubspot.ContactClient
type ContactCreator interface {
	CreateContact(ctx context.Context, req hubspot.ContactRequest) (*hubspot.ContactResponse, error)
}

type IntegrationService struct {
	config     *config.Config
	tokens     *token.Coordinator
	contacts   ContactCreator
	dispatcher *webhook.Dispatcher
	closer     io.Closer
	logger     zerolog.Logger
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Timestamp     time.Time `json:"timestamp"`
	Status        int       `json:"status"`
	Error         string    `json:"error"`
	Message       string    `json:"message"`
	Path          string    `json:"path"`
	Errors        []string  `json:"errors,omitempty"`
	Category      string    `json:"category,omitempty"`
	CorrelationID string    `json:"correlationId,omitempty"`
}

// NewIntegrationService wires the token cache, its durable store and the
// HubSpot clients from configuration.
func NewIntegrationService(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*IntegrationService, error) {
	store, err := newTokenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []token.CacheOption{token.WithCacheLogger(logger)}
	if store != nil {
		opts = append(opts, token.WithStore(store))
	}
	cache := token.NewCache(opts...)
	if err := cache.Restore(ctx); err != nil {
		// An unreadable record only costs a re-authorization.
		logger.Warn().Err(err).Msg("Starting without a stored token")
	}

	coordinator := token.NewCoordinator(cache, hubspot.NewOAuthClient(cfg, nil),
		token.WithScope(cfg.HubSpot.OAuth.ClientID),
		token.WithExchangeTimeout(cfg.OAuthTimeout()),
		token.WithLogger(logger),
	)

	s := &IntegrationService{
		config:     cfg,
		tokens:     coordinator,
		contacts:   hubspot.NewContactClient(cfg, coordinator, nil, logger),
		dispatcher: webhook.NewDefaultDispatcher(logger),
		logger:     logger,
	}
	if store != nil {
		s.closer = store
	}
	return s, nil
}

func newTokenStore(ctx context.Context, cfg *config.Config) (*auth.SealedStore, error) {
	var (
		backend auth.Backend
		err     error
	)
	switch cfg.TokenStore.Type {
	case "memory":
		return nil, nil
	case "redis":
		backend, err = auth.NewRedisBackend(ctx, cfg)
	case "postgres":
		backend, err = auth.NewPostgresBackend(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported token store %q", cfg.TokenStore.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s token store: %w", cfg.TokenStore.Type, err)
	}

	sealer, err := auth.NewSealer(cfg.TokenStore.EncryptionKey)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return auth.NewSealedStore(backend, sealer), nil
}

func (s *IntegrationService) Close() {
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Failed to close token store")
		}
	}
}

// @Summary     Start HubSpot authorization
// @Description Redirects to the HubSpot consent page
// @Tags        oauth
// @Success     302
// @Router      /oauth/authorize [get]
func (s *IntegrationService) AuthorizeHandler(c *gin.Context) {
	c.Redirect(http.StatusFound, s.tokens.AuthorizationURL())
}

// @Summary     HubSpot authorization callback
// @Description Exchanges the one-time authorization code for tokens
// @Tags        oauth
// @Produce     plain
// @Param       code  query string false "Authorization code"
// @Param       error query string false "Error reported by HubSpot"
// @Success     200 {string} string
// @Failure     400 {string} string
// @Failure     502 {string} string
// @Router      /oauth/callback [get]
func (s *IntegrationService) CallbackHandler(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		if desc := c.Query("error_description"); desc != "" {
			reason = desc
		}
		s.logger.Warn().Str("reason", reason).Msg("Authorization declined")
		c.String(http.StatusBadRequest, "Authorization failed: %s", reason)
		return
	}

	_, err := s.tokens.ExchangeAuthorizationCode(c.Request.Context(), c.Query("code"))
	if errors.Is(err, token.ErrMissingCode) {
		c.String(http.StatusBadRequest, "Authorization failed: missing authorization code")
		return
	}
	if err != nil {
		status := http.StatusBadGateway
		var exchangeErr *token.ExchangeError
		if errors.As(err, &exchangeErr) && exchangeErr.StatusCode() != 0 {
			status = exchangeErr.StatusCode()
		}
		c.String(status, "Authorization failed: %s", err.Error())
		return
	}

	c.String(http.StatusOK, "Authorization successful")
}

// @Summary     Authorization status
// @Description Reports whether a usable HubSpot credential is held
// @Tags        oauth
// @Produce     json
// @Success     200 {object} token.Status
// @Router      /oauth/status [get]
func (s *IntegrationService) StatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.tokens.Status())
}

// @Summary     Create a HubSpot contact
// @Tags        contacts
// @Accept      json
// @Produce     json
// @Param       contact body     hubspot.ContactRequest true "Contact properties"
// @Success     201     {object} hubspot.ContactResponse
// @Failure     400     {object} ErrorResponse
// @Failure     401     {object} ErrorResponse
// @Failure     429     {object} ErrorResponse
// @Failure     502     {object} ErrorResponse
// @Router      /contacts [post]
func (s *IntegrationService) CreateContactHandler(c *gin.Context) {
	var req hubspot.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.validationError(c, err)
		return
	}

	contact, err := s.contacts.CreateContact(c.Request.Context(), req)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contact)
}

// @Summary     Receive HubSpot webhook events
// @Description Accepts a signed batch of CRM events
// @Tags        webhooks
// @Accept      json
// @Produce     json
// @Param       X-HubSpot-Signature-v3      header string true "Request signature"
// @Param       X-HubSpot-Request-Timestamp header string true "Epoch milliseconds"
// @Param       events body []webhook.Event true "Event batch"
// @Success     200 {object} webhook.Result
// @Failure     400
// @Failure     401
// @Failure     500
// @Router      /webhooks/contacts [post]
func (s *IntegrationService) WebhookHandler(c *gin.Context) {
	events, err := webhook.ParseBatch(middleware.RawBody(c))
	if err != nil {
		s.webhookError(c, http.StatusBadRequest, err)
		return
	}

	result, err := s.dispatcher.Dispatch(c.Request.Context(), events)
	if err != nil {
		s.webhookError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// webhookError answers the sender with a bare status, the detail only goes
// to the log.
func (s *IntegrationService) webhookError(c *gin.Context, status int, err error) {
	event := s.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = s.logger.Error()
	}
	event.Err(err).Int("status", status).Str("path", c.Request.URL.Path).Msg("Webhook processing failed")
	_ = c.Error(err)
	c.AbortWithStatus(status)
}

func (s *IntegrationService) validationError(c *gin.Context, err error) {
	resp := newErrorResponse(c, http.StatusBadRequest, "Validation failed")
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: failed on '%s'", fieldPath(fe), fe.Tag()))
		}
	} else {
		resp.Errors = []string{"request body is not valid JSON"}
	}
	c.JSON(resp.Status, resp)
}

// handleError maps domain errors onto HTTP responses.
func (s *IntegrationService) handleError(c *gin.Context, err error) {
	var (
		refreshErr *token.RefreshError
		apiErr     *apierror.Error
		resp       ErrorResponse
	)
	switch {
	case errors.Is(err, token.ErrAuthorizationRequired):
		resp = newErrorResponse(c, http.StatusUnauthorized, "HubSpot authorization required, visit /oauth/authorize")
	case errors.As(err, &refreshErr):
		resp = newErrorResponse(c, refreshErr.StatusCode(), refreshErr.Error())
	case errors.Is(err, hubspot.ErrRateLimited):
		resp = newErrorResponse(c, http.StatusTooManyRequests, "Too many requests to HubSpot, retry later")
	case errors.As(err, &apiErr):
		resp = newErrorResponse(c, apiErr.StatusCode, apiErr.Error())
	default:
		resp = newErrorResponse(c, http.StatusInternalServerError, internalErrorMessage)
	}

	if errors.As(err, &apiErr) && apiErr.Body != nil {
		resp.Category = apiErr.Body.Category
		resp.CorrelationID = apiErr.Body.CorrelationID
	}

	event := s.logger.Warn()
	if resp.Status >= http.StatusInternalServerError {
		event = s.logger.Error()
	}
	event.Err(err).Int("status", resp.Status).Str("path", resp.Path).Msg("Request failed")
	_ = c.Error(err)
	c.JSON(resp.Status, resp)
}

func newErrorResponse(c *gin.Context, status int, message string) ErrorResponse {
	reason := http.StatusText(status)
	if reason == "" {
		reason = "Upstream Error"
	}
	return ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     reason,
		Message:   message,
		Path:      c.Request.URL.Path,
	}
}

// fieldPath drops the top-level struct name, ContactRequest.Properties.Email
// becomes properties.email.
func fieldPath(fe validator.FieldError) string {
	parts := strings.Split(fe.Namespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}
