// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Eltonnjulio/hubspot-integration/config"
	"github.com/Eltonnjulio/hubspot-integration/metrics"
	"github.com/Eltonnjulio/hubspot-integration/webhook"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RawBodyKey holds the verified request body in the gin context.
const RawBodyKey = "webhook.rawBody"

// SignatureVerifier is satisfied by *webhook.Verifier
type SignatureVerifier interface {
	Verify(req webhook.Request) error
}

// WebhookAuth rejects webhook deliveries that are not signed by HubSpot
type WebhookAuth struct {
	verifier        SignatureVerifier
	signatureHeader string
	timestampHeader string
	baseURL         string
	maxBodyBytes    int64
	logger          zerolog.Logger
}

// NewWebhookAuth creates a new webhook auth middleware instance
func NewWebhookAuth(cfg *config.Config, verifier SignatureVerifier, logger zerolog.Logger) *WebhookAuth {
	wh := cfg.HubSpot.Webhook
	return &WebhookAuth{
		verifier:        verifier,
		signatureHeader: wh.SignatureHeader,
		timestampHeader: wh.TimestampHeader,
		baseURL:         strings.TrimRight(wh.BaseURL, "/"),
		maxBodyBytes:    wh.MaxBodyBytes,
		logger:          logger,
	}
}

// WebhookAuthMiddleware builds the verifier from configuration
func WebhookAuthMiddleware(cfg *config.Config, logger zerolog.Logger) gin.HandlerFunc {
	verifier := webhook.NewVerifier(cfg.HubSpot.Webhook.ClientSecret,
		webhook.WithReplayWindow(cfg.ReplayWindow()))
	return NewWebhookAuth(cfg, verifier, logger).Handler()
}

// Handler returns the gin middleware handler function. Failures abort with a
// bare status so nothing about the check is echoed to the caller.
func (m *WebhookAuth) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		signature := c.GetHeader(m.signatureHeader)
		if strings.TrimSpace(signature) == "" {
			m.reject(c, http.StatusBadRequest, webhook.ErrMissingSignature)
			return
		}

		body, err := m.readBody(c)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				m.reject(c, http.StatusRequestEntityTooLarge, err)
				return
			}
			m.reject(c, http.StatusBadRequest, err)
			return
		}

		err = m.verifier.Verify(webhook.Request{
			Method:    c.Request.Method,
			URI:       m.baseURL + requestTarget(c.Request),
			Body:      body,
			Timestamp: c.GetHeader(m.timestampHeader),
			Signature: signature,
		})
		if err != nil {
			m.reject(c, http.StatusUnauthorized, err)
			return
		}

		metrics.WebhookVerifications.WithLabelValues(webhook.Reason(nil)).Inc()
		c.Set(RawBodyKey, body)
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

func (m *WebhookAuth) readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	reader := c.Request.Body
	if m.maxBodyBytes > 0 {
		reader = http.MaxBytesReader(c.Writer, reader, m.maxBodyBytes)
	}
	return io.ReadAll(reader)
}

func (m *WebhookAuth) reject(c *gin.Context, status int, err error) {
	reason := webhook.Reason(err)
	metrics.WebhookVerifications.WithLabelValues(reason).Inc()
	m.logger.Warn().
		Str("reason", reason).
		Str("path", c.Request.URL.Path).
		Str("client_ip", c.ClientIP()).
		Err(err).
		Msg("Webhook rejected")
	c.AbortWithStatus(status)
}

// requestTarget is the path and query exactly as sent by the client.
func requestTarget(r *http.Request) string {
	if r.RequestURI != "" {
		return r.RequestURI
	}
	return r.URL.RequestURI()
}

// RawBody returns the verified webhook body.
func RawBody(c *gin.Context) []byte {
	if v, ok := c.Get(RawBodyKey); ok {
		if body, ok := v.([]byte); ok {
			return body
		}
	}
	return nil
}
