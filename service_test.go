// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Eltonnjulio/hubspot-integration/apierror"
	"github.com/Eltonnjulio/hubspot-integration/config"
	"github.com/Eltonnjulio/hubspot-integration/hubspot"
	"github.com/Eltonnjulio/hubspot-integration/token"
	"github.com/Eltonnjulio/hubspot-integration/webhook"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const testWebhookSecret = "s3cr3t"

type stubExchanger struct {
	exchangeErr error
	refreshErr  error
	calls       atomic.Int32
}

func (s *stubExchanger) Exchange(ctx context.Context, code string) (token.Record, error) {
	s.calls.Add(1)
	if s.exchangeErr != nil {
		return token.Record{}, s.exchangeErr
	}
	return token.NewRecord("access-"+code, "refresh-"+code, 1800, time.Now()), nil
}

func (s *stubExchanger) Refresh(ctx context.Context, refreshToken string) (token.Record, error) {
	s.calls.Add(1)
	if s.refreshErr != nil {
		return token.Record{}, s.refreshErr
	}
	return token.NewRecord("refreshed", "", 1800, time.Now()), nil
}

func (s *stubExchanger) AuthorizationURL() string {
	return "https://app.hubspot.com/oauth/authorize?client_id=test&scope=oauth"
}

type stubContacts struct {
	err error
	got hubspot.ContactRequest
}

func (s *stubContacts) CreateContact(ctx context.Context, req hubspot.ContactRequest) (*hubspot.ContactResponse, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &hubspot.ContactResponse{ID: "501", Properties: map[string]string{"email": req.Properties.Email}}, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 8080
	cfg.HubSpot.API.BaseURL = "https://api.hubapi.com"
	cfg.HubSpot.API.TimeoutSeconds = 5
	cfg.HubSpot.OAuth.ClientID = "client-id"
	cfg.HubSpot.OAuth.ClientSecret = "client-secret"
	cfg.HubSpot.OAuth.RedirectURI = "http://localhost:8080/oauth/callback"
	cfg.HubSpot.OAuth.AuthorizationURI = "https://app.hubspot.com/oauth/authorize"
	cfg.HubSpot.OAuth.TokenURI = "/oauth/v1/token"
	cfg.HubSpot.OAuth.Scopes = "crm.objects.contacts.write"
	cfg.HubSpot.OAuth.TimeoutSeconds = 5
	cfg.HubSpot.Webhook.ClientSecret = testWebhookSecret
	cfg.HubSpot.Webhook.SignatureHeader = config.DefaultSignatureHeader
	cfg.HubSpot.Webhook.TimestampHeader = config.DefaultTimestampHeader
	cfg.HubSpot.Webhook.ReplayWindowSeconds = 300
	cfg.HubSpot.Webhook.MaxBodyBytes = 1 << 20
	cfg.HubSpot.RateLimit.RequestsPerSecond = 10
	cfg.HubSpot.RateLimit.Burst = 10
	cfg.TokenStore.Type = "memory"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	return cfg
}

func setupTestServer(t *testing.T) (*gin.Engine, *IntegrationService, *stubExchanger, *stubContacts) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()

	exchanger := &stubExchanger{}
	contacts := &stubContacts{}
	service := &IntegrationService{
		config:     cfg,
		tokens:     token.NewCoordinator(token.NewCache(), exchanger),
		contacts:   contacts,
		dispatcher: webhook.NewDefaultDispatcher(zerolog.Nop()),
		logger:     zerolog.Nop(),
	}

	r := gin.New()
	registerRoutes(r, cfg, service, zerolog.Nop())
	return r, service, exchanger, contacts
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestOAuthHandlers(t *testing.T) {
	t.Run("AuthorizeRedirects", func(t *testing.T) {
		r, _, _, _ := setupTestServer(t)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/oauth/authorize", nil))

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://app.hubspot.com/oauth/authorize?client_id=test&scope=oauth", w.Header().Get("Location"))
	})

	t.Run("CallbackMissingCode", func(t *testing.T) {
		r, _, exchanger, _ := setupTestServer(t)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/oauth/callback", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "missing authorization code")
		assert.Equal(t, int32(0), exchanger.calls.Load())
	})

	t.Run("CallbackDeclined", func(t *testing.T) {
		r, _, exchanger, _ := setupTestServer(t)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/oauth/callback?error=access_denied", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "access_denied")
		assert.Equal(t, int32(0), exchanger.calls.Load())
	})

	t.Run("CallbackSuccess", func(t *testing.T) {
		r, _, _, _ := setupTestServer(t)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/oauth/callback?code=abc", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Authorization successful", w.Body.String())

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/oauth/status", nil))
		var status token.Status
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.True(t, status.Authorized)
		assert.True(t, status.AccessTokenFresh)
		assert.NotContains(t, w.Body.String(), "access-abc")
	})

	t.Run("CallbackUpstreamFailure", func(t *testing.T) {
		r, _, exchanger, _ := setupTestServer(t)
		exchanger.exchangeErr = &token.ExchangeError{
			Kind:     token.FailureUpstreamBody,
			Upstream: apierror.Decode(http.StatusBadRequest, []byte(`{"status":"BAD_AUTH_CODE","message":"auth code not found"}`), "failed to exchange authorization code"),
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/oauth/callback?code=used", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "auth code not found")
	})

	t.Run("CallbackTransportFailure", func(t *testing.T) {
		r, _, exchanger, _ := setupTestServer(t)
		exchanger.exchangeErr = &token.ExchangeError{Kind: token.FailureTransport, Err: context.DeadlineExceeded}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/oauth/callback?code=slow", nil))

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func postContact(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/contacts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateContactHandler(t *testing.T) {
	validBody := `{"properties":{"email":"ada@example.com","firstname":"Ada"}}`

	t.Run("Created", func(t *testing.T) {
		r, _, _, contacts := setupTestServer(t)
		w := postContact(r, validBody)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "Ada", contacts.got.Properties.FirstName)

		var contact hubspot.ContactResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &contact))
		assert.Equal(t, "501", contact.ID)
	})

	t.Run("ValidationErrors", func(t *testing.T) {
		r, _, _, _ := setupTestServer(t)

		w := postContact(r, `{"properties":{"email":"not-an-email"}}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "Validation failed", resp.Message)
		assert.Equal(t, []string{"properties.email: failed on 'email'"}, resp.Errors)
		assert.Equal(t, "/contacts", resp.Path)

		w = postContact(r, `{"properties":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{"request body is not valid JSON"}, decodeError(t, w).Errors)
	})

	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantCategory  string
		wantCorrelate string
	}{
		{"AuthorizationRequired", token.ErrAuthorizationRequired, http.StatusUnauthorized, "", ""},
		{"RateLimited", hubspot.ErrRateLimited, http.StatusTooManyRequests, "", ""},
		{
			"UpstreamConflict",
			apierror.Decode(http.StatusConflict, []byte(`{"status":"error","message":"Contact already exists","category":"CONFLICT","correlationId":"c-7"}`), "failed to create contact"),
			http.StatusConflict, "CONFLICT", "c-7",
		},
		{
			"RefreshFailedUpstream",
			&token.RefreshError{Err: &token.ExchangeError{Kind: token.FailureUpstreamNoBody, Upstream: apierror.Decode(http.StatusServiceUnavailable, nil, "failed to refresh token")}},
			http.StatusServiceUnavailable, "", "",
		},
		{
			"RefreshFailedTransport",
			&token.RefreshError{Err: &token.ExchangeError{Kind: token.FailureTransport, Err: errors.New("dial tcp: i/o timeout")}},
			http.StatusBadGateway, "", "",
		},
		{"Unexpected", errors.New("boom"), http.StatusInternalServerError, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, _, contacts := setupTestServer(t)
			contacts.err = tt.err

			w := postContact(r, validBody)
			assert.Equal(t, tt.wantStatus, w.Code)

			resp := decodeError(t, w)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantCategory, resp.Category)
			assert.Equal(t, tt.wantCorrelate, resp.CorrelationID)
			assert.NotEmpty(t, resp.Error)
		})
	}

	t.Run("InternalErrorHidesDetail", func(t *testing.T) {
		r, _, _, contacts := setupTestServer(t)
		contacts.err = errors.New("secret internal detail")

		w := postContact(r, validBody)
		assert.Equal(t, internalErrorMessage, decodeError(t, w).Message)
		assert.NotContains(t, w.Body.String(), "secret internal detail")
	})
}

func TestCreateContactWithoutAuthorization(t *testing.T) {
	var hubspotCalls atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hubspotCalls.Add(1)
	}))
	defer upstream.Close()

	r, service, exchanger, _ := setupTestServer(t)
	cfg := testConfig()
	cfg.HubSpot.API.BaseURL = upstream.URL
	service.contacts = hubspot.NewContactClient(cfg, service.tokens, upstream.Client(), zerolog.Nop())

	w := postContact(r, `{"properties":{"email":"ada@example.com"}}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, int32(0), hubspotCalls.Load())
	assert.Equal(t, int32(0), exchanger.calls.Load())
}

func signedWebhook(body string, ts time.Time) *http.Request {
	timestamp := strconv.FormatInt(ts.UnixMilli(), 10)
	req := httptest.NewRequest("POST", "/webhooks/contacts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(config.DefaultTimestampHeader, timestamp)
	req.Header.Set(config.DefaultSignatureHeader, webhook.Sign(testWebhookSecret, webhook.Request{
		Method:    "POST",
		URI:       "/webhooks/contacts",
		Body:      []byte(body),
		Timestamp: timestamp,
	}))
	return req
}

func TestWebhookEndpoint(t *testing.T) {
	body := `[{"subscriptionType":"contact.creation","objectId":42,"portalId":7,"occurredAt":1740830400000},` +
		`{"subscriptionType":"contact.deletion","objectId":43}]`

	t.Run("Accepted", func(t *testing.T) {
		r, _, _, _ := setupTestServer(t)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, signedWebhook(body, time.Now()))

		assert.Equal(t, http.StatusOK, w.Code)
		var result webhook.Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, webhook.Result{Processed: 1, Ignored: 1}, result)
	})

	t.Run("MissingSignature", func(t *testing.T) {
		r, _, _, _ := setupTestServer(t)
		req := signedWebhook(body, time.Now())
		req.Header.Del(config.DefaultSignatureHeader)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("TrailingSpaceRejected", func(t *testing.T) {
		r, _, _, _ := setupTestServer(t)
		signed := signedWebhook(body, time.Now())
		req := httptest.NewRequest("POST", "/webhooks/contacts", strings.NewReader(body+" "))
		req.Header = signed.Header
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("Replayed", func(t *testing.T) {
		r, _, _, _ := setupTestServer(t)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, signedWebhook(body, time.Now().Add(-6*time.Minute)))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("MalformedBatch", func(t *testing.T) {
		r, _, _, _ := setupTestServer(t)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, signedWebhook(`{"subscriptionType":"contact.creation"}`, time.Now()))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("NullBatch", func(t *testing.T) {
		r, _, _, _ := setupTestServer(t)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, signedWebhook(`null`, time.Now()))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("HandlerFailure", func(t *testing.T) {
		r, service, _, _ := setupTestServer(t)
		service.dispatcher.Handle(webhook.SubscriptionContactCreation, func(ctx context.Context, ev webhook.Event) error {
			return errors.New("crm sync unavailable")
		}, true)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, signedWebhook(body, time.Now()))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", healthCheck)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "ok", response["status"])
}

func TestSwaggerEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Test Swagger JSON endpoint
	req := httptest.NewRequest("GET", "/swagger/doc.json", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "HubSpot Integration Service"))

	// Validate Swagger JSON structure
	var swaggerDoc map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &swaggerDoc)
	assert.NoError(t, err)

	// Check required Swagger fields
	assert.NotEmpty(t, swaggerDoc["swagger"])
	assert.NotEmpty(t, swaggerDoc["info"])
	assert.NotEmpty(t, swaggerDoc["paths"])

	// Test Swagger UI endpoint
	req = httptest.NewRequest("GET", "/swagger/index.html", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "swagger-ui"))
}

func TestAPIDocumentation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	req := httptest.NewRequest("GET", "/swagger/doc.json", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var swaggerDoc map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &swaggerDoc)
	assert.NoError(t, err)

	paths := swaggerDoc["paths"].(map[string]interface{})

	// Check webhook endpoint documentation
	webhookPath := paths["/webhooks/contacts"].(map[string]interface{})
	postOp := webhookPath["post"].(map[string]interface{})
	assert.NotEmpty(t, postOp["summary"])
	assert.NotEmpty(t, postOp["parameters"])
	assert.NotEmpty(t, postOp["responses"])

	// Check contact endpoint documentation
	contactPath := paths["/contacts"].(map[string]interface{})
	assert.NotNil(t, contactPath["post"])

	for _, path := range []string{"/oauth/authorize", "/oauth/callback", "/oauth/status", "/health"} {
		op, ok := paths[path].(map[string]interface{})
		if assert.True(t, ok, "missing %s", path) {
			getOp := op["get"].(map[string]interface{})
			assert.NotEmpty(t, getOp["summary"])
			assert.NotEmpty(t, getOp["responses"])
		}
	}
}
