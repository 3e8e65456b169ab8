// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

// Package hubspot holds the clients for the HubSpot token endpoint and CRM API.
package hubspot

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Eltonnjulio/hubspot-integration/apierror"
	"github.com/Eltonnjulio/hubspot-integration/config"
	"github.com/Eltonnjulio/hubspot-integration/token"
	"golang.org/x/oauth2"
)

// OAuthClient performs the authorization-code and refresh-token grants.
type OAuthClient struct {
	conf         *oauth2.Config
	authorizeURI string
	httpClient   *http.Client
	now          func() time.Time
}

var _ token.Exchanger = (*OAuthClient)(nil)

func NewOAuthClient(cfg *config.Config, httpClient *http.Client) *OAuthClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.OAuthTimeout()}
	}
	return &OAuthClient{
		conf: &oauth2.Config{
			ClientID:     cfg.HubSpot.OAuth.ClientID,
			ClientSecret: cfg.HubSpot.OAuth.ClientSecret,
			RedirectURL:  cfg.HubSpot.OAuth.RedirectURI,
			Scopes:       cfg.ScopeList(),
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.HubSpot.OAuth.AuthorizationURI,
				TokenURL:  cfg.TokenURL(),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		authorizeURI: cfg.HubSpot.OAuth.AuthorizationURI,
		httpClient:   httpClient,
		now:          time.Now,
	}
}

// AuthorizationURL builds the consent URL. Scopes are separated by an
// encoded space.
func (c *OAuthClient) AuthorizationURL() string {
	scopes := make([]string, len(c.conf.Scopes))
	for i, scope := range c.conf.Scopes {
		scopes[i] = url.QueryEscape(scope)
	}

	var b strings.Builder
	b.WriteString(c.authorizeURI)
	if strings.Contains(c.authorizeURI, "?") {
		b.WriteByte('&')
	} else {
		b.WriteByte('?')
	}
	b.WriteString("client_id=" + url.QueryEscape(c.conf.ClientID))
	b.WriteString("&redirect_uri=" + url.QueryEscape(c.conf.RedirectURL))
	b.WriteString("&scope=" + strings.Join(scopes, "%20"))
	return b.String()
}

func (c *OAuthClient) Exchange(ctx context.Context, code string) (token.Record, error) {
	tok, err := c.conf.Exchange(c.clientContext(ctx), code)
	if err != nil {
		return token.Record{}, classify(err, "failed to exchange authorization code")
	}
	return c.record(tok), nil
}

func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (token.Record, error) {
	src := c.conf.TokenSource(c.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return token.Record{}, classify(err, "failed to refresh token")
	}
	return c.record(tok), nil
}

func (c *OAuthClient) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func (c *OAuthClient) record(tok *oauth2.Token) token.Record {
	issuedAt := c.now()
	expiresIn := int(tok.ExpiresIn)
	if expiresIn == 0 && !tok.Expiry.IsZero() {
		expiresIn = int(tok.Expiry.Sub(issuedAt).Seconds())
	}
	rec := token.NewRecord(tok.AccessToken, tok.RefreshToken, expiresIn, issuedAt)
	if tok.TokenType != "" {
		rec.TokenType = tok.TokenType
	}
	return rec
}

// classify sorts a token endpoint failure into the three kinds the
// coordinator distinguishes.
func classify(err error, message string) *token.ExchangeError {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return &token.ExchangeError{Kind: token.FailureTransport, Err: err}
	}

	status := http.StatusBadGateway
	if retrieveErr.Response != nil {
		status = retrieveErr.Response.StatusCode
	}
	apiErr := apierror.Decode(status, retrieveErr.Body, message)
	if apiErr.Body == nil && retrieveErr.ErrorCode != "" {
		apiErr.Body = &apierror.Body{Code: retrieveErr.ErrorCode, Description: retrieveErr.ErrorDescription}
	}
	if apiErr.Body == nil {
		return &token.ExchangeError{Kind: token.FailureUpstreamNoBody, Upstream: apiErr}
	}
	return &token.ExchangeError{Kind: token.FailureUpstreamBody, Upstream: apiErr}
}
