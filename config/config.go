// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSignatureHeader = "X-HubSpot-Signature-v3"
	DefaultTimestampHeader = "X-HubSpot-Request-Timestamp"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	HubSpot struct {
		API struct {
			BaseURL        string `yaml:"base_url"`
			TimeoutSeconds int    `yaml:"timeout_seconds"`
		} `yaml:"api"`

		OAuth struct {
			ClientID         string `yaml:"client_id"`
			ClientSecret     string `yaml:"client_secret"`
			RedirectURI      string `yaml:"redirect_uri"`
			AuthorizationURI string `yaml:"authorization_uri"`
			TokenURI         string `yaml:"token_uri"`
			Scopes           string `yaml:"scopes"` // whitespace separated
			TimeoutSeconds   int    `yaml:"timeout_seconds"`
		} `yaml:"oauth"`

		Webhook struct {
			ClientSecret        string `yaml:"client_secret"`
			SignatureHeader     string `yaml:"signature_header"`
			TimestampHeader     string `yaml:"timestamp_header"`
			ReplayWindowSeconds int    `yaml:"replay_window_seconds"`
			BaseURL             string `yaml:"base_url"` // prefix of the signed URI, empty signs the request target only
			MaxBodyBytes        int64  `yaml:"max_body_bytes"`
		} `yaml:"webhook"`

		RateLimit struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxWaitMillis     int     `yaml:"max_wait_ms"`
		} `yaml:"rate_limit"`
	} `yaml:"hubspot"`

	TokenStore struct {
		Type          string `yaml:"type"` // memory, redis or postgres
		EncryptionKey string `yaml:"encryption_key"`
		Redis         struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			DB       int    `yaml:"db"`
			Password string `yaml:"password"`
			Key      string `yaml:"key"`
			KeyTTL   int    `yaml:"key_ttl"` // TTL in seconds, 0 keeps the key
		} `yaml:"redis"`
		Postgres struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			DBName   string `yaml:"dbname"`
			Table    string `yaml:"table"`
			Name     string `yaml:"name"` // row key of the credential
		} `yaml:"postgres"`
	} `yaml:"token_store"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json or console
	} `yaml:"logging"`
}

// envOverrides maps environment variables onto the secret-bearing fields so
// credentials can stay out of the YAML file.
var envOverrides = []struct {
	name  string
	field func(*Config) *string
}{
	{"HUBSPOT_CLIENT_ID", func(c *Config) *string { return &c.HubSpot.OAuth.ClientID }},
	{"HUBSPOT_CLIENT_SECRET", func(c *Config) *string { return &c.HubSpot.OAuth.ClientSecret }},
	{"HUBSPOT_WEBHOOK_SECRET", func(c *Config) *string { return &c.HubSpot.Webhook.ClientSecret }},
	{"TOKEN_ENCRYPTION_KEY", func(c *Config) *string { return &c.TokenStore.EncryptionKey }},
	{"REDIS_PASSWORD", func(c *Config) *string { return &c.TokenStore.Redis.Password }},
	{"POSTGRES_PASSWORD", func(c *Config) *string { return &c.TokenStore.Postgres.Password }},
	{"LOG_LEVEL", func(c *Config) *string { return &c.Logging.Level }},
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// A missing .env file is not an error, the process environment still applies.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}
	config.applyEnv()
	config.applyDefaults()

	return config, nil
}

func (c *Config) applyEnv() {
	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.name); ok && v != "" {
			*o.field(c) = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.HubSpot.API.BaseURL == "" {
		c.HubSpot.API.BaseURL = "https://api.hubapi.com"
	}
	if c.HubSpot.API.TimeoutSeconds == 0 {
		c.HubSpot.API.TimeoutSeconds = 10
	}
	if c.HubSpot.OAuth.AuthorizationURI == "" {
		c.HubSpot.OAuth.AuthorizationURI = "https://app.hubspot.com/oauth/authorize"
	}
	if c.HubSpot.OAuth.TokenURI == "" {
		c.HubSpot.OAuth.TokenURI = "/oauth/v1/token"
	}
	if c.HubSpot.OAuth.TimeoutSeconds == 0 {
		c.HubSpot.OAuth.TimeoutSeconds = 10
	}
	if c.HubSpot.Webhook.SignatureHeader == "" {
		c.HubSpot.Webhook.SignatureHeader = DefaultSignatureHeader
	}
	if c.HubSpot.Webhook.TimestampHeader == "" {
		c.HubSpot.Webhook.TimestampHeader = DefaultTimestampHeader
	}
	if c.HubSpot.Webhook.ReplayWindowSeconds == 0 {
		c.HubSpot.Webhook.ReplayWindowSeconds = 300
	}
	if c.HubSpot.Webhook.MaxBodyBytes == 0 {
		c.HubSpot.Webhook.MaxBodyBytes = 1 << 20
	}
	if c.HubSpot.RateLimit.RequestsPerSecond == 0 {
		c.HubSpot.RateLimit.RequestsPerSecond = 10
	}
	if c.HubSpot.RateLimit.Burst == 0 {
		c.HubSpot.RateLimit.Burst = 10
	}
	if c.TokenStore.Type == "" {
		c.TokenStore.Type = "memory"
	}
	if c.TokenStore.Redis.Port == 0 {
		c.TokenStore.Redis.Port = 6379
	}
	if c.TokenStore.Redis.Key == "" {
		c.TokenStore.Redis.Key = "hubspot:oauth:token"
	}
	if c.TokenStore.Postgres.Port == 0 {
		c.TokenStore.Postgres.Port = 5432
	}
	if c.TokenStore.Postgres.Table == "" {
		c.TokenStore.Postgres.Table = "oauth_tokens"
	}
	if c.TokenStore.Postgres.Name == "" {
		c.TokenStore.Postgres.Name = "hubspot"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var problems []string
	require := func(value, name string) {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, name+" is required")
		}
	}

	require(c.HubSpot.OAuth.ClientID, "hubspot.oauth.client_id")
	require(c.HubSpot.OAuth.ClientSecret, "hubspot.oauth.client_secret")
	require(c.HubSpot.OAuth.RedirectURI, "hubspot.oauth.redirect_uri")
	require(c.HubSpot.OAuth.Scopes, "hubspot.oauth.scopes")
	require(c.HubSpot.Webhook.ClientSecret, "hubspot.webhook.client_secret")

	switch c.TokenStore.Type {
	case "memory":
	case "redis", "postgres":
		require(c.TokenStore.EncryptionKey, "token_store.encryption_key")
	default:
		problems = append(problems, fmt.Sprintf("token_store.type %q is not supported", c.TokenStore.Type))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ScopeList splits the configured scopes on whitespace.
func (c *Config) ScopeList() []string {
	return strings.Fields(c.HubSpot.OAuth.Scopes)
}

// TokenURL resolves a token URI given relative to the API base URL.
func (c *Config) TokenURL() string {
	uri := c.HubSpot.OAuth.TokenURI
	if strings.HasPrefix(uri, "/") {
		return strings.TrimRight(c.HubSpot.API.BaseURL, "/") + uri
	}
	return uri
}

func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.HubSpot.API.TimeoutSeconds) * time.Second
}

func (c *Config) OAuthTimeout() time.Duration {
	return time.Duration(c.HubSpot.OAuth.TimeoutSeconds) * time.Second
}

func (c *Config) ReplayWindow() time.Duration {
	return time.Duration(c.HubSpot.Webhook.ReplayWindowSeconds) * time.Second
}

// Mask hides all but the last four characters of a secret for diagnostics.
func Mask(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
