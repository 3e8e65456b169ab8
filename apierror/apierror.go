// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

// Package apierror describes failures reported by the HubSpot API.
package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Body is the structured error document HubSpot returns with non-2xx
// responses. Token endpoint failures also carry the OAuth "error" fields.
type Body struct {
	Message       string `json:"message,omitempty"`
	Category      string `json:"category,omitempty"`
	SubCategory   string `json:"subCategory,omitempty"`
	Context       any    `json:"context,omitempty"`
	Link          string `json:"link,omitempty"`
	Status        string `json:"status,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`

	Code        string `json:"error,omitempty"`
	Description string `json:"error_description,omitempty"`
}

func (b *Body) empty() bool {
	return b.Message == "" && b.Category == "" && b.Status == "" && b.CorrelationID == "" && b.Code == ""
}

// Error is a non-2xx response from the HubSpot resource or token API.
type Error struct {
	StatusCode int
	Body       *Body // nil when the response carried no decodable body
	Message    string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %d", e.Message, e.StatusCode)
	if e.Body == nil {
		return msg + " (no error body)"
	}
	if detail := e.Body.Detail(); detail != "" {
		return msg + ": " + detail
	}
	return msg
}

// Detail prefers the HubSpot message, then the OAuth description.
func (b *Body) Detail() string {
	switch {
	case b.Message != "":
		return b.Message
	case b.Description != "":
		return b.Description
	default:
		return b.Code
	}
}

// Decode builds an Error from a raw response body. Bodies that are empty or
// do not parse as an error document leave Body nil.
func Decode(statusCode int, raw []byte, message string) *Error {
	e := &Error{StatusCode: statusCode, Message: message}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return e
	}
	var body Body
	if err := json.Unmarshal(raw, &body); err != nil || body.empty() {
		return e
	}
	e.Body = &body
	return e
}

// Reason returns the standard text for the status code.
func (e *Error) Reason() string {
	if text := http.StatusText(e.StatusCode); text != "" {
		return text
	}
	return "Upstream Error"
}
