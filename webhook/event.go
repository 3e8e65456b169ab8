// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const SubscriptionContactCreation = "contact.creation"

var ErrMalformedBatch = errors.New("malformed webhook batch")

// Event is one entry of a delivery. Unknown fields are ignored.
type Event struct {
	AppID            int64  `json:"appId"`
	EventID          int64  `json:"eventId"`
	SubscriptionID   int64  `json:"subscriptionId"`
	PortalID         int64  `json:"portalId"`
	OccurredAt       int64  `json:"occurredAt"` // epoch millis
	SubscriptionType string `json:"subscriptionType"`
	AttemptNumber    int    `json:"attemptNumber"`
	ObjectID         *int64 `json:"objectId,omitempty"`
	ChangeSource     string `json:"changeSource,omitempty"`
	ObjectTypeID     string `json:"objectTypeId,omitempty"`
	ChangeFlag       string `json:"changeFlag,omitempty"`
	SourceID         string `json:"sourceId,omitempty"`
}

// ParseBatch decodes the JSON array HubSpot delivers.
func ParseBatch(body []byte) ([]Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array of events", ErrMalformedBatch)
	}
	var events []Event
	if err := json.Unmarshal(trimmed, &events); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBatch, err)
	}
	return events, nil
}
