// Package pipeline turns ingested notification requests into broker publishes.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/tinywideclouds/go-sns-push-service/pkg/notification"
)

// NotificationRequestTransformer decodes and validates a raw message payload.
// Malformed payloads are skipped so the subscription can dead-letter them.
func NotificationRequestTransformer(
	_ context.Context,
	msg *messagepipeline.Message,
) (*notification.Request, bool, error) {
	var req notification.Request
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return nil, true, fmt.Errorf("failed to unmarshal notification request from message %s: %w", msg.ID, err)
	}
	if err := req.Normalize(); err != nil {
		return nil, true, fmt.Errorf("invalid notification request in message %s: %w", msg.ID, err)
	}
	return &req, false, nil
}
