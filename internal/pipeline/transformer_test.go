package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-sns-push-service/internal/pipeline"
)

func TestNotificationRequestTransformer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	testCases := []struct {
		name                  string
		payload               string
		expectError           bool
		expectedErrorContains string
	}{
		{
			name:    "Happy Path",
			payload: `{"recipient_id":"urn:sm:user:user-123","content":{"title":"Hi","body":"There"}}`,
		},
		{
			name:                  "Failure - Malformed JSON",
			payload:               "not-json",
			expectError:           true,
			expectedErrorContains: "failed to unmarshal notification request",
		},
		{
			name:                  "Failure - Invalid URN",
			payload:               `{"recipient_id":"not-a-valid-urn"}`,
			expectError:           true,
			expectedErrorContains: "invalid notification request",
		},
		{
			name:                  "Failure - Unknown override platform",
			payload:               `{"recipient_id":"urn:sm:user:user-123","overrides":{"WNS":{}}}`,
			expectError:           true,
			expectedErrorContains: "invalid notification request",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg := &messagepipeline.Message{
				MessageData: messagepipeline.MessageData{ID: "msg-1", Payload: []byte(tc.payload)},
			}
			req, skip, err := pipeline.NotificationRequestTransformer(ctx, msg)

			if tc.expectError {
				require.Error(t, err)
				assert.True(t, skip)
				assert.Contains(t, err.Error(), tc.expectedErrorContains)
				return
			}
			require.NoError(t, err)
			assert.False(t, skip)
			assert.Equal(t, "urn:sm:user:user-123", req.Recipient.String())
			assert.Equal(t, "Hi", req.Content.Title)
		})
	}
}
