package notification_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-sns-push-service/pkg/dispatch"
	"github.com/tinywideclouds/go-sns-push-service/pkg/notification"
	"github.com/tinywideclouds/go-sns-push-service/pkg/platform"
)

func TestRequest_Normalize(t *testing.T) {
	raw := `{
		"recipient_id": "urn:sm:user:u1",
		"content": {"title": "Sign in", "body": "Approve?"},
		"data": {"state": "abc"},
		"overrides": {"android": {"dry_run": true}, "APNS": {"priority": 10}},
		"attributes": {"kind": {"type": "String", "value": "auth"}}
	}`

	var req notification.Request
	require.NoError(t, json.Unmarshal([]byte(raw), &req))
	require.NoError(t, req.Normalize())

	assert.Equal(t, "urn:sm:user:u1", req.Recipient.String())
	assert.Contains(t, req.Overrides, "GCM")
	assert.Contains(t, req.Overrides, "APNS")
	assert.Equal(t, dispatch.StringAttribute("auth"), req.Attributes["kind"])

	t.Run("Overrides win over rendered content", func(t *testing.T) {
		fields, err := req.FieldsFor(platform.Android)
		require.NoError(t, err)
		assert.Equal(t, true, fields["dry_run"])
		assert.Equal(t, map[string]string{"state": "abc"}, fields["data"])
	})

	t.Run("Platforms without overrides render content only", func(t *testing.T) {
		fields, err := req.FieldsFor(platform.IOSSandbox)
		require.NoError(t, err)
		assert.Contains(t, fields, "aps")
		assert.NotContains(t, fields, "priority")
	})
}

func TestRequest_NormalizeFailures(t *testing.T) {
	t.Run("Invalid recipient", func(t *testing.T) {
		req := notification.Request{RecipientID: "not-a-urn"}
		assert.Error(t, req.Normalize())
	})

	t.Run("Unknown override platform", func(t *testing.T) {
		req := notification.Request{
			RecipientID: "urn:sm:user:u1",
			Overrides:   map[string]map[string]any{"WNS": {}},
		}
		assert.Error(t, req.Normalize())
	})

	t.Run("Aliases naming the same platform", func(t *testing.T) {
		req := notification.Request{
			RecipientID: "urn:sm:user:u1",
			Overrides: map[string]map[string]any{
				"android": {"collapse_key": "a"},
				"GCM":     {"collapse_key": "b"},
			},
		}
		assert.ErrorContains(t, req.Normalize(), "GCM")
	})
}
