// Package notification contains the message that asks the service to notify a
// user on every device registered for them.
package notification

import (
	"fmt"
	"maps"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"

	"github.com/tinywideclouds/go-sns-push-service/pkg/dispatch"
	"github.com/tinywideclouds/go-sns-push-service/pkg/envelope"
	"github.com/tinywideclouds/go-sns-push-service/pkg/platform"
)

// Request is the JSON payload consumed from the ingestion subscription.
type Request struct {
	NotificationID string            `json:"notification_id,omitempty"`
	RecipientID    string            `json:"recipient_id"`
	Content        envelope.Content  `json:"content"`
	Data           map[string]string `json:"data,omitempty"`
	// Overrides are merged over the rendered platform body, keyed by platform
	// name (canonical or alias).
	Overrides  map[string]map[string]any  `json:"overrides,omitempty"`
	Attributes dispatch.MessageAttributes `json:"attributes,omitempty"`

	// Recipient is RecipientID parsed by Normalize.
	Recipient urn.URN `json:"-"`
}

// Normalize parses the recipient and rewrites override keys to canonical
// platform names.
func (r *Request) Normalize() error {
	recipient, err := urn.Parse(r.RecipientID)
	if err != nil {
		return fmt.Errorf("invalid recipient_id %q: %w", r.RecipientID, err)
	}
	r.Recipient = recipient

	if len(r.Overrides) == 0 {
		return nil
	}
	canonical := make(map[string]map[string]any, len(r.Overrides))
	for name, fields := range r.Overrides {
		p, err := platform.Parse(name)
		if err != nil {
			return fmt.Errorf("invalid override: %w", err)
		}
		if _, dup := canonical[p.String()]; dup {
			return fmt.Errorf("invalid override: %s is given more than once", p)
		}
		canonical[p.String()] = fields
	}
	r.Overrides = canonical
	return nil
}

// FieldsFor renders the content for p and overlays the caller's overrides.
func (r *Request) FieldsFor(p platform.Platform) (map[string]any, error) {
	fields, err := envelope.FieldsFor(p, r.Content, r.Data)
	if err != nil {
		return nil, err
	}
	maps.Copy(fields, r.Overrides[p.String()])
	return fields, nil
}
