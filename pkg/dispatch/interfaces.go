package dispatch

import (
	"context"
	"time"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"

	"github.com/tinywideclouds/go-sns-push-service/pkg/platform"
)

// Publisher defines the publishing half of Client, so the pipeline can be
// tested without a broker.
type Publisher interface {
	PublishFields(ctx context.Context, p platform.Platform, targetARN string, custom map[string]any, attrs MessageAttributes) (*Receipt, error)
}

// Endpoint is a device registered with the broker on behalf of a user.
type Endpoint struct {
	Platform       platform.Platform `json:"platform"`
	Token          string            `json:"token"`
	EndpointARN    string            `json:"endpoint_arn"`
	ApplicationARN string            `json:"application_arn"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// EndpointStore remembers which broker endpoints belong to a user.
type EndpointStore interface {
	// Register adds or replaces the endpoint for its token.
	Register(ctx context.Context, user urn.URN, endpoint Endpoint) error
	// Unregister forgets the endpoint registered for token. Unknown tokens are not an error.
	Unregister(ctx context.Context, user urn.URN, token string) error
	// Fetch returns every endpoint registered for user.
	Fetch(ctx context.Context, user urn.URN) ([]Endpoint, error)
}
