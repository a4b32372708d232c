// Package dispatch owns the authenticated connection to the push broker (AWS
// SNS): endpoint registration and publishing of platform envelopes.
package dispatch

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/tinywideclouds/go-sns-push-service/pkg/envelope"
	"github.com/tinywideclouds/go-sns-push-service/pkg/platform"
)

// messageStructureJSON makes the broker read the message as a per-platform
// JSON envelope instead of opaque text.
const messageStructureJSON = "json"

// Transport defines the subset of the SNS API we use.
// *sns.Client satisfies it; tests substitute a fake.
type Transport interface {
	CreatePlatformEndpoint(ctx context.Context, params *sns.CreatePlatformEndpointInput, optFns ...func(*sns.Options)) (*sns.CreatePlatformEndpointOutput, error)
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	GetEndpointAttributes(ctx context.Context, params *sns.GetEndpointAttributesInput, optFns ...func(*sns.Options)) (*sns.GetEndpointAttributesOutput, error)
}

// Credentials are the already decrypted broker keys. They are held only by the
// SNS client built from them.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// Receipt identifies a message accepted by the broker.
type Receipt struct {
	MessageID string
}

// EndpointInfo is the broker's view of a registered endpoint.
type EndpointInfo struct {
	EndpointARN    string
	Enabled        bool
	Token          string
	CustomUserData string
}

// Client is a connection to the broker scoped to one credential set and region.
// It is safe for concurrent use. Once closed, every call returns ErrInvalidState.
type Client struct {
	transport Transport
	region    string
	closed    atomic.Bool
	logger    *slog.Logger
}

// Connect validates region, then builds an SNS client authenticated with creds.
// The SDK retryer is disabled: a failed call is reported once, as is.
func Connect(creds Credentials, region string, logger *slog.Logger, optFns ...func(*sns.Options)) (*Client, error) {
	if err := ValidateRegion(region); err != nil {
		return nil, err
	}
	if creds.AccessKey == "" || creds.SecretKey == "" {
		return nil, invalidArgument("access key and secret key are required")
	}

	cfg := aws.Config{
		Region:      region,
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(creds.AccessKey, creds.SecretKey, "")),
		Retryer: func() aws.Retryer {
			return aws.NopRetryer{}
		},
	}

	return newClient(sns.NewFromConfig(cfg, optFns...), region, logger), nil
}

// NewClient wraps an existing transport. The region is validated the same way
// Connect does.
func NewClient(transport Transport, region string, logger *slog.Logger) (*Client, error) {
	if err := ValidateRegion(region); err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, invalidArgument("transport is nil")
	}
	return newClient(transport, region, logger), nil
}

func newClient(transport Transport, region string, logger *slog.Logger) *Client {
	return &Client{
		transport: transport,
		region:    region,
		logger:    logger.With("component", "SNSDispatchClient", "region", region),
	}
}

// Region returns the broker region the client is bound to.
func (c *Client) Region() string {
	return c.region
}

// Close disposes of the client. It is idempotent.
func (c *Client) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.logger.Debug("Dispatch client closed")
	}
	return nil
}

func (c *Client) checkOpen() error {
	if c.closed.Load() {
		return ErrInvalidState
	}
	return nil
}

// Publish sends a serialized multi-platform envelope to targetARN with the
// message structure set to "json". attrs travel outside the body.
func (c *Client) Publish(ctx context.Context, targetARN, env string, attrs MessageAttributes) (*Receipt, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if targetARN == "" {
		return nil, invalidArgument("target endpoint is empty")
	}
	if env == "" {
		return nil, invalidArgument("envelope is empty")
	}
	snsAttrs, err := attrs.toSNS()
	if err != nil {
		return nil, err
	}

	out, err := c.transport.Publish(ctx, &sns.PublishInput{
		TargetArn:         aws.String(targetARN),
		Message:           aws.String(env),
		MessageStructure:  aws.String(messageStructureJSON),
		MessageAttributes: snsAttrs,
	})
	if err != nil {
		c.logger.Warn("Publish rejected", "target", targetARN, "err", err)
		return nil, newBrokerError("Publish", err)
	}

	receipt := &Receipt{MessageID: aws.ToString(out.MessageId)}
	c.logger.Debug("Message published", "target", targetARN, "message_id", receipt.MessageID)
	return receipt, nil
}

// PublishFields builds p's body from its defaults and custom, wraps it and
// publishes it. Encoding failures are returned before any broker call.
func (c *Client) PublishFields(ctx context.Context, p platform.Platform, targetARN string, custom map[string]any, attrs MessageAttributes) (*Receipt, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	env, err := envelope.BuildAndWrap(p, custom)
	if err != nil {
		return nil, err
	}
	return c.Publish(ctx, targetARN, env, attrs)
}

// Describe returns the broker's attributes for a registered endpoint.
func (c *Client) Describe(ctx context.Context, endpointARN string) (*EndpointInfo, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if endpointARN == "" {
		return nil, invalidArgument("endpoint is empty")
	}

	out, err := c.transport.GetEndpointAttributes(ctx, &sns.GetEndpointAttributesInput{
		EndpointArn: aws.String(endpointARN),
	})
	if err != nil {
		return nil, newBrokerError("GetEndpointAttributes", err)
	}

	return &EndpointInfo{
		EndpointARN:    endpointARN,
		Enabled:        out.Attributes["Enabled"] == "true",
		Token:          out.Attributes["Token"],
		CustomUserData: out.Attributes["CustomUserData"],
	}, nil
}

func (c *Client) createEndpoint(ctx context.Context, appARN, token, customUserData string) (string, error) {
	if err := c.checkOpen(); err != nil {
		return "", err
	}

	out, err := c.transport.CreatePlatformEndpoint(ctx, &sns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(appARN),
		Token:                  aws.String(token),
		CustomUserData:         aws.String(customUserData),
	})
	if err != nil {
		c.logger.Warn("Endpoint creation rejected", "application", appARN, "err", err)
		return "", newBrokerError("CreatePlatformEndpoint", err)
	}
	return aws.ToString(out.EndpointArn), nil
}
