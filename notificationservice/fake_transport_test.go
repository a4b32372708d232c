//go:build integration

package notificationservice_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// fakeTransport records publishes in place of the broker.
type fakeTransport struct {
	mu        sync.Mutex
	published []*sns.PublishInput
}

func (f *fakeTransport) CreatePlatformEndpoint(_ context.Context, in *sns.CreatePlatformEndpointInput, _ ...func(*sns.Options)) (*sns.CreatePlatformEndpointOutput, error) {
	return &sns.CreatePlatformEndpointOutput{
		EndpointArn: aws.String(aws.ToString(in.PlatformApplicationArn) + "/endpoint/" + aws.ToString(in.Token)),
	}, nil
}

func (f *fakeTransport) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, in)
	return &sns.PublishOutput{MessageId: aws.String(fmt.Sprintf("msg-%d", len(f.published)))}, nil
}

func (f *fakeTransport) GetEndpointAttributes(_ context.Context, in *sns.GetEndpointAttributesInput, _ ...func(*sns.Options)) (*sns.GetEndpointAttributesOutput, error) {
	return &sns.GetEndpointAttributesOutput{Attributes: map[string]string{"Enabled": "true"}}, nil
}

func (f *fakeTransport) Published() []*sns.PublishInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*sns.PublishInput(nil), f.published...)
}
