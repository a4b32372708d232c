package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"

	"github.com/tinywideclouds/go-sns-push-service/pkg/dispatch"
	"github.com/tinywideclouds/go-sns-push-service/pkg/platform"
)

// EndpointStore implements dispatch.EndpointStore on Google Cloud Firestore.
type EndpointStore struct {
	client *firestore.Client
	logger *slog.Logger
}

func NewEndpointStore(client *firestore.Client, logger *slog.Logger) *EndpointStore {
	return &EndpointStore{
		client: client,
		logger: logger.With("component", "FirestoreEndpointStore"),
	}
}

// endpointRecord is the stored representation of a dispatch.Endpoint.
type endpointRecord struct {
	Platform       string    `firestore:"platform"`
	Token          string    `firestore:"token"`
	EndpointARN    string    `firestore:"endpoint_arn"`
	ApplicationARN string    `firestore:"application_arn"`
	UpdatedAt      time.Time `firestore:"updated_at"`
}

func (s *EndpointStore) Register(ctx context.Context, user urn.URN, endpoint dispatch.Endpoint) error {
	if endpoint.UpdatedAt.IsZero() {
		endpoint.UpdatedAt = time.Now()
	}
	record := endpointRecord{
		Platform:       endpoint.Platform.String(),
		Token:          endpoint.Token,
		EndpointARN:    endpoint.EndpointARN,
		ApplicationARN: endpoint.ApplicationARN,
		UpdatedAt:      endpoint.UpdatedAt,
	}

	// Hash of the token as doc ID: one record per device, no hot-spotting.
	if _, err := s.endpointRef(user, hashToken(endpoint.Token)).Set(ctx, record); err != nil {
		return fmt.Errorf("failed to store endpoint: %w", err)
	}
	return nil
}

func (s *EndpointStore) Unregister(ctx context.Context, user urn.URN, token string) error {
	if _, err := s.endpointRef(user, hashToken(token)).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete endpoint: %w", err)
	}
	return nil
}

func (s *EndpointStore) Fetch(ctx context.Context, user urn.URN) ([]dispatch.Endpoint, error) {
	iter := s.endpointsCollection(user).Documents(ctx)
	defer iter.Stop()

	endpoints := make([]dispatch.Endpoint, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore iteration failed: %w", err)
		}

		var record endpointRecord
		if err := doc.DataTo(&record); err != nil {
			s.logger.Warn("Skipping unreadable endpoint record", "doc", doc.Ref.ID, "err", err)
			continue
		}
		p, err := platform.Parse(record.Platform)
		if err != nil {
			s.logger.Warn("Skipping endpoint with unknown platform", "doc", doc.Ref.ID, "platform", record.Platform)
			continue
		}

		endpoints = append(endpoints, dispatch.Endpoint{
			Platform:       p,
			Token:          record.Token,
			EndpointARN:    record.EndpointARN,
			ApplicationARN: record.ApplicationARN,
			UpdatedAt:      record.UpdatedAt,
		})
	}

	return endpoints, nil
}

// endpointRef: users/{urn}/endpoints/{tokenHash}
func (s *EndpointStore) endpointRef(user urn.URN, docID string) *firestore.DocumentRef {
	return s.endpointsCollection(user).Doc(docID)
}

func (s *EndpointStore) endpointsCollection(user urn.URN) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(user.String()).Collection("endpoints")
}

func hashToken(t string) string {
	sum := sha256.Sum256([]byte(t))
	return hex.EncodeToString(sum[:])
}
