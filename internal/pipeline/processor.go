package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/google/uuid"
	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/tinywideclouds/go-sns-push-service/internal/metrics"
	"github.com/tinywideclouds/go-sns-push-service/pkg/dispatch"
	"github.com/tinywideclouds/go-sns-push-service/pkg/notification"
)

// NotificationIDAttribute is attached to every publish so deliveries of one
// request can be correlated across endpoints.
const NotificationIDAttribute = "notification_id"

// NewProcessor fans a request out to every endpoint registered for the
// recipient. Each endpoint is attempted once. Permanent rejections are logged
// and counted; only retryable failures are joined and returned, so the
// subscription redelivers just for those.
func NewProcessor(
	publisher dispatch.Publisher,
	store dispatch.EndpointStore,
	logger *slog.Logger,
) messagepipeline.StreamProcessor[notification.Request] {

	return func(ctx context.Context, original messagepipeline.Message, request *notification.Request) error {
		notificationID := request.NotificationID
		if notificationID == "" {
			// Stable across redeliveries so devices can drop duplicates.
			notificationID = original.ID
		}
		if notificationID == "" {
			notificationID = uuid.NewString()
		}
		procLogger := logger.With(
			"recipient_id", request.Recipient.String(),
			"notification_id", notificationID,
			"pubsub_msg_id", original.ID,
		)

		endpoints, err := store.Fetch(ctx, request.Recipient)
		if err != nil {
			procLogger.Error("Failed to fetch endpoints", "err", err)
			return err
		}
		if len(endpoints) == 0 {
			procLogger.Info("No endpoints registered for user; dropping notification.")
			return nil
		}

		attrs := make(dispatch.MessageAttributes, len(request.Attributes)+1)
		maps.Copy(attrs, request.Attributes)
		attrs[NotificationIDAttribute] = dispatch.StringAttribute(notificationID)

		var retryable []error
		for _, endpoint := range endpoints {
			err := publishOne(ctx, publisher, request, endpoint, attrs, procLogger)
			metrics.Published.WithLabelValues(endpoint.Platform.String(), metrics.OutcomeFor(err)).Inc()
			if err == nil {
				continue
			}
			if !dispatch.IsRetryable(err) {
				procLogger.Warn("Endpoint permanently rejected the notification; not retrying",
					"platform", endpoint.Platform.String(), "endpoint", endpoint.EndpointARN, "err", err)
				continue
			}
			retryable = append(retryable, fmt.Errorf("%s: %w", endpoint.EndpointARN, err))
		}
		return errors.Join(retryable...)
	}
}

func publishOne(
	ctx context.Context,
	publisher dispatch.Publisher,
	request *notification.Request,
	endpoint dispatch.Endpoint,
	attrs dispatch.MessageAttributes,
	logger *slog.Logger,
) error {
	fields, err := request.FieldsFor(endpoint.Platform)
	if err != nil {
		logger.Error("Failed to render notification", "platform", endpoint.Platform.String(), "err", err)
		return err
	}

	receipt, err := publisher.PublishFields(ctx, endpoint.Platform, endpoint.EndpointARN, fields, attrs)
	if err != nil {
		logger.Error("Publish failed", "platform", endpoint.Platform.String(), "endpoint", endpoint.EndpointARN, "err", err)
		return err
	}

	logger.Info("Notification published",
		"platform", endpoint.Platform.String(),
		"endpoint", endpoint.EndpointARN,
		"message_id", receipt.MessageID,
	)
	return nil
}
