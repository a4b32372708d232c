package notificationservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/tinywideclouds/go-sns-push-service/internal/api"
	"github.com/tinywideclouds/go-sns-push-service/internal/pipeline"
	"github.com/tinywideclouds/go-sns-push-service/notificationservice/config"
	"github.com/tinywideclouds/go-sns-push-service/pkg/dispatch"
	"github.com/tinywideclouds/go-sns-push-service/pkg/notification"
)

type Wrapper struct {
	*microservice.BaseServer
	pipelineService *messagepipeline.StreamingService[notification.Request]
	client          *dispatch.Client
	logger          *slog.Logger
}

// New assembles the service. The client is owned by the returned Wrapper and
// closed on Shutdown.
func New(
	cfg *config.Config,
	consumer messagepipeline.MessageConsumer,
	client *dispatch.Client,
	registrar *dispatch.Registrar,
	store dispatch.EndpointStore,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) (*Wrapper, error) {
	applications, err := cfg.ApplicationsByPlatform()
	if err != nil {
		return nil, fmt.Errorf("invalid sns applications: %w", err)
	}

	baseServer := microservice.NewBaseServer(logger, cfg.ListenAddr)

	processor := pipeline.NewProcessor(client, store, logger)

	streamingService, err := messagepipeline.NewStreamingService(
		messagepipeline.StreamingServiceConfig{NumWorkers: cfg.NumPipelineWorkers},
		consumer,
		pipeline.NotificationRequestTransformer,
		processor,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create streaming service: %w", err)
	}

	endpointAPI := api.NewEndpointAPI(client, registrar, store, applications, cfg.SNS.Issuer, logger)

	mux := baseServer.Mux()
	corsMiddleware := middleware.NewCorsMiddleware(cfg.CorsConfig, logger)

	handle := func(pattern string, handlerFunc http.HandlerFunc) {
		mux.Handle(pattern, corsMiddleware(authMiddleware(handlerFunc)))
	}

	handle("POST /api/v1/endpoints", endpointAPI.Register)
	handle("POST /api/v1/endpoints/unregister", endpointAPI.Unregister)

	// CORS preflight
	mux.Handle("OPTIONS /api/v1/", corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	mux.Handle("GET /sns/metrics", promhttp.Handler())

	return &Wrapper{
		BaseServer:      baseServer,
		pipelineService: streamingService,
		client:          client,
		logger:          logger,
	}, nil
}

func (w *Wrapper) Start(ctx context.Context) error {
	w.logger.Info("Core processing pipeline starting...", "sns_region", w.client.Region())
	if err := w.pipelineService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start processing service: %w", err)
	}
	w.SetReady(true)
	w.logger.Info("Service is now ready.")
	return w.BaseServer.Start()
}

func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down service components...")
	var errs []error
	if err := w.pipelineService.Stop(ctx); err != nil {
		w.logger.Error("Processing pipeline shutdown failed.", "err", err)
		errs = append(errs, err)
	}
	if err := w.BaseServer.Shutdown(ctx); err != nil {
		w.logger.Error("HTTP server shutdown failed.", "err", err)
		errs = append(errs, err)
	}
	if err := w.client.Close(); err != nil {
		w.logger.Error("Dispatch client close failed.", "err", err)
		errs = append(errs, err)
	}
	w.logger.Info("Service shutdown complete.")
	return errors.Join(errs...)
}
