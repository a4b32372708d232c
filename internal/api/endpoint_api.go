package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-microservice-base/pkg/response"
	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"

	"github.com/tinywideclouds/go-sns-push-service/internal/metrics"
	"github.com/tinywideclouds/go-sns-push-service/pkg/dispatch"
	"github.com/tinywideclouds/go-sns-push-service/pkg/platform"
)

// EndpointAPI registers devices with the broker on behalf of the calling user.
type EndpointAPI struct {
	Client       *dispatch.Client
	Registrar    *dispatch.Registrar
	Store        dispatch.EndpointStore
	Applications map[platform.Platform]string
	Issuer       string
	Logger       *slog.Logger
}

func NewEndpointAPI(
	client *dispatch.Client,
	registrar *dispatch.Registrar,
	store dispatch.EndpointStore,
	applications map[platform.Platform]string,
	issuer string,
	logger *slog.Logger,
) *EndpointAPI {
	return &EndpointAPI{
		Client:       client,
		Registrar:    registrar,
		Store:        store,
		Applications: applications,
		Issuer:       issuer,
		Logger:       logger.With("component", "EndpointAPI"),
	}
}

type RegisterEndpointRequest struct {
	Platform string `json:"platform"`
	Token    string `json:"token"`
}

type RegisterEndpointResponse struct {
	EndpointARN string `json:"endpoint_arn"`
	Platform    string `json:"platform"`
}

type UnregisterEndpointRequest struct {
	Token string `json:"token"`
}

func (api *EndpointAPI) userFromRequest(w http.ResponseWriter, r *http.Request) (userURN urn.URN, userID string, ok bool) {
	userID, ok = middleware.GetUserHandleFromContext(r.Context())
	if !ok {
		response.WriteJSONError(w, http.StatusUnauthorized, "unauthorized")
		return userURN, "", false
	}
	parsed, err := urn.Parse(userID)
	if err != nil {
		response.WriteJSONError(w, http.StatusUnauthorized, "invalid user identity")
		return userURN, "", false
	}
	return parsed, userID, true
}

func (api *EndpointAPI) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userURN, userID, ok := api.userFromRequest(w, r)
	if !ok {
		return
	}

	var req RegisterEndpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Token == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing token")
		return
	}
	p, err := platform.Parse(req.Platform)
	if err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "unknown platform")
		return
	}
	appARN, ok := api.Applications[p]
	if !ok {
		response.WriteJSONError(w, http.StatusBadRequest, "platform not enabled")
		return
	}

	endpointARN, err := api.Registrar.Register(ctx, api.Client, appARN, req.Token, dispatch.AuditContext{
		Issuer: api.Issuer,
		UserID: userID,
	})
	metrics.Registered.WithLabelValues(p.String(), metrics.OutcomeFor(err)).Inc()
	if err != nil {
		api.writeDispatchError(w, err)
		return
	}

	endpoint := dispatch.Endpoint{
		Platform:       p,
		Token:          req.Token,
		EndpointARN:    endpointARN,
		ApplicationARN: appARN,
		UpdatedAt:      time.Now().UTC(),
	}
	if err := api.Store.Register(ctx, userURN, endpoint); err != nil {
		api.Logger.Error("Failed to store endpoint", "endpoint", endpointARN, "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "storage failed")
		return
	}

	api.Logger.Info("Endpoint registered", "user", userURN.String(), "platform", p.String(), "endpoint", endpointARN)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(RegisterEndpointResponse{EndpointARN: endpointARN, Platform: p.String()})
}

// Unregister forgets the device locally. The broker endpoint is left as is.
func (api *EndpointAPI) Unregister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userURN, _, ok := api.userFromRequest(w, r)
	if !ok {
		return
	}

	var req UnregisterEndpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Token == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing token")
		return
	}

	if err := api.Store.Unregister(ctx, userURN, req.Token); err != nil {
		api.Logger.Warn("Failed to unregister endpoint", "user", userURN.String(), "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "failed to unregister endpoint")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *EndpointAPI) writeDispatchError(w http.ResponseWriter, err error) {
	var brokerErr *dispatch.BrokerError
	switch {
	case errors.Is(err, dispatch.ErrInvalidArgument):
		response.WriteJSONError(w, http.StatusBadRequest, "invalid registration")
	case errors.As(err, &brokerErr):
		api.Logger.Warn("Broker rejected registration", "code", brokerErr.Code, "status", brokerErr.StatusCode, "err", err)
		response.WriteJSONError(w, http.StatusBadGateway, "broker rejected registration")
	default:
		api.Logger.Error("Registration failed", "err", err)
		response.WriteJSONError(w, http.StatusServiceUnavailable, "registration unavailable")
	}
}
