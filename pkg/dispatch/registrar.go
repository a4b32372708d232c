package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
)

// GeneralizedTimeLayout is the broker-canonical generalized time: UTC, second
// precision, "Z" suffix.
const GeneralizedTimeLayout = "20060102150405Z"

// TimeEncoder renders a timestamp for endpoint audit metadata.
type TimeEncoder interface {
	EncodeGeneralizedTime(t time.Time) string
}

// GeneralizedTime is the default TimeEncoder.
type GeneralizedTime struct{}

func (GeneralizedTime) EncodeGeneralizedTime(t time.Time) string {
	return t.UTC().Format(GeneralizedTimeLayout)
}

// AuditContext identifies who registered an endpoint. It must never carry the
// device token or secret material.
type AuditContext struct {
	Issuer string
	UserID string
}

// Registrar turns device tokens into broker endpoints, tagging each with an
// audit string.
type Registrar struct {
	encoder TimeEncoder
	now     func() time.Time
	logger  *slog.Logger
}

type RegistrarOption func(*Registrar)

// WithTimeEncoder replaces the GeneralizedTime encoder.
func WithTimeEncoder(e TimeEncoder) RegistrarOption {
	return func(r *Registrar) {
		r.encoder = e
	}
}

// WithClock sets the source of registration timestamps.
func WithClock(now func() time.Time) RegistrarOption {
	return func(r *Registrar) {
		r.now = now
	}
}

func NewRegistrar(logger *slog.Logger, opts ...RegistrarOption) *Registrar {
	r := &Registrar{
		encoder: GeneralizedTime{},
		now:     time.Now,
		logger:  logger.With("component", "EndpointRegistrar"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AuditString renders audit as "Issuer: <issuer>, user: <user>, date: <time>"
// with the current time. Control characters are dropped from issuer and user.
func (r *Registrar) AuditString(audit AuditContext) string {
	return fmt.Sprintf("Issuer: %s, user: %s, date: %s",
		stripControl(audit.Issuer),
		stripControl(audit.UserID),
		r.encoder.EncodeGeneralizedTime(r.now()),
	)
}

// Register creates a broker endpoint for token under the application appARN
// and returns the endpoint ARN. Re-registering a token is left to the broker.
func (r *Registrar) Register(ctx context.Context, client *Client, appARN, token string, audit AuditContext) (string, error) {
	if client == nil {
		return "", invalidArgument("client is nil")
	}
	if appARN == "" {
		return "", invalidArgument("application address is empty")
	}
	if token == "" {
		return "", invalidArgument("device token is empty")
	}
	// Checked after sanitising so control characters cannot split the token.
	auditString := r.AuditString(audit)
	if strings.Contains(auditString, token) {
		return "", invalidArgument("audit context must not contain the device token")
	}

	endpointARN, err := client.createEndpoint(ctx, appARN, token, auditString)
	if err != nil {
		return "", err
	}

	r.logger.Info("Endpoint registered", "application", appARN, "endpoint", endpointARN, "user", audit.UserID)
	return endpointARN, nil
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
