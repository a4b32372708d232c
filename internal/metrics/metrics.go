// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tinywideclouds/go-sns-push-service/pkg/dispatch"
)

const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid"
)

var (
	Published = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sns_push_publish_total",
		Help: "Publish attempts against the broker, by platform and outcome.",
	}, []string{"platform", "outcome"})

	Registered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sns_push_register_total",
		Help: "Endpoint registrations, by platform and outcome.",
	}, []string{"platform", "outcome"})
)

func Register() {
	prometheus.MustRegister(Published, Registered)
}

// OutcomeFor classifies the result of a broker operation for labelling.
func OutcomeFor(err error) string {
	var brokerErr *dispatch.BrokerError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &brokerErr):
		return OutcomeRejected
	default:
		return OutcomeInvalid
	}
}
