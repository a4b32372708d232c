package metrics_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/tinywideclouds/go-sns-push-service/internal/metrics"
	"github.com/tinywideclouds/go-sns-push-service/pkg/dispatch"
)

func TestOutcomeFor(t *testing.T) {
	assert.Equal(t, metrics.OutcomeOK, metrics.OutcomeFor(nil))
	assert.Equal(t, metrics.OutcomeRejected, metrics.OutcomeFor(
		fmt.Errorf("publish: %w", &dispatch.BrokerError{Op: "Publish", Err: errors.New("x")})))
	assert.Equal(t, metrics.OutcomeInvalid, metrics.OutcomeFor(dispatch.ErrInvalidArgument))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(metrics.Published.WithLabelValues("GCM", metrics.OutcomeOK))
	metrics.Published.WithLabelValues("GCM", metrics.OutcomeOK).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Published.WithLabelValues("GCM", metrics.OutcomeOK)))

	metrics.Registered.WithLabelValues("APNS", metrics.OutcomeRejected).Inc()
	assert.GreaterOrEqual(t, testutil.CollectAndCount(metrics.Registered), 1)
}
