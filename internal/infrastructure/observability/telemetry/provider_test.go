package telemetry_test

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-orchestrator/internal/infrastructure/observability/telemetry"
	"github.com/Zhima-Mochi/minishop-orchestrator/internal/observability"
	"github.com/stretchr/testify/assert"
)

type countingCounter struct {
	observability.Counter
	total float64
}

func (c *countingCounter) Add(d float64, _ ...observability.Label) { c.total += d }

func TestNewResolvesRegisteredInstruments(t *testing.T) {
	c := &countingCounter{Counter: observability.NopCounter()}
	tel := telemetry.New(nil, nil,
		map[observability.MetricKey]observability.Counter{observability.MUsecaseRequests: c},
		nil,
	)

	tel.Metrics().Counter(observability.MUsecaseRequests).Add(2)
	tel.Metrics().Counter(observability.MSagaStageAborts).Add(1)

	assert.Equal(t, 2.0, c.total)
	assert.NotNil(t, tel.Tracer())
	assert.NotNil(t, tel.Logger())
	assert.NotNil(t, tel.Metrics().Histogram(observability.MUsecaseDuration))
}
