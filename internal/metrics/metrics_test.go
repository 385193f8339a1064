package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(LookupRequests.WithLabelValues("test", "hit"))
	LookupRequests.WithLabelValues("test", "hit").Inc()
	assert.InDelta(t, before+1, testutil.ToFloat64(LookupRequests.WithLabelValues("test", "hit")), 0.0001)
}

func TestGaugeSet(t *testing.T) {
	EnrichmentQueueDepth.Set(4)
	assert.InDelta(t, 4, testutil.ToFloat64(EnrichmentQueueDepth), 0.0001)
}
