package metrics

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTallyCountsConcurrently(t *testing.T) {
	tally := NewTally()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tally.ObserveExtraction("fenced_block", true)
			tally.ObserveMatch("exact", true, 1)
		}()
	}
	wg.Wait()
	tally.ObserveExtraction("", false)
	tally.ObserveMatch("", false, 0)

	assert.Equal(t, 50, tally.Extractions()["fenced_block"])
	assert.Equal(t, 50, tally.Matches()["exact"])
	extractFailures, matchFailures := tally.Failures()
	assert.Equal(t, 1, extractFailures)
	assert.Equal(t, 1, matchFailures)
}

func TestPrometheusSink(t *testing.T) {
	registry := prometheus.NewRegistry()
	sink, err := NewPrometheus(registry)
	require.NoError(t, err)

	sink.ObserveExtraction("balanced_scan", true)
	sink.ObserveExtraction("balanced_scan", true)
	sink.ObserveExtraction("", false)
	sink.ObserveMatch("fuzzy_whitespace", true, 0.9)

	assert.Equal(t, float64(2), testutil.ToFloat64(sink.extractions.WithLabelValues("balanced_scan", resultOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.extractions.WithLabelValues("none", resultErr)))
	assert.Equal(t, float64(1), testutil.ToFloat64(sink.matches.WithLabelValues("fuzzy_whitespace", resultOK)))
}

func TestPrometheusReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := NewPrometheus(registry)
	require.NoError(t, err)
	second, err := NewPrometheus(registry)
	require.NoError(t, err)

	first.ObserveExtraction("direct", true)
	second.ObserveExtraction("direct", true)

	assert.Equal(t, float64(2), testutil.ToFloat64(first.extractions.WithLabelValues("direct", resultOK)))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	var p *Prometheus
	assert.NotPanics(t, func() { p.ObserveExtraction("x", true) })
}
