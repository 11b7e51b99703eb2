package analytics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/campaign-dashboard/internal/models"
)

func TestEngine_Series(t *testing.T) {
	e := newTestEngine(denseSnapshot())
	w := window(t, "2015-01-01 00:00:00", "2015-01-03 23:59:59")

	points, err := e.Series(w, Daily, FilterSet{}, MetricClicks)
	require.NoError(t, err)
	require.Len(t, points, 3)

	whole, err := e.Compute(w, FilterSet{})
	require.NoError(t, err)

	var sum float64
	for _, p := range points {
		sum += p.Value
	}
	assert.Equal(t, float64(whole.Clicks), sum)
	assert.Equal(t, "2015-01-01", points[0].Label)
}

func TestEngine_Series_UnknownMetric(t *testing.T) {
	e := newTestEngine(denseSnapshot())
	w := window(t, "2015-01-01 00:00:00", "2015-01-01 23:59:59")

	_, err := e.Series(w, Daily, FilterSet{}, Metric("revenue"))
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestBuildTable_PropagatesComputeError(t *testing.T) {
	w := window(t, "2015-01-01 00:00:00", "2015-01-02 23:59:59")
	boom := errors.New("boom")

	_, err := BuildTable(w, Daily, func(models.TimeWindow) (ComputedMetrics, error) {
		return ComputedMetrics{}, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("Bounce-Rate")
	require.NoError(t, err)
	assert.Equal(t, MetricBounceRate, m)

	for _, metric := range Metrics {
		got, err := ParseMetric(string(metric))
		require.NoError(t, err)
		assert.Equal(t, metric, got)
	}

	_, err = ParseMetric("roas")
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestComputedMetrics_Value(t *testing.T) {
	m := newComputedMetrics(3, 2, 2, 1, 1, 2.0)

	assert.Equal(t, 3.0, m.Value(MetricImpressions))
	assert.Equal(t, 2.0, m.Value(MetricTotalCost))
	assert.Equal(t, 0.5, m.Value(MetricBounceRate))
	assert.Equal(t, 1.0, m.Value(MetricCPC))
	assert.Equal(t, 0.0, m.Value(Metric("unknown")))
}
