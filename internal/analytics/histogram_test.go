package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/campaign-dashboard/internal/models"
	"github.com/radiusdt/campaign-dashboard/internal/storage"
)

func TestBinValues_Empty(t *testing.T) {
	for _, values := range [][]float64{nil, {}, {-1, math.NaN(), math.Inf(1)}} {
		h, err := BinValues(values, 5)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{NoDataLabel: 0}, h.Map())
		assert.True(t, h.NoData())
	}
}

func TestBinValues_AllEqualValuesClampWidth(t *testing.T) {
	h, err := BinValues([]float64{0.10, 0.10, 0.10, 0.10}, 4)
	require.NoError(t, err)
	require.Len(t, h.Bins, 4)

	assert.Equal(t, []string{"$0.10-$0.11", "$0.11-$0.12", "$0.12-$0.13", "$0.13-$0.14"}, h.Labels())
	for i, b := range h.Bins {
		assert.InDelta(t, 0.01, b.Upper-b.Lower, 1e-12)
		assert.InDelta(t, 0.10+float64(i)*0.01, b.Lower, 1e-12)
	}
	assert.Equal(t, 4, h.Bins[0].Count)
	assert.Equal(t, 0, h.Bins[1].Count+h.Bins[2].Count+h.Bins[3].Count)
}

func TestBinValues_CountsSumToValidValues(t *testing.T) {
	values := []float64{0, 0.01, 0.2, 0.35, 1.5, 2.75, 2.75, 3, 4.999, 5, -2, math.NaN(), 12.5}
	valid := 0
	for _, v := range values {
		if v >= 0 && !math.IsNaN(v) {
			valid++
		}
	}

	for binCount := 1; binCount <= 25; binCount++ {
		h, err := BinValues(values, binCount)
		require.NoError(t, err)
		assert.Len(t, h.Bins, binCount)
		assert.Equal(t, valid, h.Total(), "binCount=%d", binCount)
	}
}

func TestBinValues_MaxFallsInLastBin(t *testing.T) {
	h, err := BinValues([]float64{1, 2, 3, 4, 5}, 4)
	require.NoError(t, err)

	last := h.Bins[len(h.Bins)-1]
	assert.Equal(t, 1, last.Count)
	assert.Less(t, 5.0, last.Upper)
	assert.Equal(t, 2, h.Bins[0].Count)
	assert.Equal(t, 1.0, h.Bins[0].Lower)
}

func TestBinValues_EvenWidths(t *testing.T) {
	h, err := BinValues([]float64{0.2, 9.7, 3.3}, 7)
	require.NoError(t, err)

	width := h.Bins[0].Upper - h.Bins[0].Lower
	for i, b := range h.Bins {
		assert.InDelta(t, width, b.Upper-b.Lower, 1e-9)
		if i > 0 {
			assert.InDelta(t, h.Bins[i-1].Upper, b.Lower, 1e-9)
		}
		assert.Equal(t, i, b.Index)
	}
}

func TestBinValues_InvalidBinCount(t *testing.T) {
	for _, n := range []int{0, -3} {
		_, err := BinValues([]float64{1}, n)
		assert.ErrorIs(t, err, ErrInvalidBinCount)
	}
}

func TestBinLabel(t *testing.T) {
	assert.Equal(t, "$0.0010-$0.0050", binLabel(0.001, 0.005))
	assert.Equal(t, "$0.00-$0.02", binLabel(0.004, 0.02))
	assert.Equal(t, "$1.25-$2.50", binLabel(1.25, 2.5))
}

func TestEngine_ClickCostHistogram(t *testing.T) {
	e := newTestEngine(denseSnapshot())
	w := window(t, "2015-01-01 00:00:00", "2015-01-03 23:59:59")

	all, err := e.ClickCostHistogram(w, FilterSet{}, 6)
	require.NoError(t, err)
	costs, err := e.ClickCosts(w, FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, len(costs), all.Total())

	direct, err := BinValues(costs, 6)
	require.NoError(t, err)
	assert.Equal(t, direct, all)

	female := NewFilterSet(NewAttributeFilter(AttrGender, "Female"))
	filtered, err := e.ClickCostHistogram(w, female, 6)
	require.NoError(t, err)
	require.Len(t, filtered.Bins, len(all.Bins))

	femaleCosts, err := e.ClickCosts(w, female)
	require.NoError(t, err)
	assert.Equal(t, len(femaleCosts), filtered.Total())
	assert.Less(t, filtered.Total(), all.Total())

	for i := range all.Bins {
		assert.Equal(t, all.Bins[i].Label, filtered.Bins[i].Label)
		assert.LessOrEqual(t, filtered.Bins[i].Count, all.Bins[i].Count, all.Bins[i].Label)
	}
}

func TestEngine_ClickCostHistogram_NoData(t *testing.T) {
	e := newTestEngine(storage.Snapshot{})
	w := window(t, "2015-01-01 00:00:00", "2015-01-03 23:59:59")

	h, err := e.ClickCostHistogram(w, FilterSet{}, 10)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"No data available": 0}, h.Map())

	_, err = e.ClickCostHistogram(w, FilterSet{}, 0)
	assert.ErrorIs(t, err, ErrInvalidBinCount)

	_, err = e.ClickCostHistogram(models.TimeWindow{Start: w.End, End: w.Start}, FilterSet{}, 10)
	assert.ErrorIs(t, err, ErrInvalidRange)
}
