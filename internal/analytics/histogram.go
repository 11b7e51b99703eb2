package analytics

import (
	"fmt"
	"math"

	"github.com/radiusdt/campaign-dashboard/internal/models"
)

const (
	// NoDataLabel is the single bin label returned when there is nothing to bin.
	NoDataLabel = "No data available"

	// binEpsilon widens the range so the maximum value falls inside the last bin.
	binEpsilon = 1e-3
	// minBinWidth keeps all-equal datasets from collapsing into one bin.
	minBinWidth = 0.01
	// subCent is the bound below which labels switch to four decimals.
	subCent = 0.01
)

// Bin is one histogram interval [Lower, Upper). Index is the canonical key;
// Label is for display only.
type Bin struct {
	Index int     `json:"index"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Label string  `json:"label"`
	Count int     `json:"count"`
}

// HistogramResult is an ordered list of bins.
type HistogramResult struct {
	Bins []Bin `json:"bins"`
}

// Labels returns bin labels in order.
func (h HistogramResult) Labels() []string {
	labels := make([]string, len(h.Bins))
	for i, b := range h.Bins {
		labels[i] = b.Label
	}
	return labels
}

// Map returns label -> count.
func (h HistogramResult) Map() map[string]int {
	m := make(map[string]int, len(h.Bins))
	for _, b := range h.Bins {
		m[b.Label] += b.Count
	}
	return m
}

// Total returns the sum of all bin counts.
func (h HistogramResult) Total() int {
	var n int
	for _, b := range h.Bins {
		n += b.Count
	}
	return n
}

// NoData reports whether the result is the placeholder for empty input.
func (h HistogramResult) NoData() bool {
	return len(h.Bins) == 1 && h.Bins[0].Label == NoDataLabel
}

func noDataHistogram() HistogramResult {
	return HistogramResult{Bins: []Bin{{Label: NoDataLabel}}}
}

// binLayout is an even-width partition of [min, min+width*count).
type binLayout struct {
	min   float64
	width float64
	count int
}

func newBinLayout(values []float64, binCount int) (binLayout, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if !validCost(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return binLayout{}, false
	}

	hi += binEpsilon
	width := (hi - lo) / float64(binCount)
	if width < minBinWidth {
		width = minBinWidth
	}
	return binLayout{min: lo, width: width, count: binCount}, true
}

func (l binLayout) index(v float64) int {
	i := int(math.Floor((v - l.min) / l.width))
	if i < 0 {
		return 0
	}
	if i > l.count-1 {
		return l.count - 1
	}
	return i
}

// bins pre-initialises every bin with its bounds and label; counting only
// ever increments these, so no stray bins can appear.
func (l binLayout) bins() []Bin {
	bins := make([]Bin, l.count)
	for i := range bins {
		lower := l.min + float64(i)*l.width
		upper := l.min + float64(i+1)*l.width
		bins[i] = Bin{Index: i, Lower: lower, Upper: upper, Label: binLabel(lower, upper)}
	}
	return bins
}

func binLabel(lower, upper float64) string {
	if lower < subCent && upper < subCent {
		return fmt.Sprintf("$%.4f-$%.4f", lower, upper)
	}
	return fmt.Sprintf("$%.2f-$%.2f", lower, upper)
}

func (l binLayout) tally(values []float64) HistogramResult {
	bins := l.bins()
	for _, v := range values {
		if !validCost(v) {
			continue
		}
		bins[l.index(v)].Count++
	}
	return HistogramResult{Bins: bins}
}

// BinValues partitions the observed range of values into binCount equal-width bins
// and counts membership. Negative and non-finite values are ignored. With no
// valid values the result is a single NoDataLabel bin with count 0.
func BinValues(values []float64, binCount int) (HistogramResult, error) {
	if binCount < 1 {
		return HistogramResult{}, fmt.Errorf("%w: got %d", ErrInvalidBinCount, binCount)
	}
	layout, ok := newBinLayout(values, binCount)
	if !ok {
		return noDataHistogram(), nil
	}
	return layout.tally(values), nil
}

// ClickCostHistogram bins the click costs in window. Bin bounds are derived
// from every click in the window and only clicks of users passing filters
// are counted, so each filtered bin count is at most its unfiltered count.
func (e *Engine) ClickCostHistogram(window models.TimeWindow, filters FilterSet, binCount int) (HistogramResult, error) {
	if binCount < 1 {
		return HistogramResult{}, fmt.Errorf("%w: got %d", ErrInvalidBinCount, binCount)
	}
	all, err := e.ClickCosts(window, FilterSet{})
	if err != nil {
		return HistogramResult{}, err
	}
	layout, ok := newBinLayout(all, binCount)
	if !ok {
		return noDataHistogram(), nil
	}
	if filters.Empty() {
		return layout.tally(all), nil
	}

	filtered, err := e.ClickCosts(window, filters)
	if err != nil {
		return HistogramResult{}, err
	}
	return layout.tally(filtered), nil
}
