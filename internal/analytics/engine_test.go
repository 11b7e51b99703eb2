package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/campaign-dashboard/internal/models"
	"github.com/radiusdt/campaign-dashboard/internal/storage"
)

func ts(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func date(s string) models.LogDate {
	return models.NewLogDate(ts(s))
}

func window(t *testing.T, start, end string) models.TimeWindow {
	t.Helper()
	w, err := models.NewTimeWindow(ts(start), ts(end))
	require.NoError(t, err)
	return w
}

func newTestEngine(snap storage.Snapshot, opts ...Option) *Engine {
	return NewEngine(storage.NewInMemoryLogStore(snap), opts...)
}

// scenarioSnapshot is a single day with 3 impressions, 2 clicks costing
// 0.50 and 1.50, one conversion and no bounces.
func scenarioSnapshot() storage.Snapshot {
	return storage.Snapshot{
		Impressions: []models.ImpressionRecord{
			{Date: date("2015-01-01 09:00:00"), UserID: "u1", Gender: "Male", Age: "25-34", Income: "High", Context: "News"},
			{Date: date("2015-01-01 10:00:00"), UserID: "u2", Gender: "Female", Age: "<25", Income: "Low", Context: "Shopping"},
			{Date: date("2015-01-01 11:00:00"), UserID: "u3", Gender: "Female", Age: "35-44", Income: "Medium", Context: "Blog"},
		},
		Clicks: []models.ClickRecord{
			{Date: date("2015-01-01 09:05:00"), UserID: "u1", ClickCost: 0.50},
			{Date: date("2015-01-01 10:05:00"), UserID: "u2", ClickCost: 1.50},
		},
		Servers: []models.ServerRecord{
			{EntryDate: date("2015-01-01 09:05:01"), UserID: "u1", ExitDate: date("2015-01-01 09:10:00"), PagesViewed: 4, Conversion: true},
			{EntryDate: date("2015-01-01 10:05:01"), UserID: "u2", ExitDate: date("2015-01-01 10:07:00"), PagesViewed: 2},
		},
	}
}

func TestEngine_Compute_SingleDayScenario(t *testing.T) {
	e := newTestEngine(scenarioSnapshot())

	m, err := e.Compute(window(t, "2015-01-01 00:00:00", "2015-01-01 23:59:59"), FilterSet{})
	require.NoError(t, err)

	assert.Equal(t, int64(3), m.Impressions)
	assert.Equal(t, int64(2), m.Clicks)
	assert.Equal(t, int64(2), m.Uniques)
	assert.Equal(t, int64(1), m.Conversions)
	assert.Equal(t, int64(0), m.Bounces)
	assert.Equal(t, 2.0, m.TotalCost)
	assert.InDelta(t, 0.667, m.CTR, 0.001)
	assert.InDelta(t, 1.00, m.CPC, 1e-9)
	assert.InDelta(t, 666.67, m.CPM, 0.01)
	assert.Equal(t, 0.0, m.BounceRate)
}

func TestEngine_Compute_EmptyStore(t *testing.T) {
	e := newTestEngine(storage.Snapshot{})

	m, err := e.Compute(window(t, "2015-01-01 00:00:00", "2015-01-31 23:59:59"), FilterSet{})
	require.NoError(t, err)

	assert.Equal(t, ComputedMetrics{}, m)
	assert.False(t, math.IsNaN(m.CTR))
	assert.False(t, math.IsNaN(m.CPM))
}

func TestEngine_Compute_InvalidRange(t *testing.T) {
	e := newTestEngine(scenarioSnapshot())

	_, err := e.Compute(models.TimeWindow{Start: ts("2015-01-02 00:00:00"), End: ts("2015-01-01 00:00:00")}, FilterSet{})
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestEngine_Compute_InclusiveBounds(t *testing.T) {
	e := newTestEngine(scenarioSnapshot())

	m, err := e.Compute(window(t, "2015-01-01 09:00:00", "2015-01-01 11:00:00"), FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.Impressions)

	m, err = e.Compute(window(t, "2015-01-01 09:00:01", "2015-01-01 10:59:59"), FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Impressions)
}

func TestEngine_Compute_SkipsMissingTimestamps(t *testing.T) {
	snap := scenarioSnapshot()
	snap.Impressions = append(snap.Impressions, models.ImpressionRecord{UserID: "u4", Gender: "Male"})
	snap.Clicks = append(snap.Clicks, models.ClickRecord{Date: models.ParseLogDate("not a date"), UserID: "u4", ClickCost: 3})
	snap.Servers = append(snap.Servers, models.ServerRecord{UserID: "u4", PagesViewed: 1, Conversion: true})
	e := newTestEngine(snap)

	m, err := e.Compute(window(t, "2000-01-01 00:00:00", "2030-01-01 00:00:00"), FilterSet{})
	require.NoError(t, err)

	assert.Equal(t, int64(3), m.Impressions)
	assert.Equal(t, int64(2), m.Clicks)
	assert.Equal(t, int64(1), m.Conversions)
	assert.Equal(t, 2.0, m.TotalCost)
}

func TestEngine_Compute_ExcludesInvalidCosts(t *testing.T) {
	snap := scenarioSnapshot()
	snap.Clicks = append(snap.Clicks,
		models.ClickRecord{Date: date("2015-01-01 12:00:00"), UserID: "u3", ClickCost: -1},
		models.ClickRecord{Date: date("2015-01-01 12:00:01"), UserID: "u3", ClickCost: math.NaN()},
	)
	e := newTestEngine(snap)

	m, err := e.Compute(window(t, "2015-01-01 00:00:00", "2015-01-01 23:59:59"), FilterSet{})
	require.NoError(t, err)

	assert.Equal(t, int64(4), m.Clicks)
	assert.Equal(t, int64(3), m.Uniques)
	assert.Equal(t, 2.0, m.TotalCost)
	assert.Equal(t, 0.5, m.CPC)
}

func TestEngine_Compute_CostIsExactInCents(t *testing.T) {
	snap := storage.Snapshot{}
	for i := 0; i < 10; i++ {
		snap.Clicks = append(snap.Clicks, models.ClickRecord{Date: date("2015-01-01 12:00:00"), UserID: "u", ClickCost: 0.1})
	}
	e := newTestEngine(snap)

	m, err := e.Compute(window(t, "2015-01-01 00:00:00", "2015-01-01 23:59:59"), FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.TotalCost)
}

func TestEngine_Compute_UniquesCountDistinctClickers(t *testing.T) {
	snap := storage.Snapshot{Clicks: []models.ClickRecord{
		{Date: date("2015-01-01 10:00:00"), UserID: "u1", ClickCost: 1},
		{Date: date("2015-01-01 11:00:00"), UserID: "u1", ClickCost: 1},
		{Date: date("2015-01-01 12:00:00"), UserID: "u2", ClickCost: 1},
	}}
	e := newTestEngine(snap)

	m, err := e.Compute(window(t, "2015-01-01 00:00:00", "2015-01-01 23:59:59"), FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.Clicks)
	assert.Equal(t, int64(2), m.Uniques)
}

func TestEngine_Compute_Filters(t *testing.T) {
	e := newTestEngine(scenarioSnapshot())
	w := window(t, "2015-01-01 00:00:00", "2015-01-01 23:59:59")

	all, err := e.Compute(w, FilterSet{})
	require.NoError(t, err)

	female := NewFilterSet(NewAttributeFilter(AttrGender, "female"))
	m, err := e.Compute(w, female)
	require.NoError(t, err)

	assert.Equal(t, int64(2), m.Impressions)
	assert.Equal(t, int64(1), m.Clicks)
	assert.Equal(t, 1.5, m.TotalCost)
	assert.Equal(t, int64(0), m.Conversions)
	assert.LessOrEqual(t, m.Clicks, all.Clicks)

	none := NewFilterSet(
		NewAttributeFilter(AttrGender, "Female"),
		NewAttributeFilter(AttrIncome, "High"),
	)
	m, err = e.Compute(w, none)
	require.NoError(t, err)
	assert.Equal(t, ComputedMetrics{}, m)
}

func TestEngine_Compute_FilteredClicksNeverExceedUnfiltered(t *testing.T) {
	e := newTestEngine(scenarioSnapshot())
	w := window(t, "2015-01-01 00:00:00", "2015-01-01 23:59:59")

	all, err := e.Compute(w, FilterSet{})
	require.NoError(t, err)

	sets := []FilterSet{
		NewFilterSet(NewAttributeFilter(AttrGender, "Male")),
		NewFilterSet(NewAttributeFilter(AttrAge, "<25", "25-34")),
		NewFilterSet(NewAttributeFilter(AttrContext, "News"), NewAttributeFilter(AttrIncome, "High")),
		NewFilterSet(NewAttributeFilter(AttrCountry, "GB")),
	}
	for _, fs := range sets {
		m, err := e.Compute(w, fs)
		require.NoError(t, err)
		assert.LessOrEqual(t, m.Clicks, all.Clicks, fs.Key())
		assert.LessOrEqual(t, m.Impressions, all.Impressions, fs.Key())
	}
}

func TestEngine_PassesFilters(t *testing.T) {
	e := newTestEngine(scenarioSnapshot())
	male := NewFilterSet(NewAttributeFilter(AttrGender, "Male"))

	assert.True(t, e.PassesFilters("u1", male))
	assert.False(t, e.PassesFilters("u2", male))
	assert.False(t, e.PassesFilters("unknown", male))
	assert.True(t, e.PassesFilters("unknown", FilterSet{}))
}

func TestEngine_Compute_Idempotent(t *testing.T) {
	e := newTestEngine(scenarioSnapshot())
	w := window(t, "2015-01-01 00:00:00", "2015-01-01 23:59:59")
	fs := NewFilterSet(NewAttributeFilter(AttrGender, "Female", "Male"))

	first, err := e.Compute(w, fs)
	require.NoError(t, err)
	second, err := e.Compute(w, fs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, math.Float64bits(first.CPM), math.Float64bits(second.CPM))
}

func TestEngine_Compute_Bounces(t *testing.T) {
	snap := storage.Snapshot{
		Clicks: []models.ClickRecord{
			{Date: date("2015-01-01 10:00:00"), UserID: "u1", ClickCost: 1},
			{Date: date("2015-01-01 10:10:00"), UserID: "u2", ClickCost: 1},
		},
		Servers: []models.ServerRecord{
			{EntryDate: date("2015-01-01 10:00:01"), UserID: "u1", ExitDate: date("2015-01-01 10:00:11"), PagesViewed: 3},
			{EntryDate: date("2015-01-01 10:10:01"), UserID: "u2", ExitDate: date("2015-01-01 10:20:00"), PagesViewed: 1},
			{EntryDate: date("2015-01-01 10:30:00"), UserID: "u3", PagesViewed: 1},
		},
	}
	w := window(t, "2015-01-01 00:00:00", "2015-01-01 23:59:59")

	byPages, err := newTestEngine(snap).Compute(w, FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), byPages.Bounces)
	assert.Equal(t, 1.0, byPages.BounceRate)

	rule := BounceRule{Mode: BounceByDuration, MaxDuration: 30 * time.Second}
	byDuration, err := newTestEngine(snap, WithBounceRule(rule)).Compute(w, FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), byDuration.Bounces)
	assert.Equal(t, 0.5, byDuration.BounceRate)
}

func TestBounceRule_UnknownPagesIsNotABounce(t *testing.T) {
	s := models.ServerRecord{EntryDate: date("2015-01-01 10:00:00"), PagesViewed: models.UnknownPages}
	assert.False(t, DefaultBounceRule.IsBounce(s))

	s.PagesViewed = 0
	assert.True(t, DefaultBounceRule.IsBounce(s))
}

func TestEngine_ClickCosts(t *testing.T) {
	e := newTestEngine(scenarioSnapshot())
	w := window(t, "2015-01-01 00:00:00", "2015-01-01 23:59:59")

	costs, err := e.ClickCosts(w, FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1.5}, costs)

	costs, err = e.ClickCosts(w, NewFilterSet(NewAttributeFilter(AttrGender, "Male")))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, costs)
}

func TestEngine_Generation(t *testing.T) {
	store := storage.NewInMemoryLogStore(scenarioSnapshot())
	e := NewEngine(store)
	assert.Equal(t, store.Generation(), e.Generation())

	store.Replace(storage.Snapshot{})
	assert.NotEqual(t, store.Generation(), e.Generation())
}

func TestEngine_Extent(t *testing.T) {
	_, ok := newTestEngine(storage.Snapshot{}).Extent()
	assert.False(t, ok)

	w, ok := newTestEngine(scenarioSnapshot()).Extent()
	require.True(t, ok)
	assert.Equal(t, ts("2015-01-01 09:00:00"), w.Start)
	assert.Equal(t, ts("2015-01-01 11:00:00"), w.End)
}
