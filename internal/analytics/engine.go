package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radiusdt/campaign-dashboard/internal/models"
	"github.com/radiusdt/campaign-dashboard/internal/storage"
)

// ComputedMetrics is the metric bundle for one window and filter set.
// Ratios with a zero denominator are 0.
type ComputedMetrics struct {
	// Volume metrics
	Impressions int64 `json:"impressions"`
	Clicks      int64 `json:"clicks"`
	Uniques     int64 `json:"uniques"`
	Bounces     int64 `json:"bounces"`
	Conversions int64 `json:"conversions"`

	// Financial metrics
	TotalCost float64 `json:"total_cost"`

	// Rate metrics
	CTR        float64 `json:"ctr"`         // clicks / impressions
	CPC        float64 `json:"cpc"`         // cost / clicks
	CPM        float64 `json:"cpm"`         // cost / impressions * 1000
	BounceRate float64 `json:"bounce_rate"` // bounces / clicks
}

func newComputedMetrics(imps, clicks, uniques, bounces, conversions int64, cost float64) ComputedMetrics {
	return ComputedMetrics{
		Impressions: imps,
		Clicks:      clicks,
		Uniques:     uniques,
		Bounces:     bounces,
		Conversions: conversions,
		TotalCost:   cost,
		CTR:         ratio(float64(clicks), float64(imps)),
		CPC:         ratio(cost, float64(clicks)),
		CPM:         ratio(cost, float64(imps)) * 1000,
		BounceRate:  ratio(float64(bounces), float64(clicks)),
	}
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// validCost reports whether a cost may be aggregated.
func validCost(c float64) bool {
	return c >= 0 && !math.IsInf(c, 0) && !math.IsNaN(c)
}

// BounceMode selects how a bounce is recognised.
type BounceMode string

const (
	BounceByPages    BounceMode = "pages"
	BounceByDuration BounceMode = "duration"
)

// BounceRule defines a bounce: at most MaxPages pages viewed, or a session
// no longer than MaxDuration.
type BounceRule struct {
	Mode        BounceMode
	MaxPages    int
	MaxDuration time.Duration
}

// DefaultBounceRule treats single-page sessions as bounces.
var DefaultBounceRule = BounceRule{Mode: BounceByPages, MaxPages: 1, MaxDuration: 30 * time.Second}

// IsBounce applies the rule to one session. A session with no exit date is
// not a bounce in duration mode, nor one with an unknown page count in pages
// mode.
func (r BounceRule) IsBounce(s models.ServerRecord) bool {
	if r.Mode == BounceByDuration {
		d, ok := s.Duration()
		return ok && d <= r.MaxDuration
	}
	return s.PagesViewed >= 0 && s.PagesViewed <= r.MaxPages
}

// Option configures an Engine.
type Option func(*Engine)

// WithBounceRule overrides the bounce definition.
func WithBounceRule(r BounceRule) Option {
	return func(e *Engine) { e.bounce = r }
}

// Engine computes campaign metrics over an immutable log snapshot.
// Records without a valid timestamp are dropped when the engine is built;
// the rest are kept sorted by time so a window is located by binary search.
type Engine struct {
	clicks      []models.ClickRecord
	impressions []models.ImpressionRecord
	servers     []models.ServerRecord
	profiles    map[string]models.UserProfile

	bounce     BounceRule
	generation uint64
	scope      string
}

// NewEngine indexes the logs currently held by store.
func NewEngine(store storage.LogStore, opts ...Option) *Engine {
	e := &Engine{
		bounce:     DefaultBounceRule,
		generation: store.Generation(),
		profiles:   make(map[string]models.UserProfile),
	}
	for _, opt := range opts {
		opt(e)
	}

	imps := store.ImpressionLogs()
	clicks := store.ClickLogs()
	servers := store.ServerLogs()

	fp := newFingerprint()
	fp.impressions(imps)
	fp.clicks(clicks)
	fp.servers(servers)
	fp.bounceRule(e.bounce)
	e.scope = fp.sum()

	for _, imp := range imps {
		if imp.UserID == "" {
			continue
		}
		if _, ok := e.profiles[imp.UserID]; !ok {
			e.profiles[imp.UserID] = models.ProfileFromImpression(imp)
		}
		if imp.Date.Valid {
			e.impressions = append(e.impressions, imp)
		}
	}
	sort.SliceStable(e.impressions, func(i, j int) bool {
		return e.impressions[i].Date.Time.Before(e.impressions[j].Date.Time)
	})

	for _, c := range clicks {
		if c.Date.Valid {
			e.clicks = append(e.clicks, c)
		}
	}
	sort.SliceStable(e.clicks, func(i, j int) bool {
		return e.clicks[i].Date.Time.Before(e.clicks[j].Date.Time)
	})

	for _, s := range servers {
		if s.EntryDate.Valid {
			e.servers = append(e.servers, s)
		}
	}
	sort.SliceStable(e.servers, func(i, j int) bool {
		return e.servers[i].EntryDate.Time.Before(e.servers[j].EntryDate.Time)
	})

	return e
}

// Generation is the log store generation the engine was built from.
func (e *Engine) Generation() uint64 { return e.generation }

// CacheScope identifies the results this engine produces: a content hash of
// the indexed logs and the bounce rule. Engines built from equal logs with
// equal rules share a scope, in any process.
func (e *Engine) CacheScope() string { return e.scope }

// PassesFilters reports whether userID counts under filters. It is the
// single definition of filter membership shared by every metric and chart.
func (e *Engine) PassesFilters(userID string, filters FilterSet) bool {
	if filters.Empty() {
		return true
	}
	p, ok := e.profiles[userID]
	return filters.Match(p, ok)
}

// passFunc memoizes PassesFilters for the duration of one computation.
func (e *Engine) passFunc(filters FilterSet) func(string) bool {
	if filters.Empty() {
		return func(string) bool { return true }
	}
	memo := make(map[string]bool)
	return func(userID string) bool {
		if v, ok := memo[userID]; ok {
			return v
		}
		v := e.PassesFilters(userID, filters)
		memo[userID] = v
		return v
	}
}

// span returns the half-open index range [lo, hi) of a time-sorted slice
// whose timestamps fall inside window.
func span(n int, at func(int) time.Time, window models.TimeWindow) (int, int) {
	lo := sort.Search(n, func(i int) bool { return !at(i).Before(window.Start) })
	hi := sort.Search(n, func(i int) bool { return at(i).After(window.End) })
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func (e *Engine) clickSpan(window models.TimeWindow) []models.ClickRecord {
	lo, hi := span(len(e.clicks), func(i int) time.Time { return e.clicks[i].Date.Time }, window)
	return e.clicks[lo:hi]
}

func (e *Engine) impressionSpan(window models.TimeWindow) []models.ImpressionRecord {
	lo, hi := span(len(e.impressions), func(i int) time.Time { return e.impressions[i].Date.Time }, window)
	return e.impressions[lo:hi]
}

func (e *Engine) serverSpan(window models.TimeWindow) []models.ServerRecord {
	lo, hi := span(len(e.servers), func(i int) time.Time { return e.servers[i].EntryDate.Time }, window)
	return e.servers[lo:hi]
}

// Compute returns the metric bundle for window restricted to users passing
// filters. Uniques counts distinct users among the included clicks. Clicks
// with a negative or non-finite cost still count as clicks but add nothing
// to cost.
func (e *Engine) Compute(window models.TimeWindow, filters FilterSet) (ComputedMetrics, error) {
	if err := window.Validate(); err != nil {
		return ComputedMetrics{}, err
	}
	passes := e.passFunc(filters)

	var imps int64
	for _, imp := range e.impressionSpan(window) {
		if passes(imp.UserID) {
			imps++
		}
	}

	var clicks int64
	cost := decimal.Zero
	users := make(map[string]struct{})
	for _, c := range e.clickSpan(window) {
		if !passes(c.UserID) {
			continue
		}
		clicks++
		users[c.UserID] = struct{}{}
		if validCost(c.ClickCost) {
			cost = cost.Add(decimal.NewFromFloat(c.ClickCost))
		}
	}

	var bounces, conversions int64
	for _, s := range e.serverSpan(window) {
		if !passes(s.UserID) {
			continue
		}
		if s.Conversion {
			conversions++
		}
		if e.bounce.IsBounce(s) {
			bounces++
		}
	}

	total, _ := cost.Float64()
	return newComputedMetrics(imps, clicks, int64(len(users)), bounces, conversions, total), nil
}

// ClickCosts returns the valid click costs in window for users passing
// filters, in time order.
func (e *Engine) ClickCosts(window models.TimeWindow, filters FilterSet) ([]float64, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	passes := e.passFunc(filters)

	var costs []float64
	for _, c := range e.clickSpan(window) {
		if validCost(c.ClickCost) && passes(c.UserID) {
			costs = append(costs, c.ClickCost)
		}
	}
	return costs, nil
}

// Extent returns the smallest window holding every dated record.
// ok is false when the engine has no dated records.
func (e *Engine) Extent() (w models.TimeWindow, ok bool) {
	widen := func(t time.Time) {
		if !ok {
			w, ok = models.TimeWindow{Start: t, End: t}, true
			return
		}
		if t.Before(w.Start) {
			w.Start = t
		}
		if t.After(w.End) {
			w.End = t
		}
	}

	if n := len(e.impressions); n > 0 {
		widen(e.impressions[0].Date.Time)
		widen(e.impressions[n-1].Date.Time)
	}
	if n := len(e.clicks); n > 0 {
		widen(e.clicks[0].Date.Time)
		widen(e.clicks[n-1].Date.Time)
	}
	if n := len(e.servers); n > 0 {
		widen(e.servers[0].EntryDate.Time)
		widen(e.servers[n-1].EntryDate.Time)
	}
	return w, ok
}
