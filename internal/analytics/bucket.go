package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/radiusdt/campaign-dashboard/internal/models"
)

// bucketUnit is the resolution of log timestamps; consecutive buckets are
// separated by exactly one unit.
const bucketUnit = time.Second

// DefaultMaxBuckets caps the buckets one window may be split into: a year of
// hourly buckets fits.
const DefaultMaxBuckets = 10000

// Granularity is the step used to split a window into buckets.
type Granularity string

const (
	Hourly Granularity = "hourly"
	Daily  Granularity = "daily"
	Weekly Granularity = "weekly"
)

// Granularities lists the supported granularities, finest first.
var Granularities = []Granularity{Hourly, Daily, Weekly}

// ParseGranularity accepts "hourly", "daily", "weekly" and the short forms
// "hour", "day", "week".
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hourly", "hour", "h":
		return Hourly, nil
	case "daily", "day", "d":
		return Daily, nil
	case "weekly", "week", "w":
		return Weekly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
}

// Step returns the bucket length, or 0 for an unknown granularity.
func (g Granularity) Step() time.Duration {
	switch g {
	case Hourly:
		return time.Hour
	case Daily:
		return 24 * time.Hour
	case Weekly:
		return 7 * 24 * time.Hour
	}
	return 0
}

// labelLayout renders bucket starts so that plain string order is
// chronological order.
func (g Granularity) labelLayout() string {
	if g == Hourly {
		return "2006-01-02 15:04"
	}
	return "2006-01-02"
}

// Bucket is one labelled sub-window.
type Bucket struct {
	Label  string            `json:"label"`
	Window models.TimeWindow `json:"window"`
}

// Bucketize splits window into consecutive buckets of the granularity's step.
// Each bucket is [p, p+step-1s] clamped to window.End, and the next bucket
// starts one second after the previous end, so every instant of the window
// belongs to exactly one bucket. Windows needing more than DefaultMaxBuckets
// buckets are rejected with ErrInvalidRange.
func Bucketize(window models.TimeWindow, g Granularity) ([]Bucket, error) {
	return BucketizeMax(window, g, DefaultMaxBuckets)
}

// BucketizeMax is Bucketize with an explicit bucket cap; maxBuckets <= 0
// means DefaultMaxBuckets.
func BucketizeMax(window models.TimeWindow, g Granularity, maxBuckets int) ([]Bucket, error) {
	step := g.Step()
	if step == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGranularity, g)
	}
	if maxBuckets <= 0 {
		maxBuckets = DefaultMaxBuckets
	}
	n, err := BucketCount(window, g)
	if err != nil {
		return nil, err
	}
	if n > int64(maxBuckets) {
		return nil, fmt.Errorf("%w: %s window needs %d buckets, limit is %d",
			ErrInvalidRange, g, n, maxBuckets)
	}
	return bucketize(window, step, g.labelLayout())
}

// BucketCount returns how many buckets Bucketize would produce for window
// without allocating them.
func BucketCount(window models.TimeWindow, g Granularity) (int64, error) {
	step := g.Step()
	if step == 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownGranularity, g)
	}
	if err := window.Validate(); err != nil {
		return 0, err
	}
	aligned := alignWindow(window)
	if window.Start.Equal(window.End) || aligned.Start.After(aligned.End) {
		return 1, nil
	}
	return int64(aligned.End.Sub(aligned.Start)/step) + 1, nil
}

func bucketize(window models.TimeWindow, step time.Duration, layout string) ([]Bucket, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if step < bucketUnit {
		return nil, fmt.Errorf("%w: step %s cannot advance", ErrInvalidRange, step)
	}

	if window.Start.Equal(window.End) {
		return []Bucket{{Label: window.Start.Format(layout), Window: window}}, nil
	}

	// Log timestamps have whole-second resolution. Aligning the window to
	// whole seconds keeps bucket boundaries from leaving gaps between records.
	aligned := alignWindow(window)
	if aligned.Start.After(aligned.End) {
		return []Bucket{{Label: window.Start.Format(layout), Window: window}}, nil
	}

	var buckets []Bucket
	for p := aligned.Start; !p.After(aligned.End); {
		end := p.Add(step - bucketUnit)
		if end.After(aligned.End) {
			end = aligned.End
		}
		buckets = append(buckets, Bucket{
			Label:  p.Format(layout),
			Window: models.TimeWindow{Start: p, End: end},
		})
		p = end.Add(bucketUnit)
	}

	if len(buckets) == 0 {
		return nil, fmt.Errorf("%w: window produced no buckets", ErrInvalidRange)
	}
	return buckets, nil
}

// alignWindow rounds Start up and End down to whole seconds. Whole-second
// timestamps inside the given window are exactly those inside the result.
func alignWindow(w models.TimeWindow) models.TimeWindow {
	start := w.Start.Truncate(bucketUnit)
	if start.Before(w.Start) {
		start = start.Add(bucketUnit)
	}
	return models.TimeWindow{Start: start, End: w.End.Truncate(bucketUnit)}
}
