package dashboard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/radiusdt/campaign-dashboard/internal/analytics"
	"github.com/radiusdt/campaign-dashboard/internal/models"
)

// ErrInvalidDate is returned for a start or end that cannot be parsed.
var ErrInvalidDate = errors.New("invalid date")

const dateOnlyLayout = "2006-01-02"

// Query selects what a chart or summary is computed over.
type Query struct {
	Window      models.TimeWindow
	Granularity analytics.Granularity
	Filters     analytics.FilterSet
}

// ParseBound parses a window bound in "2006-01-02 15:04:05" or "2006-01-02"
// form. A date-only end bound covers the whole day.
func ParseBound(s string, end bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(models.DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnlyLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	if end {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t, nil
}

// ParseWindow parses both bounds and validates the resulting window.
// An empty bound falls back to the matching bound of fallback.
func ParseWindow(start, end string, fallback models.TimeWindow) (models.TimeWindow, error) {
	w := fallback

	if strings.TrimSpace(start) != "" {
		t, err := ParseBound(start, false)
		if err != nil {
			return models.TimeWindow{}, err
		}
		w.Start = t
	}
	if strings.TrimSpace(end) != "" {
		t, err := ParseBound(end, true)
		if err != nil {
			return models.TimeWindow{}, err
		}
		w.End = t
	}

	if err := w.Validate(); err != nil {
		return models.TimeWindow{}, err
	}
	return w, nil
}
