package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange is returned for a window whose start is after its end.
var ErrInvalidRange = errors.New("invalid time range")

// TimeWindow is the closed interval [Start, End].
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeWindow builds a validated window.
func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	w := TimeWindow{Start: start, End: end}
	if err := w.Validate(); err != nil {
		return TimeWindow{}, err
	}
	return w, nil
}

// Validate checks that Start <= End.
func (w TimeWindow) Validate() error {
	if w.Start.After(w.End) {
		return fmt.Errorf("%w: start %s is after end %s",
			ErrInvalidRange, w.Start.Format(DateLayout), w.End.Format(DateLayout))
	}
	return nil
}

// Key is a canonical representation used for cache keys.
func (w TimeWindow) Key() string {
	return fmt.Sprintf("%d-%d", w.Start.UnixNano(), w.End.UnixNano())
}
