package analytics

import (
	"errors"

	"github.com/radiusdt/campaign-dashboard/internal/models"
)

var (
	// ErrInvalidRange is returned for start > end or a step that cannot advance.
	ErrInvalidRange = models.ErrInvalidRange

	ErrInvalidBinCount    = errors.New("bin count must be at least 1")
	ErrUnknownGranularity = errors.New("unknown granularity")
	ErrUnknownMetric      = errors.New("unknown metric")
	ErrUnknownAttribute   = errors.New("unknown filter attribute")
	ErrInvalidFilter      = errors.New("invalid filter")
)
