package geo

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/oschwald/maxminddb-golang"
	"go.uber.org/zap"

	"github.com/radiusdt/campaign-dashboard/internal/metrics"
	"github.com/radiusdt/campaign-dashboard/internal/models"
)

// ErrInvalidIP is returned for addresses that cannot be parsed.
var ErrInvalidIP = errors.New("invalid IP address")

// Resolver maps an IP address to an ISO country code.
type Resolver interface {
	Country(ip string) (string, error)
}

// countryRecord is the subset of a GeoLite2 Country/City record we decode.
type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// MaxMindResolver implements Resolver using a MaxMind GeoLite2 database.
type MaxMindResolver struct {
	reader *maxminddb.Reader
}

// NewMaxMindResolver opens the database at dbPath.
func NewMaxMindResolver(dbPath string) (*MaxMindResolver, error) {
	reader, err := maxminddb.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	return &MaxMindResolver{reader: reader}, nil
}

// Country returns the ISO code for ip, or "" when the database has no entry.
func (m *MaxMindResolver) Country(ip string) (string, error) {
	parsedIP := net.ParseIP(strings.TrimSpace(ip))
	if parsedIP == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidIP, ip)
	}

	var rec countryRecord
	if err := m.reader.Lookup(parsedIP, &rec); err != nil {
		return "", fmt.Errorf("failed to look up %s: %w", ip, err)
	}
	return rec.Country.ISOCode, nil
}

// Close closes the GeoIP database.
func (m *MaxMindResolver) Close() error {
	if m.reader != nil {
		return m.reader.Close()
	}
	return nil
}

// Enrich returns a copy of imps with Country filled from the impression IP.
// Records that already carry a country, or have no IP, are left untouched.
// Lookup failures are logged once per address and otherwise ignored.
func Enrich(r Resolver, imps []models.ImpressionRecord, m *metrics.Metrics, logger *zap.Logger) []models.ImpressionRecord {
	out := make([]models.ImpressionRecord, len(imps))
	copy(out, imps)

	seen := make(map[string]string)
	resolved, failed := 0, 0

	for i := range out {
		imp := &out[i]
		if imp.Country != "" || imp.IP == "" {
			continue
		}

		start := time.Now()
		country, hit := seen[imp.IP]
		if !hit {
			var err error
			country, err = r.Country(imp.IP)
			if err != nil {
				failed++
				logger.Debug("geo lookup failed", zap.String("ip", imp.IP), zap.Error(err))
			}
			seen[imp.IP] = country
		}
		if m != nil {
			m.RecordGeoLookup(hit, time.Since(start))
		}

		if country != "" {
			imp.Country = country
			resolved++
		}
	}

	logger.Info("impressions enriched with country",
		zap.Int("resolved", resolved),
		zap.Int("failed_lookups", failed),
		zap.Int("distinct_ips", len(seen)),
	)
	return out
}
