package analytics

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"

	"github.com/radiusdt/campaign-dashboard/internal/models"
)

// fingerprint hashes log content field by field. Strings are
// NUL-terminated so adjacent fields cannot run into each other.
type fingerprint struct {
	d   *xxhash.Digest
	buf [8]byte
}

func newFingerprint() *fingerprint {
	return &fingerprint{d: xxhash.New()}
}

func (f *fingerprint) str(s string) {
	_, _ = f.d.WriteString(s)
	_, _ = f.d.Write([]byte{0})
}

func (f *fingerprint) u64(v uint64) {
	binary.LittleEndian.PutUint64(f.buf[:], v)
	_, _ = f.d.Write(f.buf[:])
}

func (f *fingerprint) i64(v int64) { f.u64(uint64(v)) }

func (f *fingerprint) float(v float64) { f.u64(math.Float64bits(v)) }

func (f *fingerprint) flag(b bool) {
	if b {
		f.u64(1)
		return
	}
	f.u64(0)
}

func (f *fingerprint) date(d models.LogDate) {
	f.flag(d.Valid)
	if d.Valid {
		f.i64(d.Time.UnixNano())
	}
}

func (f *fingerprint) impressions(imps []models.ImpressionRecord) {
	f.str("impressions")
	f.u64(uint64(len(imps)))
	for _, imp := range imps {
		f.date(imp.Date)
		f.str(imp.UserID)
		f.str(imp.Gender)
		f.str(imp.Age)
		f.str(imp.Income)
		f.str(imp.Context)
		f.float(imp.ImpressionCost)
		f.str(imp.IP)
		f.str(imp.Country)
	}
}

func (f *fingerprint) clicks(clicks []models.ClickRecord) {
	f.str("clicks")
	f.u64(uint64(len(clicks)))
	for _, c := range clicks {
		f.date(c.Date)
		f.str(c.UserID)
		f.float(c.ClickCost)
	}
}

func (f *fingerprint) servers(servers []models.ServerRecord) {
	f.str("servers")
	f.u64(uint64(len(servers)))
	for _, s := range servers {
		f.date(s.EntryDate)
		f.str(s.UserID)
		f.date(s.ExitDate)
		f.i64(int64(s.PagesViewed))
		f.flag(s.Conversion)
	}
}

func (f *fingerprint) bounceRule(r BounceRule) {
	f.str("bounce")
	f.str(string(r.Mode))
	f.i64(int64(r.MaxPages))
	f.i64(int64(r.MaxDuration))
}

func (f *fingerprint) sum() string {
	return fmt.Sprintf("%016x", f.d.Sum64())
}
