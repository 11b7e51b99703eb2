package geo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radiusdt/campaign-dashboard/internal/models"
)

type fakeResolver struct {
	countries map[string]string
	calls     map[string]int
}

func (f *fakeResolver) Country(ip string) (string, error) {
	f.calls[ip]++
	c, ok := f.countries[ip]
	if !ok {
		return "", errors.New("not found")
	}
	return c, nil
}

func TestEnrich(t *testing.T) {
	r := &fakeResolver{
		countries: map[string]string{"1.1.1.1": "AU", "8.8.8.8": "US"},
		calls:     map[string]int{},
	}
	imps := []models.ImpressionRecord{
		{UserID: "u1", IP: "1.1.1.1"},
		{UserID: "u2", IP: "8.8.8.8"},
		{UserID: "u3", IP: "1.1.1.1"},
		{UserID: "u4", IP: "10.0.0.1"},
		{UserID: "u5", IP: "8.8.8.8", Country: "GB"},
		{UserID: "u6"},
	}

	out := Enrich(r, imps, nil, zap.NewNop())
	require.Len(t, out, len(imps))

	assert.Equal(t, []string{"AU", "US", "AU", "", "GB", ""},
		[]string{out[0].Country, out[1].Country, out[2].Country, out[3].Country, out[4].Country, out[5].Country})
	assert.Equal(t, 1, r.calls["1.1.1.1"])
	assert.Equal(t, 1, r.calls["10.0.0.1"])

	// input is not modified
	assert.Empty(t, imps[0].Country)
}

func TestNewMaxMindResolver_MissingFile(t *testing.T) {
	_, err := NewMaxMindResolver(t.TempDir() + "/missing.mmdb")
	assert.Error(t, err)
}

func TestMaxMindResolver_InvalidIP(t *testing.T) {
	r := &MaxMindResolver{}
	_, err := r.Country("not-an-ip")
	assert.ErrorIs(t, err, ErrInvalidIP)
	assert.NoError(t, r.Close())
}
