package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusdt/campaign-dashboard/internal/models"
)

func TestFilterSet_KeyIsOrderIndependent(t *testing.T) {
	a := NewAttributeFilter(AttrGender, "Male", "Female")
	b := NewAttributeFilter(AttrIncome, "High")

	fs1 := NewFilterSet(a, b)
	fs2 := NewFilterSet(b, NewAttributeFilter(AttrGender, "female", "MALE"), b)

	assert.Equal(t, fs1.Key(), fs2.Key())
	assert.Equal(t, fs1.Hash(), fs2.Hash())
	assert.Equal(t, 2, fs2.Len())
	assert.Equal(t, "gender=female,male;income=high", fs1.Key())
}

func TestFilterSet_DifferentContentDifferentHash(t *testing.T) {
	fs1 := NewFilterSet(NewAttributeFilter(AttrGender, "Male"))
	fs2 := NewFilterSet(NewAttributeFilter(AttrGender, "Female"))

	assert.NotEqual(t, fs1.Hash(), fs2.Hash())
	assert.NotEqual(t, FilterSet{}.Hash(), fs1.Hash())
}

func TestFilterSet_Match(t *testing.T) {
	p := models.UserProfile{UserID: "u1", Gender: "Female", Age: "25-34", Income: "Medium", Context: "News", Country: "GB"}

	assert.True(t, FilterSet{}.Match(p, true))
	assert.True(t, FilterSet{}.Match(models.UserProfile{}, false))

	fs := NewFilterSet(
		NewAttributeFilter(AttrGender, "female"),
		NewAttributeFilter(AttrAge, "25-34", "35-44"),
		NewAttributeFilter(AttrCountry, "gb"),
	)
	assert.True(t, fs.Match(p, true))
	assert.False(t, fs.Match(p, false))

	p.Context = "Blog"
	assert.False(t, NewFilterSet(NewAttributeFilter(AttrContext, "News")).Match(p, true))
	assert.False(t, NewFilterSet(NewAttributeFilter(AttrContext)).Match(p, true))
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("Income=High, Low")
	require.NoError(t, err)
	assert.Equal(t, AttrIncome, f.Attribute)
	assert.Equal(t, []string{"high", "low"}, f.Values)

	_, err = ParseFilter("gender")
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = ParseFilter("gender=")
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = ParseFilter("shoe_size=9")
	assert.ErrorIs(t, err, ErrUnknownAttribute)
}

func TestParseFilterSet(t *testing.T) {
	fs, err := ParseFilterSet([]string{"gender=Male", "", "context=News,Shopping"})
	require.NoError(t, err)
	assert.Equal(t, "context=news,shopping;gender=male", fs.Key())

	empty, err := ParseFilterSet(nil)
	require.NoError(t, err)
	assert.True(t, empty.Empty())
	assert.Equal(t, "none", empty.String())

	_, err = ParseFilterSet([]string{"gender=Male", "bogus"})
	assert.Error(t, err)
}
