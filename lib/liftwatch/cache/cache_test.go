package cache

import (
	"testing"
	"time"

	"liftwatch/lib/liftwatch/extract"

	"github.com/stretchr/testify/require"
)

func TestInitialValueIsEmptyNotNil(t *testing.T) {
	c := New()

	got := c.Get()
	require.NotNil(t, got)
	require.Empty(t, got)

	_, ok := c.Age(time.Now())
	require.False(t, ok)
}

func TestSetOverwritesWholesale(t *testing.T) {
	c := New()

	first := extract.StatusMap{"Lookout": "open", "Cloudspin": "hold"}
	c.Set(first)
	require.Equal(t, first, c.Get())

	// no merge: a lift missing from the new report is gone
	second := extract.StatusMap{"Lookout": "closed"}
	c.Set(second)
	require.Equal(t, second, c.Get())
}

func TestAgeAdvancesFromSet(t *testing.T) {
	c := New()
	c.Set(extract.StatusMap{"Lookout": "open"})

	age, ok := c.Age(time.Now().Add(time.Hour))
	require.True(t, ok)
	require.GreaterOrEqual(t, age, 59*time.Minute)
}
