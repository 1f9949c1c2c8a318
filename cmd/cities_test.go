package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matlycreative/seo-prospects/internal/config"
	"github.com/matlycreative/seo-prospects/internal/pipeline"
)

func TestFilterCityPoolWhitelist(t *testing.T) {
	pool := filterCityPool(config.CitiesConfig{
		CountryWhitelist: []string{"switzerland", " Norway "},
	})
	require.NotEmpty(t, pool)
	for _, c := range pool {
		assert.Contains(t, []string{"Switzerland", "Norway"}, c.Country)
	}
	assert.Len(t, pool, 6)
}

func TestFilterCityPoolForce(t *testing.T) {
	pool := filterCityPool(config.CitiesConfig{
		ForceCity:    "zurich",
		ForceCountry: "Switzerland",
	})
	require.Len(t, pool, 1)
	assert.Equal(t, "Zurich", pool[0].Name)
}

func TestFilterCityPoolOverConstrainedFallsBack(t *testing.T) {
	pool := filterCityPool(config.CitiesConfig{
		ForceCity:    "Zurich",
		ForceCountry: "France",
	})
	assert.Equal(t, cityPool, pool, "impossible filter reverts to the full pool")
}

func TestRotationOrderWraps(t *testing.T) {
	pool := []pipeline.City{
		{Name: "A"}, {Name: "B"}, {Name: "C"},
	}
	out := rotationOrder(pool, 2, 3)
	require.Len(t, out, 3)
	assert.Equal(t, "C", out[0].Name)
	assert.Equal(t, "A", out[1].Name)
	assert.Equal(t, "B", out[2].Name)

	out = rotationOrder(pool, 0, 10)
	assert.Len(t, out, 3, "hops capped at pool size")
}

func TestSelectCitiesHops(t *testing.T) {
	cities := selectCities(config.CitiesConfig{Mode: "rotate", Hops: 4})
	assert.Len(t, cities, 4)

	cities = selectCities(config.CitiesConfig{Mode: "random", Hops: 4})
	assert.Len(t, cities, 4)
	for _, c := range cities {
		assert.Contains(t, cityPool, c)
	}
}

func TestSelectCitiesNoHopsVisitsWholePool(t *testing.T) {
	cities := selectCities(config.CitiesConfig{Mode: "rotate", CountryWhitelist: []string{"Denmark"}})
	assert.Len(t, cities, 2)
}
