package main

import (
	"math/rand/v2"
	"strings"

	"github.com/matlycreative/seo-prospects/internal/config"
	"github.com/matlycreative/seo-prospects/internal/pipeline"
)

// cityPool is the built-in rotation of prospecting targets.
var cityPool = []pipeline.City{
	{Name: "Zurich", Country: "Switzerland"}, {Name: "Geneva", Country: "Switzerland"}, {Name: "Basel", Country: "Switzerland"}, {Name: "Lausanne", Country: "Switzerland"},
	{Name: "London", Country: "United Kingdom"}, {Name: "Manchester", Country: "United Kingdom"}, {Name: "Birmingham", Country: "United Kingdom"}, {Name: "Edinburgh", Country: "United Kingdom"},
	{Name: "New York", Country: "United States"}, {Name: "Los Angeles", Country: "United States"}, {Name: "Chicago", Country: "United States"},
	{Name: "Miami", Country: "United States"}, {Name: "San Francisco", Country: "United States"}, {Name: "Dallas", Country: "United States"},
	{Name: "Paris", Country: "France"}, {Name: "Lyon", Country: "France"}, {Name: "Marseille", Country: "France"}, {Name: "Toulouse", Country: "France"},
	{Name: "Berlin", Country: "Germany"}, {Name: "Munich", Country: "Germany"}, {Name: "Hamburg", Country: "Germany"}, {Name: "Frankfurt", Country: "Germany"},
	{Name: "Milan", Country: "Italy"}, {Name: "Rome", Country: "Italy"}, {Name: "Naples", Country: "Italy"}, {Name: "Turin", Country: "Italy"},
	{Name: "Oslo", Country: "Norway"}, {Name: "Bergen", Country: "Norway"},
	{Name: "Copenhagen", Country: "Denmark"}, {Name: "Aarhus", Country: "Denmark"},
	{Name: "Vienna", Country: "Austria"}, {Name: "Salzburg", Country: "Austria"}, {Name: "Graz", Country: "Austria"},
	{Name: "Madrid", Country: "Spain"}, {Name: "Barcelona", Country: "Spain"}, {Name: "Valencia", Country: "Spain"},
	{Name: "Lisbon", Country: "Portugal"}, {Name: "Porto", Country: "Portugal"},
	{Name: "Amsterdam", Country: "Netherlands"}, {Name: "Rotterdam", Country: "Netherlands"}, {Name: "The Hague", Country: "Netherlands"},
	{Name: "Brussels", Country: "Belgium"}, {Name: "Antwerp", Country: "Belgium"}, {Name: "Ghent", Country: "Belgium"},
	{Name: "Luxembourg City", Country: "Luxembourg"},
	{Name: "Zagreb", Country: "Croatia"}, {Name: "Split", Country: "Croatia"}, {Name: "Rijeka", Country: "Croatia"},
	{Name: "Dubai", Country: "United Arab Emirates"},
	{Name: "Jakarta", Country: "Indonesia"}, {Name: "Surabaya", Country: "Indonesia"}, {Name: "Bandung", Country: "Indonesia"}, {Name: "Denpasar", Country: "Indonesia"},
	{Name: "Toronto", Country: "Canada"}, {Name: "Vancouver", Country: "Canada"}, {Name: "Montreal", Country: "Canada"}, {Name: "Calgary", Country: "Canada"}, {Name: "Ottawa", Country: "Canada"},
}

// filterCityPool narrows the pool by the country whitelist and force
// filters. An over-constrained filter falls back to the full pool rather
// than leaving the run with nothing to do.
func filterCityPool(cfg config.CitiesConfig) []pipeline.City {
	pool := cityPool
	if len(cfg.CountryWhitelist) > 0 {
		wl := make(map[string]bool, len(cfg.CountryWhitelist))
		for _, c := range cfg.CountryWhitelist {
			wl[strings.ToLower(strings.TrimSpace(c))] = true
		}
		pool = filterCities(pool, func(c pipeline.City) bool { return wl[strings.ToLower(c.Country)] })
	}
	if cfg.ForceCountry != "" {
		pool = filterCities(pool, func(c pipeline.City) bool {
			return strings.EqualFold(c.Country, cfg.ForceCountry)
		})
	}
	if cfg.ForceCity != "" {
		pool = filterCities(pool, func(c pipeline.City) bool {
			return strings.EqualFold(c.Name, cfg.ForceCity)
		})
	}
	if len(pool) == 0 {
		pool = cityPool
	}
	return pool
}

func filterCities(pool []pipeline.City, keep func(pipeline.City) bool) []pipeline.City {
	var out []pipeline.City
	for _, c := range pool {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// rotationOrder walks the pool from start, wrapping around, for at most
// hops entries.
func rotationOrder(pool []pipeline.City, start, hops int) []pipeline.City {
	if hops > len(pool) {
		hops = len(pool)
	}
	out := make([]pipeline.City, 0, hops)
	for i := 0; i < hops; i++ {
		out = append(out, pool[(start+i)%len(pool)])
	}
	return out
}

// selectCities builds the visit order for one run. "random" shuffles the
// filtered pool; anything else rotates from a random start so repeated runs
// spread across the pool.
func selectCities(cfg config.CitiesConfig) []pipeline.City {
	pool := filterCityPool(cfg)
	hops := cfg.Hops
	if hops <= 0 {
		hops = len(pool)
	}

	if strings.EqualFold(cfg.Mode, "random") {
		shuffled := append([]pipeline.City(nil), pool...)
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if hops < len(shuffled) {
			shuffled = shuffled[:hops]
		}
		return shuffled
	}

	return rotationOrder(pool, rand.IntN(len(pool)), hops)
}
