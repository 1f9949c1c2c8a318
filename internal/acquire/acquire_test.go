package acquire

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"

	"github.com/matlycreative/seo-prospects/internal/model"
	"github.com/matlycreative/seo-prospects/internal/taxonomy"
	"github.com/matlycreative/seo-prospects/pkg/nominatim"
	"github.com/matlycreative/seo-prospects/pkg/overpass"
)

type fakeSpatial struct {
	byRadius map[int][]overpass.Element
	radii    []int
	err      error
}

func (f *fakeSpatial) TagQuery(ctx context.Context, lat, lon float64, radiusM int, filters []overpass.TagFilter) ([]overpass.Element, error) {
	f.radii = append(f.radii, radiusM)
	if f.err != nil {
		return nil, f.err
	}
	return f.byRadius[radiusM], nil
}

type fakePOI struct {
	places  []nominatim.Place
	queries []string
	err     error
}

func (f *fakePOI) SearchBounded(ctx context.Context, query string, bounds *geom.Bounds, limit int) ([]nominatim.Place, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.places, nil
}

func fl(v float64) *float64 { return &v }

func testArea() model.Area {
	b := geom.NewBounds(geom.XY)
	b.Set(8.45, 47.32, 8.63, 47.43)
	return model.Area{City: "Zurich", Country: "Switzerland", Bounds: b}
}

func newTestAcquirer(t *testing.T, spatial SpatialSource, poi POISource, cfg Config) *Acquirer {
	t.Helper()
	tax, err := taxonomy.Load()
	require.NoError(t, err)
	a := New(spatial, poi, tax, cfg)
	a.shuffle = func(n int, swap func(i, j int)) {}
	return a
}

func TestCandidatesSpatial(t *testing.T) {
	spatial := &fakeSpatial{byRadius: map[int][]overpass.Element{
		2500: {
			{Tags: map[string]string{"name": "Ace Plumbing", "website": "ace.co", "wikidata": "Q1"}, Lat: fl(47.37), Lon: fl(8.54)},
			{Tags: map[string]string{"name": "ace plumbing", "website": "https://ace.co/about"}},
			{Tags: map[string]string{"website": "https://unnamed.co"}},
			{Tags: map[string]string{"name": "Best Dental"}},
		},
	}}
	a := newTestAcquirer(t, spatial, nil, Config{SpatialEnabled: true, RadiusM: 2500})

	var stats model.Stats
	cands := a.Candidates(context.Background(), testArea(), &stats)

	require.Len(t, cands, 2, "same name+domain collapses, unnamed dropped")
	assert.Equal(t, "Ace Plumbing", cands[0].Name)
	assert.Equal(t, "https://ace.co", cands[0].Website, "schemeless hints get https")
	assert.Equal(t, "Q1", cands[0].Wikidata)
	assert.Equal(t, "Best Dental", cands[1].Name)

	assert.Equal(t, []int{2500}, spatial.radii)
	assert.Equal(t, 2, stats.CandidatesOverpass)
	assert.Equal(t, 2, stats.Candidates)
}

func TestCandidatesRadiusLadder(t *testing.T) {
	spatial := &fakeSpatial{byRadius: map[int][]overpass.Element{
		833: {{Tags: map[string]string{"name": "Found Late"}}},
	}}
	a := newTestAcquirer(t, spatial, nil, Config{SpatialEnabled: true, RadiusM: 2500})

	var stats model.Stats
	cands := a.Candidates(context.Background(), testArea(), &stats)
	require.Len(t, cands, 1)
	assert.Equal(t, []int{2500, 1250, 833}, spatial.radii)
}

func TestCandidatesRadiusLadderFloors(t *testing.T) {
	spatial := &fakeSpatial{}
	a := newTestAcquirer(t, spatial, nil, Config{SpatialEnabled: true, RadiusM: 900})

	var stats model.Stats
	a.Candidates(context.Background(), testArea(), &stats)
	assert.Equal(t, []int{900, 800, 500}, spatial.radii)
}

func TestCandidatesPOIFallback(t *testing.T) {
	spatial := &fakeSpatial{err: errors.New("overpass down")}
	poi := &fakePOI{places: []nominatim.Place{
		{Name: "Acme Immo", Class: "office", Type: "estate_agent",
			ExtraTags: map[string]string{"website": "https://acme-immo.ch"}, Lat: fl(47.37), Lon: fl(8.54)},
		{Name: "Some House", Class: "place", Type: "house"},
		{Name: "Bad Class", Class: "boundary", Type: "administrative"},
		{Name: "No Class OK", ExtraTags: map[string]string{}},
	}}
	a := newTestAcquirer(t, spatial, poi, Config{
		SpatialEnabled: true, POIEnabled: true, RadiusM: 2500,
		POIQueriesPerCity: 1, POILimit: 60,
	})

	var stats model.Stats
	cands := a.Candidates(context.Background(), testArea(), &stats)

	require.Len(t, cands, 2)
	assert.Equal(t, "Acme Immo", cands[0].Name)
	assert.Equal(t, "No Class OK", cands[1].Name)
	assert.Equal(t, 3, len(spatial.radii), "whole ladder tried before fallback")
	require.Len(t, poi.queries, 1)
	assert.Contains(t, poi.queries[0], "Zurich Switzerland")
	assert.Equal(t, 0, stats.CandidatesOverpass)
	assert.Equal(t, 2, stats.CandidatesPOI)
}

func TestCandidatesPOIDedupAcrossQueries(t *testing.T) {
	poi := &fakePOI{places: []nominatim.Place{
		{Name: "Acme Immo", Class: "office", ExtraTags: map[string]string{"website": "https://acme-immo.ch"}},
	}}
	a := newTestAcquirer(t, nil, poi, Config{POIEnabled: true, POIQueriesPerCity: 3, POILimit: 10})

	var stats model.Stats
	cands := a.Candidates(context.Background(), testArea(), &stats)
	require.Len(t, poi.queries, 3)
	assert.Len(t, cands, 1, "identical hit from every query collapses")
}

func TestCandidatesNeverFails(t *testing.T) {
	spatial := &fakeSpatial{err: errors.New("down")}
	poi := &fakePOI{err: errors.New("also down")}
	a := newTestAcquirer(t, spatial, poi, Config{
		SpatialEnabled: true, POIEnabled: true, RadiusM: 2500, POIQueriesPerCity: 2, POILimit: 10,
	})

	var stats model.Stats
	cands := a.Candidates(context.Background(), testArea(), &stats)
	assert.Empty(t, cands)
	assert.Equal(t, 0, stats.Candidates)
}
