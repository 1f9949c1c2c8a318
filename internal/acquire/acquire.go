// Package acquire produces business candidates for one geographic area.
// Two sources feed it: a tag-based spatial query around the area center,
// and a free-text POI search bounded to the area box when the spatial
// source comes up empty. Acquisition never fails a run: source errors
// degrade to an empty candidate list.
package acquire

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/matlycreative/seo-prospects/internal/model"
	"github.com/matlycreative/seo-prospects/internal/taxonomy"
	"github.com/matlycreative/seo-prospects/internal/urlutil"
	"github.com/matlycreative/seo-prospects/pkg/nominatim"
	"github.com/matlycreative/seo-prospects/pkg/overpass"
)

// SpatialSource is the tag-query side of the geodata service.
type SpatialSource interface {
	TagQuery(ctx context.Context, lat, lon float64, radiusM int, filters []overpass.TagFilter) ([]overpass.Element, error)
}

// POISource is the bounded free-text search side.
type POISource interface {
	SearchBounded(ctx context.Context, query string, bounds *geom.Bounds, limit int) ([]nominatim.Place, error)
}

// Config tunes acquisition per run.
type Config struct {
	SpatialEnabled    bool
	POIEnabled        bool
	RadiusM           int
	POIQueriesPerCity int
	POILimit          int
}

// Acquirer gathers candidates for areas.
type Acquirer struct {
	spatial SpatialSource
	poi     POISource
	tax     *taxonomy.Taxonomy
	cfg     Config

	shuffle func(n int, swap func(i, j int))
}

// New creates an Acquirer. Either source may be nil when its enable flag
// is off.
func New(spatial SpatialSource, poi POISource, tax *taxonomy.Taxonomy, cfg Config) *Acquirer {
	return &Acquirer{
		spatial: spatial,
		poi:     poi,
		tax:     tax,
		cfg:     cfg,
		shuffle: rand.Shuffle,
	}
}

// Candidates returns the acquisition result for one area, in randomized
// order. The spatial source is tried over a shrinking radius ladder; the
// POI fallback runs only when the ladder yields nothing.
func (a *Acquirer) Candidates(ctx context.Context, area model.Area, stats *model.Stats) []model.Candidate {
	var cands []model.Candidate

	if a.cfg.SpatialEnabled && a.spatial != nil {
		lat, lon := area.Center()
		for _, radius := range []int{a.cfg.RadiusM, max(800, a.cfg.RadiusM/2), max(500, a.cfg.RadiusM/3)} {
			cands = a.fromSpatial(ctx, lat, lon, radius)
			if len(cands) > 0 {
				break
			}
		}
		stats.CandidatesOverpass += len(cands)
	}

	if len(cands) == 0 && a.cfg.POIEnabled && a.poi != nil {
		cands = a.fromPOI(ctx, area)
		stats.CandidatesPOI += len(cands)
	}

	stats.Candidates += len(cands)
	return cands
}

func dedupKey(name, website string, lat, lon *float64) string {
	suffix := urlutil.RegistrableDomain(website)
	if suffix == "" && lat != nil && lon != nil {
		suffix = fmt.Sprintf("%v,%v", *lat, *lon)
	}
	return strings.ToLower(name) + "|" + suffix
}

func (a *Acquirer) fromSpatial(ctx context.Context, lat, lon float64, radiusM int) []model.Candidate {
	filters := make([]overpass.TagFilter, 0, len(a.tax.TagFilters))
	for _, f := range a.tax.TagFilters {
		filters = append(filters, overpass.TagFilter{Key: f.Key, Value: f.Value})
	}

	elements, err := a.spatial.TagQuery(ctx, lat, lon, radiusM, filters)
	if err != nil {
		zap.L().Warn("spatial candidate query failed",
			zap.Int("radius_m", radiusM), zap.Error(err))
		return nil
	}

	seen := map[string]struct{}{}
	var out []model.Candidate
	for _, el := range elements {
		name := el.Name()
		if name == "" {
			continue
		}
		website := urlutil.Normalize(el.Website())
		key := strings.ToLower(name) + "|" + urlutil.RegistrableDomain(website)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, model.Candidate{
			Name:     name,
			Website:  website,
			Wikidata: strings.TrimSpace(el.Tags["wikidata"]),
			Lat:      el.Lat,
			Lon:      el.Lon,
		})
	}

	a.shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func (a *Acquirer) fromPOI(ctx context.Context, area model.Area) []model.Candidate {
	keywords := a.tax.KeywordsFor(area.Country)
	a.shuffle(len(keywords), func(i, j int) { keywords[i], keywords[j] = keywords[j], keywords[i] })
	keywords = keywords[:min(max(1, a.cfg.POIQueriesPerCity), len(keywords))]

	seen := map[string]struct{}{}
	var out []model.Candidate
	for _, kw := range keywords {
		query := kw + " " + area.City + " " + area.Country
		places, err := a.poi.SearchBounded(ctx, query, area.Bounds, a.cfg.POILimit)
		if err != nil {
			zap.L().Warn("poi candidate query failed",
				zap.String("keyword", kw), zap.Error(err))
			continue
		}

		for _, p := range places {
			if p.Name == "" {
				continue
			}
			if !a.tax.ClassAllowed(p.Class) || a.tax.TypeIsNoise(p.Type) {
				continue
			}
			website := urlutil.Normalize(p.Website())
			key := dedupKey(p.Name, website, p.Lat, p.Lon)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, model.Candidate{
				Name:     p.Name,
				Website:  website,
				Wikidata: p.Wikidata(),
				Lat:      p.Lat,
				Lon:      p.Lon,
			})
		}
	}

	a.shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
