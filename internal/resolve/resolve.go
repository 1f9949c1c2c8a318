// Package resolve turns candidates into websites through a confidence-ordered
// waterfall of resolver strategies. The first resolver yielding a usable URL
// wins; resolver errors count as misses and never abort the run.
package resolve

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/matlycreative/seo-prospects/internal/model"
	"github.com/matlycreative/seo-prospects/internal/urlutil"
	"github.com/matlycreative/seo-prospects/pkg/nominatim"
)

// Resolver is one strategy in the waterfall. A ("", nil) result means this
// strategy has nothing for the candidate.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, cand model.Candidate, area model.Area) (string, error)
}

// Waterfall tries resolvers in order.
type Waterfall struct {
	resolvers []Resolver
}

// NewWaterfall builds a waterfall over the given resolvers, highest
// confidence first.
func NewWaterfall(resolvers ...Resolver) *Waterfall {
	return &Waterfall{resolvers: resolvers}
}

// Resolve returns the candidate's website, normalized, or "" when every
// resolver misses. The winning resolver's counter is bumped.
func (w *Waterfall) Resolve(ctx context.Context, cand model.Candidate, area model.Area, stats *model.Stats) string {
	for _, r := range w.resolvers {
		raw, err := r.Resolve(ctx, cand, area)
		if err != nil {
			zap.L().Debug("resolver failed",
				zap.String("resolver", r.Name()),
				zap.String("candidate", cand.Name),
				zap.Error(err))
			continue
		}
		if website := urlutil.Normalize(raw); website != "" {
			bump(stats, r.Name())
			return website
		}
	}
	return ""
}

func bump(stats *model.Stats, resolver string) {
	switch resolver {
	case "direct":
		stats.WebsiteDirect++
	case "wikidata":
		stats.WebsiteWikidata++
	case "search":
		stats.WebsiteSearch++
	case "name_match":
		stats.WebsiteNameMatch++
	case "places":
		stats.WebsitePlaces++
	}
}

type direct struct{}

// Direct resolves from the candidate's own website hint.
func Direct() Resolver { return direct{} }

func (direct) Name() string { return "direct" }

func (direct) Resolve(ctx context.Context, cand model.Candidate, area model.Area) (string, error) {
	return cand.Website, nil
}

// WebsiteByEntity is the knowledge-graph lookup dependency.
type WebsiteByEntity interface {
	OfficialWebsite(ctx context.Context, qid string) (string, error)
}

type knowledgeGraph struct {
	client WebsiteByEntity
}

// KnowledgeGraph resolves via the candidate's knowledge-graph entity id.
func KnowledgeGraph(client WebsiteByEntity) Resolver {
	return knowledgeGraph{client: client}
}

func (knowledgeGraph) Name() string { return "wikidata" }

func (r knowledgeGraph) Resolve(ctx context.Context, cand model.Candidate, area model.Area) (string, error) {
	if cand.Wikidata == "" {
		return "", nil
	}
	return r.client.OfficialWebsite(ctx, cand.Wikidata)
}

// PlaceSearcher is the free-text search dependency.
type PlaceSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]nominatim.Place, error)
}

type search struct {
	client PlaceSearcher
	limit  int
}

// Search resolves via a free-text place search on "name, city, country",
// taking the first hit that carries a website tag.
func Search(client PlaceSearcher, limit int) Resolver {
	return search{client: client, limit: limit}
}

func (search) Name() string { return "search" }

func (r search) Resolve(ctx context.Context, cand model.Candidate, area model.Area) (string, error) {
	query := strings.Trim(cand.Name+", "+area.City+", "+area.Country, ", ")
	places, err := r.client.Search(ctx, query, r.limit)
	if err != nil {
		return "", err
	}
	for _, p := range places {
		if w := p.Website(); w != "" {
			return w, nil
		}
	}
	return "", nil
}

// WebsiteFinder is the commercial places dependency.
type WebsiteFinder interface {
	FindWebsite(ctx context.Context, name string, lat, lon float64) (string, error)
}

type places struct {
	client WebsiteFinder
}

// Places resolves via the commercial places service. Register it only when
// a credential is configured.
func Places(client WebsiteFinder) Resolver {
	return places{client: client}
}

func (places) Name() string { return "places" }

func (r places) Resolve(ctx context.Context, cand model.Candidate, area model.Area) (string, error) {
	if cand.Lat == nil || cand.Lon == nil {
		return "", nil
	}
	return r.client.FindWebsite(ctx, cand.Name, *cand.Lat, *cand.Lon)
}
