package resolve

import (
	"context"
	"math"
	"strings"

	"github.com/matlycreative/seo-prospects/internal/model"
	"github.com/matlycreative/seo-prospects/internal/names"
	"github.com/matlycreative/seo-prospects/internal/urlutil"
	"github.com/matlycreative/seo-prospects/pkg/overpass"
)

// Scoring weights for the fuzzy spatial matcher. An exact normalized-name
// match dominates; substring containment ranks above bare token overlap;
// proximity decays linearly to zero at 20 km; a usable website domain adds
// a small tie-break bonus.
const (
	scoreExactName = 50.0
	scoreSubstring = 30.0
	scorePerToken  = 6.0
	scoreProximity = 20.0
	scoreHasDomain = 5.0
	maxQueryTokens = 5
	farAwayKm      = 999999.0
	earthRadiusKm  = 6371.0
)

// NameQuerier is the spatial name-regex lookup dependency.
type NameQuerier interface {
	NameQuery(ctx context.Context, lat, lon float64, radiusM int, pattern string) ([]overpass.Element, error)
}

// NameMatchConfig gates and sizes the fuzzy spatial resolver. Both flags
// must be on for it to issue queries.
type NameMatchConfig struct {
	LookupEnabled bool // broad name-lookup capability
	Participate   bool // this resolver's place in the waterfall
	RadiusM       int
}

type nameMatch struct {
	client NameQuerier
	cfg    NameMatchConfig
}

// NameMatch resolves by searching a wide radius for any tagged entity whose
// name resembles the candidate's, scoring hits on text similarity, distance
// and website presence.
func NameMatch(client NameQuerier, cfg NameMatchConfig) Resolver {
	return nameMatch{client: client, cfg: cfg}
}

func (nameMatch) Name() string { return "name_match" }

func (r nameMatch) Resolve(ctx context.Context, cand model.Candidate, area model.Area) (string, error) {
	if !r.cfg.LookupEnabled || !r.cfg.Participate {
		return "", nil
	}
	if cand.Name == "" || cand.Lat == nil || cand.Lon == nil {
		return "", nil
	}
	target := names.Normalize(cand.Name)
	if target == "" {
		return "", nil
	}

	elements, err := r.client.NameQuery(ctx, *cand.Lat, *cand.Lon, r.cfg.RadiusM, queryPattern(target))
	if err != nil {
		return "", err
	}

	best := ""
	bestScore := math.Inf(-1)
	for _, el := range elements {
		website := el.Website()
		if website == "" {
			continue
		}
		score := scoreEntity(target, el, *cand.Lat, *cand.Lon)
		if score > bestScore {
			bestScore = score
			best = website
		}
	}
	return best, nil
}

// queryPattern builds a case-insensitive server-side regex from the first
// few substantial tokens of the normalized name. Short tokens are skipped
// unless nothing else remains.
func queryPattern(normalized string) string {
	all := strings.Fields(normalized)
	tokens := make([]string, 0, len(all))
	for _, t := range all {
		if len(t) >= 3 {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		tokens = all
	}
	if len(tokens) > maxQueryTokens {
		tokens = tokens[:maxQueryTokens]
	}
	escaped := make([]string, len(tokens))
	for i, t := range tokens {
		escaped[i] = escapeRegex(t)
	}
	return strings.Join(escaped, ".*")
}

func escapeRegex(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '.', '^', '$', '*', '+', '?', '{', '}', '\\', '|', '(', ')':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func scoreEntity(target string, el overpass.Element, lat, lon float64) float64 {
	entity := names.Normalize(el.Name())

	var score float64
	switch {
	case entity == target:
		score += scoreExactName
	case strings.Contains(entity, target):
		score += scoreSubstring
	default:
		score += scorePerToken * float64(names.Overlap(target, entity))
	}

	dist := farAwayKm
	if el.Lat != nil && el.Lon != nil {
		dist = haversineKm(lat, lon, *el.Lat, *el.Lon)
	}
	score += math.Max(0, scoreProximity-dist)

	if urlutil.RegistrableDomain(urlutil.Normalize(el.Website())) != "" {
		score += scoreHasDomain
	}
	return score
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dphi := (lat2 - lat1) * math.Pi / 180
	dl := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dphi/2)*math.Sin(dphi/2) + math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
