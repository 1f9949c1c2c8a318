// Package taxonomy holds the fixed business-category taxonomy used by
// candidate acquisition: OSM tag filters for the spatial query and localized
// keyword lists for the free-text POI fallback.
package taxonomy

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var taxonomyYAML []byte

// TagFilter is one OSM key=value pair selecting a business category.
type TagFilter struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// Taxonomy is the parsed category taxonomy.
type Taxonomy struct {
	TagFilters     []TagFilter `yaml:"tag_filters"`
	ClassAllowlist []string    `yaml:"class_allowlist"`
	TypeNoise      []string    `yaml:"type_noise"`
	POIKeywords    struct {
		Base      []string            `yaml:"base"`
		ByCountry map[string][]string `yaml:"by_country"`
	} `yaml:"poi_keywords"`

	classAllow map[string]struct{}
	typeNoise  map[string]struct{}
}

// Load parses the embedded taxonomy file.
func Load() (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(taxonomyYAML, &t); err != nil {
		return nil, eris.Wrap(err, "taxonomy: unmarshal")
	}
	t.classAllow = make(map[string]struct{}, len(t.ClassAllowlist))
	for _, c := range t.ClassAllowlist {
		t.classAllow[strings.ToLower(c)] = struct{}{}
	}
	t.typeNoise = make(map[string]struct{}, len(t.TypeNoise))
	for _, c := range t.TypeNoise {
		t.typeNoise[strings.ToLower(c)] = struct{}{}
	}
	return &t, nil
}

// ClassAllowed reports whether a POI classification is in the allow-list.
// An empty class is allowed: absence of a classification is not evidence
// of noise.
func (t *Taxonomy) ClassAllowed(class string) bool {
	if class == "" {
		return true
	}
	_, ok := t.classAllow[strings.ToLower(class)]
	return ok
}

// TypeIsNoise reports whether a POI type token is administrative or
// geographic noise (houses, roads, whole settlements).
func (t *Taxonomy) TypeIsNoise(typ string) bool {
	_, ok := t.typeNoise[strings.ToLower(typ)]
	return ok
}

// KeywordsFor returns the free-text POI query keywords for a country:
// the base English list plus localized terms when available.
func (t *Taxonomy) KeywordsFor(country string) []string {
	out := make([]string, 0, len(t.POIKeywords.Base))
	out = append(out, t.POIKeywords.Base...)
	if local, ok := t.POIKeywords.ByCountry[strings.ToLower(strings.TrimSpace(country))]; ok {
		out = append(out, local...)
	}
	return out
}
