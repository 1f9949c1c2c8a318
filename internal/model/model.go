// Package model defines the core data types flowing through the lead pipeline.
package model

import (
	"time"

	geom "github.com/twpayne/go-geom"
)

// Candidate is an unresolved business record from an acquisition source.
// Candidates without a name are discarded at the source and never reach
// the pipeline.
type Candidate struct {
	Name     string   `json:"name"`
	Website  string   `json:"website,omitempty"`  // direct tag hint, already normalized
	Wikidata string   `json:"wikidata,omitempty"` // knowledge-graph entity id
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
}

// Lead is a candidate that survived resolution and filtering. Immutable
// once created.
type Lead struct {
	Company string `json:"company"`
	Website string `json:"website"`
}

// Area describes one geographic target: a city with its geocoded bounding
// box. Center is derived from the box.
type Area struct {
	City    string       `json:"city"`
	Country string       `json:"country"`
	Bounds  *geom.Bounds `json:"-"`
}

// Center returns the midpoint of the area's bounding box.
func (a Area) Center() (lat, lon float64) {
	if a.Bounds == nil {
		return 0, 0
	}
	// Bounds are stored lon/lat (X/Y).
	lon = (a.Bounds.Min(0) + a.Bounds.Max(0)) / 2
	lat = (a.Bounds.Min(1) + a.Bounds.Max(1)) / 2
	return lat, lon
}

// LeadRow is one persisted lead record.
type LeadRow struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	City      string    `json:"city"`
	Country   string    `json:"country"`
	Company   string    `json:"company"`
	Website   string    `json:"website"`
}

// Stats aggregates per-run counters. It is passed by reference through the
// pipeline instead of living in package-level state, and merged upward at
// area boundaries.
type Stats struct {
	Candidates          int `json:"candidates"`
	CandidatesOverpass  int `json:"candidates_overpass"`
	CandidatesPOI       int `json:"candidates_poi"`
	WebsiteDirect       int `json:"website_direct"`
	WebsiteWikidata     int `json:"website_wikidata"`
	WebsiteSearch       int `json:"website_search"`
	WebsiteNameMatch    int `json:"website_name_match"`
	WebsitePlaces       int `json:"website_places"`
	SkipNoWebsite       int `json:"skip_no_website"`
	SkipDupeDomain      int `json:"skip_dupe_domain"`
	SkipRobots          int `json:"skip_robots"`
	SkipFetch           int `json:"skip_fetch"`
	SkipPageComplexity  int `json:"skip_page_complexity"`
	SkipLanguage        int `json:"skip_language"`
	LeadsAccepted       int `json:"leads_accepted"`
	LeadsPushed         int `json:"leads_pushed"`
}

// Merge adds other's counters into s.
func (s *Stats) Merge(other Stats) {
	s.Candidates += other.Candidates
	s.CandidatesOverpass += other.CandidatesOverpass
	s.CandidatesPOI += other.CandidatesPOI
	s.WebsiteDirect += other.WebsiteDirect
	s.WebsiteWikidata += other.WebsiteWikidata
	s.WebsiteSearch += other.WebsiteSearch
	s.WebsiteNameMatch += other.WebsiteNameMatch
	s.WebsitePlaces += other.WebsitePlaces
	s.SkipNoWebsite += other.SkipNoWebsite
	s.SkipDupeDomain += other.SkipDupeDomain
	s.SkipRobots += other.SkipRobots
	s.SkipFetch += other.SkipFetch
	s.SkipPageComplexity += other.SkipPageComplexity
	s.SkipLanguage += other.SkipLanguage
	s.LeadsAccepted += other.LeadsAccepted
	s.LeadsPushed += other.LeadsPushed
}
