// Package pipeline orchestrates one prospecting run: geocode each target
// city, acquire candidates, resolve websites, filter through the gate, then
// push accepted leads into blank board records.
package pipeline

import (
	"context"
	"time"

	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/matlycreative/seo-prospects/internal/board"
	"github.com/matlycreative/seo-prospects/internal/card"
	"github.com/matlycreative/seo-prospects/internal/model"
	"github.com/matlycreative/seo-prospects/internal/store"
)

// City is one rotation target.
type City struct {
	Name    string
	Country string
}

// Geocoder resolves a city to its bounding box.
type Geocoder interface {
	Geocode(ctx context.Context, city, country string) (*geom.Bounds, error)
}

// CandidateSource produces candidates for an area.
type CandidateSource interface {
	Candidates(ctx context.Context, area model.Area, stats *model.Stats) []model.Candidate
}

// WebsiteResolver resolves a candidate's website, or "" on a miss.
type WebsiteResolver interface {
	Resolve(ctx context.Context, cand model.Candidate, area model.Area, stats *model.Stats) string
}

// Admitter decides whether a resolved website becomes a lead.
type Admitter interface {
	Admit(ctx context.Context, website string, stats *model.Stats) (ok bool, reason string)
}

// Config tunes one run.
type Config struct {
	DailyLimit   int
	PushInterval time.Duration
	Preclone     bool
	BatchFile    string
}

// Pipeline wires the acquisition, resolution, gating and push stages.
type Pipeline struct {
	geo      Geocoder
	source   CandidateSource
	resolver WebsiteResolver
	gate     Admitter
	board    board.Board
	store    store.Store
	cfg      Config

	sleep func(time.Duration)
}

// New creates a Pipeline. store may be nil to skip lead persistence.
func New(geo Geocoder, source CandidateSource, resolver WebsiteResolver, gate Admitter, b board.Board, st store.Store, cfg Config) *Pipeline {
	return &Pipeline{
		geo:      geo,
		source:   source,
		resolver: resolver,
		gate:     gate,
		board:    b,
		store:    st,
		cfg:      cfg,
		sleep:    time.Sleep,
	}
}

// Run walks the city list until the daily lead limit is reached, then pushes
// the collected leads to the board. The returned stats cover the whole run.
func (p *Pipeline) Run(ctx context.Context, cities []City) (model.Stats, error) {
	var stats model.Stats
	var leads []model.LeadRow

	for _, c := range cities {
		if len(leads) >= p.cfg.DailyLimit {
			break
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		area, err := p.geocodeArea(ctx, c)
		if err != nil {
			zap.L().Warn("pipeline: geocode failed, skipping area",
				zap.String("city", c.Name), zap.String("country", c.Country), zap.Error(err))
			continue
		}

		start := time.Now()
		got := p.collectArea(ctx, area, &stats, &leads)
		zap.L().Info("pipeline: area done",
			zap.String("city", area.City),
			zap.Int("new_leads", got),
			zap.Int("total_leads", len(leads)),
			zap.Duration("took", time.Since(start)))
	}

	if len(leads) > p.cfg.DailyLimit {
		leads = leads[:p.cfg.DailyLimit]
	}

	if p.store != nil && len(leads) > 0 {
		if _, err := p.store.AppendLeads(ctx, leads); err != nil {
			zap.L().Warn("pipeline: persist leads failed", zap.Error(err))
		}
	}

	p.push(ctx, leads, &stats)

	zap.L().Info("pipeline: run complete",
		zap.Int("accepted", stats.LeadsAccepted),
		zap.Int("pushed", stats.LeadsPushed),
		zap.Any("stats", stats))
	return stats, nil
}

func (p *Pipeline) geocodeArea(ctx context.Context, c City) (model.Area, error) {
	bounds, err := p.geo.Geocode(ctx, c.Name, c.Country)
	if err != nil {
		return model.Area{}, err
	}
	return model.Area{City: c.Name, Country: c.Country, Bounds: bounds}, nil
}

// collectArea resolves and gates candidates for one area, appending accepted
// leads until the daily limit. Returns the number of leads added.
func (p *Pipeline) collectArea(ctx context.Context, area model.Area, stats *model.Stats, leads *[]model.LeadRow) int {
	cands := p.source.Candidates(ctx, area, stats)
	centerLat, centerLon := area.Center()

	added := 0
	for _, cand := range cands {
		if len(*leads) >= p.cfg.DailyLimit {
			break
		}
		if ctx.Err() != nil {
			break
		}

		// Candidates without coordinates inherit the area center so the
		// proximity-scored resolvers still participate.
		if cand.Lat == nil || cand.Lon == nil {
			lat, lon := centerLat, centerLon
			cand.Lat, cand.Lon = &lat, &lon
		}

		website := p.resolver.Resolve(ctx, cand, area, stats)
		ok, reason := p.gate.Admit(ctx, website, stats)
		if !ok {
			zap.L().Debug("pipeline: candidate rejected",
				zap.String("name", cand.Name), zap.String("reason", reason))
			continue
		}

		*leads = append(*leads, model.LeadRow{
			City:    area.City,
			Country: area.Country,
			Company: cand.Name,
			Website: website,
		})
		stats.LeadsAccepted++
		added++
	}
	return added
}

// push writes each lead into the next blank board record: header fields
// merged, title set to the company name, batch slot and lead marker appended.
func (p *Pipeline) push(ctx context.Context, leads []model.LeadRow, stats *model.Stats) {
	if len(leads) == 0 {
		return
	}

	if p.cfg.Preclone {
		if err := p.board.EnsureBlanks(ctx, len(leads)); err != nil {
			zap.L().Warn("pipeline: preclone failed", zap.Error(err))
		}
	}

	batchIdx := LoadBatchIndex(p.cfg.BatchFile)
	batchLabel := BatchSlots[batchIdx]

	pushed := 0
	for _, lead := range leads {
		if ctx.Err() != nil {
			break
		}

		blanks, err := p.board.BlankRecords(ctx, 1)
		if err != nil {
			zap.L().Warn("pipeline: list blank records failed", zap.Error(err))
			break
		}
		if len(blanks) == 0 {
			zap.L().Warn("pipeline: no blank record available, skipping remaining pushes")
			break
		}
		rec := blanks[0]

		merged := card.Merge(rec.Text,
			map[string]string{"Company": lead.Company, "Website": lead.Website},
			[]string{"First", "Email", "Hook", "Variant"},
			batchLabel, "@lead")

		upd := board.Update{}
		if merged != rec.Text {
			upd.Text = &merged
		}
		if lead.Company != "" && lead.Company != rec.Title {
			company := lead.Company
			upd.Title = &company
		}

		if err := p.board.Update(ctx, rec.ID, upd); err != nil {
			zap.L().Warn("pipeline: push failed",
				zap.String("company", lead.Company), zap.Error(err))
			continue
		}

		pushed++
		stats.LeadsPushed++
		zap.L().Info("pipeline: lead pushed",
			zap.String("company", lead.Company), zap.String("website", lead.Website))

		if pushed < len(leads) && p.cfg.PushInterval > 0 {
			p.sleep(p.cfg.PushInterval)
		}
	}

	// The slot only burns when something went out.
	if pushed > 0 {
		next := (batchIdx + 1) % len(BatchSlots)
		if err := SaveBatchIndex(p.cfg.BatchFile, next); err != nil {
			zap.L().Warn("pipeline: save batch index failed", zap.Error(err))
		}
	}
}
