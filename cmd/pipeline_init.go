package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/matlycreative/seo-prospects/internal/acquire"
	"github.com/matlycreative/seo-prospects/internal/board"
	"github.com/matlycreative/seo-prospects/internal/gate"
	"github.com/matlycreative/seo-prospects/internal/pipeline"
	"github.com/matlycreative/seo-prospects/internal/resolve"
	"github.com/matlycreative/seo-prospects/internal/seenset"
	"github.com/matlycreative/seo-prospects/internal/store"
	"github.com/matlycreative/seo-prospects/internal/taxonomy"
	"github.com/matlycreative/seo-prospects/pkg/foursquare"
	"github.com/matlycreative/seo-prospects/pkg/nominatim"
	"github.com/matlycreative/seo-prospects/pkg/notion"
	"github.com/matlycreative/seo-prospects/pkg/overpass"
	"github.com/matlycreative/seo-prospects/pkg/trello"
	"github.com/matlycreative/seo-prospects/pkg/wikidata"
)

// searchLimit caps free-text place search hits scanned per candidate.
const searchLimit = 8

// pipelineEnv holds the initialized clients, the seen-set and the pipeline
// needed by the prospect command.
type pipelineEnv struct {
	Seen     *seenset.Set
	Store    store.Store // may be nil when the lead store is unavailable
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
	if pe.Seen != nil {
		_ = pe.Seen.Close()
	}
}

// initPipeline sets up the seen-set, lead store, API clients and board
// backend, then builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	if err := cfg.Validate("prospect"); err != nil {
		return nil, err
	}
	if !cfg.Overpass.Enabled && !cfg.Nominatim.POIEnabled {
		return nil, eris.New("both overpass and nominatim POI sources are disabled; no way to fetch candidates")
	}

	seen, err := seenset.Open(cfg.Pipeline.SeenFile)
	if err != nil {
		return nil, eris.Wrap(err, "open seen set")
	}

	// Lead persistence is best-effort: a broken store logs and degrades,
	// it never blocks a run.
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL,
		&store.PoolConfig{MaxConns: cfg.Store.MaxConns, MinConns: cfg.Store.MinConns})
	if err != nil {
		zap.L().Warn("lead store unavailable, continuing without persistence", zap.Error(err))
		st = nil
	} else if err := st.Migrate(ctx); err != nil {
		zap.L().Warn("lead store migration failed, continuing without persistence", zap.Error(err))
		_ = st.Close()
		st = nil
	}

	ua := cfg.UserAgent()
	nominatimClient := nominatim.New(ua,
		nominatim.WithMinInterval(time.Duration(cfg.Nominatim.MinIntervalMS)*time.Millisecond))
	overpassClient := overpass.New(
		overpass.WithMinInterval(time.Duration(cfg.Overpass.MinIntervalMS)*time.Millisecond),
		overpass.WithQueryTimeout(cfg.Overpass.QueryTimeoutSecs),
		overpass.WithRetries(cfg.Overpass.Retries))
	wikidataClient := wikidata.New(
		wikidata.WithMinInterval(time.Duration(cfg.Wikidata.MinIntervalMS)*time.Millisecond))

	tax, err := taxonomy.Load()
	if err != nil {
		return nil, eris.Wrap(err, "load taxonomy")
	}

	acquirer := acquire.New(overpassClient, nominatimClient, tax, acquire.Config{
		SpatialEnabled:    cfg.Overpass.Enabled,
		POIEnabled:        cfg.Nominatim.POIEnabled,
		RadiusM:           cfg.Acquire.RadiusM,
		POIQueriesPerCity: cfg.Acquire.POIQueriesPerCity,
		POILimit:          cfg.Nominatim.Limit,
	})

	resolvers := []resolve.Resolver{
		resolve.Direct(),
		resolve.KnowledgeGraph(wikidataClient),
		resolve.Search(nominatimClient, searchLimit),
		resolve.NameMatch(overpassClient, resolve.NameMatchConfig{
			LookupEnabled: cfg.NameMatch.LookupEnabled,
			Participate:   cfg.Overpass.Enabled,
			RadiusM:       cfg.NameMatch.RadiusM,
		}),
	}
	if cfg.Foursquare.Key != "" {
		fsq := foursquare.New(cfg.Foursquare.Key,
			foursquare.WithMinInterval(time.Duration(cfg.Foursquare.MinIntervalMS)*time.Millisecond))
		resolvers = append(resolvers, resolve.Places(fsq))
		zap.L().Info("foursquare places resolver enabled")
	} else {
		zap.L().Debug("PROSPECTS_FOURSQUARE_KEY not set, places resolver disabled")
	}
	waterfall := resolve.NewWaterfall(resolvers...)

	g := gate.New(seen, gate.Config{
		UserAgent:            ua,
		FetchTimeout:         time.Duration(cfg.Gate.FetchTimeoutSecs) * time.Second,
		MaxBodyBytes:         cfg.Gate.MaxBodyBytes,
		MaxScriptTags:        cfg.Gate.MaxScriptTags,
		LanguageEnabled:      cfg.Gate.LanguageEnabled,
		LangMinStopwordRatio: cfg.Gate.LangMinStopwordRatio,
		LangMaxNonASCIIRatio: cfg.Gate.LangMaxNonASCIIRatio,
		LangMinTokens:        cfg.Gate.LangMinTokens,
	})

	b, err := initBoard()
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		_ = seen.Close()
		return nil, err
	}

	p := pipeline.New(nominatimClient, acquirer, waterfall, g, b, st, pipeline.Config{
		DailyLimit:   cfg.Pipeline.DailyLimit,
		PushInterval: time.Duration(cfg.Board.PushIntervalSecs) * time.Second,
		Preclone:     cfg.Board.Preclone,
		BatchFile:    cfg.Pipeline.BatchFile,
	})

	return &pipelineEnv{Seen: seen, Store: st, Pipeline: p}, nil
}

// initBoard creates the configured record board backend.
func initBoard() (board.Board, error) {
	switch cfg.Board.Backend {
	case "trello":
		client := trello.New(cfg.Trello.Key, cfg.Trello.Token)
		return board.NewTrelloBoard(client, cfg.Trello.ListID, cfg.Trello.TemplateCardID), nil
	case "notion":
		client := notion.NewClient(cfg.Notion.Token)
		return board.NewNotionBoard(client, cfg.Notion.DatabaseID), nil
	default:
		return nil, eris.Errorf("unknown board backend %q", cfg.Board.Backend)
	}
}
