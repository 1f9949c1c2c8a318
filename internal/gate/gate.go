// Package gate applies the filter/dedup checks to resolved websites. Checks
// run in a fixed order and the first failure rejects the candidate; every
// rejection is counted by reason. A full pass registers the domain in the
// seen-set and admits the candidate as a lead.
package gate

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/matlycreative/seo-prospects/internal/model"
	"github.com/matlycreative/seo-prospects/internal/seenset"
	"github.com/matlycreative/seo-prospects/internal/urlutil"
)

// Rejection reasons reported by Admit.
const (
	ReasonNoWebsite  = "no_website"
	ReasonDupeDomain = "dupe_domain"
	ReasonRobots     = "robots"
	ReasonFetch      = "fetch"
	ReasonComplexity = "complexity"
	ReasonLanguage   = "language"
)

// Config tunes the gate's checks.
type Config struct {
	UserAgent    string
	FetchTimeout time.Duration

	// Size/complexity heuristic; zero thresholds disable the check.
	MaxBodyBytes  int
	MaxScriptTags int

	// Language heuristic.
	LanguageEnabled      bool
	LangMinStopwordRatio float64
	LangMaxNonASCIIRatio float64
	LangMinTokens        int
}

// Gate filters resolved candidates. Exclusion policies are fetched once per
// origin and cached for the process lifetime; concurrent first fetches for
// the same origin collapse into one request.
type Gate struct {
	seen *seenset.Set
	http *http.Client
	cfg  Config

	robotsSF    singleflight.Group
	robotsMu    sync.Mutex
	robotsCache map[string]*robotstxt.RobotsData
}

// New creates a Gate over the given seen-set.
func New(seen *seenset.Set, cfg Config, opts ...Option) *Gate {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	g := &Gate{
		seen:        seen,
		http:        &http.Client{Timeout: cfg.FetchTimeout},
		cfg:         cfg,
		robotsCache: map[string]*robotstxt.RobotsData{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Option configures the gate.
type Option func(*Gate)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *Gate) { g.http = hc }
}

// Admit runs the full check sequence for one resolved website. It returns
// whether the candidate is accepted and, when not, the rejection reason.
// Acceptance registers the registrable domain in the seen-set.
func (g *Gate) Admit(ctx context.Context, website string, stats *model.Stats) (bool, string) {
	if website == "" {
		stats.SkipNoWebsite++
		return false, ReasonNoWebsite
	}

	domain := urlutil.RegistrableDomain(website)
	if domain != "" && g.seen.Contains(domain) {
		stats.SkipDupeDomain++
		return false, ReasonDupeDomain
	}

	if !g.robotsAllowed(ctx, website) {
		stats.SkipRobots++
		return false, ReasonRobots
	}

	header, body, err := g.fetchHomepage(ctx, website)
	if err != nil {
		stats.SkipFetch++
		return false, ReasonFetch
	}

	if reject, reason := g.tooComplex(body); reject {
		stats.SkipPageComplexity++
		zap.L().Debug("rejecting complex page", zap.String("website", website), zap.String("why", reason))
		return false, ReasonComplexity
	}

	if g.cfg.LanguageEnabled && !g.isEnglish(header, body) {
		stats.SkipLanguage++
		return false, ReasonLanguage
	}

	if domain != "" {
		if _, err := g.seen.Add(domain); err != nil {
			zap.L().Warn("seen-set append failed", zap.String("domain", domain), zap.Error(err))
		}
	}
	return true, ""
}

// robotsAllowed checks the origin's exclusion policy for path /. Missing or
// unparseable policies allow by default.
func (g *Gate) robotsAllowed(ctx context.Context, website string) bool {
	origin := urlutil.Origin(website)
	if origin == "" {
		return true
	}

	g.robotsMu.Lock()
	data, cached := g.robotsCache[origin]
	g.robotsMu.Unlock()

	if !cached {
		v, _, _ := g.robotsSF.Do(origin, func() (any, error) {
			d := g.fetchRobots(ctx, origin)
			g.robotsMu.Lock()
			g.robotsCache[origin] = d
			g.robotsMu.Unlock()
			return d, nil
		})
		data, _ = v.(*robotstxt.RobotsData)
	}

	if data == nil {
		return true
	}
	return data.TestAgent("/", g.cfg.UserAgent)
}

func (g *Gate) fetchRobots(ctx context.Context, origin string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", g.cfg.UserAgent)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil
	}
	return data
}

func (g *Gate) fetchHomepage(ctx context.Context, website string) (http.Header, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, website, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", g.cfg.UserAgent)
	req.Header.Set("Accept-Language", "en;q=0.8,de;q=0.6,fr;q=0.6")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, nil, &statusError{code: resp.StatusCode}
	}

	limit := int64(1 << 20)
	if g.cfg.MaxBodyBytes > 0 {
		limit = int64(g.cfg.MaxBodyBytes) + 1
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, nil, err
	}
	return resp.Header, body, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string { return http.StatusText(e.code) }

func (g *Gate) tooComplex(body []byte) (bool, string) {
	if g.cfg.MaxBodyBytes > 0 && len(body) > g.cfg.MaxBodyBytes {
		return true, "body size"
	}
	if g.cfg.MaxScriptTags > 0 {
		n := strings.Count(strings.ToLower(string(body)), "<script")
		if n > g.cfg.MaxScriptTags {
			return true, "script count"
		}
	}
	return false, ""
}
