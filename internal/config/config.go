package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Board      BoardConfig      `yaml:"board" mapstructure:"board"`
	Trello     TrelloConfig     `yaml:"trello" mapstructure:"trello"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Overpass   OverpassConfig   `yaml:"overpass" mapstructure:"overpass"`
	Nominatim  NominatimConfig  `yaml:"nominatim" mapstructure:"nominatim"`
	Wikidata   WikidataConfig   `yaml:"wikidata" mapstructure:"wikidata"`
	Foursquare FoursquareConfig `yaml:"foursquare" mapstructure:"foursquare"`
	Acquire    AcquireConfig    `yaml:"acquire" mapstructure:"acquire"`
	NameMatch  NameMatchConfig  `yaml:"name_match" mapstructure:"name_match"`
	Gate       GateConfig       `yaml:"gate" mapstructure:"gate"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Cities     CitiesConfig     `yaml:"cities" mapstructure:"cities"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the lead store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// BoardConfig selects the record board backend and push behavior.
type BoardConfig struct {
	Backend          string `yaml:"backend" mapstructure:"backend"`
	Preclone         bool   `yaml:"preclone" mapstructure:"preclone"`
	PushIntervalSecs int    `yaml:"push_interval_secs" mapstructure:"push_interval_secs"`
}

// TrelloConfig holds Trello API credentials and board targets.
type TrelloConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	Token          string `yaml:"token" mapstructure:"token"`
	ListID         string `yaml:"list_id" mapstructure:"list_id"`
	TemplateCardID string `yaml:"template_card_id" mapstructure:"template_card_id"`
}

// NotionConfig holds Notion API credentials and the lead database ID.
type NotionConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	DatabaseID string `yaml:"database_id" mapstructure:"database_id"`
}

// OverpassConfig tunes the Overpass spatial query client.
type OverpassConfig struct {
	Enabled          bool `yaml:"enabled" mapstructure:"enabled"`
	QueryTimeoutSecs int  `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
	Retries          int  `yaml:"retries" mapstructure:"retries"`
	MinIntervalMS    int  `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// NominatimConfig tunes the Nominatim geocoding client.
type NominatimConfig struct {
	Email         string `yaml:"email" mapstructure:"email"`
	POIEnabled    bool   `yaml:"poi_enabled" mapstructure:"poi_enabled"`
	Limit         int    `yaml:"limit" mapstructure:"limit"`
	MinIntervalMS int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// WikidataConfig tunes the Wikidata entity client.
type WikidataConfig struct {
	MinIntervalMS int `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// FoursquareConfig holds the Foursquare Places API key (optional).
type FoursquareConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	MinIntervalMS int    `yaml:"min_interval_ms" mapstructure:"min_interval_ms"`
}

// AcquireConfig tunes candidate acquisition.
type AcquireConfig struct {
	RadiusM           int `yaml:"radius_m" mapstructure:"radius_m"`
	POIQueriesPerCity int `yaml:"poi_queries_per_city" mapstructure:"poi_queries_per_city"`
}

// NameMatchConfig gates the fuzzy spatial name-match resolver.
type NameMatchConfig struct {
	LookupEnabled bool `yaml:"lookup_enabled" mapstructure:"lookup_enabled"`
	RadiusM       int  `yaml:"radius_m" mapstructure:"radius_m"`
}

// GateConfig tunes the candidate filter gate.
type GateConfig struct {
	UserAgent            string  `yaml:"user_agent" mapstructure:"user_agent"`
	FetchTimeoutSecs     int     `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	MaxBodyBytes         int     `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxScriptTags        int     `yaml:"max_script_tags" mapstructure:"max_script_tags"`
	LanguageEnabled      bool    `yaml:"language_enabled" mapstructure:"language_enabled"`
	LangMinStopwordRatio float64 `yaml:"lang_min_stopword_ratio" mapstructure:"lang_min_stopword_ratio"`
	LangMaxNonASCIIRatio float64 `yaml:"lang_max_nonascii_ratio" mapstructure:"lang_max_nonascii_ratio"`
	LangMinTokens        int     `yaml:"lang_min_tokens" mapstructure:"lang_min_tokens"`
}

// PipelineConfig tunes the per-run lead pipeline.
type PipelineConfig struct {
	DailyLimit int    `yaml:"daily_limit" mapstructure:"daily_limit"`
	SeenFile   string `yaml:"seen_file" mapstructure:"seen_file"`
	BatchFile  string `yaml:"batch_file" mapstructure:"batch_file"`
}

// CitiesConfig controls city rotation.
type CitiesConfig struct {
	Mode             string   `yaml:"mode" mapstructure:"mode"`
	ForceCity        string   `yaml:"force_city" mapstructure:"force_city"`
	ForceCountry     string   `yaml:"force_country" mapstructure:"force_country"`
	CountryWhitelist []string `yaml:"country_whitelist" mapstructure:"country_whitelist"`
	Hops             int      `yaml:"hops" mapstructure:"hops"`
}

// ServerConfig configures the status server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// UserAgent returns the configured user agent, falling back to one derived
// from the Nominatim contact email. Nominatim's usage policy requires a
// reachable contact in the UA string.
func (c *Config) UserAgent() string {
	if c.Gate.UserAgent != "" {
		return c.Gate.UserAgent
	}
	return fmt.Sprintf("SEOProspects/1.0 (+%s)", c.Nominatim.Email)
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROSPECTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "seo_prospects.db")
	v.SetDefault("board.backend", "trello")
	v.SetDefault("board.preclone", false)
	v.SetDefault("board.push_interval_secs", 20)
	v.SetDefault("overpass.enabled", true)
	v.SetDefault("overpass.query_timeout_secs", 25)
	v.SetDefault("overpass.retries", 2)
	v.SetDefault("overpass.min_interval_ms", 2000)
	v.SetDefault("nominatim.email", "you@example.com")
	v.SetDefault("nominatim.poi_enabled", true)
	v.SetDefault("nominatim.limit", 60)
	v.SetDefault("nominatim.min_interval_ms", 1100)
	v.SetDefault("wikidata.min_interval_ms", 600)
	v.SetDefault("foursquare.min_interval_ms", 600)
	v.SetDefault("acquire.radius_m", 2500)
	v.SetDefault("acquire.poi_queries_per_city", 3)
	v.SetDefault("name_match.lookup_enabled", false)
	v.SetDefault("name_match.radius_m", 20000)
	v.SetDefault("gate.fetch_timeout_secs", 30)
	v.SetDefault("gate.max_body_bytes", 500000)
	v.SetDefault("gate.max_script_tags", 100)
	v.SetDefault("gate.language_enabled", true)
	v.SetDefault("gate.lang_min_stopword_ratio", 0.018)
	v.SetDefault("gate.lang_max_nonascii_ratio", 0.25)
	v.SetDefault("gate.lang_min_tokens", 40)
	v.SetDefault("pipeline.daily_limit", 5)
	v.SetDefault("pipeline.seen_file", "seen_domains.txt")
	v.SetDefault("pipeline.batch_file", "batch_state.txt")
	v.SetDefault("cities.mode", "rotate")
	v.SetDefault("cities.hops", 8)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration is usable for the given mode.
// Missing board credentials are the only fatal startup condition for the
// prospect pipeline; everything downstream degrades at runtime instead.
func (c *Config) Validate(mode string) error {
	var missing []string

	switch mode {
	case "prospect":
		switch c.Board.Backend {
		case "trello":
			if c.Trello.Key == "" {
				missing = append(missing, "trello.key is required")
			}
			if c.Trello.Token == "" {
				missing = append(missing, "trello.token is required")
			}
			if c.Trello.ListID == "" {
				missing = append(missing, "trello.list_id is required")
			}
		case "notion":
			if c.Notion.Token == "" {
				missing = append(missing, "notion.token is required")
			}
			if c.Notion.DatabaseID == "" {
				missing = append(missing, "notion.database_id is required")
			}
		default:
			missing = append(missing, fmt.Sprintf("board.backend must be trello or notion, got %q", c.Board.Backend))
		}
		if c.Acquire.RadiusM <= 0 {
			missing = append(missing, "acquire.radius_m must be > 0")
		}
		if c.Pipeline.DailyLimit < 0 {
			missing = append(missing, "pipeline.daily_limit must be >= 0")
		}
		switch c.Cities.Mode {
		case "rotate", "random", "force":
		default:
			missing = append(missing, fmt.Sprintf("cities.mode must be rotate, random or force, got %q", c.Cities.Mode))
		}
	case "seen":
		if c.Pipeline.SeenFile == "" {
			missing = append(missing, "pipeline.seen_file is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: invalid configuration:\n  - %s", strings.Join(missing, "\n  - "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
