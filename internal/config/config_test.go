package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "seo_prospects.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "trello", cfg.Board.Backend)
	assert.False(t, cfg.Board.Preclone)
	assert.Equal(t, 20, cfg.Board.PushIntervalSecs)
	assert.True(t, cfg.Overpass.Enabled)
	assert.Equal(t, 25, cfg.Overpass.QueryTimeoutSecs)
	assert.Equal(t, 2, cfg.Overpass.Retries)
	assert.Equal(t, 2000, cfg.Overpass.MinIntervalMS)
	assert.True(t, cfg.Nominatim.POIEnabled)
	assert.Equal(t, 60, cfg.Nominatim.Limit)
	assert.Equal(t, 1100, cfg.Nominatim.MinIntervalMS)
	assert.Equal(t, 600, cfg.Wikidata.MinIntervalMS)
	assert.Equal(t, 2500, cfg.Acquire.RadiusM)
	assert.Equal(t, 3, cfg.Acquire.POIQueriesPerCity)
	assert.False(t, cfg.NameMatch.LookupEnabled)
	assert.Equal(t, 20000, cfg.NameMatch.RadiusM)
	assert.Equal(t, 30, cfg.Gate.FetchTimeoutSecs)
	assert.True(t, cfg.Gate.LanguageEnabled)
	assert.InDelta(t, 0.018, cfg.Gate.LangMinStopwordRatio, 0.0001)
	assert.InDelta(t, 0.25, cfg.Gate.LangMaxNonASCIIRatio, 0.0001)
	assert.Equal(t, 40, cfg.Gate.LangMinTokens)
	assert.Equal(t, 5, cfg.Pipeline.DailyLimit)
	assert.Equal(t, "seen_domains.txt", cfg.Pipeline.SeenFile)
	assert.Equal(t, "batch_state.txt", cfg.Pipeline.BatchFile)
	assert.Equal(t, "rotate", cfg.Cities.Mode)
	assert.Equal(t, 8, cfg.Cities.Hops)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/prospects
board:
  backend: notion
log:
  level: debug
  format: console
acquire:
  radius_m: 1200
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "notion", cfg.Board.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 1200, cfg.Acquire.RadiusM)
	// Defaults still apply for unset values
	assert.Equal(t, 5, cfg.Pipeline.DailyLimit)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PROSPECTS_STORE_DRIVER", "sqlite")
	t.Setenv("PROSPECTS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("PROSPECTS_PIPELINE_DAILY_LIMIT", "9")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Pipeline.DailyLimit)
}

func TestUserAgentFallback(t *testing.T) {
	cfg := &Config{}
	cfg.Nominatim.Email = "ops@matly.dev"
	assert.Equal(t, "SEOProspects/1.0 (+ops@matly.dev)", cfg.UserAgent())

	cfg.Gate.UserAgent = "CustomBot/2.0"
	assert.Equal(t, "CustomBot/2.0", cfg.UserAgent())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validProspect returns a Config that passes prospect-mode validation.
func validProspect() *Config {
	cfg := &Config{}
	cfg.Board.Backend = "trello"
	cfg.Trello.Key = "k"
	cfg.Trello.Token = "t"
	cfg.Trello.ListID = "l"
	cfg.Acquire.RadiusM = 2500
	cfg.Pipeline.DailyLimit = 5
	cfg.Cities.Mode = "rotate"
	return cfg
}

func TestValidateProspect_Trello(t *testing.T) {
	assert.NoError(t, validProspect().Validate("prospect"))
}

func TestValidateProspect_MissingTrelloCreds(t *testing.T) {
	cfg := validProspect()
	cfg.Trello.Key = ""
	cfg.Trello.ListID = ""

	err := cfg.Validate("prospect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trello.key is required")
	assert.Contains(t, err.Error(), "trello.list_id is required")
	assert.NotContains(t, err.Error(), "trello.token")
}

func TestValidateProspect_Notion(t *testing.T) {
	cfg := validProspect()
	cfg.Board.Backend = "notion"

	err := cfg.Validate("prospect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion.token is required")
	assert.Contains(t, err.Error(), "notion.database_id is required")

	cfg.Notion.Token = "ntn_token"
	cfg.Notion.DatabaseID = "db-id"
	assert.NoError(t, cfg.Validate("prospect"))
}

func TestValidateProspect_UnknownBackend(t *testing.T) {
	cfg := validProspect()
	cfg.Board.Backend = "jira"

	err := cfg.Validate("prospect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "board.backend must be trello or notion")
}

func TestValidateProspect_BadCityMode(t *testing.T) {
	cfg := validProspect()
	cfg.Cities.Mode = "spiral"

	err := cfg.Validate("prospect")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cities.mode")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	cfg.Server.Port = 9090
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validProspect().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
