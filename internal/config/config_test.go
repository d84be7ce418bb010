package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the .env lookup at a temp dir and clears the API key
// variables so tests do not pick up the developer's environment.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev := DotEnvFile
	DotEnvFile = filepath.Join(dir, ".env")
	t.Cleanup(func() { DotEnvFile = prev })
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DIGEST_LLM_API_KEY", "")
	return dir
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 5, cfg.Crawler.MaxPages)
	assert.Equal(t, 60*time.Second, cfg.Crawler.Timeout)
	assert.Equal(t, 5000, cfg.Crawler.MaxPageChars)
	assert.True(t, cfg.Crawler.RespectRobots)
	assert.Equal(t, 10*time.Second, cfg.Crawler.FetchTimeout)
	assert.Equal(t, 30*time.Second, cfg.Discovery.NavigationTimeout)
	assert.Equal(t, 2*time.Second, cfg.Discovery.ClickTimeout)
	assert.Contains(t, cfg.Discovery.ExcludedDomains, "runtime.vc")
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.Model)
	assert.Equal(t, 30*time.Second, cfg.LLM.RequestTimeout)
	assert.True(t, cfg.Validator.Enabled)
	assert.Equal(t, time.Second, cfg.Pacing.CompanyDelay)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "short_summaries.csv", cfg.Output.CSVPath)
	assert.Equal(t, "long_summaries.docx", cfg.Output.DocxPath)
	assert.Empty(t, cfg.DB.DSN)
	assert.Empty(t, cfg.API.ListenAddr)
}

func TestLoadMissingAPIKeyFails(t *testing.T) {
	isolate(t)

	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.api_key")
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
logging:
  development: false
  level: debug
crawler:
  max_pages: 8
  timeout: 90s
  respect_robots: false
discovery:
  excluded_domains: ["example.org"]
llm:
  api_key: from-file
  model: gpt-4o-mini
validator:
  enabled: false
pacing:
  company_delay: 250ms
storage:
  backend: gcs
  gcs:
    bucket: digest-bucket
    prefix: runs
db:
  dsn: postgres://localhost/digest
pubsub:
  project_id: proj
  topic_id: companies
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.False(t, cfg.Logging.Development)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 8, cfg.Crawler.MaxPages)
	assert.Equal(t, 90*time.Second, cfg.Crawler.Timeout)
	assert.False(t, cfg.Crawler.RespectRobots)
	assert.Equal(t, []string{"example.org"}, cfg.Discovery.ExcludedDomains)
	assert.Equal(t, "from-file", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.False(t, cfg.Validator.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Pacing.CompanyDelay)
	assert.Equal(t, "digest-bucket", cfg.Storage.GCS.Bucket)
	assert.Equal(t, "postgres://localhost/digest", cfg.DB.DSN)
	assert.Equal(t, "companies", cfg.PubSub.TopicID)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "crawler:\n  max_pages: 8\nllm:\n  api_key: from-file\n")
	t.Setenv("DIGEST_CRAWLER_MAX_PAGES", "3")
	t.Setenv("DIGEST_LLM_API_KEY", "from-env")
	t.Setenv("DIGEST_API_LISTEN_ADDR", ":9090")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Crawler.MaxPages)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, ":9090", cfg.API.ListenAddr)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-process")
	t.Setenv("DIGEST_PACING_COMPANY_DELAY", "")
	require.NoError(t, os.Unsetenv("DIGEST_PACING_COMPANY_DELAY"))
	writeFile(t, filepath.Join(dir, ".env"), "OPENAI_API_KEY=from-dotenv\nDIGEST_PACING_COMPANY_DELAY=3s\n")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Pacing.CompanyDelay)
	assert.Equal(t, "sk-process", cfg.LLM.APIKey, "existing environment wins over .env")
}

func TestLoadFlagsTakePrecedence(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DIGEST_CRAWLER_MAX_PAGES", "3")

	flags := pflag.NewFlagSet("digest", pflag.ContinueOnError)
	flags.Bool("skip-discovery", false, "")
	flags.Int("max-pages", 5, "")
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--skip-discovery", "--max-pages=2"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.True(t, cfg.Discovery.Skip)
	assert.Equal(t, 2, cfg.Crawler.MaxPages)
	assert.Equal(t, "info", cfg.Logging.Level, "unchanged flags keep lower layers")
}

func TestLoadMissingFile(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
}

func validConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Crawler: CrawlerConfig{MaxPages: 5, Timeout: time.Minute, MaxPageChars: 5000, FetchTimeout: 10 * time.Second},
		Discovery: DiscoveryConfig{
			NavigationTimeout: 30 * time.Second,
		},
		LLM:     LLMConfig{APIKey: "k", MaxAttempts: 3, RequestTimeout: 30 * time.Second},
		Pacing:  PacingConfig{CompanyDelay: time.Second},
		Storage: StorageConfig{Backend: "local", Local: LocalStorageConfig{BaseDir: "."}},
		Output:  OutputConfig{CSVPath: "a.csv", DocxPath: "b.docx"},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, validConfig().Validate())

	cases := map[string]func(*Config){
		"missing api key":     func(c *Config) { c.LLM.APIKey = "  " },
		"zero max pages":      func(c *Config) { c.Crawler.MaxPages = 0 },
		"zero timeout":        func(c *Config) { c.Crawler.Timeout = 0 },
		"zero page chars":     func(c *Config) { c.Crawler.MaxPageChars = 0 },
		"zero fetch timeout":  func(c *Config) { c.Crawler.FetchTimeout = 0 },
		"negative rps":        func(c *Config) { c.LLM.RPS = -1 },
		"zero nav timeout":    func(c *Config) { c.Discovery.NavigationTimeout = 0 },
		"zero attempts":       func(c *Config) { c.LLM.MaxAttempts = 0 },
		"zero llm timeout":    func(c *Config) { c.LLM.RequestTimeout = 0 },
		"negative delay":      func(c *Config) { c.Pacing.CompanyDelay = -time.Second },
		"unknown backend":     func(c *Config) { c.Storage.Backend = "s3" },
		"local without dir":   func(c *Config) { c.Storage.Local.BaseDir = "" },
		"gcs without bucket":  func(c *Config) { c.Storage.Backend = "gcs" },
		"missing csv path":    func(c *Config) { c.Output.CSVPath = "" },
		"half pubsub":         func(c *Config) { c.PubSub.ProjectID = "p" },
		"min conns above max": func(c *Config) { c.DB = DBConfig{DSN: "postgres://x", MinConns: 4, MaxConns: 2} },
		"bad log level":       func(c *Config) { c.Logging.Level = "chatty" },
	}
	for name, mutate := range cases {
		cfg := validConfig()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}
