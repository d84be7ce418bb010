// Package config loads and validates digest configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/JakeFAU/vc-portfolio-digest/internal/discover"
	"github.com/JakeFAU/vc-portfolio-digest/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. DIGEST_CRAWLER_MAX_PAGES.
const EnvPrefix = "DIGEST"

// DotEnvFile is loaded into the process environment when present.
var DotEnvFile = ".env"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Validator ValidatorConfig `mapstructure:"validator"`
	Pacing    PacingConfig    `mapstructure:"pacing"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Output    OutputConfig    `mapstructure:"output"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	API       APIConfig       `mapstructure:"api"`
}

// LoggingConfig toggles zap development features and the level.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// CrawlerConfig bounds each company crawl.
type CrawlerConfig struct {
	MaxPages      int           `mapstructure:"max_pages"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxPageChars  int           `mapstructure:"max_page_chars"`
	UserAgent     string        `mapstructure:"user_agent"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	MaxBodyBytes  int           `mapstructure:"max_body_bytes"`
	RPS           float64       `mapstructure:"rps"`
	Burst         int           `mapstructure:"burst"`
}

// DiscoveryConfig drives the headless portfolio page scan.
type DiscoveryConfig struct {
	Skip              bool          `mapstructure:"skip"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	ClickTimeout      time.Duration `mapstructure:"click_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	ExecPath          string        `mapstructure:"exec_path"`
	ExcludedDomains   []string      `mapstructure:"excluded_domains"`
}

// LLMConfig configures the completion client.
type LLMConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Model          string        `mapstructure:"model"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RPS            float64       `mapstructure:"rps"`
	Burst          int           `mapstructure:"burst"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	RetryBase      time.Duration `mapstructure:"retry_base"`
	RetryMax       time.Duration `mapstructure:"retry_max"`
}

// ValidatorConfig toggles the URL validator.
type ValidatorConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// PacingConfig sets the pause between companies.
type PacingConfig struct {
	CompanyDelay time.Duration `mapstructure:"company_delay"`
}

// StorageConfig selects the blob backend for the cache, progress and URL list.
type StorageConfig struct {
	Backend string             `mapstructure:"backend"`
	Local   LocalStorageConfig `mapstructure:"local"`
	GCS     GCSStorageConfig   `mapstructure:"gcs"`
}

// LocalStorageConfig roots the filesystem backend.
type LocalStorageConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// GCSStorageConfig names the bucket backend.
type GCSStorageConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// OutputConfig names the ledger files.
type OutputConfig struct {
	CSVPath  string `mapstructure:"csv_path"`
	DocxPath string `mapstructure:"docx_path"`
}

// DBConfig controls the optional Postgres summary mirror. An empty DSN
// disables it.
type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// PubSubConfig holds the optional company notification topic.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// APIConfig enables the operator HTTP server when ListenAddr is set.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	APIKey     string `mapstructure:"api_key"`
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"skip-discovery": "discovery.skip",
	"max-pages":      "crawler.max_pages",
	"api-addr":       "api.listen_addr",
	"log-level":      "logging.level",
	"output-dir":     "storage.local.base_dir",
}

// Load builds a Config from defaults, the optional .env file, the optional
// config file at path, environment variables and the changed flags in
// flags (which may be nil), in increasing precedence.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "OPENAI_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind api key env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	if err := bindFlags(v, flags); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("crawler.max_pages", 5)
	v.SetDefault("crawler.timeout", 60*time.Second)
	v.SetDefault("crawler.max_page_chars", 5000)
	v.SetDefault("crawler.user_agent", "Mozilla/5.0 (compatible; portfolio-digest/1.0)")
	v.SetDefault("crawler.respect_robots", true)
	v.SetDefault("crawler.fetch_timeout", 10*time.Second)
	v.SetDefault("crawler.max_body_bytes", 10<<20)
	v.SetDefault("crawler.rps", 2.0)
	v.SetDefault("crawler.burst", 1)
	v.SetDefault("discovery.skip", false)
	v.SetDefault("discovery.navigation_timeout", 30*time.Second)
	v.SetDefault("discovery.click_timeout", 2*time.Second)
	v.SetDefault("discovery.settle_delay", 2*time.Second)
	v.SetDefault("discovery.exec_path", "")
	v.SetDefault("discovery.excluded_domains", append([]string(nil), discover.DefaultExcludedDomains...))
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "gpt-3.5-turbo")
	v.SetDefault("llm.request_timeout", 30*time.Second)
	v.SetDefault("llm.rps", 0.0)
	v.SetDefault("llm.burst", 1)
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.retry_base", 500*time.Millisecond)
	v.SetDefault("llm.retry_max", 8*time.Second)
	v.SetDefault("validator.enabled", true)
	v.SetDefault("pacing.company_delay", time.Second)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local.base_dir", ".")
	v.SetDefault("storage.gcs.bucket", "")
	v.SetDefault("storage.gcs.prefix", "")
	v.SetDefault("output.csv_path", "short_summaries.csv")
	v.SetDefault("output.docx_path", "long_summaries.docx")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "company_summaries")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("db.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_id", "")
	v.SetDefault("api.listen_addr", "")
	v.SetDefault("api.api_key", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return errors.New("llm.api_key is required (set DIGEST_LLM_API_KEY or OPENAI_API_KEY)")
	}
	if c.Crawler.MaxPages <= 0 {
		return errors.New("crawler.max_pages must be > 0")
	}
	if c.Crawler.Timeout <= 0 {
		return errors.New("crawler.timeout must be > 0")
	}
	if c.Crawler.MaxPageChars <= 0 {
		return errors.New("crawler.max_page_chars must be > 0")
	}
	if c.Crawler.FetchTimeout <= 0 {
		return errors.New("crawler.fetch_timeout must be > 0")
	}
	if c.Crawler.RPS < 0 || c.LLM.RPS < 0 {
		return errors.New("rps must be >= 0")
	}
	if c.Discovery.NavigationTimeout <= 0 {
		return errors.New("discovery.navigation_timeout must be > 0")
	}
	if c.LLM.MaxAttempts <= 0 {
		return errors.New("llm.max_attempts must be > 0")
	}
	if c.LLM.RequestTimeout <= 0 {
		return errors.New("llm.request_timeout must be > 0")
	}
	if c.Pacing.CompanyDelay < 0 {
		return errors.New("pacing.company_delay must be >= 0")
	}
	switch c.Storage.Backend {
	case "local":
		if c.Storage.Local.BaseDir == "" {
			return errors.New("storage.local.base_dir is required for the local backend")
		}
	case "memory":
	case "gcs":
		if c.Storage.GCS.Bucket == "" {
			return errors.New("storage.gcs.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not one of local, memory, gcs", c.Storage.Backend)
	}
	if c.Output.CSVPath == "" || c.Output.DocxPath == "" {
		return errors.New("output.csv_path and output.docx_path are required")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.TopicID == "") {
		return errors.New("pubsub.project_id and pubsub.topic_id must be set together")
	}
	if c.DB.DSN != "" && c.DB.MinConns > c.DB.MaxConns {
		return errors.New("db.min_conns must be <= db.max_conns")
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}
