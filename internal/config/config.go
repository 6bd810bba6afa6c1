package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v2"

	"macro-risk-lab/internal/domain"
)

// EnvPrefix prefixes every environment variable, e.g. MRL_ANALYSIS_HORIZON.
const EnvPrefix = "MRL"

// FileEnvVar names the optional YAML config file.
const FileEnvVar = "MRL_CONFIG_FILE"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config represents the complete application configuration
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
	Sources  SourcesConfig  `yaml:"sources" envconfig:"SOURCES"`
	Storage  StorageConfig  `yaml:"storage" envconfig:"STORAGE"`
	Output   OutputConfig   `yaml:"output" envconfig:"OUTPUT"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`

	// FREDAPIKey is read from MRL_FRED_API_KEY only.
	FREDAPIKey string `yaml:"-" envconfig:"FRED_API_KEY"`
}

// AnalysisConfig contains the analysis parameters of a run.
type AnalysisConfig struct {
	Target               string   `yaml:"target" envconfig:"TARGET"`
	Horizon              int      `yaml:"horizon" envconfig:"HORIZON"`
	DrawdownThreshold    float64  `yaml:"drawdown_threshold" envconfig:"DRAWDOWN_THRESHOLD"`
	CorrelationThreshold float64  `yaml:"correlation_threshold" envconfig:"CORRELATION_THRESHOLD"`
	Cutoff               string   `yaml:"cutoff" envconfig:"CUTOFF"` // YYYY-MM-DD
	BoundaryPolicy       string   `yaml:"boundary_policy" envconfig:"BOUNDARY_POLICY"`
	DecisionThreshold    float64  `yaml:"decision_threshold" envconfig:"DECISION_THRESHOLD"`
	MaxIterations        int      `yaml:"max_iterations" envconfig:"MAX_ITERATIONS"`
	L2                   float64  `yaml:"l2" envconfig:"L2"`
	Candidates           []string `yaml:"candidates" envconfig:"CANDIDATES"`
	IncludeRolling       bool     `yaml:"include_rolling" envconfig:"INCLUDE_ROLLING"`
	MinRows              int      `yaml:"min_rows" envconfig:"MIN_ROWS"`
	Workers              int      `yaml:"workers" envconfig:"WORKERS"`
}

// SourcesConfig contains upstream provider configuration
type SourcesConfig struct {
	Series       []string      `yaml:"series" envconfig:"SERIES"` // provider ids from the schema
	FREDBaseURL  string        `yaml:"fred_base_url" envconfig:"FRED_BASE_URL"`
	YahooBaseURL string        `yaml:"yahoo_base_url" envconfig:"YAHOO_BASE_URL"`
	CSVDir       string        `yaml:"csv_dir" envconfig:"CSV_DIR"` // read local files instead of the network
	Start        string        `yaml:"start" envconfig:"START"`     // YYYY-MM-DD
	RateLimit    float64       `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	MaxRetries   int           `yaml:"max_retries" envconfig:"MAX_RETRIES"`
	Workers      int           `yaml:"workers" envconfig:"WORKERS"`
}

// StorageConfig selects store backends. Empty DSNs use in-memory stores.
type StorageConfig struct {
	ClickHouseDSN string `yaml:"clickhouse_dsn" envconfig:"CLICKHOUSE_DSN"`
	PostgresDSN   string `yaml:"postgres_dsn" envconfig:"POSTGRES_DSN"`
}

// OutputConfig contains artifact export configuration
type OutputConfig struct {
	Dir string `yaml:"dir" envconfig:"DIR"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level             string `yaml:"level" envconfig:"LEVEL"`
	Encoding          string `yaml:"encoding" envconfig:"ENCODING"` // json | console
	Development       bool   `yaml:"development" envconfig:"DEVELOPMENT"`
	DisableCaller     bool   `yaml:"disable_caller" envconfig:"DISABLE_CALLER"`
	DisableStacktrace bool   `yaml:"disable_stacktrace" envconfig:"DISABLE_STACKTRACE"`
	Sampling          bool   `yaml:"sampling" envconfig:"SAMPLING"`
}

// ServerConfig contains HTTP server and scheduler configuration
type ServerConfig struct {
	Addr            string        `yaml:"addr" envconfig:"ADDR"`
	Schedule        string        `yaml:"schedule" envconfig:"SCHEDULE"` // cron spec, empty disables
	RunOnStart      bool          `yaml:"run_on_start" envconfig:"RUN_ON_START"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RunTimeout      time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT"`
}

// Default returns default configuration
func Default() *Config {
	var candidates, series []string
	for _, s := range domain.Schema {
		series = append(series, s.ID)
		if s.Name != "NASDAQ" {
			candidates = append(candidates, s.Name)
		}
	}

	return &Config{
		Analysis: AnalysisConfig{
			Target:               "NASDAQ",
			Horizon:              60,
			DrawdownThreshold:    -0.02,
			CorrelationThreshold: 0.5,
			Cutoff:               "2019-01-01",
			BoundaryPolicy:       "truncate",
			DecisionThreshold:    0.5,
			MaxIterations:        1000,
			L2:                   1.0,
			Candidates:           candidates,
			MinRows:              30,
			Workers:              4,
		},
		Sources: SourcesConfig{
			Series:       series,
			FREDBaseURL:  "https://api.stlouisfed.org/fred",
			YahooBaseURL: "https://query1.finance.yahoo.com",
			Start:        "2000-01-01",
			RateLimit:    2,
			Timeout:      30 * time.Second,
			MaxRetries:   3,
			Workers:      4,
		},
		Output: OutputConfig{
			Dir: "results",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			Schedule:        "0 6 * * 1-5",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RunTimeout:      30 * time.Minute,
		},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// MRL_CONFIG_FILE and MRL_* environment variables, in that order of
// precedence (env wins).
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnvVar); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg. Keys absent from the file
// keep their current value.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	a := c.Analysis

	var problems []string
	if a.Target == "" {
		problems = append(problems, "analysis target is empty")
	}
	if a.Horizon < 1 {
		problems = append(problems, fmt.Sprintf("horizon must be >= 1, got %d", a.Horizon))
	}
	if a.DrawdownThreshold >= 0 {
		problems = append(problems, fmt.Sprintf("drawdown threshold must be negative, got %g", a.DrawdownThreshold))
	}
	if a.CorrelationThreshold < 0 || a.CorrelationThreshold >= 1 {
		problems = append(problems, fmt.Sprintf("correlation threshold must be in [0,1), got %g", a.CorrelationThreshold))
	}
	if _, err := time.Parse(domain.DateLayout, a.Cutoff); err != nil {
		problems = append(problems, fmt.Sprintf("cutoff %q is not YYYY-MM-DD", a.Cutoff))
	}
	if a.BoundaryPolicy != "truncate" && a.BoundaryPolicy != "strict" {
		problems = append(problems, fmt.Sprintf("unknown boundary policy %q", a.BoundaryPolicy))
	}
	if a.DecisionThreshold < 0 || a.DecisionThreshold > 1 {
		problems = append(problems, fmt.Sprintf("decision threshold must be in [0,1], got %g", a.DecisionThreshold))
	}
	if a.MaxIterations < 1 {
		problems = append(problems, fmt.Sprintf("max iterations must be >= 1, got %d", a.MaxIterations))
	}
	if a.L2 < 0 {
		problems = append(problems, fmt.Sprintf("l2 must be >= 0, got %g", a.L2))
	}
	for _, name := range a.Candidates {
		if name == a.Target {
			problems = append(problems, fmt.Sprintf("target %s listed as candidate", name))
		}
	}
	if _, err := time.Parse(domain.DateLayout, c.Sources.Start); err != nil {
		problems = append(problems, fmt.Sprintf("sources start %q is not YYYY-MM-DD", c.Sources.Start))
	}
	for _, id := range c.Sources.Series {
		if _, ok := domain.LookupSpec(id); !ok {
			problems = append(problems, fmt.Sprintf("unknown series %q", id))
		}
	}
	if c.Server.Schedule != "" {
		if _, err := cron.ParseStandard(c.Server.Schedule); err != nil {
			problems = append(problems, fmt.Sprintf("schedule %q: %v", c.Server.Schedule, err))
		}
	}
	if c.Logging.Encoding != "json" && c.Logging.Encoding != "console" {
		problems = append(problems, fmt.Sprintf("unknown log encoding %q", c.Logging.Encoding))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// CutoffDate returns the parsed split cutoff.
func (c *Config) CutoffDate() time.Time {
	t, _ := time.Parse(domain.DateLayout, c.Analysis.Cutoff)
	return t
}

// StartDate returns the parsed ingestion start date.
func (c *Config) StartDate() time.Time {
	t, _ := time.Parse(domain.DateLayout, c.Sources.Start)
	return t
}

// SeriesSpecs resolves Sources.Series against the schema.
func (c *Config) SeriesSpecs() []domain.SeriesSpec {
	specs := make([]domain.SeriesSpec, 0, len(c.Sources.Series))
	for _, id := range c.Sources.Series {
		if spec, ok := domain.LookupSpec(id); ok {
			specs = append(specs, spec)
		}
	}
	return specs
}

// Redacted returns the YAML rendering of the configuration. The API key
// is never part of the output.
func (c *Config) Redacted() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return ""
	}
	return string(out)
}
