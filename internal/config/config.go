package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/advocate-cli/internal/advocate"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig         `yaml:"store" mapstructure:"store"`
	Roster  RosterConfig        `yaml:"roster" mapstructure:"roster"`
	Matcher advocate.Thresholds `yaml:"matcher" mapstructure:"matcher"`
	Batch   BatchConfig         `yaml:"batch" mapstructure:"batch"`
	Server  ServerConfig        `yaml:"server" mapstructure:"server"`
	Log     LogConfig           `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the verification store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// RosterConfig configures where the reference roster comes from.
type RosterConfig struct {
	// Source is a file path, an http(s) URL, "store" or "seed".
	Source       string           `yaml:"source" mapstructure:"source"`
	Delimiter    string           `yaml:"delimiter" mapstructure:"delimiter"`
	Sheet        string           `yaml:"sheet" mapstructure:"sheet"`
	FallbackSeed bool             `yaml:"fallback_seed" mapstructure:"fallback_seed"`
	HTTP         RosterHTTPConfig `yaml:"http" mapstructure:"http"`
}

// RosterHTTPConfig configures downloads of a remote roster.
type RosterHTTPConfig struct {
	UserAgent               string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs             int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec              float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxAttempts             int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs        int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs            int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	CircuitFailureThreshold int     `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold"`
	CircuitResetSecs        int     `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// BatchConfig configures the batch command.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	APIKey         string   `yaml:"api_key" mapstructure:"api_key"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DelimiterRune returns the configured delimiter, or 0 to let the source
// decide. "tab" and "\t" both mean a tab.
func (r RosterConfig) DelimiterRune() rune {
	switch r.Delimiter {
	case "":
		return 0
	case "tab", `\t`:
		return '\t'
	default:
		return []rune(r.Delimiter)[0]
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ADVOCATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	th := advocate.DefaultThresholds()
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "advocate.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("roster.source", "seed")
	v.SetDefault("roster.fallback_seed", true)
	v.SetDefault("roster.http.user_agent", "advocate-cli/1.0")
	v.SetDefault("roster.http.timeout_secs", 30)
	v.SetDefault("roster.http.rate_per_sec", 1.0)
	v.SetDefault("roster.http.max_attempts", 3)
	v.SetDefault("roster.http.initial_backoff_ms", 500)
	v.SetDefault("roster.http.max_backoff_ms", 10000)
	v.SetDefault("roster.http.circuit_failure_threshold", 5)
	v.SetDefault("roster.http.circuit_reset_secs", 30)
	v.SetDefault("matcher.accept", th.Accept)
	v.SetDefault("matcher.fast_path_strong", th.FastPathStrong)
	v.SetDefault("matcher.fast_path_weak", th.FastPathWeak)
	v.SetDefault("matcher.fast_path_name_cutoff", th.FastPathNameCutoff)
	v.SetDefault("matcher.enrollment_scan_min", th.EnrollmentScanMin)
	v.SetDefault("matcher.exact_tier", th.ExactTier)
	v.SetDefault("matcher.very_high_tier", th.VeryHighTier)
	v.SetDefault("matcher.partial_tier", th.PartialTier)
	v.SetDefault("batch.concurrency", 8)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})

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

// Validate checks the settings a command needs. Mode is one of "verify",
// "batch", "import", "migrate" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "verify":
	case "batch":
		if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 64 {
			errs = append(errs, "batch.concurrency must be between 1 and 64")
		}
	case "import", "migrate":
		errs = append(errs, c.storeErrors()...)
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		errs = append(errs, c.storeErrors()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Roster.Source == "" {
		errs = append(errs, "roster.source is required")
	}
	if c.Roster.Source == "store" && mode != "import" && mode != "migrate" {
		errs = append(errs, c.storeErrors()...)
	}
	if len([]rune(c.Roster.Delimiter)) > 1 && c.Roster.DelimiterRune() != '\t' {
		errs = append(errs, "roster.delimiter must be a single character or \"tab\"")
	}
	errs = append(errs, thresholdErrors(c.Matcher)...)

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(dedupe(errs), "; "))
	}
	return nil
}

func (c *Config) storeErrors() []string {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	return errs
}

func thresholdErrors(t advocate.Thresholds) []string {
	var errs []string
	check := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, "matcher."+name+" must be between 0 and 1")
		}
	}
	check("accept", t.Accept)
	check("fast_path_strong", t.FastPathStrong)
	check("fast_path_weak", t.FastPathWeak)
	check("fast_path_name_cutoff", t.FastPathNameCutoff)
	check("enrollment_scan_min", t.EnrollmentScanMin)
	check("exact_tier", t.ExactTier)
	check("very_high_tier", t.VeryHighTier)
	check("partial_tier", t.PartialTier)
	return errs
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
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
