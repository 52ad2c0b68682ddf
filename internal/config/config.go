package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is built once at
// startup and passed into each component; nothing reads ambient state.
type Config struct {
	IMAP      IMAPConfig      `yaml:"imap" mapstructure:"imap"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Sheet     SheetConfig     `yaml:"sheet" mapstructure:"sheet"`
	Ledger    LedgerConfig    `yaml:"ledger" mapstructure:"ledger"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Classify  ClassifyConfig  `yaml:"classify" mapstructure:"classify"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// IMAPConfig holds mailbox connection settings. The password itself
// lives in the OS keyring (see internal/secrets).
type IMAPConfig struct {
	Host         string `yaml:"host" mapstructure:"host"`
	Port         int    `yaml:"port" mapstructure:"port"`
	Username     string `yaml:"username" mapstructure:"username"`
	TrashMailbox string `yaml:"trash_mailbox" mapstructure:"trash_mailbox"`
}

// FetchConfig selects which messages a run looks at.
type FetchConfig struct {
	// Mode is "count" (N most recent) or "days" (received in last D days).
	Mode  string `yaml:"mode" mapstructure:"mode"`
	Count int    `yaml:"count" mapstructure:"count"`
	Days  int    `yaml:"days" mapstructure:"days"`
}

// SheetConfig points at the local workbook applications are appended to.
type SheetConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	SheetName string `yaml:"sheet_name" mapstructure:"sheet_name"`
}

// LedgerConfig holds the dedup ledger store and the cross-run lock path.
type LedgerConfig struct {
	Path     string `yaml:"path" mapstructure:"path"`
	LockPath string `yaml:"lock_path" mapstructure:"lock_path"`
}

// AnthropicConfig holds AI fallback settings.
type AnthropicConfig struct {
	Key            string        `yaml:"key" mapstructure:"key"`
	Model          string        `yaml:"model" mapstructure:"model"`
	RequestsPerMin float64       `yaml:"requests_per_min" mapstructure:"requests_per_min"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ClassifyConfig holds classifier rule inputs. Lists are extras layered
// on top of the built-in defaults in internal/classify.
type ClassifyConfig struct {
	ATSDomains       []string `yaml:"ats_domains" mapstructure:"ats_domains"`
	PositiveKeywords []string `yaml:"positive_keywords" mapstructure:"positive_keywords"`
	NegativeKeywords []string `yaml:"negative_keywords" mapstructure:"negative_keywords"`
	AISecondOpinion  bool     `yaml:"ai_second_opinion" mapstructure:"ai_second_opinion"`
	RulesPath        string   `yaml:"rules_path" mapstructure:"rules_path"`
}

// PipelineConfig holds orchestration knobs.
type PipelineConfig struct {
	ConfidenceThreshold float64       `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	AIDefaultConfidence float64       `yaml:"ai_default_confidence" mapstructure:"ai_default_confidence"`
	WatchInterval       time.Duration `yaml:"watch_interval" mapstructure:"watch_interval"`
}

// LogConfig controls logger output.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads config.yaml from the working directory plus APPTRACK_*
// environment overrides, applies defaults, and validates the result.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("APPTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("imap.host", "imap.gmail.com")
	v.SetDefault("imap.port", 993)
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.trash_mailbox", "[Gmail]/Trash")
	v.SetDefault("fetch.mode", "days")
	v.SetDefault("fetch.days", 7)
	v.SetDefault("fetch.count", 50)
	v.SetDefault("sheet.path", "data/applications.xlsx")
	v.SetDefault("sheet.sheet_name", "Applications")
	v.SetDefault("ledger.path", "data/ledger.sqlite")
	v.SetDefault("ledger.lock_path", "data/apptrack.lock")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("classify.ai_second_opinion", false)
	v.SetDefault("classify.rules_path", "")
	v.SetDefault("anthropic.requests_per_min", 30)
	v.SetDefault("anthropic.timeout", 30*time.Second)
	v.SetDefault("pipeline.confidence_threshold", 0.3)
	v.SetDefault("pipeline.ai_default_confidence", 0.6)
	v.SetDefault("pipeline.watch_interval", time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Config file is optional; defaults plus env are enough to run.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Fetch.Mode {
	case "count", "days":
	default:
		return eris.Errorf("config: fetch.mode must be count or days, got %q", c.Fetch.Mode)
	}
	if c.Fetch.Mode == "count" && c.Fetch.Count <= 0 {
		return eris.New("config: fetch.count must be positive")
	}
	if c.Fetch.Mode == "days" && c.Fetch.Days <= 0 {
		return eris.New("config: fetch.days must be positive")
	}
	if t := c.Pipeline.ConfidenceThreshold; t < 0 || t > 1 {
		return eris.Errorf("config: confidence_threshold %v outside [0,1]", t)
	}
	if t := c.Pipeline.AIDefaultConfidence; t < 0 || t > 1 {
		return eris.Errorf("config: ai_default_confidence %v outside [0,1]", t)
	}
	return nil
}

// InitLogger builds the global zap logger from the log section.
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
