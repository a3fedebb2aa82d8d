package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	TopicsFile     string `mapstructure:"topics_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	RunIntervalSeconds int64         `mapstructure:"run_interval"`
	RunInterval        time.Duration `mapstructure:"-"`

	Workers             int           `mapstructure:"workers"`
	FetchTimeoutSeconds int64         `mapstructure:"fetch_timeout_seconds"`
	FetchTimeout        time.Duration `mapstructure:"-"`

	StorePath     string `mapstructure:"store_path"`
	StoreCapacity int    `mapstructure:"store_capacity"`

	HistoryType            string        `mapstructure:"history_type"`
	HistoryPath            string        `mapstructure:"history_path"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	HistoryTTLSeconds      int64         `mapstructure:"history_ttl_seconds"`
	HistoryCleanupSeconds  int64         `mapstructure:"history_cleanup_interval_seconds"`
	HistoryTTL             time.Duration `mapstructure:"-"`
	HistoryCleanupInterval time.Duration `mapstructure:"-"`

	EnrichMode        string `mapstructure:"enrich_mode"`
	AnalysisEndpoint  string `mapstructure:"analysis_endpoint"`
	AnalysisModel     string `mapstructure:"analysis_model"`
	AnalysisAPIKey    string `mapstructure:"analysis_api_key"`
	TranslateTarget   string `mapstructure:"translate_target"`
	TranslateAttempts int    `mapstructure:"translate_attempts"`

	TranslateChunkDelayMs int64         `mapstructure:"translate_chunk_delay_ms"`
	TranslateChunkDelay   time.Duration `mapstructure:"-"`

	ImageEndpoint    string `mapstructure:"image_endpoint"`
	ImagePlaceholder string `mapstructure:"image_placeholder"`

	MarketEnabled bool   `mapstructure:"market_enabled"`
	MarketURL     string `mapstructure:"market_url"`
	MarketPath    string `mapstructure:"market_path"`
}

// Supported enrichment modes.
const (
	EnrichModeAnalysis  = "analysis"
	EnrichModeTranslate = "translate"
)

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "pulse-news-radar")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("topics_file", "./configs/topics.yaml")
	v.SetDefault("publishers_file", "")
	v.SetDefault("run_interval", 0) // seconds; 0 runs once and exits
	v.SetDefault("workers", 4)
	v.SetDefault("fetch_timeout_seconds", 10)
	v.SetDefault("store_path", "./data/news.json")
	v.SetDefault("store_capacity", 60)
	v.SetDefault("history_type", "file")
	v.SetDefault("history_path", "./data/seen_news.txt")
	v.SetDefault("bbolt_path", "./data/history.db")
	v.SetDefault("history_ttl_seconds", 0) // 0 keeps identities forever
	v.SetDefault("history_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
	v.SetDefault("enrich_mode", EnrichModeAnalysis)
	v.SetDefault("analysis_endpoint", "https://gen.pollinations.ai/v1")
	v.SetDefault("analysis_model", "openai")
	v.SetDefault("translate_target", "fa")
	v.SetDefault("translate_attempts", 2)
	v.SetDefault("translate_chunk_delay_ms", 300)
	v.SetDefault("image_endpoint", "https://gen.pollinations.ai/image")
	v.SetDefault("image_placeholder", "https://placehold.co/800x600?text=News")
	v.SetDefault("market_enabled", false)
	v.SetDefault("market_url", "")
	v.SetDefault("market_path", "./data/market.json")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.RunIntervalSeconds < 0 {
		return nil, fmt.Errorf("invalid run_interval (must be zero or positive seconds)")
	}
	cfg.RunInterval = time.Duration(cfg.RunIntervalSeconds) * time.Second

	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("invalid workers (must be positive)")
	}
	if cfg.FetchTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid fetch_timeout_seconds (must be positive seconds)")
	}
	cfg.FetchTimeout = time.Duration(cfg.FetchTimeoutSeconds) * time.Second

	if cfg.StoreCapacity <= 0 {
		return nil, fmt.Errorf("invalid store_capacity (must be positive)")
	}
	if cfg.EnrichMode != EnrichModeAnalysis && cfg.EnrichMode != EnrichModeTranslate {
		return nil, fmt.Errorf("invalid enrich_mode %q (expected %q or %q)",
			cfg.EnrichMode, EnrichModeAnalysis, EnrichModeTranslate)
	}
	if cfg.TranslateAttempts <= 0 {
		cfg.TranslateAttempts = 2
	}
	if cfg.HistoryTTLSeconds < 0 {
		return nil, fmt.Errorf("invalid history_ttl_seconds (must be zero or positive seconds)")
	}
	if cfg.HistoryCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid history_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.HistoryTTL = time.Duration(cfg.HistoryTTLSeconds) * time.Second
	cfg.HistoryCleanupInterval = time.Duration(cfg.HistoryCleanupSeconds) * time.Second
	cfg.TranslateChunkDelay = time.Duration(cfg.TranslateChunkDelayMs) * time.Millisecond

	return &cfg, nil
}
