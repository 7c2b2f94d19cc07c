package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cuprecap/internal/report"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

type Config struct {
	DBPath     string `yaml:"db_path" toml:"db_path"`
	ListenAddr string `yaml:"listen_addr" toml:"listen_addr"`
	Timezone   string `yaml:"timezone" toml:"timezone"`

	ReportPeriodStart  string `yaml:"report_period_start" toml:"report_period_start"`
	ReportWindowMonths int    `yaml:"report_window_months" toml:"report_window_months"`
	CatalogSize        int    `yaml:"catalog_size" toml:"catalog_size"`
	FavoriteTieBreak   string `yaml:"favorite_tie_break" toml:"favorite_tie_break"`
	StoreName          string `yaml:"store_name" toml:"store_name"`
	RedeemBaseURL      string `yaml:"redeem_base_url" toml:"redeem_base_url"`
	DeviceLabel        string `yaml:"device_label" toml:"device_label"`

	SlackBotToken       string   `yaml:"slack_bot_token" toml:"slack_bot_token"`
	SlackAppToken       string   `yaml:"slack_app_token" toml:"slack_app_token"`
	RedemptionChannelID string   `yaml:"redemption_channel_id" toml:"redemption_channel_id"`
	StaffSlackIDs       []string `yaml:"staff_slack_ids" toml:"staff_slack_ids"`
	DigestSchedule      string   `yaml:"digest_schedule" toml:"digest_schedule"`

	LLMProvider     string `yaml:"llm_provider" toml:"llm_provider"`
	LLMModel        string `yaml:"llm_model" toml:"llm_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key" toml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key" toml:"openai_api_key"`

	ExternalHTTPTimeoutSeconds int  `yaml:"external_http_timeout_seconds" toml:"external_http_timeout_seconds"`
	MetricsEnabled             bool `yaml:"metrics_enabled" toml:"metrics_enabled"`

	Location *time.Location `yaml:"-" toml:"-"` // computed from Timezone
	Report   report.Options `yaml:"-" toml:"-"` // computed from the report_* keys
}

func LoadConfig() Config {
	var cfg Config
	// Metrics stay on unless a file or env var turns them off.
	cfg.MetricsEnabled = true

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if strings.EqualFold(filepath.Ext(configPath), ".toml") {
			if _, err := toml.Decode(string(data), &cfg); err != nil {
				log.Fatalf("Error parsing %s: %v", configPath, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride(&cfg.ReportPeriodStart, "REPORT_PERIOD_START")
	envOverrideInt(&cfg.ReportWindowMonths, "REPORT_WINDOW_MONTHS")
	envOverrideInt(&cfg.CatalogSize, "CATALOG_SIZE")
	envOverride(&cfg.FavoriteTieBreak, "FAVORITE_TIE_BREAK")
	envOverride(&cfg.StoreName, "STORE_NAME")
	envOverride(&cfg.RedeemBaseURL, "REDEEM_BASE_URL")
	envOverride(&cfg.DeviceLabel, "DEVICE_LABEL")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverride(&cfg.RedemptionChannelID, "REDEMPTION_CHANNEL_ID")
	envOverrideAllowEmpty(&cfg.DigestSchedule, "DIGEST_SCHEDULE")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverrideBool(&cfg.MetricsEnabled, "METRICS_ENABLED")

	if ids := os.Getenv("STAFF_SLACK_IDS"); ids != "" {
		cfg.StaffSlackIDs = nil
		for _, id := range strings.Split(ids, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				cfg.StaffSlackIDs = append(cfg.StaffSlackIDs, id)
			}
		}
	}

	if cfg.DBPath == "" {
		cfg.DBPath = "./cuprecap.db"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.ReportPeriodStart == "" {
		cfg.ReportPeriodStart = "2025-01"
	}
	if cfg.ReportWindowMonths == 0 {
		cfg.ReportWindowMonths = report.DefaultWindowMonths
	}
	if cfg.CatalogSize == 0 {
		cfg.CatalogSize = report.DefaultCatalogSize
	}
	if cfg.FavoriteTieBreak == "" {
		cfg.FavoriteTieBreak = string(report.TieBreakFirstSeen)
	}
	if cfg.StoreName == "" {
		cfg.StoreName = "Cup Recap"
	}
	if cfg.DeviceLabel == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.DeviceLabel = host
		} else {
			cfg.DeviceLabel = "counter"
		}
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModel(cfg.LLMProvider)
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	if (cfg.SlackBotToken == "") != (cfg.SlackAppToken == "") {
		log.Fatalf("Partial Slack config: slack_bot_token and slack_app_token are required together")
	}
	if !cfg.SlackConfigured() {
		log.Printf("WARNING: Slack is not configured. /redeem, /recap and the redemption digest are disabled.")
	}

	switch cfg.LLMProvider {
	case "anthropic", "openai":
	default:
		log.Fatalf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
	}
	if !cfg.LLMConfigured() {
		log.Printf("WARNING: no API key for llm_provider=%s. Coffee-personality insights use the fallback message.", cfg.LLMProvider)
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	start, err := report.ParsePeriodStart(cfg.ReportPeriodStart, cfg.Location)
	if err != nil {
		log.Fatalf("invalid report_period_start '%s': %v", cfg.ReportPeriodStart, err)
	}
	tieBreak, err := report.ParseTieBreak(cfg.FavoriteTieBreak)
	if err != nil {
		log.Fatalf("invalid favorite_tie_break '%s': %v", cfg.FavoriteTieBreak, err)
	}
	if cfg.ReportWindowMonths < 1 || cfg.ReportWindowMonths > 120 {
		log.Fatalf("invalid report_window_months '%d': must be between 1 and 120", cfg.ReportWindowMonths)
	}
	if cfg.CatalogSize < 1 {
		log.Fatalf("invalid catalog_size '%d': must be >= 1", cfg.CatalogSize)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 5 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 5", cfg.ExternalHTTPTimeoutSeconds)
	}

	cfg.Report = report.Options{
		PeriodStart:  start,
		WindowMonths: cfg.ReportWindowMonths,
		CatalogSize:  cfg.CatalogSize,
		TieBreak:     tieBreak,
		Location:     cfg.Location,
	}

	return cfg
}

func defaultModel(provider string) string {
	if provider == "openai" {
		return "gpt-4o-mini"
	}
	return "claude-3-5-haiku-latest"
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = strings.EqualFold(val, "true") || val == "1"
	}
}

func (c Config) IsStaffID(userID string) bool {
	for _, id := range c.StaffSlackIDs {
		if strings.TrimSpace(id) == userID {
			return true
		}
	}
	return false
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackAppToken != ""
}

func (c Config) LLMConfigured() bool {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIAPIKey != ""
	default:
		return c.AnthropicAPIKey != ""
	}
}

// LLMAPIKey returns the key for the configured provider.
func (c Config) LLMAPIKey() string {
	if c.LLMProvider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.AnthropicAPIKey
}
