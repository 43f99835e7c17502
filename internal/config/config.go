// Package config loads runtime settings from config.yaml with env-var
// overrides. Invalid or missing required settings abort startup.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath   string `yaml:"db_path"`
	HTTPAddr string `yaml:"http_addr"`
	Timezone string `yaml:"timezone"`

	ClassifierProvider string `yaml:"classifier_provider"`
	SentimentModelPath string `yaml:"sentiment_model_path"`
	AnthropicAPIKey    string `yaml:"anthropic_api_key"`
	AnthropicModel     string `yaml:"anthropic_model"`
	ClassifyBatchSize  int    `yaml:"classify_batch_size"`

	LexiconPath string `yaml:"lexicon_path"`
	TopWords    int    `yaml:"top_words"`

	ForecastPeriods int    `yaml:"forecast_periods"`
	ModelVersion    string `yaml:"model_version"`

	ClassifySchedule  string `yaml:"classify_schedule"`
	ForecastSchedule  string `yaml:"forecast_schedule"`
	StalenessSchedule string `yaml:"staleness_schedule"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	// Resolved from Timezone during Load.
	Location *time.Location `yaml:"-"`
}

func Load() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.HTTPAddr, "HTTP_ADDR")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride(&cfg.ClassifierProvider, "CLASSIFIER_PROVIDER")
	envOverride(&cfg.SentimentModelPath, "SENTIMENT_MODEL_PATH")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.AnthropicModel, "ANTHROPIC_MODEL")
	envOverrideInt(&cfg.ClassifyBatchSize, "CLASSIFY_BATCH_SIZE")
	envOverride(&cfg.LexiconPath, "LEXICON_PATH")
	envOverrideInt(&cfg.TopWords, "TOP_WORDS")
	envOverrideInt(&cfg.ForecastPeriods, "FORECAST_PERIODS")
	envOverride(&cfg.ModelVersion, "MODEL_VERSION")
	envOverride(&cfg.ClassifySchedule, "CLASSIFY_SCHEDULE")
	envOverride(&cfg.ForecastSchedule, "FORECAST_SCHEDULE")
	envOverride(&cfg.StalenessSchedule, "STALENESS_SCHEDULE")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "./fitmetrics.db"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.ClassifierProvider == "" {
		cfg.ClassifierProvider = "local"
	}
	if cfg.SentimentModelPath == "" {
		cfg.SentimentModelPath = "ai_model/sentiment_model.json"
	}
	if cfg.ClassifyBatchSize == 0 {
		cfg.ClassifyBatchSize = 50
	}
	if cfg.TopWords == 0 {
		cfg.TopWords = 10
	}
	if cfg.ForecastPeriods == 0 {
		cfg.ForecastPeriods = 6
	}
	if cfg.ModelVersion == "" {
		cfg.ModelVersion = "v2.0"
	}
	if cfg.ClassifySchedule == "" {
		cfg.ClassifySchedule = "*/5 * * * *"
	}
	if cfg.ForecastSchedule == "" {
		cfg.ForecastSchedule = "0 6 1 * *"
	}
	if cfg.StalenessSchedule == "" {
		cfg.StalenessSchedule = "0 8 * * 1"
	}

	// Validate
	switch cfg.ClassifierProvider {
	case "local":
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Fatalf("anthropic_api_key is required when classifier_provider=anthropic")
		}
	default:
		log.Fatalf("classifier_provider must be 'local' or 'anthropic', got '%s'", cfg.ClassifierProvider)
	}
	if cfg.ClassifyBatchSize < 1 {
		log.Fatalf("invalid classify_batch_size '%d': must be >= 1", cfg.ClassifyBatchSize)
	}
	if cfg.TopWords < 1 {
		log.Fatalf("invalid top_words '%d': must be >= 1", cfg.TopWords)
	}
	if cfg.ForecastPeriods < 1 || cfg.ForecastPeriods > 24 {
		log.Fatalf("invalid forecast_periods '%d': must be between 1 and 24", cfg.ForecastPeriods)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
	}
	cfg.Location = loc

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
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
