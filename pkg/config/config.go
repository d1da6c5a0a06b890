package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type PipelineConfig struct {
	BatchFloor               int `mapstructure:"batch_floor"`
	MaxBatches               int `mapstructure:"max_batches"`
	InterBatchDelaySeconds   int `mapstructure:"inter_batch_delay_seconds"`
	RateLimitCooldownSeconds int `mapstructure:"rate_limit_cooldown_seconds"`
	MinRecords               int `mapstructure:"min_records"`
	MaxCorpusTokens          int `mapstructure:"max_corpus_tokens"`
}

func (p PipelineConfig) InterBatchDelay() time.Duration {
	return time.Duration(p.InterBatchDelaySeconds) * time.Second
}

func (p PipelineConfig) RateLimitCooldown() time.Duration {
	return time.Duration(p.RateLimitCooldownSeconds) * time.Second
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 2048)
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("pipeline.batch_floor", 50)
	v.SetDefault("pipeline.max_batches", 10)
	v.SetDefault("pipeline.inter_batch_delay_seconds", 10)
	v.SetDefault("pipeline.rate_limit_cooldown_seconds", 60)
	v.SetDefault("pipeline.min_records", 1)
	v.SetDefault("pipeline.max_corpus_tokens", 200000)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file when present; defaults plus env vars are a
	// complete configuration on their own.
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	return &config, nil
}
