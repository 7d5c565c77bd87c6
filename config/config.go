package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	General        GeneralConfig        `mapstructure:"general"`
	LLM            LLMConfig            `mapstructure:"llm"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Prompts        PromptsConfig        `mapstructure:"prompts"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Listen string `mapstructure:"listen"`
	Debug  bool   `mapstructure:"debug"`
}

// LLMConfig contains the chat-completion provider settings
type LLMConfig struct {
	Model         string        `mapstructure:"model"`
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Temperature   float64       `mapstructure:"temperature"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Timeout       time.Duration `mapstructure:"timeout"`
	StreamTimeout time.Duration `mapstructure:"stream_timeout"`
}

func (c LLMConfig) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("llm.model is required")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("llm.api_key is required")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("llm.base_url is required")
	}
	return nil
}

// RecommendationConfig contains the course/report search service settings
type RecommendationConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	TopK    int           `mapstructure:"top_k"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func (c RecommendationConfig) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("recommendation.base_url is required")
	}
	if c.TopK <= 0 {
		return fmt.Errorf("recommendation.top_k must be > 0")
	}
	return nil
}

// PromptsConfig locates the on-disk prompt template tree
type PromptsConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoadConfig loads config from an optional file plus MATHTUTOR_* env vars
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("json")
	v.SetDefault("general.listen", ":8000")
	// Required values default to empty so env-only deployments can
	// override them; Validate rejects anything left blank.
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("recommendation.base_url", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.stream_timeout", 5*time.Minute)
	v.SetDefault("recommendation.top_k", 1)
	v.SetDefault("recommendation.timeout", 30*time.Second)
	v.SetDefault("prompts.dir", "prompts")

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("MATHTUTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // read in environment variables that match (MATHTUTOR_*)

	if err := v.ReadInConfig(); err != nil {
		// The file is optional; env-only deployments are fine. An explicit
		// path that cannot be read is still fatal.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.LLM.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Recommendation.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
