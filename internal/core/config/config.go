// Package config handles loading the issue bot's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure, matching the Configuration
// table: auth_token, database, embedding_api, summarization_api,
// github_api, huggingface_api, slack, message_config, model, server.
type Config struct {
	Debug     bool     `yaml:"debug,omitempty"`
	AuthToken string   `yaml:"auth_token"`
	BotLogins []string `yaml:"bot_logins"`

	Database         DatabaseConfig         `yaml:"database"`
	Qdrant           QdrantConfig           `yaml:"qdrant"`
	EmbeddingAPI     EmbeddingAPIConfig     `yaml:"embedding_api"`
	SummarizationAPI SummarizationAPIConfig `yaml:"summarization_api"`
	GithubAPI        ForgeAPIConfig         `yaml:"github_api"`
	HuggingfaceAPI   ForgeAPIConfig         `yaml:"huggingface_api"`
	Slack            SlackConfig            `yaml:"slack"`
	MessageConfig    MessageConfig          `yaml:"message_config"`
	Model            ModelConfig            `yaml:"model"`
	Server           ServerConfig           `yaml:"server"`
	Suggest          SuggestConfig          `yaml:"suggest"`
}

// SuggestConfig tunes the Suggestion Path's k-NN filtering: a minimum
// similarity score floor and a result-count range to keep.
type SuggestConfig struct {
	ScoreFloor float32 `yaml:"score_floor"`
	MinResults int     `yaml:"min_results"`
	MaxResults int     `yaml:"max_results"`
}

// DatabaseConfig holds the Store's Postgres connection pool settings.
type DatabaseConfig struct {
	ConnectionString string `yaml:"connection_string"`
	MaxConnections   int32  `yaml:"max_connections"`
}

// QdrantConfig points at the Store's vector index half.
type QdrantConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
}

// EmbeddingAPIConfig points at the remote embedding model endpoint.
type EmbeddingAPIConfig struct {
	URL       string `yaml:"url"`
	AuthToken string `yaml:"auth_token"`
}

// SummarizationAPIConfig points at the remote chat-completion endpoint.
type SummarizationAPIConfig struct {
	URL               string `yaml:"url"`
	AuthToken         string `yaml:"auth_token"`
	Model             string `yaml:"model"`
	SystemPrompt      string `yaml:"system_prompt"`
	SpecialTokensUsed bool   `yaml:"special_tokens_used"`
}

// ForgeAPIConfig is the shared shape of github_api/huggingface_api: forge
// credentials plus whether to actually post replies (vs. Slack fallback).
type ForgeAPIConfig struct {
	AuthToken       string `yaml:"auth_token"`
	WebhookSecret   string `yaml:"webhook_secret"`
	CommentsEnabled bool   `yaml:"comments_enabled"`
}

// SlackConfig is the fallback sink used when a forge's CommentsEnabled is
// false.
type SlackConfig struct {
	AuthToken    string `yaml:"auth_token"`
	Channel      string `yaml:"channel"`
	ChatWriteURL string `yaml:"chat_write_url"`
}

// MessageConfig holds the reply template halves.
type MessageConfig struct {
	Pre  string `yaml:"pre"`
	Post string `yaml:"post"`
}

// ModelConfig identifies the embedding model and its input/output bounds.
type ModelConfig struct {
	ID             string `yaml:"id"`
	Revision       string `yaml:"revision"`
	EmbeddingsSize int    `yaml:"embeddings_size"`
	MaxInputSize   int    `yaml:"max_input_size"`
}

// ServerConfig holds listen addresses.
type ServerConfig struct {
	IP          string `yaml:"ip"`
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
}

// Load reads a config file from the given path and expands environment
// variables -- the same load shape as the config loader this was adapted
// from: read, ExpandEnv, unmarshal, apply defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.IP == "" {
		c.Server.IP = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MetricsPort == 0 {
		c.Server.MetricsPort = 9090
	}
	if c.Database.MaxConnections == 0 {
		c.Database.MaxConnections = 10
	}
	if c.Model.MaxInputSize == 0 {
		c.Model.MaxInputSize = 8192
	}
	if c.Suggest.ScoreFloor == 0 {
		c.Suggest.ScoreFloor = 0.75
	}
	if c.Suggest.MinResults == 0 {
		c.Suggest.MinResults = 3
	}
	if c.Suggest.MaxResults == 0 {
		c.Suggest.MaxResults = 5
	}
}

// Validate checks the startup-fatal configuration invariants. The
// dimensionality-mismatch check itself lives in the embedding client,
// since it depends on a live round trip to learn Dimensions().
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" {
		return fmt.Errorf("database.connection_string is required")
	}
	if c.Model.EmbeddingsSize <= 0 {
		return fmt.Errorf("model.embeddings_size must be positive")
	}
	if c.GithubAPI.WebhookSecret == "" && c.HuggingfaceAPI.WebhookSecret == "" {
		return fmt.Errorf("at least one of github_api.webhook_secret or huggingface_api.webhook_secret is required")
	}
	return nil
}
