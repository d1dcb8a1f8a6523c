package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/tieubaoca/arxiv-rag/types"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type Config struct {
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// Secrets only come from the environment or .env.
	OpenAIAPIKey   string `mapstructure:"OPENAI_API_KEY" yaml:"-"`
	GeminiAPIKey   string `mapstructure:"GEMINI_API_KEY" yaml:"-"`
	WeaviateAPIKey string `mapstructure:"WEAVIATE_APIKEY" yaml:"-"`
	MongoDBURI     string `mapstructure:"MONGODB_URI" yaml:"-"`

	Feed          FeedConfig          `mapstructure:"feed" yaml:"feed"`
	MetadataStore StoreConfig         `mapstructure:"metadata_store" yaml:"metadata_store"`
	State         StoreConfig         `mapstructure:"state" yaml:"state"`
	Chunker       ChunkerConfig       `mapstructure:"chunker" yaml:"chunker"`
	Ingest        IngestConfig        `mapstructure:"ingest" yaml:"ingest"`
	Embedding     ProviderConfig      `mapstructure:"embedding" yaml:"embedding"`
	Generation    GenerationConfig    `mapstructure:"generation" yaml:"generation"`
	Answerer      AnswererConfig      `mapstructure:"answerer" yaml:"answerer"`
	VectorIndex   VectorIndexConfig   `mapstructure:"vector_index" yaml:"vector_index"`
	Conversations ConversationsConfig `mapstructure:"conversations" yaml:"conversations"`
	Server        ServerConfig        `mapstructure:"server" yaml:"server"`
}

type FeedConfig struct {
	BaseURL           string  `mapstructure:"base_url" yaml:"base_url"`
	Query             string  `mapstructure:"query" yaml:"query"`
	PageSize          int     `mapstructure:"page_size" yaml:"page_size"`
	TotalLimit        int     `mapstructure:"total_limit" yaml:"total_limit"`
	SortBy            string  `mapstructure:"sort_by" yaml:"sort_by"`
	SortOrder         string  `mapstructure:"sort_order" yaml:"sort_order"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	TimeoutSecs       int     `mapstructure:"timeout_secs" yaml:"timeout_secs"`
}

type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type ChunkerConfig struct {
	ChunkSize   int    `mapstructure:"chunk_size" yaml:"chunk_size"`
	Workers     int    `mapstructure:"workers" yaml:"workers"`
	Tokenizer   string `mapstructure:"tokenizer" yaml:"tokenizer"`
	Encoding    string `mapstructure:"encoding" yaml:"encoding"`
	DownloadDir string `mapstructure:"download_dir" yaml:"download_dir"`
	OCRLanguage string `mapstructure:"ocr_language" yaml:"ocr_language"`
}

type IngestConfig struct {
	BatchPct int `mapstructure:"batch_pct" yaml:"batch_pct"`
	Limit    int `mapstructure:"limit" yaml:"limit"`
}

type ProviderConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
}

type GenerationConfig struct {
	ProviderConfig `mapstructure:",squash" yaml:",inline"`
	Options        types.GenerationOptions `mapstructure:"options" yaml:"options"`
}

type AnswererConfig struct {
	TopK           int `mapstructure:"top_k" yaml:"top_k"`
	MaxDocuments   int `mapstructure:"max_documents" yaml:"max_documents"`
	HardTokenLimit int `mapstructure:"hard_token_limit" yaml:"hard_token_limit"`
	SoftTokenLimit int `mapstructure:"soft_token_limit" yaml:"soft_token_limit"`
	MaxIterations  int `mapstructure:"max_iterations" yaml:"max_iterations"`
	HistoryKeep    int `mapstructure:"history_keep" yaml:"history_keep"`
	SummaryMaxLen  int `mapstructure:"summary_max_len" yaml:"summary_max_len"`
}

type VectorIndexConfig struct {
	Type     string         `mapstructure:"type" yaml:"type"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Weaviate WeaviateConfig `mapstructure:"weaviate" yaml:"weaviate"`
}

type WeaviateConfig struct {
	Host  string `mapstructure:"host" yaml:"host"`
	Class string `mapstructure:"class" yaml:"class"`
}

type ConversationsConfig struct {
	Store string      `mapstructure:"store" yaml:"store"`
	Path  string      `mapstructure:"path" yaml:"path"`
	Mongo MongoConfig `mapstructure:"mongo" yaml:"mongo"`
}

type MongoConfig struct {
	Database   string `mapstructure:"database" yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

type ServerConfig struct {
	Port        string `mapstructure:"port" yaml:"port"`
	AllowOrigin string `mapstructure:"allow_origin" yaml:"allow_origin"`
}

func Default() Config {
	return Config{
		DataDir: "data",
		Feed: FeedConfig{
			BaseURL:           "http://export.arxiv.org/api/query",
			Query:             "all:quantum",
			PageSize:          100,
			TotalLimit:        300,
			SortBy:            "relevance",
			SortOrder:         "descending",
			RequestsPerSecond: 0.34,
			TimeoutSecs:       60,
		},
		Chunker: ChunkerConfig{
			ChunkSize:   512,
			Workers:     4,
			Tokenizer:   "tiktoken",
			Encoding:    "cl100k_base",
			OCRLanguage: "eng",
		},
		Ingest: IngestConfig{BatchPct: 25, Limit: 300},
		Embedding: ProviderConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Generation: GenerationConfig{
			ProviderConfig: ProviderConfig{Provider: "openai", Model: "gpt-4o-mini"},
			Options:        types.DefaultGenerationOptions(),
		},
		Answerer: AnswererConfig{
			TopK:           5,
			MaxDocuments:   5,
			HardTokenLimit: 4096,
			SoftTokenLimit: 2000,
			MaxIterations:  7,
			HistoryKeep:    4,
			SummaryMaxLen:  300,
		},
		VectorIndex: VectorIndexConfig{
			Type:     "local",
			Weaviate: WeaviateConfig{Host: "http://localhost:8080", Class: "ArxivChunk"},
		},
		Conversations: ConversationsConfig{
			Store: "bolt",
			Mongo: MongoConfig{Database: "arxiv_rag", Collection: "conversations"},
		},
		Server: ServerConfig{Port: "8080", AllowOrigin: "*"},
	}
}

// LoadConfig reads configPath on top of the defaults. A missing file is not
// an error. Secrets are read from the environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("GEMINI_API_KEY")
	v.BindEnv("WEAVIATE_APIKEY")
	v.BindEnv("MONGODB_URI")

	config := Default()
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// Save writes cfg as YAML. Secrets are never written.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Feed.PageSize <= 0 {
		add("feed.page_size must be positive, got %d", c.Feed.PageSize)
	}
	if c.Feed.TotalLimit <= 0 {
		add("feed.total_limit must be positive, got %d", c.Feed.TotalLimit)
	}
	if c.Chunker.ChunkSize <= 0 {
		add("chunker.chunk_size must be positive, got %d", c.Chunker.ChunkSize)
	}
	if c.Chunker.Workers <= 0 {
		add("chunker.workers must be positive, got %d", c.Chunker.Workers)
	}
	switch c.Chunker.Tokenizer {
	case "tiktoken", "words":
	default:
		add("chunker.tokenizer must be tiktoken or words, got %q", c.Chunker.Tokenizer)
	}
	if c.Ingest.BatchPct <= 0 || c.Ingest.BatchPct > 100 {
		add("ingest.batch_pct must be in 1..100, got %d", c.Ingest.BatchPct)
	}

	errs = append(errs, c.checkProvider("embedding", c.Embedding)...)
	errs = append(errs, c.checkProvider("generation", c.Generation.ProviderConfig)...)

	a := c.Answerer
	if a.TopK <= 0 {
		add("answerer.top_k must be positive, got %d", a.TopK)
	}
	if a.HardTokenLimit <= 0 || a.SoftTokenLimit <= 0 {
		add("answerer token limits must be positive")
	} else if a.SoftTokenLimit > a.HardTokenLimit {
		add("answerer.soft_token_limit (%d) exceeds hard_token_limit (%d)", a.SoftTokenLimit, a.HardTokenLimit)
	}
	if a.MaxIterations <= 0 {
		add("answerer.max_iterations must be positive, got %d", a.MaxIterations)
	}
	if a.HistoryKeep < 0 {
		add("answerer.history_keep must not be negative")
	}

	switch c.VectorIndex.Type {
	case "local", "memory":
	case "weaviate":
		if c.VectorIndex.Weaviate.Host == "" {
			add("vector_index.weaviate.host is required")
		}
	default:
		add("vector_index.type must be local, memory or weaviate, got %q", c.VectorIndex.Type)
	}

	switch c.Conversations.Store {
	case "bolt":
	case "mongo":
		if c.MongoDBURI == "" {
			add("MONGODB_URI is required for the mongo conversation store")
		}
	default:
		add("conversations.store must be bolt or mongo, got %q", c.Conversations.Store)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", types.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (c *Config) checkProvider(section string, p ProviderConfig) []error {
	var errs []error
	switch p.Provider {
	case "openai":
		// an OpenAI-compatible local server needs no key
		if c.OpenAIAPIKey == "" && p.BaseURL == "" {
			errs = append(errs, fmt.Errorf("OPENAI_API_KEY is required for %s provider openai", section))
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, fmt.Errorf("GEMINI_API_KEY is required for %s provider gemini", section))
		}
	default:
		errs = append(errs, fmt.Errorf("%s.provider must be openai or gemini, got %q", section, p.Provider))
	}
	if p.Model == "" {
		errs = append(errs, fmt.Errorf("%s.model is required", section))
	}
	return errs
}

func (c *Config) resolve(p, name string) string {
	if p != "" {
		return p
	}
	return filepath.Join(c.DataDir, name)
}

func (c *Config) MetadataStorePath() string { return c.resolve(c.MetadataStore.Path, "arxiv.db") }

func (c *Config) StatePath() string { return c.resolve(c.State.Path, "state.bolt") }

func (c *Config) VectorIndexPath() string { return c.resolve(c.VectorIndex.Path, "vectors.bolt") }

func (c *Config) ConversationsPath() string {
	return c.resolve(c.Conversations.Path, "conversations.bolt")
}

func (c *Config) DownloadDir() string { return c.resolve(c.Chunker.DownloadDir, "pdfs") }
