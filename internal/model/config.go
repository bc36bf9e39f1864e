package model

import "time"

// Config is the complete claimgate configuration
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Store       StoreConfig       `yaml:"store"`
	Cache       CacheConfig       `yaml:"cache"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Server      ServerConfig      `yaml:"server"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Output      OutputConfig      `yaml:"output"`
}

// LLMConfig configures the completion-service collaborator
type LLMConfig struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string `yaml:"provider"`

	// Model name (provider-specific)
	Model string `yaml:"model"`

	// APIKey for OpenAI/Anthropic (normally from env, not the config file)
	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL for custom endpoints (e.g., Ollama, proxies)
	BaseURL string `yaml:"base_url,omitempty"`

	// Timeout per API request, seconds
	Timeout int `yaml:"timeout"`

	// MaxTokens for response generation
	MaxTokens int `yaml:"max_tokens"`

	// Temperature for sampling; adjudication wants deterministic output
	Temperature float64 `yaml:"temperature"`

	// RateLimit is outbound call admission, requests per second (0 = unlimited)
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`

	// Proxy settings for the hand-rolled HTTP clients
	HTTPProxy  string `yaml:"http_proxy,omitempty"`
	HTTPSProxy string `yaml:"https_proxy,omitempty"`
	NoProxy    string `yaml:"no_proxy,omitempty"`
}

// EmbeddingConfig configures the embedding client used by the policy store
type EmbeddingConfig struct {
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
	Timeout int    `yaml:"timeout"`
}

// StoreConfig configures the policy document store
type StoreConfig struct {
	// Path to the sqlite database file
	Path string `yaml:"path"`

	// ChunkSize/ChunkOverlap control document splitting at ingest time
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	// TopK matches fetched per retrieval query
	TopK int `yaml:"top_k"`
}

// CacheConfig configures retrieval result caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl"`
}

// PipelineConfig configures the claim-processing pipeline itself
type PipelineConfig struct {
	// StageTimeout bounds each stage that calls a collaborator
	StageTimeout time.Duration `yaml:"stage_timeout"`

	// HighAmountThreshold flags claims above this amount for review
	HighAmountThreshold float64 `yaml:"high_amount_threshold"`

	// MaxQueries caps generated policy search queries
	MaxQueries int `yaml:"max_queries"`

	// PolicyContextLimit caps retrieved policy characters sent to the model
	PolicyContextLimit int `yaml:"policy_context_limit"`

	// LLMValidation asks the model to apply the validity rule instead of
	// evaluating it locally. The rule is fully deterministic, so this buys
	// nothing except parity with deployments that want the model in the loop;
	// the local predicate remains the fallback either way.
	LLMValidation bool `yaml:"llm_validation"`
}

// ServerConfig configures the HTTP entry point
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ConcurrencyConfig controls batch processing parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
}

// OutputConfig controls output verbosity
type OutputConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "",
			Timeout:     30,
			MaxTokens:   1000,
			Temperature: 0,
			RateLimit:   2,
			Burst:       4,
		},
		Embedding: EmbeddingConfig{
			Model:   "text-embedding-3-small",
			Timeout: 30,
		},
		Store: StoreConfig{
			Path:         "claimgate.db",
			ChunkSize:    500,
			ChunkOverlap: 50,
			TopK:         3,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".claimgate-cache",
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Pipeline: PipelineConfig{
			StageTimeout:        45 * time.Second,
			HighAmountThreshold: 10000,
			MaxQueries:          3,
			PolicyContextLimit:  2000,
			LLMValidation:       false,
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8787",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Output: OutputConfig{
			Verbose: false,
		},
	}
}
