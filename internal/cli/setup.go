package cli

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/claimgate/internal/cache"
	"github.com/ppiankov/claimgate/internal/llm"
	"github.com/ppiankov/claimgate/internal/model"
	"github.com/ppiankov/claimgate/internal/pipeline"
	"github.com/ppiankov/claimgate/internal/store"
	"github.com/ppiankov/claimgate/internal/worker"
)

// loadConfig builds the effective configuration: defaults, then config
// file / CLAIMGATE_* env values, then provider API keys from their
// conventional environment variables.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if v := viper.GetString("llm.provider"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := viper.GetString("llm.model"); v != "" {
		cfg.LLM.Model = v
	}
	if v := viper.GetString("llm.base_url"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := viper.GetInt("llm.timeout"); v > 0 {
		cfg.LLM.Timeout = v
	}
	if v := viper.GetFloat64("llm.rate_limit"); v > 0 {
		cfg.LLM.RateLimit = v
	}
	if v := viper.GetString("embedding.model"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := viper.GetString("store.path"); v != "" {
		cfg.Store.Path = v
	}
	if v := viper.GetInt("store.top_k"); v > 0 {
		cfg.Store.TopK = v
	}
	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if v := viper.GetString("cache.dir"); v != "" {
		cfg.Cache.Dir = v
	}
	if viper.IsSet("pipeline.llm_validation") {
		cfg.Pipeline.LLMValidation = viper.GetBool("pipeline.llm_validation")
	}
	if v := viper.GetFloat64("pipeline.high_amount_threshold"); v > 0 {
		cfg.Pipeline.HighAmountThreshold = v
	}
	if v := viper.GetString("server.addr"); v != "" {
		cfg.Server.Addr = v
	}
	cfg.Output.Verbose = viper.GetBool("verbose")

	if err := applyProviderEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyProviderEnv fills API keys from the environment per provider
func applyProviderEnv(cfg *model.Config) error {
	switch cfg.LLM.Provider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		// Ollama doesn't need an API key
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	}

	// Embeddings always go through the OpenAI API
	cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	return nil
}

// runtime bundles the wired collaborators for one command invocation
type runtime struct {
	pipeline *pipeline.Pipeline
	store    *store.SQLiteStore
	logger   *zap.Logger
}

func (rt *runtime) close() {
	if rt.store != nil {
		_ = rt.store.Close()
	}
	if rt.logger != nil {
		_ = rt.logger.Sync()
	}
}

// buildRuntime wires provider, store, cache, and limiter into a pipeline
func buildRuntime(cfg *model.Config) (*runtime, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("initialize completion provider: %w", err)
	}

	var embedder store.Embedder
	if cfg.Embedding.APIKey != "" {
		embedder, err = store.NewOpenAIEmbedder(cfg.Embedding)
		if err != nil {
			return nil, fmt.Errorf("initialize embedder: %w", err)
		}
	} else {
		logger.Warn("no embedding API key; policy retrieval disabled")
	}

	sqlStore, err := store.NewSQLiteStore(cfg.Store.Path, embedder)
	if err != nil {
		return nil, fmt.Errorf("open policy store: %w", err)
	}

	var retriever store.Retriever = sqlStore
	if cfg.Cache.Enabled {
		layered := cache.NewLayeredCache(
			cache.NewMemoryCache(cfg.Cache.MemoryTTL),
			cache.NewDiskCache(cfg.Cache.Dir, cfg.Cache.DiskTTL),
		)
		retriever = store.NewCachedRetriever(sqlStore, layered, cfg.Cache.MemoryTTL)
	}

	limiter := worker.NewLimiter(cfg.LLM.RateLimit, cfg.LLM.Burst)

	return &runtime{
		pipeline: pipeline.New(provider, retriever, limiter, cfg, logger),
		store:    sqlStore,
		logger:   logger,
	}, nil
}
