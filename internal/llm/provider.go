package llm

import "context"

// Provider defines the interface for completion-service collaborators
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends a single prompt and returns the raw completion text
	Complete(ctx context.Context, req CompleteRequest) (*CompleteResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompleteRequest contains the input for a completion call
type CompleteRequest struct {
	// System is the system instruction (optional)
	System string

	// Prompt is the user message
	Prompt string

	// Model overrides the configured model for this call (optional)
	Model string

	// MaxTokens limits the response length (0 = provider config default)
	MaxTokens int
}

// CompleteResponse contains the completion output
type CompleteResponse struct {
	// Text is the raw completion text; callers extract JSON from it themselves
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds completion provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for sampling; claim adjudication runs at 0
	Temperature float64

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "",
		Model:       "",
		Timeout:     30,
		MaxTokens:   1000,
		Temperature: 0,
	}
}

// DefaultSystem is the system instruction shared by all pipeline prompts
const DefaultSystem = "You are an insurance claims processing assistant. Respond with valid JSON only, no prose around it."
