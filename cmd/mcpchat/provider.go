package main

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"mcpchat/pkg/config"
	"mcpchat/pkg/llmstream"
	"mcpchat/pkg/llmstream/resilience/retry"
	"mcpchat/pkg/llmstream/resilience/timeout"
	"mcpchat/pkg/logx"
)

// buildProvider resolves the configured model to a concrete Provider,
// wrapped with the same timeout-then-retry middleware stack regardless of
// backend.
func buildProvider(ctx context.Context, model config.ModelDef, requestTimeout time.Duration, logger *logx.Logger) (llmstream.Provider, error) {
	var provider llmstream.Provider

	switch model.Provider {
	case config.ProviderAnthropic:
		key, err := config.GetSecret("ANTHROPIC_API_KEY")
		if err != nil {
			return nil, fmt.Errorf("anthropic provider: %w", err)
		}
		provider = llmstream.NewAnthropicProvider(key, model.ResolvedModel())

	case config.ProviderOpenAI:
		key, err := config.GetSecret("OPENAI_API_KEY")
		if err != nil {
			return nil, fmt.Errorf("openai provider: %w", err)
		}
		provider = llmstream.NewOpenAIProvider(key, model.ResolvedModel())

	case config.ProviderGoogle:
		key, err := config.GetSecret("GOOGLE_API_KEY")
		if err != nil {
			return nil, fmt.Errorf("google provider: %w", err)
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("google provider: build client: %w", err)
		}
		provider = llmstream.NewGoogleProvider(client, model.ResolvedModel())

	case config.ProviderOllama:
		baseURL := model.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		ollamaProvider, err := llmstream.NewOllamaProvider(baseURL, model.ResolvedModel())
		if err != nil {
			return nil, fmt.Errorf("ollama provider: %w", err)
		}
		provider = ollamaProvider

	default:
		return nil, fmt.Errorf("unknown model provider %q", model.Provider)
	}

	policy := retry.NewPolicy(retry.DefaultConfig, nil)
	provider = retry.Middleware(policy, logger)(provider)
	provider = timeout.Middleware(requestTimeout)(provider)
	return provider, nil
}
