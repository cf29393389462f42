package providers

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/meysamhadeli/repoaudit/providers/contracts"
	"github.com/meysamhadeli/repoaudit/providers/ollama"
	"github.com/meysamhadeli/repoaudit/providers/openai"
	contracts_token "github.com/meysamhadeli/repoaudit/token_management/contracts"
)

// Supported provider names.
const (
	OpenAI = "openai"
	Ollama = "ollama"
)

// SupportedProviders lists the names accepted by ChatProviderFactory.
var SupportedProviders = []string{OpenAI, Ollama}

// AIProviderConfig configures the text-generation collaborator.
type AIProviderConfig struct {
	Provider    string        `mapstructure:"provider"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	ApiKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ErrUnknownProvider is returned for provider names outside SupportedProviders.
var ErrUnknownProvider = errors.New("unknown provider")

// ChatProviderFactory creates a chat provider from the configuration.
func ChatProviderFactory(config *AIProviderConfig, tokenManagement contracts_token.ITokenManagement) (contracts.IChatAIProvider, error) {
	if config == nil {
		return nil, errors.New("provider configuration is required")
	}

	switch config.Provider {
	case OpenAI:
		if config.ApiKey == "" {
			return nil, errors.New("an API key is required for the openai provider")
		}
		return openai.NewOpenAIChatProvider(&openai.OpenAIConfig{
			BaseURL:         config.BaseURL,
			Model:           config.Model,
			Temperature:     config.Temperature,
			MaxTokens:       config.MaxTokens,
			ApiKey:          config.ApiKey,
			Timeout:         config.Timeout,
			TokenManagement: tokenManagement,
		}), nil
	case Ollama:
		return ollama.NewOllamaChatProvider(&ollama.OllamaConfig{
			BaseURL:         config.BaseURL,
			Model:           config.Model,
			Temperature:     config.Temperature,
			MaxTokens:       config.MaxTokens,
			Timeout:         config.Timeout,
			TokenManagement: tokenManagement,
		}), nil
	default:
		return nil, fmt.Errorf("%w %q, expected one of %v", ErrUnknownProvider, config.Provider, SupportedProviders)
	}
}

// IsSupported reports whether name is a known provider.
func IsSupported(name string) bool {
	return slices.Contains(SupportedProviders, name)
}
