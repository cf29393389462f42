package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/meysamhadeli/repoaudit/providers/contracts"
	"github.com/meysamhadeli/repoaudit/providers/models"
	"github.com/meysamhadeli/repoaudit/report"
	contracts2 "github.com/meysamhadeli/repoaudit/token_management/contracts"
)

// OpenAIConfig implements the Provider interface for OpenAI-compatible APIs.
type OpenAIConfig struct {
	BaseURL         string
	Model           string
	Temperature     float64
	MaxTokens       int
	ApiKey          string
	Timeout         time.Duration
	TokenManagement contracts2.ITokenManagement
}

type openAIProvider struct {
	client          openaisdk.Client
	model           string
	temperature     float64
	maxTokens       int
	tokenManagement contracts2.ITokenManagement
}

const (
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 500
	schemaName       = "repository_audit"
)

// NewOpenAIChatProvider initializes a new OpenAI provider.
func NewOpenAIChatProvider(config *OpenAIConfig) contracts.IChatAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(config.ApiKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}

	model := config.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &openAIProvider{
		client:          openaisdk.NewClient(opts...),
		model:           model,
		temperature:     config.Temperature,
		maxTokens:       maxTokens,
		tokenManagement: config.TokenManagement,
	}
}

func (p *openAIProvider) ChatCompletionRequest(ctx context.Context, userInput string, prompt string) <-chan models.StreamResponse {
	responseChan := make(chan models.StreamResponse)

	send := func(response models.StreamResponse) bool {
		select {
		case responseChan <- response:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(responseChan)

		params := openaisdk.ChatCompletionNewParams{
			Model: p.model,
			Messages: []openaisdk.ChatCompletionMessageParamUnion{
				openaisdk.SystemMessage(prompt),
				openaisdk.UserMessage(userInput),
			},
			MaxTokens:   openaisdk.Int(int64(p.maxTokens)),
			Temperature: openaisdk.Float(p.temperature),
			StreamOptions: openaisdk.ChatCompletionStreamOptionsParam{
				IncludeUsage: openaisdk.Bool(true),
			},
			ResponseFormat: openaisdk.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONSchema: &openaisdk.ResponseFormatJSONSchemaParam{
					JSONSchema: openaisdk.ResponseFormatJSONSchemaJSONSchemaParam{
						Name:        schemaName,
						Description: openaisdk.String("Repository health audit"),
						Schema:      report.ReplyJSONSchema(),
						Strict:      openaisdk.Bool(false),
					},
				},
			},
		}

		stream := p.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if chunk.Usage.PromptTokens > 0 && p.tokenManagement != nil {
				p.tokenManagement.UsedTokens(int(chunk.Usage.PromptTokens), int(chunk.Usage.CompletionTokens))
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			if content := chunk.Choices[0].Delta.Content; content != "" {
				if !send(models.StreamResponse{Content: content}) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			var apiErr *openaisdk.Error
			if errors.As(err, &apiErr) {
				send(models.StreamResponse{Err: fmt.Errorf("API request failed with status code '%d': %w", apiErr.StatusCode, err)})
				return
			}
			send(models.StreamResponse{Err: fmt.Errorf("error reading stream: %w", err)})
			return
		}

		send(models.StreamResponse{Done: true})
	}()

	return responseChan
}
