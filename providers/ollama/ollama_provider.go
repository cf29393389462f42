package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/meysamhadeli/repoaudit/providers/contracts"
	"github.com/meysamhadeli/repoaudit/providers/models"
	ollama_models "github.com/meysamhadeli/repoaudit/providers/ollama/models"
	contracts2 "github.com/meysamhadeli/repoaudit/token_management/contracts"
)

// OllamaConfig implements the Provider interface for a local Ollama server.
type OllamaConfig struct {
	BaseURL         string
	Model           string
	Temperature     float64
	MaxTokens       int
	Timeout         time.Duration
	TokenManagement contracts2.ITokenManagement
	HTTPClient      *http.Client
}

const (
	defaultBaseURL = "http://localhost:11434/api"
)

// NewOllamaChatProvider initializes a new Ollama provider.
func NewOllamaChatProvider(config *OllamaConfig) contracts.IChatAIProvider {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	return &OllamaConfig{
		BaseURL:         strings.TrimSuffix(baseURL, "/"),
		Model:           config.Model,
		Temperature:     config.Temperature,
		MaxTokens:       config.MaxTokens,
		Timeout:         config.Timeout,
		TokenManagement: config.TokenManagement,
		HTTPClient:      client,
	}
}

func (ollamaProvider *OllamaConfig) ChatCompletionRequest(ctx context.Context, userInput string, prompt string) <-chan models.StreamResponse {
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

		reqBody := ollama_models.OllamaChatCompletionRequest{
			Model: ollamaProvider.Model,
			Messages: []ollama_models.Message{
				{Role: "system", Content: prompt},
				{Role: "user", Content: userInput},
			},
			Stream: true,
			Format: "json",
			Options: ollama_models.Options{
				Temperature: ollamaProvider.Temperature,
				NumPredict:  ollamaProvider.MaxTokens,
			},
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			send(models.StreamResponse{Err: fmt.Errorf("error marshalling request body: %w", err)})
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/chat", ollamaProvider.BaseURL), bytes.NewBuffer(jsonData))
		if err != nil {
			send(models.StreamResponse{Err: fmt.Errorf("error creating request: %w", err)})
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := ollamaProvider.HTTPClient.Do(req)
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				send(models.StreamResponse{Err: fmt.Errorf("request canceled: %w", err)})
				return
			}
			send(models.StreamResponse{Err: fmt.Errorf("error sending request: %w", err)})
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
			send(models.StreamResponse{Err: fmt.Errorf("API request failed with status code '%d' - %s", resp.StatusCode, errorMessage(body))})
			return
		}

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if strings.TrimSpace(line) != "" {
				var response ollama_models.OllamaChatCompletionResponse
				if err := json.Unmarshal([]byte(line), &response); err != nil {
					send(models.StreamResponse{Err: fmt.Errorf("error unmarshalling chunk: %w", err)})
					return
				}

				if response.Message.Content != "" {
					if !send(models.StreamResponse{Content: response.Message.Content}) {
						return
					}
				}

				if response.Done {
					if ollamaProvider.TokenManagement != nil && response.PromptEvalCount > 0 {
						ollamaProvider.TokenManagement.UsedTokens(response.PromptEvalCount, response.EvalCount)
					}
					send(models.StreamResponse{Done: true})
					return
				}
			}

			if err != nil {
				if err == io.EOF {
					send(models.StreamResponse{Err: errors.New("stream ended before completion")})
					return
				}
				send(models.StreamResponse{Err: fmt.Errorf("error reading stream: %w", err)})
				return
			}
		}
	}()

	return responseChan
}

// errorMessage extracts a readable message from either error envelope.
func errorMessage(body []byte) string {
	var plain ollama_models.OllamaError
	if err := json.Unmarshal(body, &plain); err == nil && plain.Error != "" {
		return plain.Error
	}
	var apiError models.AIError
	if err := json.Unmarshal(body, &apiError); err == nil && apiError.Error.Message != "" {
		return apiError.Error.Message
	}
	return strings.TrimSpace(string(body))
}
